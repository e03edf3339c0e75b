package catalog

import (
	"github.com/shopspring/decimal"
)

// Product is immutable reference data for one catalog entry.
type Product struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Price          decimal.Decimal   `json:"price"`
	OriginalPrice  *decimal.Decimal  `json:"originalPrice,omitempty"`
	Category       string            `json:"category"`
	Subcategory    string            `json:"subcategory"`
	Images         []string          `json:"images"`
	Rating         float64           `json:"rating"`
	ReviewCount    int               `json:"reviewCount"`
	InStock        bool              `json:"inStock"`
	StockCount     int               `json:"stockCount"`
	Brand          string            `json:"brand"`
	Tags           []string          `json:"tags"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Variants       []Variant         `json:"variants,omitempty"`
	Featured       bool              `json:"featured"`
	New            bool              `json:"new"`
	Sale           bool              `json:"sale"`
}

// Variant is an alternate purchasable configuration of a product. ID is the
// stable identity used when merging cart rows.
type Variant struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Price          decimal.Decimal   `json:"price"`
	Images         []string          `json:"images,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
}

// Category is a top-level browse node with its subcategories.
type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	Description   string        `json:"description"`
	Image         string        `json:"image"`
	ProductCount  int           `json:"productCount"`
	Subcategories []Subcategory `json:"subcategories"`
}

type Subcategory struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	ProductCount int    `json:"productCount"`
}

// PriceRange is a closed [Min, Max] interval.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Contains reports whether price lies inside the closed interval.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(r.Min) && price.LessThanOrEqual(r.Max)
}

// Variant returns the variant with the given id.
func (p Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// HasVariant reports whether v is one of the product's variants. The id and
// price must both match so a tampered price override is treated as foreign.
func (p Product) HasVariant(v Variant) bool {
	own, ok := p.Variant(v.ID)
	return ok && own.Price.Equal(v.Price)
}

// DefaultVariant returns the first variant, which the detail view preselects.
func (p Product) DefaultVariant() *Variant {
	if len(p.Variants) == 0 {
		return nil
	}
	v := p.Variants[0]
	return &v
}

// DiscountPercent returns the whole-number markdown from OriginalPrice, or 0.
func (p Product) DiscountPercent() int64 {
	if p.OriginalPrice == nil || !p.OriginalPrice.GreaterThan(p.Price) {
		return 0
	}
	diff := p.OriginalPrice.Sub(p.Price)
	return diff.Div(*p.OriginalPrice).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// PrimaryImage returns the first image or an empty string.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
