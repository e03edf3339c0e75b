package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

//go:embed data/*.json
var fixtures embed.FS

// Catalog is the static product collection. It never changes after load, so
// derived facets are computed once.
type Catalog struct {
	products   []Product
	byID       map[string]int
	categories []Category

	facetsOnce sync.Once
	brands     []string
	bounds     PriceRange
}

// New builds a catalog from the given products and categories.
func New(products []Product, categories []Category) (*Catalog, error) {
	byID := make(map[string]int, len(products))
	for i, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product at index %d has no id", i)
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		if p.StockCount < 0 {
			return nil, fmt.Errorf("product %q has negative stock count", p.ID)
		}
		byID[p.ID] = i
	}
	return &Catalog{
		products:   append([]Product(nil), products...),
		byID:       byID,
		categories: append([]Category(nil), categories...),
	}, nil
}

// Load reads the embedded storefront fixture.
func Load() (*Catalog, error) {
	var products []Product
	if err := decodeFixture("data/products.json", &products); err != nil {
		return nil, err
	}
	var categories []Category
	if err := decodeFixture("data/categories.json", &categories); err != nil {
		return nil, err
	}
	return New(products, categories)
}

func decodeFixture(name string, dest any) error {
	raw, err := fixtures.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read fixture %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode fixture %s: %w", name, err)
	}
	return nil
}

// Products returns a copy of the full collection in fixture order.
func (c *Catalog) Products() []Product {
	return append([]Product(nil), c.products...)
}

// Product looks up a product by id.
func (c *Catalog) Product(id string) (Product, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

// Category looks up a category by slug.
func (c *Catalog) Category(slug string) (Category, bool) {
	for _, cat := range c.categories {
		if cat.Slug == slug {
			return cat, true
		}
	}
	return Category{}, false
}

func (c *Catalog) ByCategory(slug string) []Product {
	return c.where(func(p Product) bool { return p.Category == slug })
}

func (c *Catalog) Featured() []Product {
	return c.where(func(p Product) bool { return p.Featured })
}

func (c *Catalog) NewArrivals() []Product {
	return c.where(func(p Product) bool { return p.New })
}

func (c *Catalog) OnSale() []Product {
	return c.where(func(p Product) bool { return p.Sale })
}

func (c *Catalog) where(keep func(Product) bool) []Product {
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// Brands returns the sorted distinct brands of the full collection.
func (c *Catalog) Brands() []string {
	c.facetsOnce.Do(c.computeFacets)
	return append([]string(nil), c.brands...)
}

// PriceBounds returns the [min, max] price of the full collection. An empty
// catalog yields [0, 0].
func (c *Catalog) PriceBounds() PriceRange {
	c.facetsOnce.Do(c.computeFacets)
	return c.bounds
}

func (c *Catalog) computeFacets() {
	c.brands, c.bounds = Facets(c.products)
}

// Facets derives the distinct sorted brands and the price bounds of products.
func Facets(products []Product) ([]string, PriceRange) {
	seen := make(map[string]struct{}, len(products))
	brands := make([]string, 0, len(products))
	bounds := PriceRange{Min: decimal.Zero, Max: decimal.Zero}
	for i, p := range products {
		if _, ok := seen[p.Brand]; !ok {
			seen[p.Brand] = struct{}{}
			brands = append(brands, p.Brand)
		}
		if i == 0 || p.Price.LessThan(bounds.Min) {
			bounds.Min = p.Price
		}
		if i == 0 || p.Price.GreaterThan(bounds.Max) {
			bounds.Max = p.Price
		}
	}
	sort.Strings(brands)
	return brands, bounds
}
