package search

import (
	"strings"

	"github.com/angelmondragon/nexusshop-storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

// Criteria is the current combination of search and filter inputs. Empty
// category or brand selections impose no restriction.
type Criteria struct {
	Query       string             `json:"query"`
	PriceRange  catalog.PriceRange `json:"priceRange"`
	Categories  []string           `json:"categories"`
	Brands      []string           `json:"brands"`
	MinRating   float64            `json:"minRating"`
	InStockOnly bool               `json:"inStockOnly"`
	OnSaleOnly  bool               `json:"onSaleOnly"`
}

// DefaultCriteria returns criteria that match every product of the given
// collection: the price range spans its bounds and nothing is selected.
func DefaultCriteria(bounds catalog.PriceRange) Criteria {
	return Criteria{
		PriceRange: bounds,
		Categories: []string{},
		Brands:     []string{},
	}
}

func (c Criteria) clone() Criteria {
	out := c
	out.Categories = append([]string{}, c.Categories...)
	out.Brands = append([]string{}, c.Brands...)
	return out
}

// Filter returns the products matching every active predicate, preserving the
// input order. It never mutates products and does not validate c, so an
// inverted price range simply matches nothing.
func Filter(products []catalog.Product, c Criteria) []catalog.Product {
	m := newMatcher(c)
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if m.match(p) {
			out = append(out, p)
		}
	}
	return out
}

// Matches reports whether a single product satisfies c.
func Matches(p catalog.Product, c Criteria) bool {
	return newMatcher(c).match(p)
}

type matcher struct {
	query      string
	priceRange catalog.PriceRange
	categories map[string]struct{}
	brands     map[string]struct{}
	minRating  float64
	inStock    bool
	onSale     bool
}

func newMatcher(c Criteria) matcher {
	return matcher{
		query:      strings.ToLower(c.Query),
		priceRange: c.PriceRange,
		categories: toSet(c.Categories),
		brands:     toSet(c.Brands),
		minRating:  c.MinRating,
		inStock:    c.InStockOnly,
		onSale:     c.OnSaleOnly,
	}
}

func (m matcher) match(p catalog.Product) bool {
	if m.query != "" && !strings.Contains(SearchText(p), m.query) {
		return false
	}
	if !m.priceRange.Contains(p.Price) {
		return false
	}
	if len(m.categories) > 0 {
		if _, ok := m.categories[p.Category]; !ok {
			return false
		}
	}
	if len(m.brands) > 0 {
		if _, ok := m.brands[p.Brand]; !ok {
			return false
		}
	}
	if p.Rating < m.minRating {
		return false
	}
	if m.inStock && !p.InStock {
		return false
	}
	if m.onSale && !p.Sale {
		return false
	}
	return true
}

// SearchText is the lower-cased haystack the free-text query is matched
// against: name, description, brand and tags joined by spaces.
func SearchText(p catalog.Product) string {
	return strings.ToLower(p.Name + " " + p.Description + " " + p.Brand + " " + strings.Join(p.Tags, " "))
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// ActiveFilterCount counts the filters a shopper has changed from the
// defaults, mirroring the badge on the filter toggle. The query is not a filter.
func ActiveFilterCount(c Criteria, bounds catalog.PriceRange) int {
	count := len(c.Categories) + len(c.Brands)
	if c.MinRating > 0 {
		count++
	}
	if c.InStockOnly {
		count++
	}
	if c.OnSaleOnly {
		count++
	}
	if !c.PriceRange.Min.Equal(bounds.Min) || !c.PriceRange.Max.Equal(bounds.Max) {
		count++
	}
	return count
}

// NewPriceRange is a convenience for building a closed interval from whole amounts.
func NewPriceRange(min, max decimal.Decimal) catalog.PriceRange {
	return catalog.PriceRange{Min: min, Max: max}
}
