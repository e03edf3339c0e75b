package search

import (
	"sync"

	"github.com/angelmondragon/nexusshop-storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

type productSource interface {
	Products() []catalog.Product
	PriceBounds() catalog.PriceRange
	Brands() []string
}

type queryObserver interface {
	ObserveFilterQuery(resultSize int)
}

// Results is the derived view for the current criteria.
type Results struct {
	Criteria      Criteria          `json:"criteria"`
	Products      []catalog.Product `json:"products"`
	Count         int               `json:"count"`
	Query         string            `json:"query"`
	ActiveFilters int               `json:"activeFilters"`
}

// Facets are the filter-building inputs derived from the full collection.
type Facets struct {
	Brands     []string           `json:"brands"`
	PriceRange catalog.PriceRange `json:"priceRange"`
}

// Engine owns the current criteria for one shopper. Criteria are ephemeral:
// a new engine always starts from the defaults.
type Engine struct {
	mu       sync.Mutex
	source   productSource
	criteria Criteria
	observer queryObserver
}

// NewEngine builds an engine over source, starting from default criteria.
// observer may be nil.
func NewEngine(source productSource, observer queryObserver) *Engine {
	return &Engine{
		source:   source,
		criteria: DefaultCriteria(source.PriceBounds()),
		observer: observer,
	}
}

// Criteria returns a copy of the current criteria.
func (e *Engine) Criteria() Criteria {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.criteria.clone()
}

func (e *Engine) Facets() Facets {
	return Facets{Brands: e.source.Brands(), PriceRange: e.source.PriceBounds()}
}

// Update applies fn to a copy of the criteria and stores the result.
func (e *Engine) Update(fn func(*Criteria)) Results {
	e.mu.Lock()
	next := e.criteria.clone()
	fn(&next)
	e.criteria = next
	e.mu.Unlock()
	return e.Results()
}

func (e *Engine) SetQuery(query string) Results {
	return e.Update(func(c *Criteria) { c.Query = query })
}

func (e *Engine) SetPriceRange(min, max decimal.Decimal) Results {
	return e.Update(func(c *Criteria) { c.PriceRange = catalog.PriceRange{Min: min, Max: max} })
}

func (e *Engine) SetMinRating(rating float64) Results {
	return e.Update(func(c *Criteria) { c.MinRating = rating })
}

func (e *Engine) SetInStockOnly(on bool) Results {
	return e.Update(func(c *Criteria) { c.InStockOnly = on })
}

func (e *Engine) SetOnSaleOnly(on bool) Results {
	return e.Update(func(c *Criteria) { c.OnSaleOnly = on })
}

// ToggleCategory adds the category to the selection, or removes it when present.
func (e *Engine) ToggleCategory(category string) Results {
	return e.Update(func(c *Criteria) { c.Categories = toggle(c.Categories, category) })
}

// ToggleBrand adds the brand to the selection, or removes it when present.
func (e *Engine) ToggleBrand(brand string) Results {
	return e.Update(func(c *Criteria) { c.Brands = toggle(c.Brands, brand) })
}

// Reset restores the default criteria.
func (e *Engine) Reset() Results {
	e.mu.Lock()
	e.criteria = DefaultCriteria(e.source.PriceBounds())
	e.mu.Unlock()
	return e.Results()
}

// Results filters the full collection with the current criteria.
func (e *Engine) Results() Results {
	criteria := e.Criteria()
	matched := Filter(e.source.Products(), criteria)
	if e.observer != nil {
		e.observer.ObserveFilterQuery(len(matched))
	}
	return Results{
		Criteria:      criteria,
		Products:      matched,
		Count:         len(matched),
		Query:         criteria.Query,
		ActiveFilters: ActiveFilterCount(criteria, e.source.PriceBounds()),
	}
}

func toggle(values []string, value string) []string {
	out := make([]string, 0, len(values)+1)
	found := false
	for _, v := range values {
		if v == value {
			found = true
			continue
		}
		out = append(out, v)
	}
	if !found {
		out = append(out, value)
	}
	return out
}
