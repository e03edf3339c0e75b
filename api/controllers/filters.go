package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nexusshop-storefront/api/responses"
	"github.com/angelmondragon/nexusshop-storefront/api/validators"
	"github.com/angelmondragon/nexusshop-storefront/internal/search"
	pkgerrors "github.com/angelmondragon/nexusshop-storefront/pkg/errors"
	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
)

// FilterEngine holds the shopper's current filter criteria.
type FilterEngine interface {
	Results() search.Results
	Update(fn func(*search.Criteria)) search.Results
	ToggleCategory(category string) search.Results
	ToggleBrand(brand string) search.Results
	Reset() search.Results
}

// filtersPatch is a partial criteria update; nil fields are left alone. The
// price range is not normalized, so min above max matches nothing.
type filtersPatch struct {
	Query       *string          `json:"query,omitempty" validate:"omitempty,max=200"`
	MinPrice    *decimal.Decimal `json:"minPrice,omitempty"`
	MaxPrice    *decimal.Decimal `json:"maxPrice,omitempty"`
	Categories  *[]string        `json:"categories,omitempty"`
	Brands      *[]string        `json:"brands,omitempty"`
	MinRating   *float64         `json:"minRating,omitempty" validate:"omitempty,min=0,max=5"`
	InStockOnly *bool            `json:"inStockOnly,omitempty"`
	OnSaleOnly  *bool            `json:"onSaleOnly,omitempty"`
}

func (p filtersPatch) apply(c *search.Criteria) {
	if p.Query != nil {
		c.Query = strings.TrimSpace(*p.Query)
	}
	if p.MinPrice != nil {
		c.PriceRange.Min = *p.MinPrice
	}
	if p.MaxPrice != nil {
		c.PriceRange.Max = *p.MaxPrice
	}
	if p.Categories != nil {
		c.Categories = append([]string{}, (*p.Categories)...)
	}
	if p.Brands != nil {
		c.Brands = append([]string{}, (*p.Brands)...)
	}
	if p.MinRating != nil {
		c.MinRating = *p.MinRating
	}
	if p.InStockOnly != nil {
		c.InStockOnly = *p.InStockOnly
	}
	if p.OnSaleOnly != nil {
		c.OnSaleOnly = *p.OnSaleOnly
	}
}

func FiltersGet(engine FilterEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, engine.Results())
	}
}

func FiltersPatch(engine FilterEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch filtersPatch
		if err := validators.DecodeJSONBody(r, &patch); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Update(patch.apply))
	}
}

// FiltersToggleCategory adds or removes {category} from the selection.
func FiltersToggleCategory(engine FilterEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, err := pathValue(r, "category")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.ToggleCategory(category))
	}
}

// FiltersToggleBrand adds or removes {brand} from the selection.
func FiltersToggleBrand(engine FilterEngine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		brand, err := pathValue(r, "brand")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.ToggleBrand(brand))
	}
}

func FiltersReset(engine FilterEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, engine.Reset())
	}
}

func pathValue(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if unescaped, err := url.PathUnescape(value); err == nil {
		value = unescaped
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "%s is required", name).WithDetails(map[string]any{"field": name})
	}
	return value, nil
}
