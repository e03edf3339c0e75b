package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nexusshop-storefront/api/responses"
	"github.com/angelmondragon/nexusshop-storefront/api/validators"
	"github.com/angelmondragon/nexusshop-storefront/internal/catalog"
	"github.com/angelmondragon/nexusshop-storefront/internal/search"
	pkgerrors "github.com/angelmondragon/nexusshop-storefront/pkg/errors"
	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
)

const maxQueryLen = 200

// Catalog sections selectable with ?section=.
const (
	SectionFeatured = "featured"
	SectionNew      = "new"
	SectionSale     = "sale"
)

// CatalogReader is the read surface of the static catalog.
type CatalogReader interface {
	Products() []catalog.Product
	Product(id string) (catalog.Product, bool)
	Categories() []catalog.Category
	Featured() []catalog.Product
	NewArrivals() []catalog.Product
	OnSale() []catalog.Product
	Brands() []string
	PriceBounds() catalog.PriceRange
}

type filterObserver interface {
	ObserveFilterQuery(resultSize int)
}

type productResponse struct {
	catalog.Product
	DiscountPercent int64 `json:"discountPercent"`
}

func newProductResponse(p catalog.Product) productResponse {
	return productResponse{Product: p, DiscountPercent: p.DiscountPercent()}
}

// CatalogProducts filters the catalog statelessly from query parameters.
func CatalogProducts(cat CatalogReader, observer filterObserver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		base, err := sectionProducts(cat, r.URL.Query().Get("section"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		criteria, err := criteriaFromQuery(r, cat.PriceBounds())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		matched := search.Filter(base, criteria)
		if observer != nil {
			observer.ObserveFilterQuery(len(matched))
		}
		out := make([]productResponse, 0, len(matched))
		for _, p := range matched {
			out = append(out, newProductResponse(p))
		}
		responses.WriteList(w, out, len(out))
	}
}

// CatalogProduct returns one product by id.
func CatalogProduct(cat CatalogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "productID"))
		product, ok := cat.Product(id)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{"productId": id}))
			return
		}
		responses.WriteSuccess(w, newProductResponse(product))
	}
}

func CatalogCategories(cat CatalogReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories := cat.Categories()
		responses.WriteList(w, categories, len(categories))
	}
}

// CatalogFacets returns the brand list and price bounds used to build filters.
func CatalogFacets(cat CatalogReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, search.Facets{Brands: cat.Brands(), PriceRange: cat.PriceBounds()})
	}
}

func sectionProducts(cat CatalogReader, section string) ([]catalog.Product, error) {
	switch strings.ToLower(strings.TrimSpace(section)) {
	case "":
		return cat.Products(), nil
	case SectionFeatured:
		return cat.Featured(), nil
	case SectionNew:
		return cat.NewArrivals(), nil
	case SectionSale:
		return cat.OnSale(), nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown catalog section").WithDetails(map[string]any{
		"field":   "section",
		"allowed": []string{SectionFeatured, SectionNew, SectionSale},
	})
}

// criteriaFromQuery starts from the default criteria so absent parameters
// impose no restriction.
func criteriaFromQuery(r *http.Request, bounds catalog.PriceRange) (search.Criteria, error) {
	criteria := search.DefaultCriteria(bounds)
	criteria.Query = validators.TruncateString(r.URL.Query().Get("q"), maxQueryLen)

	if lo, ok, err := validators.ParseQueryDecimal(r, "min_price"); err != nil {
		return criteria, err
	} else if ok {
		criteria.PriceRange.Min = lo
	}
	if hi, ok, err := validators.ParseQueryDecimal(r, "max_price"); err != nil {
		return criteria, err
	} else if ok {
		criteria.PriceRange.Max = hi
	}
	if rating, ok, err := validators.ParseQueryDecimal(r, "min_rating"); err != nil {
		return criteria, err
	} else if ok {
		if rating.IsNegative() || rating.GreaterThan(decimal.NewFromInt(5)) {
			return criteria, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": "min_rating", "min": 0, "max": 5})
		}
		criteria.MinRating = rating.InexactFloat64()
	}

	var err error
	if criteria.InStockOnly, err = validators.ParseQueryBool(r, "in_stock"); err != nil {
		return criteria, err
	}
	if criteria.OnSaleOnly, err = validators.ParseQueryBool(r, "on_sale"); err != nil {
		return criteria, err
	}
	if categories := validators.ParseQueryList(r, "category"); len(categories) > 0 {
		criteria.Categories = categories
	}
	if brands := validators.ParseQueryList(r, "brand"); len(brands) > 0 {
		criteria.Brands = brands
	}
	return criteria, nil
}
