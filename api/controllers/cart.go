package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/nexusshop-storefront/api/responses"
	"github.com/angelmondragon/nexusshop-storefront/api/validators"
	"github.com/angelmondragon/nexusshop-storefront/internal/cart"
	"github.com/angelmondragon/nexusshop-storefront/internal/catalog"
	"github.com/angelmondragon/nexusshop-storefront/internal/shipping"
	pkgerrors "github.com/angelmondragon/nexusshop-storefront/pkg/errors"
	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
	"github.com/angelmondragon/nexusshop-storefront/pkg/money"
)

const (
	defaultRecommended = 3
	maxRecommended     = 20
	maxLineQuantity    = 999
)

// CartService is the persisted cart. *cart.PersistentEngine satisfies it.
type CartService interface {
	Snapshot() cart.Snapshot
	Recommended(n int) []cart.LineItem
	AddItemAdmitted(ctx context.Context, product catalog.Product, quantity int, variant *catalog.Variant, admit cart.Admission) (cart.Snapshot, error)
	UpdateQuantityAdmitted(ctx context.Context, lineItemID string, quantity int, admit cart.Admission) (cart.Snapshot, error)
	RemoveItem(ctx context.Context, lineItemID string) cart.Snapshot
	Clear(ctx context.Context) cart.Snapshot
	ApplyCoupon(code string) (cart.Snapshot, bool)
	RemoveCoupon() cart.Snapshot
}

type productLookup interface {
	Product(id string) (catalog.Product, bool)
}

// ShippingEstimator quotes a shipping fee for an address.
type ShippingEstimator interface {
	Estimate(ctx context.Context, addr shipping.Address) (decimal.Decimal, error)
}

type cartResponse struct {
	Items     []cart.LineItem `json:"items"`
	Coupon    *cart.Coupon    `json:"coupon,omitempty"`
	Totals    cart.Totals     `json:"totals"`
	ItemCount int             `json:"itemCount"`
}

// newCartResponse rounds the totals once for display.
func newCartResponse(snap cart.Snapshot) cartResponse {
	items := snap.Items
	if items == nil {
		items = []cart.LineItem{}
	}
	return cartResponse{
		Items:     items,
		Coupon:    snap.Coupon,
		Totals:    snap.Totals.Rounded(),
		ItemCount: snap.ItemCount,
	}
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity" validate:"max=999"`
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=999"`
}

type couponRequest struct {
	Code string `json:"code" validate:"max=64"`
}

type couponResponse struct {
	Applied bool         `json:"applied"`
	Cart    cartResponse `json:"cart"`
}

type shippingEstimateResponse struct {
	ShippingFee decimal.Decimal `json:"shippingFee"`
	Formatted   string          `json:"formatted"`
}

func CartGet(svc CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newCartResponse(svc.Snapshot()))
	}
}

// CartAddItem adds a product, rejecting requests that would exceed the
// product's stock across all of its rows. The check runs under the cart lock.
func CartAddItem(svc CartService, products productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		product, ok := products.Product(strings.TrimSpace(body.ProductID))
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").WithDetails(map[string]any{"productId": body.ProductID}))
			return
		}
		if logg != nil {
			ctx = logg.WithProductID(ctx, product.ID)
		}

		var variant *catalog.Variant
		if id := strings.TrimSpace(body.VariantID); id != "" {
			v, ok := product.Variant(id)
			if !ok {
				responses.WriteError(ctx, logg, w, cart.ErrForeignVariant.WithDetails(map[string]any{"variantId": id}))
				return
			}
			variant = &v
		}

		quantity := body.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		admit := func(rows []cart.LineItem) error {
			return checkStock(product, quantityInCart(rows, product.ID, "")+quantity)
		}
		snap, err := svc.AddItemAdmitted(ctx, product, quantity, variant, admit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(snap))
	}
}

// CartUpdateItem sets a row's quantity. Zero removes the row and unknown rows
// are left alone.
func CartUpdateItem(svc CartService, products productLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		itemID, err := pathValue(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body updateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithLineItemID(ctx, itemID)
		}

		quantity := *body.Quantity
		admit := func(rows []cart.LineItem) error {
			row, ok := findItem(rows, itemID)
			if !ok {
				return nil
			}
			product, ok := products.Product(row.ProductID)
			if !ok {
				return nil
			}
			return checkStock(product, quantityInCart(rows, row.ProductID, itemID)+quantity)
		}
		snap, err := svc.UpdateQuantityAdmitted(ctx, itemID, quantity, admit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(snap))
	}
}

func CartRemoveItem(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := pathValue(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(svc.RemoveItem(r.Context(), itemID)))
	}
}

// CartClear empties the rows. An applied coupon stays applied.
func CartClear(svc CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newCartResponse(svc.Clear(r.Context())))
	}
}

// CartApplyCoupon reports an unknown code as applied=false, not as an error.
func CartApplyCoupon(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body couponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snap, applied := svc.ApplyCoupon(body.Code)
		responses.WriteSuccess(w, couponResponse{Applied: applied, Cart: newCartResponse(snap)})
	}
}

func CartRemoveCoupon(svc CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, newCartResponse(svc.RemoveCoupon()))
	}
}

// CartRecommended returns up to ?limit= rows for the "you may also like" rail.
func CartRecommended(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", defaultRecommended, 1, maxRecommended)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		items := svc.Recommended(limit)
		responses.WriteList(w, items, len(items))
	}
}

// CartShippingEstimate quotes shipping through the simulated carrier.
func CartShippingEstimate(estimator ShippingEstimator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var addr shipping.Address
		if err := validators.DecodeJSONBody(r, &addr); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fee, err := estimator.Estimate(r.Context(), addr)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shippingEstimateResponse{ShippingFee: money.Round(fee), Formatted: money.Format(fee)})
	}
}

func checkStock(product catalog.Product, wanted int) error {
	if !product.InStock || product.StockCount <= 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "product is out of stock").WithDetails(map[string]any{"productId": product.ID})
	}
	if wanted > product.StockCount || wanted > maxLineQuantity {
		return pkgerrors.New(pkgerrors.CodeConflict, "requested quantity exceeds stock").WithDetails(map[string]any{
			"productId":  product.ID,
			"requested":  wanted,
			"stockCount": product.StockCount,
		})
	}
	return nil
}

// quantityInCart sums the product's rows, skipping the row with skipID.
func quantityInCart(items []cart.LineItem, productID, skipID string) int {
	total := 0
	for _, item := range items {
		if item.ProductID == productID && item.ID != skipID {
			total += item.Quantity
		}
	}
	return total
}

func findItem(items []cart.LineItem, id string) (cart.LineItem, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return cart.LineItem{}, false
}
