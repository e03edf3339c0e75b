package cart

import (
	"fmt"
	"time"

	"github.com/angelmondragon/nexusshop-storefront/internal/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultVariantKey = "default"

// LineItem is one cart row. UnitPrice is snapshotted when the row is created.
type LineItem struct {
	ID        string           `json:"id"`
	ProductID string           `json:"productId"`
	Name      string           `json:"name"`
	Image     string           `json:"image"`
	Variant   *catalog.Variant `json:"variant,omitempty"`
	UnitPrice decimal.Decimal  `json:"unitPrice"`
	Quantity  int              `json:"quantity"`
	AddedAt   time.Time        `json:"addedAt"`
}

// LineTotal is UnitPrice times Quantity, unrounded.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// VariantID returns the variant id or an empty string.
func (li LineItem) VariantID() string {
	if li.Variant == nil {
		return ""
	}
	return li.Variant.ID
}

type itemKey struct {
	productID string
	variantID string
}

func (li LineItem) key() itemKey {
	return itemKey{productID: li.ProductID, variantID: li.VariantID()}
}

func (li LineItem) clone() LineItem {
	out := li
	if li.Variant != nil {
		v := *li.Variant
		out.Variant = &v
	}
	return out
}

func newLineItemID(productID string, variant *catalog.Variant) string {
	variantKey := defaultVariantKey
	if variant != nil {
		variantKey = variant.ID
	}
	return fmt.Sprintf("%s-%s-%s", productID, variantKey, uuid.NewString())
}
