package cart

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/nexusshop-storefront/pkg/config"
	"github.com/angelmondragon/nexusshop-storefront/pkg/money"
	"github.com/shopspring/decimal"
)

// Coupon is an applied percentage discount.
type Coupon struct {
	Code       string          `json:"code"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Rules are the pricing constants and the coupon table.
type Rules struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	Coupons               map[string]decimal.Decimal
}

// DefaultRules returns the storefront's standard pricing.
func DefaultRules() Rules {
	return Rules{
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: decimal.NewFromInt(100),
		FlatShippingFee:       decimal.RequireFromString("9.99"),
		Coupons: map[string]decimal.Decimal{
			"WELCOME10": decimal.NewFromInt(10),
			"SAVE20":    decimal.NewFromInt(20),
			"NEXUS15":   decimal.NewFromInt(15),
		},
	}
}

// RulesFromConfig parses the pricing section of the configuration.
func RulesFromConfig(cfg config.PricingConfig) (Rules, error) {
	taxRate, threshold, flatFee, err := cfg.Decimals()
	if err != nil {
		return Rules{}, fmt.Errorf("pricing rules: %w", err)
	}
	coupons, err := cfg.CouponPercentages()
	if err != nil {
		return Rules{}, fmt.Errorf("pricing rules: %w", err)
	}
	return Rules{
		TaxRate:               taxRate,
		FreeShippingThreshold: threshold,
		FlatShippingFee:       flatFee,
		Coupons:               coupons,
	}, nil
}

// LookupCoupon resolves a code case-insensitively after trimming.
func (r Rules) LookupCoupon(code string) (Coupon, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return Coupon{}, false
	}
	pct, ok := r.Coupons[normalized]
	if !ok {
		return Coupon{}, false
	}
	return Coupon{Code: normalized, Percentage: pct}, true
}

// Totals is the derived price breakdown of a cart. Values are unrounded.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// Rounded returns each line rounded once to the cent for display.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:    money.Round(t.Subtotal),
		Discount:    money.Round(t.Discount),
		ShippingFee: money.Round(t.ShippingFee),
		Tax:         money.Round(t.Tax),
		Total:       money.Round(t.Total),
	}
}

// Compute derives totals from line items. Shipping and tax are assessed on
// the discounted subtotal; shipping is free only strictly above the threshold.
func Compute(items []LineItem, coupon *Coupon, rules Rules) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	discount := decimal.Zero
	if coupon != nil {
		discount = money.Percent(subtotal, coupon.Percentage)
	}

	taxable := subtotal.Sub(discount)
	shipping := rules.FlatShippingFee
	if taxable.GreaterThan(rules.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := taxable.Mul(rules.TaxRate)

	return Totals{
		Subtotal:    subtotal,
		Discount:    discount,
		ShippingFee: shipping,
		Tax:         tax,
		Total:       money.Sum(taxable, shipping, tax),
	}
}
