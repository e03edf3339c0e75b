package shipping

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/angelmondragon/nexusshop-storefront/pkg/mocknet"
	"github.com/angelmondragon/nexusshop-storefront/pkg/money"
	"github.com/shopspring/decimal"
)

const (
	minCostCents   int64 = 500
	costSpanCents  int64 = 1500
	operationLabel       = "shipping.estimate"
)

// Address is the destination used for an estimate. The mock carrier ignores
// everything but its presence.
type Address struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required,len=2"`
}

// Estimator quotes a pseudo-random shipping cost after a simulated carrier
// round trip.
type Estimator struct {
	sim  *mocknet.Simulator
	rand func() float64
}

// NewEstimator builds an estimator. A nil rnd uses math/rand/v2.
func NewEstimator(sim *mocknet.Simulator, rnd func() float64) (*Estimator, error) {
	if sim == nil {
		return nil, fmt.Errorf("simulator is required")
	}
	if rnd == nil {
		rnd = rand.Float64
	}
	return &Estimator{sim: sim, rand: rnd}, nil
}

// Estimate returns a cost in [5.00, 19.99].
func (e *Estimator) Estimate(ctx context.Context, _ Address) (decimal.Decimal, error) {
	return mocknet.Call(ctx, e.sim, operationLabel, func(context.Context) (decimal.Decimal, error) {
		cents := minCostCents + int64(e.rand()*float64(costSpanCents))
		if max := minCostCents + costSpanCents - 1; cents > max {
			cents = max
		}
		return money.FromCents(cents), nil
	})
}
