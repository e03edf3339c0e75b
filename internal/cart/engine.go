package cart

import (
	"sync"
	"time"

	"github.com/angelmondragon/nexusshop-storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/nexusshop-storefront/pkg/errors"
)

// ErrForeignVariant is returned when a variant is not one of the product's own.
var ErrForeignVariant = pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product")

// Command names reported to the observer.
const (
	CommandAdd          = "add_item"
	CommandUpdate       = "update_quantity"
	CommandRemove       = "remove_item"
	CommandClear        = "clear"
	CommandApplyCoupon  = "apply_coupon"
	CommandRemoveCoupon = "remove_coupon"
	CommandRestore      = "restore"
)

type commandObserver interface {
	ObserveCartCommand(command string)
	ObserveCouponAttempt(applied bool)
}

// Snapshot is an immutable view of the cart after a command.
type Snapshot struct {
	Items     []LineItem `json:"items"`
	Coupon    *Coupon    `json:"coupon,omitempty"`
	Totals    Totals     `json:"totals"`
	ItemCount int        `json:"itemCount"`
}

// Admission vets a pending change against the current rows. It runs with the
// cart locked and must not retain or modify rows.
type Admission func(rows []LineItem) error

// Engine is the shopper's cart. Commands on unknown line items are no-ops;
// AddItem fails only for a foreign variant or a rejected Admission.
type Engine struct {
	mu       sync.Mutex
	items    []LineItem
	coupon   *Coupon
	rules    Rules
	observer commandObserver
	now      func() time.Time
}

// NewEngine builds an empty cart priced with rules. observer may be nil.
func NewEngine(rules Rules, observer commandObserver) *Engine {
	return &Engine{
		items:    []LineItem{},
		rules:    rules,
		observer: observer,
		now:      time.Now,
	}
}

// Rules returns the pricing rules the engine was built with.
func (e *Engine) Rules() Rules {
	return e.rules
}

// AddItem merges into the row with the same product and variant, or appends
// a new row. A quantity below 1 adds a single unit.
func (e *Engine) AddItem(product catalog.Product, quantity int, variant *catalog.Variant) (Snapshot, error) {
	return e.AddItemAdmitted(product, quantity, variant, nil)
}

// AddItemAdmitted is AddItem gated by admit, which sees the rows as they are
// right before the change. A nil admit accepts everything.
func (e *Engine) AddItemAdmitted(product catalog.Product, quantity int, variant *catalog.Variant, admit Admission) (Snapshot, error) {
	if quantity <= 0 {
		quantity = 1
	}
	if variant != nil && !product.HasVariant(*variant) {
		return e.Snapshot(), ErrForeignVariant
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if admit != nil {
		if err := admit(e.items); err != nil {
			return e.snapshotLocked(), err
		}
	}

	variantID := ""
	if variant != nil {
		variantID = variant.ID
	}
	key := itemKey{productID: product.ID, variantID: variantID}
	if idx := e.indexOfKey(key); idx >= 0 {
		e.items[idx].Quantity += quantity
		e.observe(CommandAdd)
		return e.snapshotLocked(), nil
	}

	unitPrice := product.Price
	var variantCopy *catalog.Variant
	if variant != nil {
		v := *variant
		variantCopy = &v
		unitPrice = v.Price
	}
	e.items = append(e.items, LineItem{
		ID:        newLineItemID(product.ID, variantCopy),
		ProductID: product.ID,
		Name:      product.Name,
		Image:     product.PrimaryImage(),
		Variant:   variantCopy,
		UnitPrice: unitPrice,
		Quantity:  quantity,
		AddedAt:   e.now().UTC(),
	})
	e.observe(CommandAdd)
	return e.snapshotLocked(), nil
}

// UpdateQuantity sets the exact quantity of a row; zero or less removes it.
func (e *Engine) UpdateQuantity(lineItemID string, quantity int) Snapshot {
	snap, _ := e.UpdateQuantityAdmitted(lineItemID, quantity, nil)
	return snap
}

// UpdateQuantityAdmitted is UpdateQuantity gated by admit. Removals and
// unknown rows never consult admit.
func (e *Engine) UpdateQuantityAdmitted(lineItemID string, quantity int, admit Admission) (Snapshot, error) {
	if quantity <= 0 {
		return e.RemoveItem(lineItemID), nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx := e.indexOfID(lineItemID); idx >= 0 {
		if admit != nil {
			if err := admit(e.items); err != nil {
				return e.snapshotLocked(), err
			}
		}
		e.items[idx].Quantity = quantity
	}
	e.observe(CommandUpdate)
	return e.snapshotLocked(), nil
}

func (e *Engine) RemoveItem(lineItemID string) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx := e.indexOfID(lineItemID); idx >= 0 {
		e.items = append(e.items[:idx:idx], e.items[idx+1:]...)
	}
	e.observe(CommandRemove)
	return e.snapshotLocked()
}

// Clear empties the cart. The applied coupon is kept.
func (e *Engine) Clear() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = []LineItem{}
	e.observe(CommandClear)
	return e.snapshotLocked()
}

// ApplyCoupon replaces the active coupon when code is known. An unknown code
// leaves any active coupon in place and reports false.
func (e *Engine) ApplyCoupon(code string) (Snapshot, bool) {
	coupon, ok := e.rules.LookupCoupon(code)

	e.mu.Lock()
	defer e.mu.Unlock()
	if ok {
		e.coupon = &coupon
	}
	e.observe(CommandApplyCoupon)
	if e.observer != nil {
		e.observer.ObserveCouponAttempt(ok)
	}
	return e.snapshotLocked(), ok
}

func (e *Engine) RemoveCoupon() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.coupon = nil
	e.observe(CommandRemoveCoupon)
	return e.snapshotLocked()
}

// Restore replaces the rows with previously persisted ones. Rows with a
// non-positive quantity are dropped and rows sharing a product and variant
// merge into the first one. A missing or repeated id is replaced.
func (e *Engine) Restore(items []LineItem) Snapshot {
	restored := make([]LineItem, 0, len(items))
	seen := make(map[itemKey]int, len(items))
	ids := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Quantity <= 0 || item.ProductID == "" {
			continue
		}
		if idx, ok := seen[item.key()]; ok {
			restored[idx].Quantity += item.Quantity
			continue
		}
		row := item.clone()
		if _, dup := ids[row.ID]; dup || row.ID == "" {
			row.ID = newLineItemID(row.ProductID, row.Variant)
		}
		ids[row.ID] = struct{}{}
		seen[row.key()] = len(restored)
		restored = append(restored, row)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = restored
	e.observe(CommandRestore)
	return e.snapshotLocked()
}

// Snapshot returns the current state without changing it.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) Items() []LineItem {
	return e.Snapshot().Items
}

func (e *Engine) Totals() Totals {
	return e.Snapshot().Totals
}

// ItemCount is the sum of quantities across rows.
func (e *Engine) ItemCount() int {
	return e.Snapshot().ItemCount
}

// Coupon returns the active coupon, if any.
func (e *Engine) Coupon() *Coupon {
	return e.Snapshot().Coupon
}

// Recommended returns the first n rows, as shown in the cart's suggestions strip.
func (e *Engine) Recommended(n int) []LineItem {
	items := e.Items()
	if n < 0 {
		n = 0
	}
	if n < len(items) {
		items = items[:n]
	}
	return items
}

func (e *Engine) snapshotLocked() Snapshot {
	items := make([]LineItem, len(e.items))
	count := 0
	for i, item := range e.items {
		items[i] = item.clone()
		count += item.Quantity
	}
	var coupon *Coupon
	if e.coupon != nil {
		c := *e.coupon
		coupon = &c
	}
	return Snapshot{
		Items:     items,
		Coupon:    coupon,
		Totals:    Compute(items, coupon, e.rules),
		ItemCount: count,
	}
}

func (e *Engine) indexOfID(id string) int {
	for i, item := range e.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) indexOfKey(key itemKey) int {
	for i, item := range e.items {
		if item.key() == key {
			return i
		}
	}
	return -1
}

func (e *Engine) observe(command string) {
	if e.observer != nil {
		e.observer.ObserveCartCommand(command)
	}
}
