package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/nexusshop-storefront/internal/catalog"
	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
	"github.com/angelmondragon/nexusshop-storefront/pkg/storage"
)

type blobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// persistedCart is the stored shape. Coupons are not stored, so a restored
// cart never carries a discount.
type persistedCart struct {
	Items []LineItem `json:"items"`
}

// PersistentEngine saves the cart rows after every mutation. Storage failures
// are logged and never fail the command.
type PersistentEngine struct {
	*Engine
	store blobStore
	key   string
	logg  *logger.Logger
}

// NewPersistentEngine wraps engine with best-effort persistence under key.
func NewPersistentEngine(engine *Engine, store blobStore, key string, logg *logger.Logger) (*PersistentEngine, error) {
	if engine == nil {
		return nil, fmt.Errorf("cart engine required")
	}
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if key == "" {
		return nil, fmt.Errorf("cart storage key required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &PersistentEngine{Engine: engine, store: store, key: key, logg: logg}, nil
}

// Load seeds the engine from storage. A missing or unreadable blob starts an
// empty cart.
func (p *PersistentEngine) Load(ctx context.Context) Snapshot {
	raw, err := p.store.Get(ctx, p.key)
	if errors.Is(err, storage.ErrNotFound) {
		return p.Engine.Snapshot()
	}
	if err != nil {
		p.logg.Error(p.logg.WithField(ctx, "key", p.key), "cart.load_failed", err)
		return p.Engine.Snapshot()
	}
	var stored persistedCart
	if err := json.Unmarshal(raw, &stored); err != nil {
		p.logg.Warn(p.logg.WithFields(ctx, map[string]any{"key": p.key, "error": err.Error()}), "cart.load_corrupt")
		return p.Engine.Snapshot()
	}
	snap := p.Engine.Restore(stored.Items)
	p.logg.Info(p.logg.WithField(ctx, "items", len(snap.Items)), "cart.restored")
	return snap
}

func (p *PersistentEngine) AddItem(ctx context.Context, product catalog.Product, quantity int, variant *catalog.Variant) (Snapshot, error) {
	return p.AddItemAdmitted(ctx, product, quantity, variant, nil)
}

func (p *PersistentEngine) AddItemAdmitted(ctx context.Context, product catalog.Product, quantity int, variant *catalog.Variant, admit Admission) (Snapshot, error) {
	snap, err := p.Engine.AddItemAdmitted(product, quantity, variant, admit)
	if err != nil {
		return snap, err
	}
	p.save(p.logg.WithProductID(ctx, product.ID), snap)
	return snap, nil
}

func (p *PersistentEngine) UpdateQuantity(ctx context.Context, lineItemID string, quantity int) Snapshot {
	snap, _ := p.UpdateQuantityAdmitted(ctx, lineItemID, quantity, nil)
	return snap
}

func (p *PersistentEngine) UpdateQuantityAdmitted(ctx context.Context, lineItemID string, quantity int, admit Admission) (Snapshot, error) {
	snap, err := p.Engine.UpdateQuantityAdmitted(lineItemID, quantity, admit)
	if err != nil {
		return snap, err
	}
	p.save(p.logg.WithLineItemID(ctx, lineItemID), snap)
	return snap, nil
}

func (p *PersistentEngine) RemoveItem(ctx context.Context, lineItemID string) Snapshot {
	snap := p.Engine.RemoveItem(lineItemID)
	p.save(p.logg.WithLineItemID(ctx, lineItemID), snap)
	return snap
}

func (p *PersistentEngine) Clear(ctx context.Context) Snapshot {
	snap := p.Engine.Clear()
	p.save(ctx, snap)
	return snap
}

// Forget empties the cart, drops the coupon and removes the stored blob, as
// on logout.
func (p *PersistentEngine) Forget(ctx context.Context) Snapshot {
	p.Engine.RemoveCoupon()
	snap := p.Engine.Clear()
	if err := p.store.Delete(ctx, p.key); err != nil {
		p.logg.Error(p.logg.WithField(ctx, "key", p.key), "cart.delete_failed", err)
	}
	return snap
}

func (p *PersistentEngine) save(ctx context.Context, snap Snapshot) {
	raw, err := json.Marshal(persistedCart{Items: snap.Items})
	if err != nil {
		p.logg.Error(ctx, "cart.encode_failed", err)
		return
	}
	if err := p.store.Set(ctx, p.key, raw); err != nil {
		p.logg.Error(p.logg.WithField(ctx, "key", p.key), "cart.save_failed", err)
	}
}
