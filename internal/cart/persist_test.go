package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
	"github.com/angelmondragon/nexusshop-storefront/pkg/storage"
	"github.com/rs/zerolog"
)

const cartKey = "nexusshop-cart"

type failingStore struct {
	err error
}

func (f failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStore) Set(context.Context, string, []byte) error { return f.err }
func (f failingStore) Delete(context.Context, string) error { return f.err }

func newPersistent(t *testing.T, store blobStore, buf *bytes.Buffer) *PersistentEngine {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: buf})
	p, err := NewPersistentEngine(newTestEngine(), store, cartKey, logg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestNewPersistentEngineValidates(t *testing.T) {
	logg := logger.Nop()
	store := storage.NewMemoryStore()
	if _, err := NewPersistentEngine(nil, store, cartKey, logg); err == nil {
		t.Fatalf("expected error for nil engine")
	}
	if _, err := NewPersistentEngine(newTestEngine(), nil, cartKey, logg); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := NewPersistentEngine(newTestEngine(), store, "", logg); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := NewPersistentEngine(newTestEngine(), store, cartKey, nil); err == nil {
		t.Fatalf("expected error for nil logger")
	}
}

func TestPersistentEngineSavesAfterMutations(t *testing.T) {
	c := fixture(t)
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := newPersistent(t, store, &bytes.Buffer{})

	snap, err := p.AddItem(ctx, product(t, c, "designer-hoodie"), 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.ApplyCoupon("SAVE20")

	raw, err := store.Get(ctx, cartKey)
	if err != nil {
		t.Fatalf("expected cart to be stored: %v", err)
	}
	var stored map[string]json.RawMessage
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("stored cart is not json: %v", err)
	}
	if _, ok := stored["coupon"]; ok {
		t.Fatalf("coupon must not be persisted")
	}
	var persisted persistedCart
	if err := json.Unmarshal(raw, &persisted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(persisted.Items) != 1 || persisted.Items[0].ID != snap.Items[0].ID || persisted.Items[0].Quantity != 2 {
		t.Fatalf("unexpected stored items %+v", persisted.Items)
	}
	if !strings.Contains(string(raw), `"productId":"designer-hoodie"`) || !strings.Contains(string(raw), `"unitPrice":"89"`) {
		t.Fatalf("unexpected stored shape %s", raw)
	}

	p.UpdateQuantity(ctx, snap.Items[0].ID, 5)
	raw, _ = store.Get(ctx, cartKey)
	_ = json.Unmarshal(raw, &persisted)
	if persisted.Items[0].Quantity != 5 {
		t.Fatalf("update should be persisted, got %+v", persisted.Items)
	}

	p.RemoveItem(ctx, snap.Items[0].ID)
	raw, _ = store.Get(ctx, cartKey)
	_ = json.Unmarshal(raw, &persisted)
	if len(persisted.Items) != 0 {
		t.Fatalf("remove should be persisted")
	}
}

func TestPersistentEngineLoadRestoresWithoutCoupon(t *testing.T) {
	c := fixture(t)
	ctx := context.Background()
	store := storage.NewMemoryStore()

	first := newPersistent(t, store, &bytes.Buffer{})
	iphone := product(t, c, "iphone-15-pro")
	v, _ := iphone.Variant("iphone-15-pro-256")
	first.AddItem(ctx, iphone, 1, &v)
	first.AddItem(ctx, product(t, c, "designer-hoodie"), 2, nil)
	first.ApplyCoupon("WELCOME10")

	second := newPersistent(t, store, &bytes.Buffer{})
	snap := second.Load(ctx)
	if len(snap.Items) != 2 || snap.ItemCount != 3 {
		t.Fatalf("unexpected restored snapshot %+v", snap)
	}
	if snap.Items[0].VariantID() != "iphone-15-pro-256" {
		t.Fatalf("variant should survive a round trip")
	}
	if snap.Coupon != nil {
		t.Fatalf("restored cart must not carry a coupon")
	}
	if !snap.Totals.Subtotal.Equal(dec("1377")) {
		t.Fatalf("unexpected restored subtotal %s", snap.Totals.Subtotal)
	}

	// merging continues against restored rows
	snap, _ = second.AddItem(ctx, product(t, c, "designer-hoodie"), 1, nil)
	if len(snap.Items) != 2 || snap.Items[1].Quantity != 3 {
		t.Fatalf("expected merge into restored row, got %+v", snap.Items)
	}
}

func TestPersistentEngineLoadMissingOrCorrupt(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	var buf bytes.Buffer
	p := newPersistent(t, store, &buf)

	if snap := p.Load(ctx); len(snap.Items) != 0 {
		t.Fatalf("missing blob should start empty")
	}
	if buf.Len() != 0 {
		t.Fatalf("a missing blob is not worth a log line: %s", buf.String())
	}

	_ = store.Set(ctx, cartKey, []byte("{not json"))
	if snap := p.Load(ctx); len(snap.Items) != 0 {
		t.Fatalf("corrupt blob should start empty")
	}
	if !strings.Contains(buf.String(), "cart.load_corrupt") {
		t.Fatalf("expected corrupt load to be logged, got %s", buf.String())
	}
}

func TestPersistentEngineStorageFailureDoesNotFailCommand(t *testing.T) {
	c := fixture(t)
	ctx := context.Background()
	var buf bytes.Buffer
	p := newPersistent(t, failingStore{err: errors.New("disk full")}, &buf)

	snap, err := p.AddItem(ctx, product(t, c, "airpods-pro-2"), 1, nil)
	if err != nil {
		t.Fatalf("storage failure must not fail the command: %v", err)
	}
	if len(snap.Items) != 1 {
		t.Fatalf("in-memory state should still update")
	}
	if !strings.Contains(buf.String(), "cart.save_failed") || !strings.Contains(buf.String(), "disk full") {
		t.Fatalf("expected save failure to be logged, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"product_id":"airpods-pro-2"`) {
		t.Fatalf("expected product id on the log line, got %s", buf.String())
	}

	if snap := p.Load(ctx); len(snap.Items) != 1 {
		t.Fatalf("failed load keeps the current state")
	}
}

func TestPersistentEngineForget(t *testing.T) {
	c := fixture(t)
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := newPersistent(t, store, &bytes.Buffer{})
	p.AddItem(ctx, product(t, c, "airpods-pro-2"), 1, nil)

	snap := p.Forget(ctx)
	if len(snap.Items) != 0 {
		t.Fatalf("forget should empty the cart")
	}
	if _, err := store.Get(ctx, cartKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("forget should delete the stored blob, got %v", err)
	}
}

func TestPersistentEngineRejectedAdmissionIsNotSaved(t *testing.T) {
	c := fixture(t)
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := newPersistent(t, store, &bytes.Buffer{})
	hoodie := product(t, c, "designer-hoodie")

	errFull := errors.New("full")
	reject := func([]LineItem) error { return errFull }
	if _, err := p.AddItemAdmitted(ctx, hoodie, 1, nil, reject); !errors.Is(err, errFull) {
		t.Fatalf("expected admission error, got %v", err)
	}
	if _, err := store.Get(ctx, cartKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("rejected add must not be persisted, got %v", err)
	}

	snap, _ := p.AddItem(ctx, hoodie, 1, nil)
	if _, err := p.UpdateQuantityAdmitted(ctx, snap.Items[0].ID, 4, reject); !errors.Is(err, errFull) {
		t.Fatalf("expected admission error on update, got %v", err)
	}
	raw, _ := store.Get(ctx, cartKey)
	var persisted persistedCart
	_ = json.Unmarshal(raw, &persisted)
	if len(persisted.Items) != 1 || persisted.Items[0].Quantity != 1 {
		t.Fatalf("stored cart must keep the admitted state, got %+v", persisted.Items)
	}
}
