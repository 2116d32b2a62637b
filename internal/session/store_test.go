package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-procure/internal/compare"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &Store{R: client, TTL: time.Minute}, mr
}

func TestSessionRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sel, ov, err := store.Load(ctx, "inq-1")
	if err != nil {
		t.Fatalf("load fresh: %v", err)
	}
	if len(sel) != 0 || len(ov) != 0 {
		t.Fatalf("fresh session should be empty: %v %v", sel, ov)
	}

	key := compare.GroupKey{SupplierID: "s1"}
	sel[key.String()] = false
	ov.Set("X", key, 7.5)
	if err := store.Save(ctx, "inq-1", sel, ov); err != nil {
		t.Fatalf("save: %v", err)
	}

	gotSel, gotOv, err := store.Load(ctx, "inq-1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if gotSel["s1:regular"] {
		t.Fatalf("deselection did not survive reload")
	}
	price := gotOv.Get("x", key)
	if price == nil || *price != 7.5 {
		t.Fatalf("override did not survive reload: %v", price)
	}
}

func TestSessionClose(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sel := compare.Selection{"s1:regular": false}
	if err := store.Save(ctx, "inq-2", sel, compare.Overrides{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Close(ctx, "inq-2"); err != nil {
		t.Fatalf("close: %v", err)
	}
	gotSel, gotOv, err := store.Load(ctx, "inq-2")
	if err != nil {
		t.Fatalf("load after close: %v", err)
	}
	if len(gotSel) != 0 || len(gotOv) != 0 {
		t.Fatalf("closed session should reset to default")
	}
}

func TestSessionExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "inq-3", compare.Selection{"s1:regular": false}, compare.Overrides{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	gotSel, _, err := store.Load(ctx, "inq-3")
	if err != nil {
		t.Fatalf("load after expiry: %v", err)
	}
	if len(gotSel) != 0 {
		t.Fatalf("expired session should come back fresh")
	}
}

func TestGuardSubmit(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.GuardSubmit(ctx, "inq-1", "X", "s1", 12.5, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first submit should hold the guard: ok=%v err=%v", ok, err)
	}
	ok, err = store.GuardSubmit(ctx, "inq-1", "x", "s1", 12.5, time.Minute)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if ok {
		t.Fatalf("duplicate submit must not pass the guard")
	}
	ok, err = store.GuardSubmit(ctx, "inq-1", "x", "s1", 13.0, time.Minute)
	if err != nil || !ok {
		t.Fatalf("different value is a new edit: ok=%v err=%v", ok, err)
	}
}
