package inventory

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-procure/internal/reference"
)

type memStore struct {
	items map[string]Item
}

func newMemStore() *memStore {
	return &memStore{items: map[string]Item{}}
}

func (m *memStore) Upsert(ctx context.Context, item Item) (Item, error) {
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	m.items[strings.ToLower(item.ItemID)] = item
	return item, nil
}

func (m *memStore) Get(ctx context.Context, itemID string) (Item, error) {
	item, ok := m.items[strings.ToLower(strings.TrimSpace(itemID))]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (m *memStore) List(ctx context.Context, limit, offset int) ([]Item, int64, error) {
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Item, 0, limit)
	for i := offset; i < len(keys) && len(out) < limit; i++ {
		out = append(out, m.items[keys[i]])
	}
	return out, int64(len(m.items)), nil
}

func (m *memStore) Delete(ctx context.Context, itemID string) (bool, error) {
	key := strings.ToLower(strings.TrimSpace(itemID))
	_, ok := m.items[key]
	delete(m.items, key)
	return ok, nil
}

type stubResolver struct {
	view reference.ResolvedView
}

func (s *stubResolver) Resolve(ctx context.Context, itemID string) (reference.ResolvedView, error) {
	return s.view, nil
}

func newTestService(t *testing.T, resolver ReplacementResolver) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{
		Store:    newMemStore(),
		Resolver: resolver,
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSaveAndDetail(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	retail := 99.9
	saved, err := svc.Save(ctx, ItemInput{
		ItemID:        " AB-100 ",
		DescriptionHe: "בורג פלדה",
		DescriptionEn: "steel bolt",
		RetailPrice:   &retail,
		ImportMarkup:  1.4,
		StockOnHand:   12,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ItemID != "AB-100" {
		t.Fatalf("expected trimmed id, got %q", saved.ItemID)
	}

	detail, err := svc.Detail(ctx, "ab-100")
	if err != nil {
		t.Fatalf("detail with different casing: %v", err)
	}
	if detail.ItemID != "AB-100" || *detail.RetailPrice != 99.9 {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if detail.Replacement != nil {
		t.Fatalf("no resolver wired, replacement should be empty")
	}

	if _, err := svc.Detail(ctx, "missing"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestDetailEmbedsReplacement(t *testing.T) {
	resolver := &stubResolver{view: reference.ResolvedView{
		Resolution: reference.Resolution{ItemID: "old-1", State: reference.StateSuperseded},
	}}
	svc := newTestService(t, resolver)
	ctx := context.Background()

	if _, err := svc.Save(ctx, ItemInput{ItemID: "old-1", ImportMarkup: 1.35}); err != nil {
		t.Fatalf("save: %v", err)
	}
	detail, err := svc.Detail(ctx, "old-1")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Replacement == nil || detail.Replacement.State != reference.StateSuperseded {
		t.Fatalf("expected superseded replacement embedded: %+v", detail.Replacement)
	}

	// Plain items stay unadorned.
	resolver.view = reference.ResolvedView{Resolution: reference.Resolution{ItemID: "old-1", State: reference.StatePlain}}
	detail, err = svc.Detail(ctx, "old-1")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.Replacement != nil {
		t.Fatalf("plain resolution should not be embedded")
	}
}

func TestListPaginates(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for _, id := range []string{"a1", "b2", "c3"} {
		if _, err := svc.Save(ctx, ItemInput{ItemID: id, ImportMarkup: 1.35}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	page, err := svc.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 1 || page.Items[0].ItemID != "c3" {
		t.Fatalf("unexpected second page: %+v", page)
	}
}

func TestRemove(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Save(ctx, ItemInput{ItemID: "gone", ImportMarkup: 1.35}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := svc.Remove(ctx, "GONE"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.Remove(ctx, "gone"); err == nil {
		t.Fatalf("second remove should be not found")
	}
}

func TestDescriptionPrefersHebrew(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Save(ctx, ItemInput{ItemID: "d1", DescriptionHe: "עברית", DescriptionEn: "english", ImportMarkup: 1.35}); err != nil {
		t.Fatalf("save: %v", err)
	}
	desc, err := svc.Description(ctx, "d1")
	if err != nil || desc != "עברית" {
		t.Fatalf("expected hebrew description, got %q err=%v", desc, err)
	}
	desc, err = svc.Description(ctx, "unknown")
	if err != nil || desc != "" {
		t.Fatalf("unknown item should describe as empty, got %q err=%v", desc, err)
	}
}
