package supplier

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-procure/internal/compare"
	"github.com/noah-isme/backend-procure/internal/pricing"
)

type memStore struct {
	suppliers map[string]Supplier
	responses map[string]ResponseRecord
}

func newMemStore() *memStore {
	return &memStore{suppliers: map[string]Supplier{}, responses: map[string]ResponseRecord{}}
}

func (m *memStore) Upsert(ctx context.Context, sup Supplier) (Supplier, error) {
	m.suppliers[sup.SupplierID] = sup
	return sup, nil
}

func (m *memStore) Get(ctx context.Context, supplierID string) (Supplier, error) {
	sup, ok := m.suppliers[supplierID]
	if !ok {
		return Supplier{}, ErrSupplierNotFound
	}
	return sup, nil
}

func (m *memStore) List(ctx context.Context) ([]Supplier, error) {
	out := make([]Supplier, 0, len(m.suppliers))
	for _, sup := range m.suppliers {
		out = append(out, sup)
	}
	return out, nil
}

func (m *memStore) Delete(ctx context.Context, supplierID string) (bool, error) {
	_, ok := m.suppliers[supplierID]
	delete(m.suppliers, supplierID)
	return ok, nil
}

func (m *memStore) UpsertResponse(ctx context.Context, rec ResponseRecord) error {
	m.responses[rec.InquiryID+"/"+rec.SupplierID] = rec
	return nil
}

func (m *memStore) GetResponse(ctx context.Context, inquiryID, supplierID string) (*ResponseRecord, error) {
	rec, ok := m.responses[inquiryID+"/"+supplierID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) ListResponses(ctx context.Context, inquiryID string) ([]ResponseRecord, error) {
	var out []ResponseRecord
	for _, rec := range m.responses {
		if rec.InquiryID == inquiryID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type stubSource struct {
	quotes []compare.Quote
	items  []compare.RequestedItem
}

func (s *stubSource) Quotes(ctx context.Context, inquiryID string) ([]compare.Quote, error) {
	return s.quotes, nil
}

func (s *stubSource) RequestedItems(ctx context.Context, inquiryID string) ([]compare.RequestedItem, error) {
	return s.items, nil
}

func amt(v float64) *pricing.Amount {
	a := pricing.Amount(v)
	return &a
}

func newTestService(t *testing.T, store *memStore, source *stubSource) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{Store: store, Source: source, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCoverageDerivedWhenNoResponseRecord(t *testing.T) {
	source := &stubSource{
		items: []compare.RequestedItem{
			{ItemID: "X", DescriptionHe: "א"},
			{ItemID: "Y", DescriptionHe: "ב"},
			{ItemID: "Z", DescriptionHe: "ג"},
		},
		quotes: []compare.Quote{
			{ItemID: "X", SupplierID: "s1", Price: amt(5)},
			{ItemID: "Y", SupplierID: "s1", Price: nil},
			{ItemID: "Z", SupplierID: "s2", Price: amt(3)},
		},
	}
	svc := newTestService(t, newMemStore(), source)

	cov, err := svc.Coverage(context.Background(), "inq-1", "s1")
	if err != nil {
		t.Fatalf("coverage: %v", err)
	}
	if cov.Responded != 1 {
		t.Fatalf("nil-price quote must not count as responded, got %d", cov.Responded)
	}
	if cov.MissingCount != 2 || len(cov.Missing) != 2 {
		t.Fatalf("expected Y and Z derived missing: %+v", cov)
	}
}

func TestCoverageDeclaredAuthoritative(t *testing.T) {
	store := newMemStore()
	source := &stubSource{
		items: []compare.RequestedItem{
			{ItemID: "X", DescriptionHe: "א"},
			{ItemID: "Y", DescriptionHe: "ב"},
		},
		quotes: []compare.Quote{
			{ItemID: "X", SupplierID: "s1", Price: amt(5)},
			{ItemID: "Y", SupplierID: "s1", Price: amt(6)},
		},
	}
	svc := newTestService(t, store, source)
	ctx := context.Background()

	// The supplier declares Y missing even though a quote exists; the
	// declaration wins.
	count := 1
	if err := svc.RecordResponse(ctx, ResponseRecord{
		InquiryID:       "inq-1",
		SupplierID:      "s1",
		SupplierName:    "Alpha",
		DeclaredMissing: []string{"y"},
		DeclaredCount:   &count,
	}); err != nil {
		t.Fatalf("record response: %v", err)
	}

	cov, err := svc.Coverage(ctx, "inq-1", "s1")
	if err != nil {
		t.Fatalf("coverage: %v", err)
	}
	if cov.SupplierName != "Alpha" {
		t.Fatalf("expected recorded name, got %q", cov.SupplierName)
	}
	if cov.MissingCount != 1 || len(cov.Missing) != 1 || cov.Missing[0].ItemID != "Y" {
		t.Fatalf("declared list should be authoritative: %+v", cov)
	}
	if cov.Missing[0].DescriptionHe != "ב" {
		t.Fatalf("declared id should resolve to the expected item for display")
	}
}

func TestCoverageDeclaredUnknownItemKept(t *testing.T) {
	store := newMemStore()
	source := &stubSource{
		items:  []compare.RequestedItem{{ItemID: "X"}},
		quotes: []compare.Quote{{ItemID: "X", SupplierID: "s1", Price: amt(5)}},
	}
	svc := newTestService(t, store, source)
	ctx := context.Background()

	if err := svc.RecordResponse(ctx, ResponseRecord{
		InquiryID:       "inq-1",
		SupplierID:      "s1",
		DeclaredMissing: []string{"GHOST"},
	}); err != nil {
		t.Fatalf("record response: %v", err)
	}
	cov, err := svc.Coverage(ctx, "inq-1", "s1")
	if err != nil {
		t.Fatalf("coverage: %v", err)
	}
	if len(cov.Missing) != 1 || cov.Missing[0].ItemID != "GHOST" {
		t.Fatalf("unknown declared id must survive as-is: %+v", cov.Missing)
	}
}

func TestSupplierCRUD(t *testing.T) {
	svc := newTestService(t, newMemStore(), &stubSource{})
	ctx := context.Background()

	if _, err := svc.Save(ctx, SupplierInput{SupplierID: " s1 ", Name: " Alpha ", Active: true}); err != nil {
		t.Fatalf("save: %v", err)
	}
	sup, err := svc.Get(ctx, "s1")
	if err != nil || sup.Name != "Alpha" {
		t.Fatalf("get: %+v err=%v", sup, err)
	}
	if err := svc.Remove(ctx, "s1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := svc.Get(ctx, "s1"); err == nil {
		t.Fatalf("expected not found after delete")
	}
}
