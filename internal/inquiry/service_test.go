package inquiry

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-procure/internal/compare"
	"github.com/noah-isme/backend-procure/internal/supply"
)

type memStore struct {
	inquiries map[string]Inquiry
	items     map[string][]compare.RequestedItem
	quotes    map[string][]compare.Quote
}

func newMemStore() *memStore {
	return &memStore{
		inquiries: map[string]Inquiry{},
		items:     map[string][]compare.RequestedItem{},
		quotes:    map[string][]compare.Quote{},
	}
}

func (m *memStore) Create(ctx context.Context, inq Inquiry, items []compare.RequestedItem) (Inquiry, error) {
	inq.Status = StatusOpen
	inq.CreatedAt = time.Now()
	m.inquiries[inq.InquiryID] = inq
	m.items[inq.InquiryID] = items
	return inq, nil
}

func (m *memStore) Get(ctx context.Context, inquiryID string) (Inquiry, error) {
	inq, ok := m.inquiries[inquiryID]
	if !ok {
		return Inquiry{}, ErrInquiryNotFound
	}
	return inq, nil
}

func (m *memStore) List(ctx context.Context) ([]Inquiry, error) {
	var out []Inquiry
	for _, inq := range m.inquiries {
		out = append(out, inq)
	}
	return out, nil
}

func (m *memStore) SetStatus(ctx context.Context, inquiryID, status string) error {
	inq, ok := m.inquiries[inquiryID]
	if !ok {
		return ErrInquiryNotFound
	}
	inq.Status = status
	m.inquiries[inquiryID] = inq
	return nil
}

func (m *memStore) RequestedItems(ctx context.Context, inquiryID string) ([]compare.RequestedItem, error) {
	return m.items[inquiryID], nil
}

func (m *memStore) Quotes(ctx context.Context, inquiryID string) ([]compare.Quote, error) {
	return m.quotes[inquiryID], nil
}

func (m *memStore) ReplaceSupplierQuotes(ctx context.Context, inquiryID, supplierID string, quotes []compare.Quote) error {
	kept := m.quotes[inquiryID][:0]
	for _, q := range m.quotes[inquiryID] {
		if q.SupplierID != supplierID {
			kept = append(kept, q)
		}
	}
	m.quotes[inquiryID] = append(kept, quotes...)
	return nil
}

func (m *memStore) UpdateQuotePrice(ctx context.Context, inquiryID, itemID, supplierID string, price float64) (bool, error) {
	updated := false
	for i, q := range m.quotes[inquiryID] {
		if strings.EqualFold(q.ItemID, itemID) && q.SupplierID == supplierID && !q.IsPromotion {
			v := price
			m.quotes[inquiryID][i].Price = &v
			updated = true
		}
	}
	return updated, nil
}

type recordingSubmitter struct {
	edits []supply.PriceEdit
}

func (r *recordingSubmitter) SubmitPriceEdit(ctx context.Context, edit supply.PriceEdit) error {
	r.edits = append(r.edits, edit)
	return nil
}

type memGuard struct {
	held map[string]bool
}

func (g *memGuard) GuardSubmit(ctx context.Context, inquiryID, itemID, supplierID string, price float64, ttl time.Duration) (bool, error) {
	if g.held == nil {
		g.held = map[string]bool{}
	}
	key := inquiryID + itemID + supplierID
	if g.held[key] {
		return false, nil
	}
	g.held[key] = true
	return true, nil
}

func newTestService(t *testing.T, store *memStore, submitter Submitter, guard SubmitGuard) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{
		Store:     store,
		Submitter: submitter,
		Guard:     guard,
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateDeduplicatesItems(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, nil, nil)

	inq, err := svc.Create(context.Background(), CreateInput{
		Title: "Q3 restock",
		Items: []ItemInput{
			{ItemID: "X", Quantity: 1},
			{ItemID: " x ", Quantity: 5},
			{ItemID: "Y", Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	items := store.items[inq.InquiryID]
	if len(items) != 2 {
		t.Fatalf("duplicate ids should collapse, got %d items", len(items))
	}
	if items[0].Quantity != 1 {
		t.Fatalf("first occurrence wins: %+v", items[0])
	}
}

func TestEditPriceUpdatesAndSubmits(t *testing.T) {
	store := newMemStore()
	price := 10.0
	store.quotes["inq-1"] = []compare.Quote{
		{ItemID: "X", SupplierID: "s1", Price: &price},
		{ItemID: "X", SupplierID: "s1", Price: &price, IsPromotion: true, PromotionGroupID: "p1"},
	}
	submitter := &recordingSubmitter{}
	svc := newTestService(t, store, submitter, &memGuard{})
	ctx := context.Background()

	err := svc.EditPrice(ctx, "inq-1", PriceEditInput{ItemID: "x", SupplierID: "s1", Price: 8.5})
	if err != nil {
		t.Fatalf("edit price: %v", err)
	}
	if *store.quotes["inq-1"][0].Price != 8.5 {
		t.Fatalf("regular quote not updated: %v", *store.quotes["inq-1"][0].Price)
	}
	if *store.quotes["inq-1"][1].Price != 10.0 {
		t.Fatalf("promotion quote must stay untouched")
	}
	if len(submitter.edits) != 1 || submitter.edits[0].Price != 8.5 {
		t.Fatalf("expected one collaborator submit: %+v", submitter.edits)
	}
}

func TestEditPriceDuplicateSuppressed(t *testing.T) {
	store := newMemStore()
	price := 10.0
	store.quotes["inq-1"] = []compare.Quote{{ItemID: "X", SupplierID: "s1", Price: &price}}
	submitter := &recordingSubmitter{}
	svc := newTestService(t, store, submitter, &memGuard{})
	ctx := context.Background()

	in := PriceEditInput{ItemID: "X", SupplierID: "s1", Price: 8.5}
	if err := svc.EditPrice(ctx, "inq-1", in); err != nil {
		t.Fatalf("first edit: %v", err)
	}
	if err := svc.EditPrice(ctx, "inq-1", in); err != nil {
		t.Fatalf("duplicate edit should succeed quietly: %v", err)
	}
	if len(submitter.edits) != 1 {
		t.Fatalf("duplicate must not reach the collaborator, got %d submits", len(submitter.edits))
	}
}

func TestEditPriceUnknownQuote(t *testing.T) {
	svc := newTestService(t, newMemStore(), nil, nil)
	err := svc.EditPrice(context.Background(), "inq-1", PriceEditInput{ItemID: "X", SupplierID: "s1", Price: 5})
	if err == nil {
		t.Fatalf("expected not found for missing quote")
	}
}

func TestCloseInquiry(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, nil, nil)
	ctx := context.Background()

	inq, err := svc.Create(ctx, CreateInput{Title: "t", Items: []ItemInput{{ItemID: "X"}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.CloseInquiry(ctx, inq.InquiryID); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, _ := svc.Get(ctx, inq.InquiryID)
	if got.Status != StatusClosed {
		t.Fatalf("expected closed status, got %q", got.Status)
	}
	if err := svc.CloseInquiry(ctx, "ghost"); err == nil {
		t.Fatalf("expected not found for unknown inquiry")
	}
}
