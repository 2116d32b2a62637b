package supplier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-procure/internal/common"
	"github.com/noah-isme/backend-procure/internal/compare"
)

// SupplierStore abstracts supplier persistence.
type SupplierStore interface {
	Upsert(ctx context.Context, sup Supplier) (Supplier, error)
	Get(ctx context.Context, supplierID string) (Supplier, error)
	List(ctx context.Context) ([]Supplier, error)
	Delete(ctx context.Context, supplierID string) (bool, error)
	UpsertResponse(ctx context.Context, rec ResponseRecord) error
	GetResponse(ctx context.Context, inquiryID, supplierID string) (*ResponseRecord, error)
	ListResponses(ctx context.Context, inquiryID string) ([]ResponseRecord, error)
}

// Service orchestrates supplier CRUD and per-inquiry coverage.
type Service struct {
	store  SupplierStore
	source compare.QuoteSource
	logger zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store  SupplierStore
	Source compare.QuoteSource
	Logger zerolog.Logger
}

// NewService constructs a supplier service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("supplier: store is required")
	}
	return &Service{store: cfg.Store, source: cfg.Source, logger: cfg.Logger}, nil
}

// SupplierInput is the create/update payload.
type SupplierInput struct {
	SupplierID   string `json:"supplier_id" validate:"required,min=1,max=64"`
	Name         string `json:"name" validate:"required,max=255"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"max=32"`
	Active       bool   `json:"active"`
}

// Save upserts a supplier from a validated payload.
func (s *Service) Save(ctx context.Context, in SupplierInput) (Supplier, error) {
	sup := Supplier{
		SupplierID:   strings.TrimSpace(in.SupplierID),
		Name:         strings.TrimSpace(in.Name),
		ContactEmail: strings.TrimSpace(in.ContactEmail),
		Phone:        strings.TrimSpace(in.Phone),
		Active:       in.Active,
	}
	if sup.SupplierID == "" {
		return Supplier{}, common.BadRequest("supplier_id", "supplier id is required", nil)
	}
	saved, err := s.store.Upsert(ctx, sup)
	if err != nil {
		return Supplier{}, fmt.Errorf("save supplier: %w", err)
	}
	return saved, nil
}

// Get fetches one supplier.
func (s *Service) Get(ctx context.Context, supplierID string) (Supplier, error) {
	sup, err := s.store.Get(ctx, supplierID)
	if err != nil {
		if errors.Is(err, ErrSupplierNotFound) {
			return Supplier{}, common.NotFound("supplier not found", err)
		}
		return Supplier{}, fmt.Errorf("get supplier: %w", err)
	}
	return sup, nil
}

// List returns all suppliers.
func (s *Service) List(ctx context.Context) ([]Supplier, error) {
	return s.store.List(ctx)
}

// Remove deletes a supplier.
func (s *Service) Remove(ctx context.Context, supplierID string) error {
	deleted, err := s.store.Delete(ctx, supplierID)
	if err != nil {
		return fmt.Errorf("delete supplier: %w", err)
	}
	if !deleted {
		return common.NotFound("supplier not found", nil)
	}
	return nil
}

// RecordResponse persists one supplier's response record for an inquiry.
func (s *Service) RecordResponse(ctx context.Context, rec ResponseRecord) error {
	if strings.TrimSpace(rec.InquiryID) == "" || strings.TrimSpace(rec.SupplierID) == "" {
		return common.BadRequest("response", "inquiry and supplier ids are required", nil)
	}
	return s.store.UpsertResponse(ctx, rec)
}

// Responses lists every response recorded for an inquiry.
func (s *Service) Responses(ctx context.Context, inquiryID string) ([]ResponseRecord, error) {
	return s.store.ListResponses(ctx, inquiryID)
}

// Coverage reconciles one supplier's quotes against the inquiry's expected
// item set. The supplier's own declared missing list and count take
// precedence over derivation when a response record exists.
func (s *Service) Coverage(ctx context.Context, inquiryID, supplierID string) (compare.SupplierCoverage, error) {
	expected, err := s.source.RequestedItems(ctx, inquiryID)
	if err != nil {
		return compare.SupplierCoverage{}, err
	}
	if len(expected) == 0 {
		return compare.SupplierCoverage{}, common.NotFound("inquiry has no requested items", nil)
	}
	quotes, err := s.source.Quotes(ctx, inquiryID)
	if err != nil {
		return compare.SupplierCoverage{}, err
	}

	supplierName := supplierID
	if sup, err := s.store.Get(ctx, supplierID); err == nil {
		supplierName = sup.Name
	}

	var declared []compare.RequestedItem
	var declaredCount *int
	rec, err := s.store.GetResponse(ctx, inquiryID, supplierID)
	if err != nil {
		return compare.SupplierCoverage{}, fmt.Errorf("load response record: %w", err)
	}
	if rec != nil {
		if rec.DeclaredMissing != nil {
			declared = resolveDeclared(rec.DeclaredMissing, expected)
		}
		declaredCount = rec.DeclaredCount
		if rec.SupplierName != "" {
			supplierName = rec.SupplierName
		}
	}

	return compare.MissingForSupplier(supplierID, supplierName, quotes, declared, declaredCount, expected), nil
}

// resolveDeclared maps declared item ids onto the expected set so the missing
// list carries descriptions. Declared ids outside the expected set are kept
// as bare entries; the supplier's declaration is authoritative.
func resolveDeclared(ids []string, expected []compare.RequestedItem) []compare.RequestedItem {
	byID := make(map[string]compare.RequestedItem, len(expected))
	for _, item := range expected {
		byID[compare.NormalizeItemID(item.ItemID)] = item
	}
	out := make([]compare.RequestedItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[compare.NormalizeItemID(id)]; ok {
			out = append(out, item)
			continue
		}
		out = append(out, compare.RequestedItem{ItemID: strings.TrimSpace(id)})
	}
	return out
}
