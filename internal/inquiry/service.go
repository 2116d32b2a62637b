package inquiry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-procure/internal/common"
	"github.com/noah-isme/backend-procure/internal/compare"
	"github.com/noah-isme/backend-procure/internal/obs"
	"github.com/noah-isme/backend-procure/internal/supply"
)

// InquiryStore abstracts inquiry persistence.
type InquiryStore interface {
	Create(ctx context.Context, inq Inquiry, items []compare.RequestedItem) (Inquiry, error)
	Get(ctx context.Context, inquiryID string) (Inquiry, error)
	List(ctx context.Context) ([]Inquiry, error)
	SetStatus(ctx context.Context, inquiryID, status string) error
	RequestedItems(ctx context.Context, inquiryID string) ([]compare.RequestedItem, error)
	Quotes(ctx context.Context, inquiryID string) ([]compare.Quote, error)
	ReplaceSupplierQuotes(ctx context.Context, inquiryID, supplierID string, quotes []compare.Quote) error
	UpdateQuotePrice(ctx context.Context, inquiryID, itemID, supplierID string, price float64) (bool, error)
}

// Submitter pushes a permanent price correction to the external collaborator.
type Submitter interface {
	SubmitPriceEdit(ctx context.Context, edit supply.PriceEdit) error
}

// SubmitGuard prevents a rapid double invocation from producing two
// collaborator writes.
type SubmitGuard interface {
	GuardSubmit(ctx context.Context, inquiryID, itemID, supplierID string, price float64, ttl time.Duration) (bool, error)
}

// Emitter publishes domain events after state changes.
type Emitter interface {
	Emit(ctx context.Context, topic string, payload any) error
}

// Service orchestrates inquiry lifecycle and the permanent price edit flow.
type Service struct {
	store     InquiryStore
	submitter Submitter
	guard     SubmitGuard
	events    Emitter
	guardTTL  time.Duration
	logger    zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store     InquiryStore
	Submitter Submitter
	Guard     SubmitGuard
	Events    Emitter
	GuardTTL  time.Duration
	Logger    zerolog.Logger
}

// NewService constructs an inquiry service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("inquiry: store is required")
	}
	guardTTL := cfg.GuardTTL
	if guardTTL <= 0 {
		guardTTL = 30 * time.Second
	}
	return &Service{
		store:     cfg.Store,
		submitter: cfg.Submitter,
		guard:     cfg.Guard,
		events:    cfg.Events,
		guardTTL:  guardTTL,
		logger:    cfg.Logger,
	}, nil
}

// ItemInput is one requested item in the create payload.
type ItemInput struct {
	ItemID        string   `json:"item_id" validate:"required,min=1,max=64"`
	DescriptionHe string   `json:"description_he" validate:"max=512"`
	DescriptionEn string   `json:"description_en" validate:"max=512"`
	RetailPrice   *float64 `json:"retail_price" validate:"omitempty,gt=0"`
	ImportMarkup  *float64 `json:"import_markup" validate:"omitempty,gte=1,lte=2"`
	Quantity      int      `json:"quantity" validate:"gte=0"`
}

// CreateInput is the inquiry creation payload.
type CreateInput struct {
	Title string      `json:"title" validate:"required,max=255"`
	Items []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// PriceEditInput is a permanent price correction for one supplier's regular
// quote.
type PriceEditInput struct {
	ItemID     string  `json:"item_id" validate:"required"`
	SupplierID string  `json:"supplier_id" validate:"required"`
	Price      float64 `json:"price" validate:"required,gt=0"`
}

// Create opens a new inquiry. Duplicate item ids in the payload collapse to
// the first occurrence.
func (s *Service) Create(ctx context.Context, in CreateInput) (Inquiry, error) {
	seen := make(map[string]struct{}, len(in.Items))
	items := make([]compare.RequestedItem, 0, len(in.Items))
	for _, it := range in.Items {
		norm := compare.NormalizeItemID(it.ItemID)
		if norm == "" {
			return Inquiry{}, common.BadRequest("items", "item id is required", nil)
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		items = append(items, compare.RequestedItem{
			ItemID:        strings.TrimSpace(it.ItemID),
			DescriptionHe: strings.TrimSpace(it.DescriptionHe),
			DescriptionEn: strings.TrimSpace(it.DescriptionEn),
			RetailPrice:   it.RetailPrice,
			ImportMarkup:  it.ImportMarkup,
			Quantity:      it.Quantity,
		})
	}
	inq := Inquiry{InquiryID: uuid.NewString(), Title: strings.TrimSpace(in.Title)}
	created, err := s.store.Create(ctx, inq, items)
	if err != nil {
		return Inquiry{}, fmt.Errorf("create inquiry: %w", err)
	}
	s.emit(ctx, "inquiry.created", created)
	return created, nil
}

// Get fetches one inquiry.
func (s *Service) Get(ctx context.Context, inquiryID string) (Inquiry, error) {
	inq, err := s.store.Get(ctx, inquiryID)
	if err != nil {
		if errors.Is(err, ErrInquiryNotFound) {
			return Inquiry{}, common.NotFound("inquiry not found", err)
		}
		return Inquiry{}, fmt.Errorf("get inquiry: %w", err)
	}
	return inq, nil
}

// List returns all inquiries.
func (s *Service) List(ctx context.Context) ([]Inquiry, error) {
	return s.store.List(ctx)
}

// CloseInquiry marks an inquiry closed.
func (s *Service) CloseInquiry(ctx context.Context, inquiryID string) error {
	if err := s.store.SetStatus(ctx, inquiryID, StatusClosed); err != nil {
		if errors.Is(err, ErrInquiryNotFound) {
			return common.NotFound("inquiry not found", err)
		}
		return err
	}
	return nil
}

// EditPrice applies a permanent price correction: the stored regular quote is
// updated and the edit is pushed to the collaborator. The guard swallows a
// rapid duplicate invocation; the repeated call reports success without a
// second write.
func (s *Service) EditPrice(ctx context.Context, inquiryID string, in PriceEditInput) error {
	if s.guard != nil {
		held, err := s.guard.GuardSubmit(ctx, inquiryID, in.ItemID, in.SupplierID, in.Price, s.guardTTL)
		if err != nil {
			return err
		}
		if !held {
			s.logger.Info().
				Str("inquiry_id", inquiryID).
				Str("item_id", in.ItemID).
				Str("supplier_id", in.SupplierID).
				Msg("duplicate price edit suppressed")
			return nil
		}
	}
	updated, err := s.store.UpdateQuotePrice(ctx, inquiryID, in.ItemID, in.SupplierID, in.Price)
	if err != nil {
		countPriceEdit("error")
		return err
	}
	if !updated {
		countPriceEdit("not_found")
		return common.NotFound("no regular quote for this item and supplier", nil)
	}
	if s.submitter != nil {
		if err := s.submitter.SubmitPriceEdit(ctx, supply.PriceEdit{
			ItemID:     in.ItemID,
			SupplierID: in.SupplierID,
			Price:      in.Price,
		}); err != nil {
			countPriceEdit("push_failed")
			return fmt.Errorf("push price edit: %w", err)
		}
	}
	countPriceEdit("ok")
	s.emit(ctx, "price.updated", map[string]any{
		"inquiry_id":  inquiryID,
		"item_id":     in.ItemID,
		"supplier_id": in.SupplierID,
		"price":       in.Price,
	})
	return nil
}

func countPriceEdit(result string) {
	if obs.PriceEditTotal != nil {
		obs.PriceEditTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) emit(ctx context.Context, topic string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, topic, payload); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("event emit failed")
	}
}
