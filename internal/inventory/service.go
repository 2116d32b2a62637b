package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-procure/internal/common"
	"github.com/noah-isme/backend-procure/internal/reference"
)

// ItemStore abstracts item persistence.
type ItemStore interface {
	Upsert(ctx context.Context, item Item) (Item, error)
	Get(ctx context.Context, itemID string) (Item, error)
	List(ctx context.Context, limit, offset int) ([]Item, int64, error)
	Delete(ctx context.Context, itemID string) (bool, error)
}

// ReplacementResolver resolves an item's replacement-chain state. It is
// satisfied by the reference service.
type ReplacementResolver interface {
	Resolve(ctx context.Context, itemID string) (reference.ResolvedView, error)
}

// Service orchestrates item CRUD, the list cache and replacement enrichment.
type Service struct {
	store    ItemStore
	cache    *Cache
	resolver ReplacementResolver
	logger   zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store    ItemStore
	Cache    *Cache
	Resolver ReplacementResolver
	Logger   zerolog.Logger
}

// NewService constructs an inventory service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("inventory: store is required")
	}
	return &Service{
		store:    cfg.Store,
		cache:    cfg.Cache,
		resolver: cfg.Resolver,
		logger:   cfg.Logger,
	}, nil
}

// ItemInput is the create/update payload.
type ItemInput struct {
	ItemID        string   `json:"item_id" validate:"required,min=1,max=64"`
	DescriptionHe string   `json:"description_he" validate:"max=512"`
	DescriptionEn string   `json:"description_en" validate:"max=512"`
	RetailPrice   *float64 `json:"retail_price" validate:"omitempty,gt=0"`
	ImportMarkup  float64  `json:"import_markup" validate:"required,gte=1,lte=2"`
	StockOnHand   int      `json:"stock_on_hand" validate:"gte=0"`
	SoldLastYear  int      `json:"sold_last_year" validate:"gte=0"`
}

// ItemDetail is the single-item payload with replacement state embedded.
type ItemDetail struct {
	Item
	Replacement *reference.ResolvedView `json:"replacement,omitempty"`
}

// ListResult is one page of items.
type ListResult struct {
	Items []Item `json:"items"`
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// Save upserts an item from a validated payload.
func (s *Service) Save(ctx context.Context, in ItemInput) (Item, error) {
	item := Item{
		ItemID:        strings.TrimSpace(in.ItemID),
		DescriptionHe: strings.TrimSpace(in.DescriptionHe),
		DescriptionEn: strings.TrimSpace(in.DescriptionEn),
		RetailPrice:   in.RetailPrice,
		ImportMarkup:  in.ImportMarkup,
		StockOnHand:   in.StockOnHand,
		SoldLastYear:  in.SoldLastYear,
	}
	if item.ItemID == "" {
		return Item{}, common.BadRequest("item_id", "item id is required", nil)
	}
	saved, err := s.store.Upsert(ctx, item)
	if err != nil {
		return Item{}, fmt.Errorf("save item: %w", err)
	}
	if err := s.cache.Invalidate(ctx, "inventory:list:*"); err != nil {
		s.logger.Warn().Err(err).Msg("inventory list cache invalidation failed")
	}
	return saved, nil
}

// Detail fetches one item with its replacement-chain state. Resolution
// failures degrade to a bare item; the chain is advisory display data.
func (s *Service) Detail(ctx context.Context, itemID string) (ItemDetail, error) {
	item, err := s.store.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ItemDetail{}, common.NotFound("item not found", err)
		}
		return ItemDetail{}, fmt.Errorf("get item: %w", err)
	}
	detail := ItemDetail{Item: item}
	if s.resolver != nil {
		view, err := s.resolver.Resolve(ctx, item.ItemID)
		if err != nil {
			s.logger.Warn().Err(err).Str("item_id", item.ItemID).Msg("replacement resolution failed")
		} else if view.State != reference.StatePlain {
			detail.Replacement = &view
		}
	}
	return detail, nil
}

// List returns one cached page of items.
func (s *Service) List(ctx context.Context, page, limit int) (ListResult, error) {
	key := fmt.Sprintf("inventory:list:%d:%d", page, limit)
	var cached ListResult
	if hit, err := s.cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	items, total, err := s.store.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return ListResult{}, fmt.Errorf("list items: %w", err)
	}
	result := ListResult{Items: items, Total: total, Page: page, Limit: limit}
	if err := s.cache.SetJSON(ctx, key, result); err != nil {
		s.logger.Warn().Err(err).Msg("inventory list cache write failed")
	}
	return result, nil
}

// Remove deletes an item.
func (s *Service) Remove(ctx context.Context, itemID string) error {
	deleted, err := s.store.Delete(ctx, itemID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if !deleted {
		return common.NotFound("item not found", nil)
	}
	if err := s.cache.Invalidate(ctx, "inventory:list:*"); err != nil {
		s.logger.Warn().Err(err).Msg("inventory list cache invalidation failed")
	}
	return nil
}

// Description returns the display description for an item, preferring the
// Hebrew text. Satisfies the reference service's describer.
func (s *Service) Description(ctx context.Context, itemID string) (string, error) {
	item, err := s.store.Get(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return "", nil
		}
		return "", err
	}
	if item.DescriptionHe != "" {
		return item.DescriptionHe, nil
	}
	return item.DescriptionEn, nil
}
