package compare

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-procure/internal/common"
	"github.com/noah-isme/backend-procure/internal/obs"
	"github.com/noah-isme/backend-procure/internal/pricing"
)

// QuoteSource supplies the current quote and requested-item snapshot for an
// inquiry.
type QuoteSource interface {
	Quotes(ctx context.Context, inquiryID string) ([]Quote, error)
	RequestedItems(ctx context.Context, inquiryID string) ([]RequestedItem, error)
}

// SessionStore persists the user-owned session state between requests.
type SessionStore interface {
	Load(ctx context.Context, inquiryID string) (Selection, Overrides, error)
	Save(ctx context.Context, inquiryID string, sel Selection, ov Overrides) error
	Close(ctx context.Context, inquiryID string) error
}

// ItemView is one requested item as shown in the comparison header column.
type ItemView struct {
	ItemID        string   `json:"item_id"`
	DescriptionHe string   `json:"description_he"`
	DescriptionEn string   `json:"description_en"`
	RetailPrice   *float64 `json:"retail_price"`
	Quantity      int      `json:"quantity"`
}

// CellView is one group's offer for one item, fully derived: effective price,
// landed local cost, discount versus retail and winner highlighting.
type CellView struct {
	ItemID          string   `json:"item_id"`
	Price           *float64 `json:"price"`
	Overridden      bool     `json:"overridden"`
	LocalCost       *float64 `json:"local_cost"`
	DiscountPercent *float64 `json:"discount_percent"`
	Winning         bool     `json:"winning"`
}

// GroupView is one offer group column.
type GroupView struct {
	Key           string     `json:"key"`
	SupplierID    string     `json:"supplier_id"`
	SupplierName  string     `json:"supplier_name"`
	IsPromotion   bool       `json:"is_promotion"`
	PromotionName string     `json:"promotion_name,omitempty"`
	Selected      bool       `json:"selected"`
	Cells         []CellView `json:"cells"`
}

// View is the full comparison payload for one inquiry. Rebuilt from scratch
// on every read so selection toggles and overrides always reflect
// immediately.
type View struct {
	InquiryID string      `json:"inquiry_id"`
	Items     []ItemView  `json:"items"`
	Groups    []GroupView `json:"groups"`
	Coverage  Coverage    `json:"coverage"`
}

// ServiceConfig wires the comparison service.
type ServiceConfig struct {
	Source        QuoteSource
	Sessions      SessionStore
	Logger        zerolog.Logger
	ExchangeRate  float64
	DefaultMarkup float64
	Tolerance     float64
}

// Service orchestrates the comparison engine against the stored quote
// snapshot and the per-inquiry session.
type Service struct {
	source        QuoteSource
	sessions      SessionStore
	logger        zerolog.Logger
	exchangeRate  float64
	defaultMarkup float64
	tolerance     float64
}

// NewService constructs a comparison service.
func NewService(cfg ServiceConfig) *Service {
	tolerance := cfg.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Service{
		source:        cfg.Source,
		sessions:      cfg.Sessions,
		logger:        cfg.Logger,
		exchangeRate:  cfg.ExchangeRate,
		defaultMarkup: cfg.DefaultMarkup,
		tolerance:     tolerance,
	}
}

// View loads the current snapshot, reconciles the stored selection with it
// and renders the comparison. The merged selection is written back so a
// refresh that introduced or removed groups is persisted.
func (s *Service) View(ctx context.Context, inquiryID string) (*View, error) {
	snap, err := s.snapshot(ctx, inquiryID)
	if err != nil {
		if obs.ComparisonViewTotal != nil {
			obs.ComparisonViewTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	if err := s.sessions.Save(ctx, inquiryID, snap.sel, snap.ov); err != nil {
		return nil, err
	}
	if obs.ComparisonViewTotal != nil {
		obs.ComparisonViewTotal.WithLabelValues("ok").Inc()
	}
	return s.render(inquiryID, snap), nil
}

// Toggle flips one group's participation and returns the recomputed view.
func (s *Service) Toggle(ctx context.Context, inquiryID, groupKey string) (*View, error) {
	key, err := ParseGroupKey(groupKey)
	if err != nil {
		return nil, common.BadRequest("group_key", "invalid group key", err)
	}
	snap, err := s.snapshot(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	wire := key.String()
	if _, ok := snap.groups[key]; !ok {
		return nil, common.NewAppError("GROUP_NOT_FOUND", "offer group not found", http.StatusNotFound, nil)
	}
	snap.sel[wire] = !snap.sel[wire]
	if err := s.sessions.Save(ctx, inquiryID, snap.sel, snap.ov); err != nil {
		return nil, err
	}
	return s.render(inquiryID, snap), nil
}

// SetOverride records a temporary price for one item in one group and returns
// the recomputed view.
func (s *Service) SetOverride(ctx context.Context, inquiryID, itemID, groupKey string, price float64) (*View, error) {
	key, err := ParseGroupKey(groupKey)
	if err != nil {
		return nil, common.BadRequest("group_key", "invalid group key", err)
	}
	if price <= 0 {
		return nil, common.BadRequest("price", "override price must be positive", nil)
	}
	snap, err := s.snapshot(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	g, ok := snap.groups[key]
	if !ok {
		return nil, common.NewAppError("GROUP_NOT_FOUND", "offer group not found", http.StatusNotFound, nil)
	}
	if _, ok := g.RowFor(itemID); !ok {
		return nil, common.BadRequest("item_id", "item is not part of this inquiry", nil)
	}
	snap.ov.Set(itemID, key, price)
	if err := s.sessions.Save(ctx, inquiryID, snap.sel, snap.ov); err != nil {
		return nil, err
	}
	return s.render(inquiryID, snap), nil
}

// ClearOverride removes a temporary price and returns the recomputed view.
func (s *Service) ClearOverride(ctx context.Context, inquiryID, itemID, groupKey string) (*View, error) {
	key, err := ParseGroupKey(groupKey)
	if err != nil {
		return nil, common.BadRequest("group_key", "invalid group key", err)
	}
	snap, err := s.snapshot(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	snap.ov.Delete(itemID, key)
	if err := s.sessions.Save(ctx, inquiryID, snap.sel, snap.ov); err != nil {
		return nil, err
	}
	return s.render(inquiryID, snap), nil
}

// CloseSession discards the stored selection and overrides.
func (s *Service) CloseSession(ctx context.Context, inquiryID string) error {
	return s.sessions.Close(ctx, inquiryID)
}

type snapshot struct {
	items  []RequestedItem
	groups map[GroupKey]*OfferGroup
	sel    Selection
	ov     Overrides
}

func (s *Service) snapshot(ctx context.Context, inquiryID string) (*snapshot, error) {
	items, err := s.source.RequestedItems(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, common.NotFound("inquiry has no requested items", nil)
	}
	quotes, err := s.source.Quotes(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	groups := BuildGroups(quotes, items)
	storedSel, ov, err := s.sessions.Load(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	return &snapshot{
		items:  items,
		groups: groups,
		sel:    MergeSelection(groups, storedSel),
		ov:     ov,
	}, nil
}

func (s *Service) render(inquiryID string, snap *snapshot) *View {
	start := time.Now()
	view := &View{
		InquiryID: inquiryID,
		Items:     make([]ItemView, 0, len(snap.items)),
		Groups:    make([]GroupView, 0, len(snap.groups)),
		Coverage:  Reconcile(snap.groups, snap.sel, snap.items, snap.ov),
	}
	markups := make(map[string]float64, len(snap.items))
	retails := make(map[string]*pricing.Amount, len(snap.items))
	for _, item := range snap.items {
		view.Items = append(view.Items, ItemView{
			ItemID:        item.ItemID,
			DescriptionHe: item.DescriptionHe,
			DescriptionEn: item.DescriptionEn,
			RetailPrice:   item.RetailPrice,
			Quantity:      item.Quantity,
		})
		norm := NormalizeItemID(item.ItemID)
		retails[norm] = item.RetailPrice
		if item.ImportMarkup != nil {
			markups[norm] = *item.ImportMarkup
		} else {
			markups[norm] = s.defaultMarkup
		}
	}
	for _, key := range SortedKeys(snap.groups) {
		g := snap.groups[key]
		gv := GroupView{
			Key:           key.String(),
			SupplierID:    g.SupplierID,
			SupplierName:  g.SupplierName,
			IsPromotion:   g.IsPromotion,
			PromotionName: g.PromotionName,
			Selected:      snap.sel.Enabled(key),
			Cells:         make([]CellView, 0, len(g.Rows)),
		}
		for _, row := range g.Rows {
			norm := NormalizeItemID(row.ItemID)
			price := EffectivePrice(g, row.ItemID, snap.ov)
			cell := CellView{
				ItemID:     row.ItemID,
				Price:      price,
				Overridden: snap.ov.Get(row.ItemID, key) != nil,
				LocalCost:  pricing.LocalCost(price, s.exchangeRate, markups[norm]),
				Winning:    IsWinning(price, row.ItemID, snap.groups, snap.sel, snap.ov, s.tolerance),
			}
			cell.DiscountPercent = pricing.DiscountPercent(price, markups[norm], retails[norm], s.exchangeRate)
			gv.Cells = append(gv.Cells, cell)
		}
		view.Groups = append(view.Groups, gv)
	}
	if obs.ComparisonRecomputeLatency != nil {
		obs.ComparisonRecomputeLatency.Observe(obs.DurationMillis(time.Since(start)))
	}
	if obs.CoverageMissingItems != nil {
		obs.CoverageMissingItems.Observe(float64(view.Coverage.MissingCount))
	}
	return view
}
