package reference

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-procure/internal/common"
	"github.com/noah-isme/backend-procure/internal/compare"
)

// ItemDescriber looks up a display description for an item id. Implementations
// return an empty string when the id is unknown; resolution still proceeds and
// the UI falls back to the raw id.
type ItemDescriber interface {
	Description(ctx context.Context, itemID string) (string, error)
}

// EdgeStore is the persistence surface the service needs.
type EdgeStore interface {
	Upsert(ctx context.Context, e Edge) (Edge, error)
	ListForItem(ctx context.Context, itemID string) ([]Edge, error)
	ListAll(ctx context.Context) ([]Edge, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service resolves replacement lineage and manages edge declarations.
type Service struct {
	Store  EdgeStore
	Items  ItemDescriber
	Logger zerolog.Logger
}

// ResolvedView is a Resolution enriched with descriptions for navigation
// targets. Descriptions stay empty for dangling references.
type ResolvedView struct {
	Resolution
	SuccessorDescription    string            `json:"successor_description,omitempty"`
	PredecessorDescriptions map[string]string `json:"predecessor_descriptions,omitempty"`
}

// DeclareInput captures a replacement declaration from a supplier response or
// a manual edit.
type DeclareInput struct {
	OriginalItemID string `json:"original_item_id" validate:"required"`
	NewReferenceID string `json:"new_reference_id" validate:"required"`
	Source         string `json:"source" validate:"required,oneof=supplier user"`
	Attribution    string `json:"attribution"`
	Notes          string `json:"notes"`
}

// Declare records (or replaces) the outgoing edge for an item.
func (s *Service) Declare(ctx context.Context, in DeclareInput) (Edge, error) {
	if s == nil || s.Store == nil {
		return Edge{}, errors.New("reference service not configured")
	}
	original := strings.TrimSpace(in.OriginalItemID)
	target := strings.TrimSpace(in.NewReferenceID)
	if original == "" || target == "" {
		return Edge{}, common.BadRequest("item_id", "both item ids are required", nil)
	}
	if compare.NormalizeItemID(original) == compare.NormalizeItemID(target) {
		return Edge{}, common.BadRequest("new_reference_id", "an item cannot supersede itself", nil)
	}
	attribution := strings.TrimSpace(in.Attribution)
	if attribution == "" && Source(in.Source) == SourceUser {
		attribution = "user"
	}
	edge := Edge{
		OriginalItemID: original,
		NewReferenceID: target,
		Source:         Source(in.Source),
		Attribution:    attribution,
		ChangeDate:     time.Now().UTC(),
		Notes:          strings.TrimSpace(in.Notes),
	}
	return s.Store.Upsert(ctx, edge)
}

// Resolve returns the one-hop lineage view for an item.
func (s *Service) Resolve(ctx context.Context, itemID string) (ResolvedView, error) {
	if s == nil || s.Store == nil {
		return ResolvedView{}, errors.New("reference service not configured")
	}
	edges, err := s.Store.ListForItem(ctx, itemID)
	if err != nil {
		return ResolvedView{}, err
	}
	set, dups := NewEdgeSet(edges)
	s.logDuplicates(dups)
	return s.enrich(ctx, set.Resolve(itemID)), nil
}

// ResolveBulk resolves many items against a single edge-set snapshot, used by
// the comparison view so identity stays consistent across the whole table.
func (s *Service) ResolveBulk(ctx context.Context, itemIDs []string) (map[string]Resolution, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("reference service not configured")
	}
	edges, err := s.Store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	set, dups := NewEdgeSet(edges)
	s.logDuplicates(dups)
	out := make(map[string]Resolution, len(itemIDs))
	for _, id := range itemIDs {
		out[compare.NormalizeItemID(id)] = set.Resolve(id)
	}
	return out, nil
}

// Remove deletes one edge; the endpoints return to plain for that edge only.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.Store == nil {
		return errors.New("reference service not configured")
	}
	deleted, err := s.Store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return common.NotFound("reference change not found", nil)
	}
	return nil
}

func (s *Service) enrich(ctx context.Context, res Resolution) ResolvedView {
	view := ResolvedView{Resolution: res}
	if s.Items == nil {
		return view
	}
	if res.Successor != nil {
		view.SuccessorDescription = s.describe(ctx, res.Successor.NewReferenceID)
	}
	if len(res.Predecessors) > 0 {
		view.PredecessorDescriptions = make(map[string]string, len(res.Predecessors))
		for _, e := range res.Predecessors {
			if desc := s.describe(ctx, e.OriginalItemID); desc != "" {
				view.PredecessorDescriptions[e.OriginalItemID] = desc
			}
		}
	}
	return view
}

func (s *Service) describe(ctx context.Context, itemID string) string {
	desc, err := s.Items.Description(ctx, itemID)
	if err != nil {
		s.Logger.Warn().Err(err).Str("item_id", itemID).Msg("describe reference target")
		return ""
	}
	return desc
}

func (s *Service) logDuplicates(dups []Edge) {
	for _, d := range dups {
		s.Logger.Warn().
			Str("original_item_id", d.OriginalItemID).
			Str("new_reference_id", d.NewReferenceID).
			Msg("duplicate outgoing reference change ignored")
	}
}
