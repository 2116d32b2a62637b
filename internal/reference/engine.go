package reference

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-procure/internal/compare"
)

// Source records who declared a replacement.
type Source string

const (
	SourceSupplier Source = "supplier"
	SourceUser     Source = "user"
)

// Edge is a directed supersession: the original item id was replaced by the
// new reference id. An item has at most one outgoing edge but may have many
// incoming ones (several older items consolidated into one successor). Edges
// are never auto-deleted; only an explicit user action removes them.
type Edge struct {
	ID             uuid.UUID `json:"id"`
	OriginalItemID string    `json:"original_item_id"`
	NewReferenceID string    `json:"new_reference_id"`
	Source         Source    `json:"source"`
	Attribution    string    `json:"attribution"`
	ChangeDate     time.Time `json:"change_date"`
	Notes          string    `json:"notes,omitempty"`
}

// State is the display state of an item with respect to replacement edges.
type State string

const (
	// StatePlain marks an item with no replacement history.
	StatePlain State = "plain"
	// StateSuperseded marks an old item pointing at its successor.
	StateSuperseded State = "superseded"
	// StateSuccessor marks a new item consolidating one or more predecessors.
	StateSuccessor State = "successor"
)

// Resolution is the one-hop view of an item's replacement lineage. The
// product intentionally shows a single hop; a successor's own successor is
// discovered only by navigating to it.
type Resolution struct {
	ItemID       string `json:"item_id"`
	State        State  `json:"state"`
	Successor    *Edge  `json:"successor,omitempty"`
	Predecessors []Edge `json:"predecessors,omitempty"`
}

// EdgeSet indexes replacement edges for lookup by either endpoint.
type EdgeSet struct {
	outgoing map[string]Edge
	incoming map[string][]Edge
}

// NewEdgeSet indexes the given edges. An item with more than one outgoing
// edge violates the invariant; the first edge wins and the rest are returned
// so the caller can flag them without blocking resolution.
func NewEdgeSet(edges []Edge) (*EdgeSet, []Edge) {
	set := &EdgeSet{
		outgoing: make(map[string]Edge, len(edges)),
		incoming: make(map[string][]Edge),
	}
	var duplicates []Edge
	for _, e := range edges {
		from := compare.NormalizeItemID(e.OriginalItemID)
		to := compare.NormalizeItemID(e.NewReferenceID)
		if from == "" || to == "" {
			duplicates = append(duplicates, e)
			continue
		}
		if _, exists := set.outgoing[from]; exists {
			duplicates = append(duplicates, e)
			continue
		}
		set.outgoing[from] = e
		set.incoming[to] = append(set.incoming[to], e)
	}
	return set, duplicates
}

// Resolve determines the item's replacement state with a single lookup per
// endpoint; no multi-hop traversal is performed. A dangling target is still
// resolvable — the caller simply has no description for the raw id.
func (s *EdgeSet) Resolve(itemID string) Resolution {
	res := Resolution{ItemID: itemID, State: StatePlain}
	if s == nil {
		return res
	}
	norm := compare.NormalizeItemID(itemID)
	if edge, ok := s.outgoing[norm]; ok {
		e := edge
		res.State = StateSuperseded
		res.Successor = &e
		return res
	}
	if incoming := s.incoming[norm]; len(incoming) > 0 {
		res.State = StateSuccessor
		res.Predecessors = append(res.Predecessors, incoming...)
		sort.Slice(res.Predecessors, func(i, j int) bool {
			return res.Predecessors[i].OriginalItemID < res.Predecessors[j].OriginalItemID
		})
	}
	return res
}
