package reference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists replacement edges.
type Store struct {
	Pool *pgxpool.Pool
}

const edgeColumns = `id, original_item_id, new_reference_id, source, attribution, change_date, coalesce(notes, '')`

// Upsert records a replacement declaration. The unique index on the original
// item id enforces the single-outgoing-edge invariant: a new declaration for
// an already superseded item replaces the previous edge.
func (s *Store) Upsert(ctx context.Context, e Edge) (Edge, error) {
	if s == nil || s.Pool == nil {
		return Edge{}, errors.New("reference: store not configured")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ChangeDate.IsZero() {
		e.ChangeDate = time.Now().UTC()
	}
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO reference_changes (id, original_item_id, new_reference_id, source, attribution, change_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, nullif($7, ''))
		ON CONFLICT ((lower(original_item_id))) DO UPDATE
		SET new_reference_id = excluded.new_reference_id,
		    source = excluded.source,
		    attribution = excluded.attribution,
		    change_date = excluded.change_date,
		    notes = excluded.notes
		RETURNING `+edgeColumns,
		e.ID, e.OriginalItemID, e.NewReferenceID, string(e.Source), e.Attribution, e.ChangeDate, e.Notes,
	)
	return scanEdge(row)
}

// ListForItem returns every edge touching the item as either endpoint.
func (s *Store) ListForItem(ctx context.Context, itemID string) ([]Edge, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("reference: store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+edgeColumns+`
		FROM reference_changes
		WHERE lower(original_item_id) = lower($1) OR lower(new_reference_id) = lower($1)
		ORDER BY change_date DESC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list reference changes: %w", err)
	}
	defer rows.Close()
	return collectEdges(rows)
}

// ListAll returns the full edge set, used when resolving in bulk for a
// comparison view.
func (s *Store) ListAll(ctx context.Context) ([]Edge, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("reference: store not configured")
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+edgeColumns+` FROM reference_changes ORDER BY change_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list reference changes: %w", err)
	}
	defer rows.Close()
	return collectEdges(rows)
}

// Delete removes one edge by id, reporting whether anything was deleted.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if s == nil || s.Pool == nil {
		return false, errors.New("reference: store not configured")
	}
	tag, err := s.Pool.Exec(ctx, `DELETE FROM reference_changes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete reference change: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func collectEdges(rows pgx.Rows) ([]Edge, error) {
	edges := make([]Edge, 0)
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func scanEdge(row pgx.Row) (Edge, error) {
	var e Edge
	var source string
	if err := row.Scan(&e.ID, &e.OriginalItemID, &e.NewReferenceID, &source, &e.Attribution, &e.ChangeDate, &e.Notes); err != nil {
		return Edge{}, err
	}
	e.Source = Source(source)
	return e, nil
}
