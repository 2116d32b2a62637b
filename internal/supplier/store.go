package supplier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Supplier is one supplier master record.
type Supplier struct {
	SupplierID   string    `json:"supplier_id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email"`
	Phone        string    `json:"phone"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ResponseRecord is one supplier's recorded response to an inquiry: when it
// answered and what it declared itself unable to offer. The quotes themselves
// live with the inquiry.
type ResponseRecord struct {
	InquiryID       string     `json:"inquiry_id"`
	SupplierID      string     `json:"supplier_id"`
	SupplierName    string     `json:"supplier_name"`
	DeclaredMissing []string   `json:"declared_missing"`
	DeclaredCount   *int       `json:"declared_count"`
	RespondedAt     *time.Time `json:"responded_at"`
}

// ErrSupplierNotFound is returned for lookups of unknown supplier ids.
var ErrSupplierNotFound = errors.New("supplier: not found")

// Store persists suppliers and their inquiry responses in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

const supplierColumns = `supplier_id, name, contact_email, phone, active, created_at, updated_at`

// Upsert inserts or replaces a supplier.
func (s *Store) Upsert(ctx context.Context, sup Supplier) (Supplier, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO suppliers (supplier_id, name, contact_email, phone, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (supplier_id) DO UPDATE SET
			name = EXCLUDED.name,
			contact_email = EXCLUDED.contact_email,
			phone = EXCLUDED.phone,
			active = EXCLUDED.active,
			updated_at = now()
		RETURNING `+supplierColumns,
		sup.SupplierID, sup.Name, sup.ContactEmail, sup.Phone, sup.Active)
	return scanSupplier(row)
}

// Get fetches one supplier.
func (s *Store) Get(ctx context.Context, supplierID string) (Supplier, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE supplier_id = $1`, supplierID)
	sup, err := scanSupplier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Supplier{}, ErrSupplierNotFound
		}
		return Supplier{}, err
	}
	return sup, nil
}

// List returns all suppliers ordered by name.
func (s *Store) List(ctx context.Context) ([]Supplier, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()
	var out []Supplier
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sup)
	}
	return out, rows.Err()
}

// Delete removes a supplier. It reports whether a row was deleted.
func (s *Store) Delete(ctx context.Context, supplierID string) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM suppliers WHERE supplier_id = $1`, supplierID)
	if err != nil {
		return false, fmt.Errorf("delete supplier: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpsertResponse records a supplier's response to an inquiry, replacing any
// earlier record for the same pair.
func (s *Store) UpsertResponse(ctx context.Context, rec ResponseRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO supplier_responses (inquiry_id, supplier_id, supplier_name, declared_missing, declared_count, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (inquiry_id, supplier_id) DO UPDATE SET
			supplier_name = EXCLUDED.supplier_name,
			declared_missing = EXCLUDED.declared_missing,
			declared_count = EXCLUDED.declared_count,
			responded_at = EXCLUDED.responded_at`,
		rec.InquiryID, rec.SupplierID, rec.SupplierName, rec.DeclaredMissing, rec.DeclaredCount, rec.RespondedAt)
	if err != nil {
		return fmt.Errorf("upsert supplier response: %w", err)
	}
	return nil
}

// GetResponse fetches one supplier's response record for an inquiry. Missing
// records are not an error: the supplier simply has not answered yet.
func (s *Store) GetResponse(ctx context.Context, inquiryID, supplierID string) (*ResponseRecord, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT inquiry_id, supplier_id, supplier_name, declared_missing, declared_count, responded_at
		FROM supplier_responses WHERE inquiry_id = $1 AND supplier_id = $2`, inquiryID, supplierID)
	rec, err := scanResponse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListResponses fetches every response recorded for an inquiry.
func (s *Store) ListResponses(ctx context.Context, inquiryID string) ([]ResponseRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT inquiry_id, supplier_id, supplier_name, declared_missing, declared_count, responded_at
		FROM supplier_responses WHERE inquiry_id = $1 ORDER BY supplier_id`, inquiryID)
	if err != nil {
		return nil, fmt.Errorf("list supplier responses: %w", err)
	}
	defer rows.Close()
	var out []ResponseRecord
	for rows.Next() {
		rec, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanSupplier(row pgx.Row) (Supplier, error) {
	var sup Supplier
	err := row.Scan(&sup.SupplierID, &sup.Name, &sup.ContactEmail, &sup.Phone, &sup.Active,
		&sup.CreatedAt, &sup.UpdatedAt)
	if err != nil {
		return Supplier{}, err
	}
	return sup, nil
}

func scanResponse(row pgx.Row) (ResponseRecord, error) {
	var rec ResponseRecord
	err := row.Scan(&rec.InquiryID, &rec.SupplierID, &rec.SupplierName, &rec.DeclaredMissing,
		&rec.DeclaredCount, &rec.RespondedAt)
	if err != nil {
		return ResponseRecord{}, err
	}
	return rec, nil
}
