package inquiry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-procure/internal/compare"
)

// Inquiry is one procurement inquiry: a requested item set sent out to
// suppliers for quoting.
type Inquiry struct {
	InquiryID string    `json:"inquiry_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Inquiry status values.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// ErrInquiryNotFound is returned for lookups of unknown inquiry ids.
var ErrInquiryNotFound = errors.New("inquiry: not found")

// Store persists inquiries, their requested items and the quotes received.
type Store struct {
	Pool *pgxpool.Pool
}

// Create inserts an inquiry and its requested items in one transaction.
func (s *Store) Create(ctx context.Context, inq Inquiry, items []compare.RequestedItem) (Inquiry, error) {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return Inquiry{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO inquiries (inquiry_id, title, status)
		VALUES ($1, $2, $3)
		RETURNING inquiry_id, title, status, created_at, updated_at`,
		inq.InquiryID, inq.Title, StatusOpen)
	created, err := scanInquiry(row)
	if err != nil {
		return Inquiry{}, fmt.Errorf("insert inquiry: %w", err)
	}
	for _, item := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO inquiry_items (inquiry_id, item_id, description_he, description_en, retail_price, import_markup, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			created.InquiryID, item.ItemID, item.DescriptionHe, item.DescriptionEn,
			item.RetailPrice, item.ImportMarkup, item.Quantity)
		if err != nil {
			return Inquiry{}, fmt.Errorf("insert inquiry item %s: %w", item.ItemID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Inquiry{}, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// Get fetches one inquiry.
func (s *Store) Get(ctx context.Context, inquiryID string) (Inquiry, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT inquiry_id, title, status, created_at, updated_at
		FROM inquiries WHERE inquiry_id = $1`, inquiryID)
	inq, err := scanInquiry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Inquiry{}, ErrInquiryNotFound
		}
		return Inquiry{}, err
	}
	return inq, nil
}

// List returns all inquiries, newest first.
func (s *Store) List(ctx context.Context) ([]Inquiry, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT inquiry_id, title, status, created_at, updated_at
		FROM inquiries ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}
	defer rows.Close()
	var out []Inquiry
	for rows.Next() {
		inq, err := scanInquiry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inq)
	}
	return out, rows.Err()
}

// SetStatus updates an inquiry's status.
func (s *Store) SetStatus(ctx context.Context, inquiryID, status string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE inquiries SET status = $2, updated_at = now() WHERE inquiry_id = $1`,
		inquiryID, status)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInquiryNotFound
	}
	return nil
}

// RequestedItems returns the inquiry's requested item set.
func (s *Store) RequestedItems(ctx context.Context, inquiryID string) ([]compare.RequestedItem, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT item_id, description_he, description_en, retail_price, import_markup, quantity
		FROM inquiry_items WHERE inquiry_id = $1 ORDER BY item_id`, inquiryID)
	if err != nil {
		return nil, fmt.Errorf("list inquiry items: %w", err)
	}
	defer rows.Close()
	var out []compare.RequestedItem
	for rows.Next() {
		var item compare.RequestedItem
		if err := rows.Scan(&item.ItemID, &item.DescriptionHe, &item.DescriptionEn,
			&item.RetailPrice, &item.ImportMarkup, &item.Quantity); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Quotes returns every quote stored for an inquiry.
func (s *Store) Quotes(ctx context.Context, inquiryID string) ([]compare.Quote, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT item_id, supplier_id, supplier_name, price, is_promotion, promotion_group_id, promotion_name
		FROM price_quotes WHERE inquiry_id = $1 ORDER BY supplier_id, item_id`, inquiryID)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()
	var out []compare.Quote
	for rows.Next() {
		var q compare.Quote
		if err := rows.Scan(&q.ItemID, &q.SupplierID, &q.SupplierName, &q.Price,
			&q.IsPromotion, &q.PromotionGroupID, &q.PromotionName); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ReplaceSupplierQuotes swaps out all of one supplier's quotes for an inquiry
// in a single transaction, so a refreshed response never leaves a mix of old
// and new rows visible.
func (s *Store) ReplaceSupplierQuotes(ctx context.Context, inquiryID, supplierID string, quotes []compare.Quote) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM price_quotes WHERE inquiry_id = $1 AND supplier_id = $2`,
		inquiryID, supplierID); err != nil {
		return fmt.Errorf("clear supplier quotes: %w", err)
	}
	for _, q := range quotes {
		_, err := tx.Exec(ctx, `
			INSERT INTO price_quotes (inquiry_id, item_id, supplier_id, supplier_name, price, is_promotion, promotion_group_id, promotion_name)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			inquiryID, q.ItemID, q.SupplierID, q.SupplierName, q.Price,
			q.IsPromotion, q.PromotionGroupID, q.PromotionName)
		if err != nil {
			return fmt.Errorf("insert quote %s/%s: %w", q.SupplierID, q.ItemID, err)
		}
	}
	return tx.Commit(ctx)
}

// UpdateQuotePrice applies a permanent price correction to one supplier's
// regular quote for an item. It reports whether a row was updated.
func (s *Store) UpdateQuotePrice(ctx context.Context, inquiryID, itemID, supplierID string, price float64) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE price_quotes SET price = $4
		WHERE inquiry_id = $1 AND lower(item_id) = lower($2) AND supplier_id = $3 AND NOT is_promotion`,
		inquiryID, itemID, supplierID, price)
	if err != nil {
		return false, fmt.Errorf("update quote price: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanInquiry(row pgx.Row) (Inquiry, error) {
	var inq Inquiry
	err := row.Scan(&inq.InquiryID, &inq.Title, &inq.Status, &inq.CreatedAt, &inq.UpdatedAt)
	if err != nil {
		return Inquiry{}, err
	}
	return inq, nil
}
