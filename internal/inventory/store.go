package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Item is one inventory record. ItemID is the natural identifier quoted by
// suppliers; matching is case-insensitive so the stored id keeps its original
// casing for display.
type Item struct {
	ItemID        string     `json:"item_id"`
	DescriptionHe string     `json:"description_he"`
	DescriptionEn string     `json:"description_en"`
	RetailPrice   *float64   `json:"retail_price"`
	ImportMarkup  float64    `json:"import_markup"`
	StockOnHand   int        `json:"stock_on_hand"`
	SoldLastYear  int        `json:"sold_last_year"`
	LastSoldAt    *time.Time `json:"last_sold_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ErrItemNotFound is returned for lookups of unknown item ids.
var ErrItemNotFound = errors.New("inventory: item not found")

const itemColumns = `item_id, description_he, description_en, retail_price, import_markup,
	stock_on_hand, sold_last_year, last_sold_at, created_at, updated_at`

// Store persists inventory items in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// Upsert inserts or replaces an item keyed by its normalized id.
func (s *Store) Upsert(ctx context.Context, item Item) (Item, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO items (item_id, description_he, description_en, retail_price, import_markup,
			stock_on_hand, sold_last_year, last_sold_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ((lower(item_id))) DO UPDATE SET
			description_he = EXCLUDED.description_he,
			description_en = EXCLUDED.description_en,
			retail_price = EXCLUDED.retail_price,
			import_markup = EXCLUDED.import_markup,
			stock_on_hand = EXCLUDED.stock_on_hand,
			sold_last_year = EXCLUDED.sold_last_year,
			last_sold_at = EXCLUDED.last_sold_at,
			updated_at = now()
		RETURNING `+itemColumns,
		item.ItemID, item.DescriptionHe, item.DescriptionEn, item.RetailPrice, item.ImportMarkup,
		item.StockOnHand, item.SoldLastYear, item.LastSoldAt)
	return scanItem(row)
}

// Get fetches one item by id, case-insensitively.
func (s *Store) Get(ctx context.Context, itemID string) (Item, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE lower(item_id) = lower($1)`, itemID)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return item, nil
}

// List returns a page of items ordered by id, plus the total count.
func (s *Store) List(ctx context.Context, limit, offset int) ([]Item, int64, error) {
	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM items`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY lower(item_id) LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	items := make([]Item, 0, limit)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// Delete removes an item. It reports whether a row was deleted.
func (s *Store) Delete(ctx context.Context, itemID string) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM items WHERE lower(item_id) = lower($1)`, itemID)
	if err != nil {
		return false, fmt.Errorf("delete item: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ItemID, &item.DescriptionHe, &item.DescriptionEn, &item.RetailPrice,
		&item.ImportMarkup, &item.StockOnHand, &item.SoldLastYear, &item.LastSoldAt,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	return item, nil
}
