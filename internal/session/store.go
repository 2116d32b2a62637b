package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-procure/internal/compare"
)

// Store persists one comparison session per inquiry in Redis: the user's
// group selection and any temporary price overrides. Everything else in the
// comparison view is recomputed from quotes on every read. Writes are
// last-write-wins; there is no cross-user sharing to coordinate.
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

// doc is the stored JSON shape. Override keys flatten to "itemID|groupKey"
// because JSON objects need string keys.
type doc struct {
	Selection compare.Selection  `json:"selection"`
	Overrides map[string]float64 `json:"overrides"`
}

func (s *Store) key(inquiryID string) string {
	return "session:compare:" + strings.TrimSpace(inquiryID)
}

// Load fetches the session for an inquiry. A missing or unreadable session
// yields a fresh one rather than an error; stale state is never worth
// blocking the comparison view.
func (s *Store) Load(ctx context.Context, inquiryID string) (compare.Selection, compare.Overrides, error) {
	data, err := s.R.Get(ctx, s.key(inquiryID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return compare.Selection{}, compare.Overrides{}, nil
		}
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	var d doc
	if err := json.Unmarshal(data, &d); err != nil {
		return compare.Selection{}, compare.Overrides{}, nil
	}
	sel := d.Selection
	if sel == nil {
		sel = compare.Selection{}
	}
	ov := make(compare.Overrides, len(d.Overrides))
	for k, price := range d.Overrides {
		itemID, groupKey, ok := splitOverrideKey(k)
		if !ok {
			continue
		}
		ov[compare.OverrideKey{ItemID: itemID, GroupKey: groupKey}] = price
	}
	return sel, ov, nil
}

// Save writes the session back and refreshes its TTL.
func (s *Store) Save(ctx context.Context, inquiryID string, sel compare.Selection, ov compare.Overrides) error {
	d := doc{Selection: sel, Overrides: make(map[string]float64, len(ov))}
	for k, price := range ov {
		d.Overrides[k.ItemID+"|"+k.GroupKey] = price
	}
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := s.R.Set(ctx, s.key(inquiryID), data, s.TTL).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Close drops the session entirely: selection resets to default and all
// temporary overrides disappear.
func (s *Store) Close(ctx context.Context, inquiryID string) error {
	if err := s.R.Del(ctx, s.key(inquiryID)).Err(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// GuardSubmit reserves a one-shot token for a permanent price edit so a rapid
// double invocation reaches the collaborator once. It reports whether the
// caller holds the reservation.
func (s *Store) GuardSubmit(ctx context.Context, inquiryID, itemID, supplierID string, price float64, ttl time.Duration) (bool, error) {
	token := fmt.Sprintf("submit:%s:%s:%s:%.4f", strings.TrimSpace(inquiryID), compare.NormalizeItemID(itemID), strings.TrimSpace(supplierID), price)
	ok, err := s.R.SetNX(ctx, token, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("guard submit: %w", err)
	}
	return ok, nil
}

func splitOverrideKey(k string) (itemID, groupKey string, ok bool) {
	idx := strings.Index(k, "|")
	if idx <= 0 || idx == len(k)-1 {
		return "", "", false
	}
	return k[:idx], k[idx+1:], true
}
