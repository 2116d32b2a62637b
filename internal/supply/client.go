package supply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-procure/internal/resilience"
)

// Client talks to the external procurement collaborator. All calls go through
// the resilience wrapper so retries, timeouts and the circuit breaker apply
// uniformly, and every call honors context cancellation.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    resilience.HTTPClient
	Logger  zerolog.Logger
}

// PriceEdit is a permanent price correction submitted back to the
// collaborator.
type PriceEdit struct {
	ItemID     string  `json:"itemId"`
	SupplierID string  `json:"supplierId"`
	Price      float64 `json:"price"`
}

// FetchResponses pulls all supplier responses recorded for an inquiry and
// runs the tolerant normalization pass. Unusable records are logged and
// skipped, never fatal.
func (c *Client) FetchResponses(ctx context.Context, inquiryID string) ([]NormalizedResponse, error) {
	var raw []SupplierResponseSummary
	if err := c.getJSON(ctx, fmt.Sprintf("/inquiries/%s/responses", url.PathEscape(inquiryID)), &raw); err != nil {
		return nil, err
	}
	out := make([]NormalizedResponse, 0, len(raw))
	for _, summary := range raw {
		resp, ok := summary.Normalize()
		if !ok {
			c.Logger.Warn().Str("inquiry_id", inquiryID).Msg("supplier response without id skipped")
			continue
		}
		if resp.SkippedRows > 0 {
			c.Logger.Warn().
				Str("inquiry_id", inquiryID).
				Str("supplier_id", resp.SupplierID).
				Int("skipped_rows", resp.SkippedRows).
				Msg("malformed price rows skipped")
		}
		out = append(out, resp)
	}
	return out, nil
}

// FetchItems pulls the inquiry's requested item set.
func (c *Client) FetchItems(ctx context.Context, inquiryID string) ([]ItemRow, error) {
	var raw []ItemRow
	if err := c.getJSON(ctx, fmt.Sprintf("/inquiries/%s/items", url.PathEscape(inquiryID)), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// FetchReferenceChanges pulls the replacement edges the collaborator knows
// about for an inquiry's items.
func (c *Client) FetchReferenceChanges(ctx context.Context, inquiryID string) ([]ReplacementEdge, error) {
	var raw []ReplacementEdge
	if err := c.getJSON(ctx, fmt.Sprintf("/inquiries/%s/reference-changes", url.PathEscape(inquiryID)), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SubmitPriceEdit writes a permanent price correction. The collaborator's
// contract makes the write idempotent per (item, supplier, value); the caller
// guards against firing duplicates for a single user action.
func (c *Client) SubmitPriceEdit(ctx context.Context, edit PriceEdit) error {
	body, err := json.Marshal(edit)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint("/prices"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("submit price edit: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("submit price edit: unexpected status %s", resp.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %s", path, resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

func (c *Client) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
