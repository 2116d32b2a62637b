package supply

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-procure/internal/compare"
	"github.com/noah-isme/backend-procure/internal/pricing"
	"github.com/noah-isme/backend-procure/internal/reference"
)

// Collaborator payloads are loosely typed: ids arrive as strings or numbers,
// prices as numbers, strings with decimal commas, or null. Each record kind
// gets one tagged type here and one Normalize pass; everything downstream
// works with the strict internal types. Malformed values degrade to nil or
// empty, they never fail the batch.

// PriceRow is one quoted price as reported by the collaborator.
type PriceRow struct {
	ItemID           any    `json:"itemId"`
	SupplierID       any    `json:"supplierId"`
	SupplierName     string `json:"supplierName"`
	PriceQuoted      any    `json:"priceQuoted"`
	IsPromotion      bool   `json:"isPromotion"`
	PromotionGroupID any    `json:"promotionGroupId"`
	PromotionName    string `json:"promotionName"`
}

// Normalize converts the row into a strict quote. Rows without an item or
// supplier id are unusable and reported via ok=false.
func (r PriceRow) Normalize() (compare.Quote, bool) {
	itemID := coerceID(r.ItemID)
	supplierID := coerceID(r.SupplierID)
	if itemID == "" || supplierID == "" {
		return compare.Quote{}, false
	}
	q := compare.Quote{
		ItemID:       itemID,
		SupplierID:   supplierID,
		SupplierName: strings.TrimSpace(r.SupplierName),
		Price:        pricing.ParseAmount(r.PriceQuoted),
	}
	if r.IsPromotion {
		q.IsPromotion = true
		q.PromotionGroupID = coerceID(r.PromotionGroupID)
		q.PromotionName = strings.TrimSpace(r.PromotionName)
	}
	return q, true
}

// ItemRow is one requested item in the collaborator's inquiry payload.
type ItemRow struct {
	ItemID        any    `json:"itemId"`
	DescriptionHe string `json:"hebrewDescription"`
	DescriptionEn string `json:"englishDescription"`
	RetailPrice   any    `json:"retailPrice"`
	ImportMarkup  any    `json:"importTaxMarkup"`
	Quantity      any    `json:"requestedQty"`
}

// Normalize converts the row into a strict requested item.
func (r ItemRow) Normalize() (compare.RequestedItem, bool) {
	itemID := coerceID(r.ItemID)
	if itemID == "" {
		return compare.RequestedItem{}, false
	}
	item := compare.RequestedItem{
		ItemID:        itemID,
		DescriptionHe: strings.TrimSpace(r.DescriptionHe),
		DescriptionEn: strings.TrimSpace(r.DescriptionEn),
		RetailPrice:   pricing.ParseAmount(r.RetailPrice),
		Quantity:      coerceInt(r.Quantity),
	}
	if markup := pricing.ParseAmount(r.ImportMarkup); markup != nil {
		v := float64(*markup)
		item.ImportMarkup = &v
	}
	return item, true
}

// ReplacementEdge is a reference change as reported by the collaborator.
type ReplacementEdge struct {
	ID             string `json:"id"`
	OriginalItemID any    `json:"originalItemId"`
	NewReferenceID any    `json:"newReferenceId"`
	Source         string `json:"source"`
	Attribution    string `json:"attribution"`
	ChangeDate     string `json:"changeDate"`
	Notes          string `json:"notes"`
}

// Normalize converts the record into a strict edge. Edges missing either
// endpoint are unusable.
func (r ReplacementEdge) Normalize() (reference.Edge, bool) {
	from := coerceID(r.OriginalItemID)
	to := coerceID(r.NewReferenceID)
	if from == "" || to == "" {
		return reference.Edge{}, false
	}
	edge := reference.Edge{
		OriginalItemID: from,
		NewReferenceID: to,
		Source:         reference.SourceSupplier,
		Attribution:    strings.TrimSpace(r.Attribution),
		Notes:          strings.TrimSpace(r.Notes),
	}
	if id, err := uuid.Parse(strings.TrimSpace(r.ID)); err == nil {
		edge.ID = id
	} else {
		edge.ID = uuid.New()
	}
	if strings.EqualFold(strings.TrimSpace(r.Source), string(reference.SourceUser)) {
		edge.Source = reference.SourceUser
	}
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(r.ChangeDate)); err == nil {
		edge.ChangeDate = ts
	} else {
		edge.ChangeDate = time.Now().UTC()
	}
	return edge, true
}

// SupplierResponseSummary is the collaborator's per-supplier response record
// for an inquiry: the quoted rows plus the supplier's own declaration of what
// it could not offer.
type SupplierResponseSummary struct {
	SupplierID        any        `json:"supplierId"`
	SupplierName      string     `json:"supplierName"`
	Rows              []PriceRow `json:"rows"`
	MissingItemIDs    []any      `json:"missingItemIds"`
	MissingItemsCount any        `json:"missingItemsCount"`
	RespondedAt       string     `json:"respondedAt"`
}

// NormalizedResponse is a supplier response after the tolerant pass.
type NormalizedResponse struct {
	SupplierID    string
	SupplierName  string
	Quotes        []compare.Quote
	DeclaredIDs   []string
	DeclaredCount *int
	RespondedAt   time.Time
	SkippedRows   int
}

// Normalize converts the summary. Rows that cannot be attributed to an item
// are counted in SkippedRows rather than dropped silently.
func (s SupplierResponseSummary) Normalize() (NormalizedResponse, bool) {
	supplierID := coerceID(s.SupplierID)
	if supplierID == "" {
		return NormalizedResponse{}, false
	}
	out := NormalizedResponse{
		SupplierID:   supplierID,
		SupplierName: strings.TrimSpace(s.SupplierName),
	}
	for _, row := range s.Rows {
		q, ok := row.Normalize()
		if !ok {
			out.SkippedRows++
			continue
		}
		if q.SupplierID == "" {
			q.SupplierID = supplierID
		}
		if q.SupplierName == "" {
			q.SupplierName = out.SupplierName
		}
		out.Quotes = append(out.Quotes, q)
	}
	for _, raw := range s.MissingItemIDs {
		if id := coerceID(raw); id != "" {
			out.DeclaredIDs = append(out.DeclaredIDs, id)
		}
	}
	if s.MissingItemsCount != nil {
		n := coerceInt(s.MissingItemsCount)
		out.DeclaredCount = &n
	}
	if ts, err := time.Parse(time.RFC3339, strings.TrimSpace(s.RespondedAt)); err == nil {
		out.RespondedAt = ts
	}
	return out, true
}

// coerceID renders an id that may arrive as a string or a JSON number into
// its canonical string form. Integral floats lose the trailing ".0" so the
// same id matches regardless of how the collaborator serialized it.
func coerceID(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func coerceInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		return 0
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
