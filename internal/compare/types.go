package compare

import (
	"fmt"
	"strings"

	"github.com/noah-isme/backend-procure/internal/pricing"
)

// Quote is a single supplier's offer for one item within an inquiry. Quotes
// are immutable facts reported by the supplier; the engine derives overrides
// on top of them but never mutates them.
type Quote struct {
	ItemID           string
	SupplierID       string
	SupplierName     string
	Price            *pricing.Amount
	IsPromotion      bool
	PromotionGroupID string
	PromotionName    string
}

// RequestedItem is one line of the inquiry's requested item set.
type RequestedItem struct {
	ItemID        string          `json:"item_id"`
	DescriptionHe string          `json:"description_he"`
	DescriptionEn string          `json:"description_en"`
	RetailPrice   *pricing.Amount `json:"retail_price"`
	ImportMarkup  *float64        `json:"import_markup,omitempty"`
	Quantity      int             `json:"quantity"`
}

// GroupKey identifies an offer group: a supplier's regular price list when
// PromotionGroupID is empty, otherwise one specific promotion from that
// supplier.
type GroupKey struct {
	SupplierID       string
	PromotionGroupID string
}

// String renders the key in its canonical wire form, used for selection maps
// and API payloads.
func (k GroupKey) String() string {
	if k.PromotionGroupID == "" {
		return k.SupplierID + ":regular"
	}
	return k.SupplierID + ":promo:" + k.PromotionGroupID
}

// ParseGroupKey parses the canonical wire form back into a GroupKey.
func ParseGroupKey(s string) (GroupKey, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 3)
	switch {
	case len(parts) == 2 && parts[1] == "regular" && parts[0] != "":
		return GroupKey{SupplierID: parts[0]}, nil
	case len(parts) == 3 && parts[1] == "promo" && parts[0] != "" && parts[2] != "":
		return GroupKey{SupplierID: parts[0], PromotionGroupID: parts[2]}, nil
	default:
		return GroupKey{}, fmt.Errorf("invalid group key %q", s)
	}
}

// Row is one item slot inside an offer group. Every group carries exactly one
// row per requested item; a nil price marks an explicit "no offer" so absence
// is visible rather than silent.
type Row struct {
	ItemID string
	Price  *pricing.Amount
}

// OfferGroup is a supplier's regular price list or one promotion, treated as a
// unit of selection. Rebuilt whole whenever the quote list changes.
type OfferGroup struct {
	Key           GroupKey
	SupplierID    string
	SupplierName  string
	IsPromotion   bool
	PromotionName string
	Rows          []Row

	rowIndex map[string]int
}

// RowFor returns the group's row for the item, if the item is in scope.
func (g *OfferGroup) RowFor(itemID string) (Row, bool) {
	if g == nil {
		return Row{}, false
	}
	idx, ok := g.rowIndex[NormalizeItemID(itemID)]
	if !ok {
		return Row{}, false
	}
	return g.Rows[idx], true
}

// NormalizeItemID canonicalises an item identifier for comparison purposes.
// Identifiers arrive as numbers or strings with inconsistent casing; set
// operations always work on the normalized form.
func NormalizeItemID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
