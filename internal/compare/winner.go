package compare

import "math"

// DefaultTolerance is the absolute epsilon within which two quoted prices are
// considered equal. Price equality must never use ==; ties inside the
// tolerance all count as winning so the UI can highlight multiple winners.
const DefaultTolerance = 0.01

// EffectivePrice resolves the price a group currently offers for an item: the
// session override when one exists, else the group's quoted price. Nil means
// the group has no offer for the item.
func EffectivePrice(g *OfferGroup, itemID string, overrides Overrides) *float64 {
	if g == nil {
		return nil
	}
	if v := overrides.Get(itemID, g.Key); v != nil {
		return v
	}
	row, ok := g.RowFor(itemID)
	if !ok {
		return nil
	}
	return row.Price
}

// BestPrice returns the minimum effective price for the item across selected
// groups, or nil when no selected group prices it.
func BestPrice(itemID string, groups map[GroupKey]*OfferGroup, sel Selection, overrides Overrides) *float64 {
	var best *float64
	for key, g := range groups {
		if !sel.Enabled(key) {
			continue
		}
		price := EffectivePrice(g, itemID, overrides)
		if price == nil {
			continue
		}
		if best == nil || *price < *best {
			v := *price
			best = &v
		}
	}
	return best
}

// IsWinning reports whether the given price ties the best price for the item
// within the tolerance. Nil and zero prices never win.
func IsWinning(price *float64, itemID string, groups map[GroupKey]*OfferGroup, sel Selection, overrides Overrides, tolerance float64) bool {
	if price == nil || *price == 0 {
		return false
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	best := BestPrice(itemID, groups, sel, overrides)
	if best == nil {
		return false
	}
	return math.Abs(*price-*best) <= tolerance
}
