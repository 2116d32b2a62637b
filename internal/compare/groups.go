package compare

import "sort"

// BuildGroups partitions a flat quote list into offer groups. Every distinct
// (supplier, promotion) combination present in the quotes defines a group, and
// each group lists every requested item exactly once: the matching quote when
// one exists, else a synthetic nil-price row. Grouping is idempotent and is
// always recomputed from scratch when the quote list changes.
func BuildGroups(quotes []Quote, items []RequestedItem) map[GroupKey]*OfferGroup {
	groups := make(map[GroupKey]*OfferGroup)
	for _, q := range quotes {
		key := GroupKey{SupplierID: q.SupplierID}
		if q.IsPromotion {
			key.PromotionGroupID = q.PromotionGroupID
		}
		g, ok := groups[key]
		if !ok {
			g = &OfferGroup{
				Key:           key,
				SupplierID:    q.SupplierID,
				SupplierName:  q.SupplierName,
				IsPromotion:   q.IsPromotion,
				PromotionName: q.PromotionName,
				Rows:          make([]Row, len(items)),
				rowIndex:      make(map[string]int, len(items)),
			}
			for i, item := range items {
				g.Rows[i] = Row{ItemID: item.ItemID}
				g.rowIndex[NormalizeItemID(item.ItemID)] = i
			}
			groups[key] = g
		}
		if g.SupplierName == "" {
			g.SupplierName = q.SupplierName
		}
		if g.PromotionName == "" {
			g.PromotionName = q.PromotionName
		}
		idx, ok := g.rowIndex[NormalizeItemID(q.ItemID)]
		if !ok {
			// quote for an item outside the requested set; not part of any row
			continue
		}
		if g.Rows[idx].Price == nil {
			g.Rows[idx].Price = q.Price
		}
	}
	return groups
}

// SortedKeys returns the group keys in a stable display order: suppliers
// alphabetically, a supplier's regular list before its promotions.
func SortedKeys(groups map[GroupKey]*OfferGroup) []GroupKey {
	keys := make([]GroupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].SupplierID != keys[j].SupplierID {
			return keys[i].SupplierID < keys[j].SupplierID
		}
		return keys[i].PromotionGroupID < keys[j].PromotionGroupID
	})
	return keys
}
