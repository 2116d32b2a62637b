package compare

// Coverage partitions the requested item set into items priced by at least one
// selected group and items left uncovered. Recomputed synchronously whenever
// the selection changes, not only when quotes load.
type Coverage struct {
	Covered      []RequestedItem `json:"covered"`
	Missing      []RequestedItem `json:"missing"`
	CoveredCount int             `json:"covered_count"`
	MissingCount int             `json:"missing_count"`
}

// Reconcile computes order-level coverage for the expected item set against
// the selected offer groups. An item is covered when any selected group has a
// non-nil effective price for it. Invariants: covered and missing partition
// the expected set; no item appears in both.
func Reconcile(groups map[GroupKey]*OfferGroup, sel Selection, expected []RequestedItem, overrides Overrides) Coverage {
	coverage := Coverage{
		Covered: make([]RequestedItem, 0, len(expected)),
		Missing: make([]RequestedItem, 0),
	}
	seen := make(map[string]struct{}, len(expected))
	for _, item := range expected {
		norm := NormalizeItemID(item.ItemID)
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		if itemCovered(item.ItemID, groups, sel, overrides) {
			coverage.Covered = append(coverage.Covered, item)
		} else {
			coverage.Missing = append(coverage.Missing, item)
		}
	}
	coverage.CoveredCount = len(coverage.Covered)
	coverage.MissingCount = len(coverage.Missing)
	return coverage
}

func itemCovered(itemID string, groups map[GroupKey]*OfferGroup, sel Selection, overrides Overrides) bool {
	for key, g := range groups {
		if !sel.Enabled(key) {
			continue
		}
		if EffectivePrice(g, itemID, overrides) != nil {
			return true
		}
	}
	return false
}

// SupplierCoverage reports, for one supplier's response, which expected items
// it did not quote.
type SupplierCoverage struct {
	SupplierID    string          `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name"`
	TotalExpected int             `json:"total_expected"`
	Responded     int             `json:"responded"`
	Missing       []RequestedItem `json:"missing"`
	MissingCount  int             `json:"missing_count"`
}

// MissingForSupplier reconciles a supplier's quotes against the expected item
// set. The supplier's own declared missing list and count are authoritative
// when present; otherwise both are derived by set difference.
func MissingForSupplier(supplierID, supplierName string, quotes []Quote, declaredMissing []RequestedItem, declaredCount *int, expected []RequestedItem) SupplierCoverage {
	quoted := make(map[string]struct{}, len(quotes))
	for _, q := range quotes {
		if q.SupplierID != supplierID {
			continue
		}
		if q.Price == nil {
			continue
		}
		quoted[NormalizeItemID(q.ItemID)] = struct{}{}
	}

	cov := SupplierCoverage{
		SupplierID:    supplierID,
		SupplierName:  supplierName,
		TotalExpected: len(expected),
		Responded:     len(quoted),
	}

	if declaredMissing != nil {
		cov.Missing = declaredMissing
	} else {
		cov.Missing = make([]RequestedItem, 0)
		for _, item := range expected {
			if _, ok := quoted[NormalizeItemID(item.ItemID)]; !ok {
				cov.Missing = append(cov.Missing, item)
			}
		}
	}
	if declaredCount != nil {
		cov.MissingCount = *declaredCount
	} else {
		cov.MissingCount = len(cov.Missing)
	}
	return cov
}
