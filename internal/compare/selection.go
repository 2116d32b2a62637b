package compare

// Selection maps a group key (wire form) to whether the group participates in
// the comparison. User-owned and session-scoped; the engine only reads it.
type Selection map[string]bool

// DefaultSelection selects every group, the state a fresh session starts in.
func DefaultSelection(groups map[GroupKey]*OfferGroup) Selection {
	sel := make(Selection, len(groups))
	for key := range groups {
		sel[key.String()] = true
	}
	return sel
}

// MergeSelection reconciles a stored selection with a freshly grouped quote
// set. Existing toggles survive a quote refresh, keys that no longer resolve
// to a group are dropped, and groups the user has never seen default to
// selected.
func MergeSelection(groups map[GroupKey]*OfferGroup, stored Selection) Selection {
	sel := make(Selection, len(groups))
	for key := range groups {
		wire := key.String()
		if enabled, ok := stored[wire]; ok {
			sel[wire] = enabled
		} else {
			sel[wire] = true
		}
	}
	return sel
}

// Enabled reports whether the group currently participates. Unknown keys are
// treated as deselected.
func (s Selection) Enabled(key GroupKey) bool {
	return s[key.String()]
}

// OverrideKey addresses a temporary price override: one item inside one group.
type OverrideKey struct {
	ItemID   string
	GroupKey string
}

// Overrides holds user-edited prices that only exist for live what-if
// calculation; they are cleared when the comparison session ends.
type Overrides map[OverrideKey]float64

// Get returns the override for the item/group pair, if any.
func (o Overrides) Get(itemID string, key GroupKey) *float64 {
	if o == nil {
		return nil
	}
	v, ok := o[OverrideKey{ItemID: NormalizeItemID(itemID), GroupKey: key.String()}]
	if !ok {
		return nil
	}
	return &v
}

// Set records an override, normalising the item id so lookups are stable.
func (o Overrides) Set(itemID string, key GroupKey, price float64) {
	o[OverrideKey{ItemID: NormalizeItemID(itemID), GroupKey: key.String()}] = price
}

// Delete removes an override if present.
func (o Overrides) Delete(itemID string, key GroupKey) {
	delete(o, OverrideKey{ItemID: NormalizeItemID(itemID), GroupKey: key.String()})
}
