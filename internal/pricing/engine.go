package pricing

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is a price in either the quoted or the local currency. A nil
// *Amount means "no price"; the arithmetic below degrades to nil instead of
// propagating NaN or panicking, so callers decide how absence is displayed.
type Amount = float64

// ParseAmount normalises a raw quoted price into an amount. Suppliers report
// prices as JSON numbers or as strings, sometimes with a decimal comma; any
// other shape yields nil.
func ParseAmount(v any) *Amount {
	switch value := v.(type) {
	case nil:
		return nil
	case float64:
		return validAmount(value)
	case float32:
		return validAmount(float64(value))
	case int:
		return validAmount(float64(value))
	case int64:
		return validAmount(float64(value))
	case json.Number:
		parsed, err := value.Float64()
		if err != nil {
			return nil
		}
		return validAmount(parsed)
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return nil
		}
		trimmed = strings.ReplaceAll(trimmed, ",", ".")
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil
		}
		return validAmount(parsed)
	default:
		return nil
	}
}

// LocalCost converts a quoted foreign-currency price into a local-currency
// cost: quoted * rate * markup. Nil when the quote is absent or the rate or
// markup is non-positive or NaN.
func LocalCost(quoted *Amount, rate, markup float64) *Amount {
	if quoted == nil || math.IsNaN(*quoted) {
		return nil
	}
	if math.IsNaN(rate) || rate <= 0 {
		return nil
	}
	if math.IsNaN(markup) || markup <= 0 {
		return nil
	}
	cost := *quoted * rate * markup
	return &cost
}

// DiscountPercent reports how far below the retail benchmark the quoted price
// lands, as a percentage clamped to [0, 100]. Clamping is deliberate: a markup
// error must never display an impossible discount. Nil unless the quote,
// markup, retail price, and rate are all present and usable.
func DiscountPercent(quoted *Amount, markup float64, retail *Amount, rate float64) *float64 {
	cost := LocalCost(quoted, rate, markup)
	if cost == nil {
		return nil
	}
	if retail == nil || math.IsNaN(*retail) || *retail == 0 {
		return nil
	}
	percent := ((*retail - *cost) / *retail) * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return &percent
}

func validAmount(v float64) *Amount {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
