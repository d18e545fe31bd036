package metric

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Value is one scalar measurement. An unavailable value carries no amount
// and must not be treated as zero.
type Value struct {
	Kind      Kind
	Amount    float64
	Available bool
}

// Measured returns an available value
func Measured(k Kind, amount float64) Value {
	return Value{Kind: k, Amount: amount, Available: true}
}

// Unavailable returns the value reported when a kind cannot be measured
func Unavailable(k Kind) Value {
	return Value{Kind: k}
}

// String formats the value with its unit
func (v Value) String() string {
	if !v.Available {
		return "unavailable"
	}
	return Format(v.Kind, v.Amount)
}

// Format renders an amount of the given kind for humans
func Format(k Kind, amount float64) string {
	switch k {
	case Memory:
		if amount < 0 {
			return fmt.Sprintf("%.0f bytes", amount)
		}
		return humanize.Bytes(uint64(amount))
	case ObjectCount:
		return humanize.Comma(int64(amount)) + " objects"
	case GcRuns:
		return fmt.Sprintf("%.2f runs", amount)
	default:
		return fmt.Sprintf("%.2f ms", amount)
	}
}
