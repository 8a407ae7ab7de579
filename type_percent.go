package tracker

import (
	"encoding/json"
	"fmt"
	"math"
)

// Percent is a ratio times 100, e.g. a 12.5% return is Percent(12.5).
type Percent float64

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", float64(p))
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", float64(p))
	if res == "+0.00%" || res == "-0.00%" {
		return "-"
	}
	return res
}

// MarshalJSON writes the percentage rounded to 4 decimals.
func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(math.Round(float64(p)*10000) / 10000)
}
