package tracker

import (
	"encoding/json"
	"strings"
)

// MarketCapClass is a size class derived from a USD market capitalization.
//
// Classes have a fixed display order (Mega first, Unknown last) that must be
// used wherever they are listed or grouped. The zero value is UnknownCap.
type MarketCapClass int

const (
	UnknownCap MarketCapClass = iota
	MegaCap
	LargeCap
	MidCap
	SmallCap
	MicroCap
)

var capLabels = [...]string{
	UnknownCap: "Unknown",
	MegaCap:    "Mega Cap",
	LargeCap:   "Large Cap",
	MidCap:     "Mid Cap",
	SmallCap:   "Small Cap",
	MicroCap:   "Micro Cap",
}

// thresholds in USD, evaluated top-down.
var capThresholds = []struct {
	min   float64
	class MarketCapClass
}{
	{200e9, MegaCap},
	{10e9, LargeCap},
	{2e9, MidCap},
	{0.3e9, SmallCap},
}

// Classify returns the class of a raw USD market capitalization. Zero (or any
// non positive value) means the capitalization is unknown.
func Classify(capUSD float64) MarketCapClass {
	if capUSD <= 0 {
		return UnknownCap
	}
	for _, t := range capThresholds {
		if capUSD >= t.min {
			return t.class
		}
	}
	return MicroCap
}

// ClassifyPtr is Classify for an optional capitalization, nil is Unknown.
func ClassifyPtr(capUSD *float64) MarketCapClass {
	if capUSD == nil {
		return UnknownCap
	}
	return Classify(*capUSD)
}

// MarketCapClasses returns all the classes in display order.
func MarketCapClasses() []MarketCapClass {
	return []MarketCapClass{MegaCap, LargeCap, MidCap, SmallCap, MicroCap, UnknownCap}
}

// Order returns the display rank of the class, Mega Cap is 0 and Unknown is last.
func (c MarketCapClass) Order() int {
	if c < MegaCap || c > MicroCap {
		return int(MicroCap)
	}
	return int(c) - 1
}

func (c MarketCapClass) String() string {
	if c < MegaCap || c > MicroCap {
		return capLabels[UnknownCap]
	}
	return capLabels[c]
}

// ParseMarketCapClass reads a class label. Labels written by older versions
// carried a translation suffix, e.g. "Mega Cap (초대형주)", they are matched by
// prefix. Anything else is Unknown.
func ParseMarketCapClass(s string) MarketCapClass {
	s = strings.TrimSpace(s)
	for _, c := range MarketCapClasses() {
		if strings.EqualFold(s, capLabels[c]) || strings.HasPrefix(strings.ToLower(s), strings.ToLower(capLabels[c])+" ") {
			return c
		}
	}
	return UnknownCap
}

func (c MarketCapClass) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *MarketCapClass) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// null or a non string value
		*c = UnknownCap
		return nil
	}
	*c = ParseMarketCapClass(s)
	return nil
}
