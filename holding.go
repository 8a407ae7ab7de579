package tracker

import (
	"encoding/json"
	"strings"
)

// BaseCurrency is the currency every price and cost field is stored in.
const BaseCurrency = "USD"

// DefaultSector is used when the market data has no sector for a ticker.
const DefaultSector = "Others"

// Holding is one lot of one ticker.
//
// AvgPrice and CurrentPrice are always expressed in BaseCurrency. Display
// currency figures are derived by the valuation and never stored here.
type Holding struct {
	Ticker         string
	AvgPrice       float64 // cost basis per unit
	Quantity       float64
	CurrentPrice   float64 // last observed market price per unit
	Sector         string
	MarketCapClass MarketCapClass
}

// NormalizeTicker trims and uppercases a user provided symbol.
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// MarshalJSON writes the holding with the document store key names, in a
// stable order.
func (h Holding) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("Ticker", h.Ticker)
	w.Append("Avg Price", h.AvgPrice)
	w.Append("Quantity", h.Quantity)
	w.Append("Current Price", h.CurrentPrice)
	w.Append("Sector", h.Sector)
	w.Append("Market Cap Class", h.MarketCapClass)
	return w.MarshalJSON()
}

// UnmarshalJSON reads a holding, tolerating missing or null fields and
// unknown keys written by older versions.
func (h *Holding) UnmarshalJSON(data []byte) error {
	var aux struct {
		Ticker         string         `json:"Ticker"`
		AvgPrice       *float64       `json:"Avg Price"`
		Quantity       *float64       `json:"Quantity"`
		CurrentPrice   *float64       `json:"Current Price"`
		Sector         *string        `json:"Sector"`
		MarketCapClass MarketCapClass `json:"Market Cap Class"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*h = Holding{
		Ticker:         NormalizeTicker(aux.Ticker),
		Sector:         DefaultSector,
		MarketCapClass: aux.MarketCapClass,
	}
	if aux.AvgPrice != nil {
		h.AvgPrice = *aux.AvgPrice
	}
	if aux.Quantity != nil {
		h.Quantity = *aux.Quantity
	}
	if aux.CurrentPrice != nil {
		h.CurrentPrice = *aux.CurrentPrice
	}
	if aux.Sector != nil && strings.TrimSpace(*aux.Sector) != "" {
		h.Sector = *aux.Sector
	}
	return nil
}
