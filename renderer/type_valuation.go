package renderer

import (
	"strconv"

	"github.com/etnz/tracker"
	"github.com/shopspring/decimal"
)

// Valuation is the data of a holdings report.
//
// Amounts keep the tracker Money and Percent types so that templates can use
// their String and SignedString renderers.
type Valuation struct {
	// Profile is the name of the rendered profile.
	Profile string
	// Currency is the display currency.
	Currency string
	// Rate is the display rate, units of Currency per USD, as text.
	Rate string
	// Converted is true when figures are projected out of the base currency.
	Converted bool
	Positions []Position
	Total     tracker.Figures
	Sectors   []tracker.Group
	Caps      []tracker.Group
}

// Position is one row of the holdings table.
type Position struct {
	Index        int // 1-based, as used by the edit and remove commands
	Ticker       string
	Quantity     string
	AvgPrice     tracker.Money // per unit, display currency
	CurrentPrice tracker.Money // per unit, display currency
	Sector       string
	Class        string
	tracker.Figures
}

// NewValuation prepares a valuation for rendering.
func NewValuation(profile string, v tracker.Valuation) *Valuation {
	r := &Valuation{
		Profile:   cell(profile),
		Currency:  v.Display.Currency,
		Rate:      strconv.FormatFloat(v.Display.Rate, 'f', -1, 64),
		Converted: v.Display.Currency != tracker.BaseCurrency,
		Positions: make([]Position, 0, len(v.Positions)),
		Total:     v.Total,
		Sectors:   v.BySector(),
		Caps:      v.ByMarketCap(),
	}
	rate := decimal.NewFromFloat(v.Display.Rate)
	for i, p := range v.Positions {
		r.Positions = append(r.Positions, Position{
			Index:        i + 1,
			Ticker:       cell(p.Holding.Ticker),
			Quantity:     strconv.FormatFloat(p.Holding.Quantity, 'f', -1, 64),
			AvgPrice:     tracker.M(p.Holding.AvgPrice, tracker.BaseCurrency).Convert(rate, r.Currency),
			CurrentPrice: tracker.M(p.Holding.CurrentPrice, tracker.BaseCurrency).Convert(rate, r.Currency),
			Sector:       cell(p.Holding.Sector),
			Class:        p.Holding.MarketCapClass.String(),
			Figures:      p.Figures,
		})
	}
	for i := range r.Sectors {
		r.Sectors[i].Name = cell(r.Sectors[i].Name)
	}
	return r
}
