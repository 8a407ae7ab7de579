package tracker

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Display selects the currency figures are projected into.
type Display struct {
	Currency string
	Rate     float64 // units of Currency per unit of BaseCurrency
}

// BaseDisplay shows figures in the base currency.
var BaseDisplay = Display{Currency: BaseCurrency, Rate: 1}

func (d Display) rate() decimal.Decimal {
	if d.Currency == "" || d.Currency == BaseCurrency {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromFloat(d.Rate)
}

func (d Display) currency() string {
	if d.Currency == "" {
		return BaseCurrency
	}
	return d.Currency
}

// Figures holds one set of valuation figures, either for a single holding or
// for a column total.
type Figures struct {
	// Base currency figures, the source of truth.
	Invested Money
	Value    Money
	PnL      Money
	// Display currency projections of the base figures.
	DisplayInvested Money
	DisplayValue    Money
	DisplayPnL      Money
	// Return is computed from base figures only, it is currency invariant.
	Return Percent
}

// Position is the valuation of one holding.
type Position struct {
	Holding Holding
	Figures
}

// Valuation is the valuation of a list of holdings.
type Valuation struct {
	Display   Display
	Positions []Position
	Total     Figures
}

// Value computes the valuation of holdings for the given display.
//
// Base currency figures are computed first and are the only inputs to both
// the totals and the currency projection.
func Value(holdings []Holding, display Display) Valuation {
	v := Valuation{
		Display:   Display{Currency: display.currency(), Rate: display.rate().InexactFloat64()},
		Positions: make([]Position, 0, len(holdings)),
	}
	invested, value := M(0, BaseCurrency), M(0, BaseCurrency)
	for _, h := range holdings {
		f := baseFigures(h)
		invested = invested.Add(f.Invested)
		value = value.Add(f.Value)
		v.Positions = append(v.Positions, Position{Holding: h, Figures: f.project(display)})
	}
	// totals are column sums, never recomputed from aggregate prices.
	total := Figures{Invested: invested, Value: value, PnL: value.Sub(invested)}
	total.Return = returnOf(total.Invested, total.PnL)
	v.Total = total.project(display)
	return v
}

func baseFigures(h Holding) Figures {
	qty := newDecimal(h.Quantity)
	f := Figures{
		Invested: M(h.AvgPrice, BaseCurrency).Mul(qty),
		Value:    M(h.CurrentPrice, BaseCurrency).Mul(qty),
	}
	f.PnL = f.Value.Sub(f.Invested)
	f.Return = returnOf(f.Invested, f.PnL)
	return f
}

// project fills the display figures from the base ones.
func (f Figures) project(display Display) Figures {
	rate, cur := display.rate(), display.currency()
	f.DisplayInvested = f.Invested.Convert(rate, cur)
	f.DisplayValue = f.Value.Convert(rate, cur)
	f.DisplayPnL = f.PnL.Convert(rate, cur)
	return f
}

func returnOf(invested, pnl Money) Percent {
	if invested.IsZero() {
		return 0
	}
	r := pnl.Decimal().Div(invested.Decimal()).Mul(decimal.NewFromInt(100))
	return Percent(r.InexactFloat64())
}

// Group is a slice of a valuation: all positions sharing a sector or a market
// cap class.
type Group struct {
	Name         string
	Value        Money // base currency
	DisplayValue Money
	Weight       Percent // share of the total value
	Positions    int
}

// BySector groups positions per sector, largest value first.
func (v Valuation) BySector() []Group {
	groups := v.group(func(p Position) string { return p.Holding.Sector })
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Value.Decimal().GreaterThan(groups[j].Value.Decimal())
	})
	return groups
}

// ByMarketCap groups positions per market cap class, in the fixed class
// order. Classes without positions are omitted.
func (v Valuation) ByMarketCap() []Group {
	groups := v.group(func(p Position) string { return p.Holding.MarketCapClass.String() })
	sort.SliceStable(groups, func(i, j int) bool {
		return ParseMarketCapClass(groups[i].Name).Order() < ParseMarketCapClass(groups[j].Name).Order()
	})
	return groups
}

func (v Valuation) group(key func(Position) string) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, p := range v.Positions {
		k := key(p)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{
				Name:         k,
				Value:        M(0, BaseCurrency),
				DisplayValue: M(0, v.Display.currency()),
			})
		}
		groups[i].Value = groups[i].Value.Add(p.Value)
		groups[i].DisplayValue = groups[i].DisplayValue.Add(p.DisplayValue)
		groups[i].Positions++
	}
	total := v.Total.Value.Decimal()
	for i := range groups {
		if total.IsZero() {
			continue
		}
		w := groups[i].Value.Decimal().Div(total).Mul(decimal.NewFromInt(100))
		groups[i].Weight = Percent(w.InexactFloat64())
	}
	return groups
}
