package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// KRW is a helper for test to create won money from const
func KRW(v float64) Money { return M(v, "KRW") }

// fakeClock is a Clock that only moves when told to.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.March, 14, 15, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeMarket is a MarketData serving fixed values. A ticker missing from a
// map has no data for that tier.
type fakeMarket struct {
	last         map[string]float64
	intraday     map[string]float64
	currency     map[string]string // of the last and intraday prices
	fundamentals map[string]Fundamentals

	calls int // number of LastPrice calls
}

func (m *fakeMarket) LastPrice(ctx context.Context, ticker string) (Price, error) {
	m.calls++
	if err := ctx.Err(); err != nil {
		return Price{}, err
	}
	p, ok := m.last[ticker]
	if !ok {
		return Price{}, fmt.Errorf("%w: no last price for %s", ErrNoData, ticker)
	}
	return Price{Value: p, Currency: m.currency[ticker]}, nil
}

func (m *fakeMarket) IntradayClose(ctx context.Context, ticker string) (Price, error) {
	p, ok := m.intraday[ticker]
	if !ok {
		return Price{}, fmt.Errorf("%w: no intraday close for %s", ErrNoData, ticker)
	}
	return Price{Value: p, Currency: m.currency[ticker]}, nil
}

func (m *fakeMarket) Fundamentals(ctx context.Context, ticker string) (Fundamentals, error) {
	f, ok := m.fundamentals[ticker]
	if !ok {
		return Fundamentals{}, fmt.Errorf("%w: no fundamentals for %s", ErrNoData, ticker)
	}
	return f, nil
}

// newMarket returns a market knowing AAPL, MSFT and a KRW quoted Samsung.
func newMarket() *fakeMarket {
	return &fakeMarket{
		last:     map[string]float64{"AAPL": 190, "MSFT": 410, "005930.KS": 70000},
		currency: map[string]string{"AAPL": "USD", "MSFT": "USD", "005930.KS": "KRW"},
		fundamentals: map[string]Fundamentals{
			"AAPL":      {Sector: "Technology", MarketCap: 3e12, Currency: "USD", Price: 189},
			"MSFT":      {Sector: "Technology", MarketCap: 3.1e12, Currency: "USD", Price: 409},
			"005930.KS": {Sector: "Technology", MarketCap: 300e9, Currency: "KRW", Price: 69000},
		},
	}
}

// fakeRates is a RateSource serving fixed rates, or failing when fail is set.
type fakeRates struct {
	rates map[Pair]float64
	fail  bool
	calls int
}

func (r *fakeRates) Rate(ctx context.Context, from, to string) (float64, error) {
	r.calls++
	if r.fail {
		return 0, fmt.Errorf("%w: rate service down", ErrNoData)
	}
	rate, ok := r.rates[Pair{From: from, To: to}]
	if !ok {
		return 0, fmt.Errorf("%w: no rate for %s/%s", ErrNoData, from, to)
	}
	return rate, nil
}
