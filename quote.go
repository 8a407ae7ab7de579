package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Price is a price observation in the currency it is quoted in.
type Price struct {
	Value    float64
	Currency string // ISO code, empty when the source does not tell
}

// Fundamentals is the slow, descriptive lookup of a ticker.
type Fundamentals struct {
	Sector    string
	MarketCap float64 // raw, in Currency, 0 when unknown
	Currency  string  // currency prices and market cap are quoted in
	// Price is the last known price, the last resort of the quote
	// resolution. It is one field among the descriptive ones, so 0 means
	// the source did not report it.
	Price float64
}

// MarketData is the quote source adapter.
//
// Each method returns an error (typically wrapping ErrNoData) when it has no
// value. A price returned without error is a real observation, even zero.
type MarketData interface {
	// LastPrice returns the latest traded price.
	LastPrice(ctx context.Context, ticker string) (Price, error)
	// IntradayClose returns the most recent 1 minute close of the day,
	// including pre and post market sessions.
	IntradayClose(ctx context.Context, ticker string) (Price, error)
	// Fundamentals returns the descriptive data of a ticker.
	Fundamentals(ctx context.Context, ticker string) (Fundamentals, error)
}

// Quote is a resolved price observation of a ticker.
type Quote struct {
	Ticker      string
	Price       float64
	Currency    string // currency of Price
	Sector      string
	MarketCap   float64
	CapCurrency string // currency of MarketCap
	// Described is true when the fundamentals lookup succeeded. Otherwise
	// Sector and MarketCap are defaults and must not replace known values.
	Described bool
	FetchedAt time.Time
}

// Class is the market cap class of the quoted ticker.
func (q Quote) Class() MarketCapClass { return Classify(q.MarketCap) }

// FetchQuote resolves a quote from the adapter.
//
// The price is the first available of: the last traded price, the latest
// intraday close, the fundamentals price (when reported, non zero). Sector,
// market cap and their currency come from the fundamentals lookup, with
// defaults when it fails. The price currency is the one of the price tier,
// else the fundamentals one. A price in an unknown currency, or no price at
// all, is ErrQuoteUnavailable.
func FetchQuote(ctx context.Context, src MarketData, ticker string, now time.Time) (Quote, error) {
	q := Quote{
		Ticker:    ticker,
		Sector:    DefaultSector,
		FetchedAt: now,
	}

	var errs []error
	price, err := src.LastPrice(ctx, ticker)
	found := err == nil
	if err != nil {
		errs = append(errs, fmt.Errorf("last price: %w", err))
		price, err = src.IntradayClose(ctx, ticker)
		found = err == nil
		if err != nil {
			errs = append(errs, fmt.Errorf("intraday close: %w", err))
		}
	}

	f, ferr := src.Fundamentals(ctx, ticker)
	if ferr != nil {
		errs = append(errs, fmt.Errorf("fundamentals: %w", ferr))
	} else {
		q.Described = true
		if s := strings.TrimSpace(f.Sector); s != "" {
			q.Sector = s
		}
		q.MarketCap = f.MarketCap
		q.CapCurrency = normCurrency(f.Currency)
		if !found && f.Price > 0 {
			price, found = Price{Value: f.Price, Currency: f.Currency}, true
		}
		if price.Currency == "" {
			price.Currency = f.Currency
		}
	}

	if !found {
		return Quote{}, fmt.Errorf("%w: %s: %w", ErrQuoteUnavailable, ticker, errors.Join(errs...))
	}
	q.Price = price.Value
	q.Currency = normCurrency(price.Currency)
	if q.Currency == "" {
		errs = append(errs, fmt.Errorf("unknown currency of price %v", price.Value))
		return Quote{}, fmt.Errorf("%w: %s: %w", ErrQuoteUnavailable, ticker, errors.Join(errs...))
	}
	if q.CapCurrency == "" {
		q.CapCurrency = q.Currency
	}
	return q, nil
}

func normCurrency(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
