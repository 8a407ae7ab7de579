// Package eodhd is a market data and exchange rate source over the EOD
// Historical Data API (https://eodhd.com). It needs an API key.
package eodhd

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/etnz/tracker"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the EODHD API root.
const DefaultBaseURL = "https://eodhd.com/api"

// Config configures a Client.
type Config struct {
	APIKey   string
	BaseURL  string        // DefaultBaseURL when empty
	CacheDir string        // directory of the daily fundamentals cache, os.TempDir() when empty
	Clock    tracker.Clock // drives the daily cache expiry
	Timeout  time.Duration // 15s when zero
}

// Client implements tracker.MarketData and tracker.RateSource.
type Client struct {
	apiKey  string
	baseURL string
	// live for prices, daily for the slow fundamentals and search.
	live  *http.Client
	daily *http.Client
	log   zerolog.Logger
}

// NewClient creates a client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Clock == nil {
		cfg.Clock = tracker.SystemClock{}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	log = log.With().Str("client", "eodhd").Logger()
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		live:    &http.Client{Timeout: cfg.Timeout},
		daily: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &diskCache{base: http.DefaultTransport, dir: cfg.CacheDir, clock: cfg.Clock, log: log},
		},
		log: log,
	}
}

// Symbol returns the EODHD code of a ticker. Tickers without an exchange
// suffix are US listings, share classes (BRK.B) are written with a dash.
func Symbol(ticker string) string {
	ticker = tracker.NormalizeTicker(ticker)
	if i := strings.LastIndex(ticker, "."); i >= 0 {
		if len(ticker)-i-1 >= 2 {
			return ticker
		}
		ticker = strings.ReplaceAll(ticker, ".", "-")
	}
	return ticker + ".US"
}

// LastPrice returns the delayed real time price.
func (c *Client) LastPrice(ctx context.Context, ticker string) (tracker.Price, error) {
	code := Symbol(ticker)
	v, err := fetchRealTime(ctx, c.live, c.baseURL, c.apiKey, code)
	if err != nil {
		return tracker.Price{}, err
	}
	return tracker.Price{Value: v, Currency: listingCurrency(code)}, nil
}

// IntradayClose returns the close of the most recent 1 minute bar.
func (c *Client) IntradayClose(ctx context.Context, ticker string) (tracker.Price, error) {
	code := Symbol(ticker)
	v, err := fetchIntradayClose(ctx, c.live, c.baseURL, c.apiKey, code)
	if err != nil {
		return tracker.Price{}, err
	}
	return tracker.Price{Value: v, Currency: listingCurrency(code)}, nil
}

// listingCurrency is the trading currency of an EODHD code when the exchange
// alone tells it. Price endpoints do not report a currency, other exchanges
// rely on the fundamentals one.
func listingCurrency(code string) string {
	if strings.HasSuffix(code, ".US") {
		return "USD"
	}
	return ""
}

// Fundamentals returns the sector, market cap and currency of ticker. EODHD
// fundamentals carry no price.
func (c *Client) Fundamentals(ctx context.Context, ticker string) (tracker.Fundamentals, error) {
	return fetchFundamentals(ctx, c.daily, c.baseURL, c.apiKey, Symbol(ticker))
}

// Rate returns the latest forex rate from/to.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1, nil
	}
	// The Ticker for forex is in the format "fromCurrency+toCurrency.FOREX".
	rate, err := fetchRealTime(ctx, c.live, c.baseURL, c.apiKey, fmt.Sprintf("%s%s.FOREX", from, to))
	if err != nil {
		return 0, err
	}
	if rate <= 0 {
		return 0, fmt.Errorf("%w: non positive rate %v for %s/%s", tracker.ErrNoData, rate, from, to)
	}
	return rate, nil
}
