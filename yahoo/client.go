// Package yahoo is a market data source over the public Yahoo Finance JSON
// endpoints.
//
// Three endpoints are used, one per resolution tier:
//
//	/v8/finance/chart/<T>                                    meta.regularMarketPrice
//	/v8/finance/chart/<T>?range=1d&interval=1m&includePrePost=true   last non null 1 minute close
//	/v10/finance/quoteSummary/<T>?modules=assetProfile,price,summaryDetail
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/tracker"
	"github.com/rs/zerolog"
)

const (
	// DefaultChartURL serves the chart endpoint.
	DefaultChartURL = "https://query1.finance.yahoo.com"
	// DefaultSummaryURL serves the quoteSummary endpoint.
	DefaultSummaryURL = "https://query2.finance.yahoo.com"
)

// Client is a Yahoo Finance client. It implements tracker.MarketData.
type Client struct {
	chartURL   string
	summaryURL string
	client     *http.Client
	log        zerolog.Logger
}

// NewClient creates a client on the public endpoints.
func NewClient(log zerolog.Logger) *Client {
	return NewClientWithBaseURL(DefaultChartURL, DefaultSummaryURL, log)
}

// NewClientWithBaseURL creates a client on other hosts, e.g. a test server.
func NewClientWithBaseURL(chartURL, summaryURL string, log zerolog.Logger) *Client {
	return &Client{
		chartURL:   strings.TrimRight(chartURL, "/"),
		summaryURL: strings.TrimRight(summaryURL, "/"),
		client:     &http.Client{Timeout: 15 * time.Second},
		log:        log.With().Str("client", "yahoo").Logger(),
	}
}

// LastPrice returns the regular market price of the chart metadata, in the
// currency of the chart.
func (c *Client) LastPrice(ctx context.Context, ticker string) (tracker.Price, error) {
	addr := fmt.Sprintf("%s/v8/finance/chart/%s", c.chartURL, url.PathEscape(ticker))
	var jobj any
	if err := c.jwget(ctx, addr, &jobj); err != nil {
		return tracker.Price{}, err
	}
	v, err := number("$.chart.result[0].meta.regularMarketPrice", jobj)
	if err != nil {
		return tracker.Price{}, err
	}
	return tracker.Price{Value: v, Currency: chartCurrency(jobj)}, nil
}

// IntradayClose returns the most recent 1 minute close of the day, pre and
// post market sessions included.
func (c *Client) IntradayClose(ctx context.Context, ticker string) (tracker.Price, error) {
	q := url.Values{}
	q.Set("range", "1d")
	q.Set("interval", "1m")
	q.Set("includePrePost", "true")
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.chartURL, url.PathEscape(ticker), q.Encode())
	var jobj any
	if err := c.jwget(ctx, addr, &jobj); err != nil {
		return tracker.Price{}, err
	}
	path := "$.chart.result[0].indicators.quote[0].close"
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return tracker.Price{}, fmt.Errorf("%w: %s: %v", tracker.ErrNoData, path, err)
	}
	closes, _ := jval.([]any)
	// closes are null for the minutes without trades.
	for i := len(closes) - 1; i >= 0; i-- {
		if v, ok := closes[i].(float64); ok {
			return tracker.Price{Value: v, Currency: chartCurrency(jobj)}, nil
		}
	}
	return tracker.Price{}, fmt.Errorf("%w: no intraday close for %s", tracker.ErrNoData, ticker)
}

// chartCurrency is the currency of the chart prices, empty when missing.
func chartCurrency(jobj any) string {
	cur, _ := text("$.chart.result[0].meta.currency", jobj)
	return cur
}

// Fundamentals returns the sector, market cap, currency and price of ticker.
func (c *Client) Fundamentals(ctx context.Context, ticker string) (tracker.Fundamentals, error) {
	addr := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=assetProfile,price,summaryDetail", c.summaryURL, url.PathEscape(ticker))
	var jobj any
	if err := c.jwget(ctx, addr, &jobj); err != nil {
		return tracker.Fundamentals{}, err
	}
	if v, err := jsonpath.Get("$.quoteSummary.result[0]", jobj); err != nil || v == nil {
		return tracker.Fundamentals{}, fmt.Errorf("%w: no summary for %s", tracker.ErrNoData, ticker)
	}

	var f tracker.Fundamentals
	f.Sector, _ = text("$.quoteSummary.result[0].assetProfile.sector", jobj)
	f.Currency, _ = text("$.quoteSummary.result[0].price.currency", jobj)
	f.Price, _ = number("$.quoteSummary.result[0].price.regularMarketPrice.raw", jobj)
	var err error
	if f.MarketCap, err = number("$.quoteSummary.result[0].price.marketCap.raw", jobj); err != nil {
		f.MarketCap, _ = number("$.quoteSummary.result[0].summaryDetail.marketCap.raw", jobj)
	}
	return f, nil
}

// jwget performs an HTTP GET request and unmarshals the JSON response into data.
func (c *Client) jwget(ctx context.Context, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", tracker.ErrNoData, err)
	}
	defer resp.Body.Close()
	c.log.Debug().Str("path", req.URL.Path).Int("status", resp.StatusCode).Msg("GET")
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: cannot http GET %v/%v: %v", tracker.ErrNoData, req.URL.Host, req.URL.Path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(data); err != nil {
		return fmt.Errorf("%w: %v", tracker.ErrNoData, err)
	}
	return nil
}

// number extracts a float at path. Missing and null values are errors.
func number(path string, jobj any) (float64, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", tracker.ErrNoData, path, err)
	}
	// jsonpath may answer a list of one
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	v, ok := jval.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s: not a number: %v", tracker.ErrNoData, path, jval)
	}
	return v, nil
}

// text extracts a non empty string at path.
func text(path string, jobj any) (string, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", tracker.ErrNoData, path, err)
	}
	s, ok := jval.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s: not a string: %v", tracker.ErrNoData, path, jval)
	}
	return s, nil
}
