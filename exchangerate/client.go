// Package exchangerate fetches currency exchange rates from exchangerate-api.com.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/etnz/tracker"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public endpoint, it needs no key.
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// Client for exchangerate-api.com. It implements tracker.RateSource.
//
// There is no cache here: tracker.FXCache caches and degrades.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a client. An empty baseURL is DefaultBaseURL.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "exchangerate-api").Logger(),
	}
}

// Rate returns how many units of to one unit of from is worth.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1.0, nil
	}

	addr := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(from))
	c.log.Debug().Str("url", addr).Msg("fetching rates")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", tracker.ErrNoData, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: exchangerate-api returned status %d", tracker.ErrNoData, resp.StatusCode)
	}

	var result struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("%w: failed to parse response: %v", tracker.ErrNoData, err)
	}
	rate, ok := result.Rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("%w: rate not found for %s->%s", tracker.ErrNoData, from, to)
	}
	c.log.Debug().Str("from", from).Str("to", to).Float64("rate", rate).Msg("fetched rate")
	return rate, nil
}
