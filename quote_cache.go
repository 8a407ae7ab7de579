package tracker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Default TTLs. Ingestion tolerates older quotes than an explicit refresh,
// exchange rates move slower than both.
const (
	DefaultRefreshTTL = 10 * time.Second
	DefaultIngestTTL  = 60 * time.Second
	DefaultRateTTL    = 5 * time.Minute
	DefaultStaleTTL   = 24 * time.Hour
)

// QuoteCacheConfig configures a QuoteCache.
type QuoteCacheConfig struct {
	Name    string // used in logs and metrics, e.g. "ingest" or "refresh"
	Source  MarketData
	TTL     time.Duration
	Clock   Clock // defaults to SystemClock
	Log     zerolog.Logger
	Metrics *Metrics
}

// QuoteCache memoizes quote lookups for a short time.
//
// Failures are never cached: the next call asks the source again.
type QuoteCache struct {
	name    string
	src     MarketData
	clock   Clock
	cache   *TTLCache[string, Quote]
	log     zerolog.Logger
	metrics *Metrics
}

// NewQuoteCache returns a quote cache over cfg.Source.
func NewQuoteCache(cfg QuoteCacheConfig) *QuoteCache {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	return &QuoteCache{
		name:    cfg.Name,
		src:     cfg.Source,
		clock:   cfg.Clock,
		cache:   NewTTLCache[string, Quote](cfg.TTL, cfg.Clock),
		log:     cfg.Log.With().Str("component", "quotes").Str("cache", cfg.Name).Logger(),
		metrics: cfg.Metrics,
	}
}

// TTL returns the cache's time-to-live.
func (c *QuoteCache) TTL() time.Duration { return c.cache.TTL() }

// Get returns a fresh cached quote, or fetches one.
func (c *QuoteCache) Get(ctx context.Context, ticker string) (Quote, error) {
	ticker = NormalizeTicker(ticker)
	if q, ok := c.cache.Get(ticker); ok {
		c.metrics.quote(c.name, "hit")
		return q, nil
	}
	return c.Fetch(ctx, ticker)
}

// Fetch asks the source, bypassing any cached value, and caches the result.
func (c *QuoteCache) Fetch(ctx context.Context, ticker string) (Quote, error) {
	ticker = NormalizeTicker(ticker)
	q, err := FetchQuote(ctx, c.src, ticker, c.clock.Now())
	if err != nil {
		c.metrics.quote(c.name, "failed")
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("quote lookup failed")
		return Quote{}, err
	}
	c.metrics.quote(c.name, "fetched")
	c.log.Debug().Str("ticker", ticker).Float64("price", q.Price).Str("currency", q.Currency).Msg("quote fetched")
	c.cache.PutAt(ticker, q, q.FetchedAt)
	return q, nil
}
