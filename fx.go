package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RateSource is the exchange rate adapter.
type RateSource interface {
	// Rate returns how many units of to one unit of from is worth.
	Rate(ctx context.Context, from, to string) (float64, error)
}

// Pair is a currency pair, e.g. USD/KRW.
type Pair struct {
	From, To string
}

// NewPair returns the pair from/to with upper cased codes.
func NewPair(from, to string) Pair {
	return Pair{From: strings.ToUpper(strings.TrimSpace(from)), To: strings.ToUpper(strings.TrimSpace(to))}
}

// ParsePair parses "USD/KRW" or "USDKRW".
func ParsePair(s string) (Pair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if from, to, ok := strings.Cut(s, "/"); ok && len(from) == 3 && len(to) == 3 {
		return Pair{From: from, To: to}, nil
	}
	if len(s) == 6 {
		return Pair{From: s[:3], To: s[3:]}, nil
	}
	return Pair{}, fmt.Errorf("%w: invalid currency pair %q", ErrInvalidInput, s)
}

func (p Pair) String() string { return p.From + "/" + p.To }

// Inverse returns the pair To/From.
func (p Pair) Inverse() Pair { return Pair{From: p.To, To: p.From} }

// Identity reports whether both sides are the same currency.
func (p Pair) Identity() bool { return p.From == p.To }

// Rate is a cached exchange rate observation.
type Rate struct {
	Pair      Pair
	Rate      float64
	FetchedAt time.Time
}

// DefaultFallbackRates are used when no rate could be obtained at all.
var DefaultFallbackRates = map[Pair]float64{
	{From: "USD", To: "KRW"}: 1400.0,
}

// FXCacheConfig configures an FXCache.
type FXCacheConfig struct {
	Source RateSource
	// TTL is how long a fetched rate is served without asking the source.
	TTL time.Duration
	// StaleTTL is how long an expired rate can still replace a failed fetch.
	StaleTTL time.Duration
	// Fallback holds the fixed rates used as a last resort. Nil means
	// DefaultFallbackRates.
	Fallback map[Pair]float64
	Clock    Clock
	Log      zerolog.Logger
	Metrics  *Metrics
}

// FXCache serves exchange rates and never fails.
type FXCache struct {
	src      RateSource
	staleTTL time.Duration
	fallback map[Pair]float64
	cache    *TTLCache[Pair, Rate]
	clock    Clock
	log      zerolog.Logger
	metrics  *Metrics
}

// NewFXCache returns an FX cache over cfg.Source.
func NewFXCache(cfg FXCacheConfig) *FXCache {
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Fallback == nil {
		cfg.Fallback = DefaultFallbackRates
	}
	if cfg.StaleTTL < cfg.TTL {
		cfg.StaleTTL = cfg.TTL
	}
	return &FXCache{
		src:      cfg.Source,
		staleTTL: cfg.StaleTTL,
		fallback: cfg.Fallback,
		cache:    NewTTLCache[Pair, Rate](cfg.TTL, cfg.Clock),
		clock:    cfg.Clock,
		log:      cfg.Log.With().Str("component", "fx").Logger(),
		metrics:  cfg.Metrics,
	}
}

// Rate returns the exchange rate for p.
//
// In order: 1 for identical currencies, a fresh cached rate, a rate fetched
// from the source, a stale cached rate younger than StaleTTL, and finally the
// fixed fallback (the pair's rate, or the inverse of its inverse's rate, or 1).
func (c *FXCache) Rate(ctx context.Context, p Pair) float64 {
	if p.Identity() {
		c.metrics.rate("identity")
		return 1
	}
	if r, ok := c.cache.Get(p); ok {
		c.metrics.rate("hit")
		return r.Rate
	}

	var err error
	if c.src != nil {
		var rate float64
		rate, err = c.src.Rate(ctx, p.From, p.To)
		if err == nil && rate > 0 {
			now := c.clock.Now()
			c.cache.PutAt(p, Rate{Pair: p, Rate: rate, FetchedAt: now}, now)
			c.metrics.rate("fetched")
			return rate
		}
		if err == nil {
			err = fmt.Errorf("%w: non positive rate %v", ErrNoData, rate)
		}
	} else {
		err = fmt.Errorf("%w: no rate source", ErrNoData)
	}

	if r, age, ok := c.cache.Lookup(p); ok && age < c.staleTTL {
		c.metrics.rate("stale")
		c.log.Warn().Err(err).Stringer("pair", p).Dur("age", age).Float64("rate", r.Rate).Msg("using stale exchange rate")
		return r.Rate
	}

	rate := c.fallbackRate(p)
	c.metrics.rate("fallback")
	c.log.Warn().Err(err).Stringer("pair", p).Float64("rate", rate).Msg("using fallback exchange rate")
	return rate
}

// Cached returns the cached observation for p, fresh or not.
func (c *FXCache) Cached(p Pair) (Rate, bool) {
	r, _, ok := c.cache.Lookup(p)
	return r, ok
}

func (c *FXCache) fallbackRate(p Pair) float64 {
	if r, ok := c.fallback[p]; ok && r > 0 {
		return r
	}
	if r, ok := c.fallback[p.Inverse()]; ok && r > 0 {
		return 1 / r
	}
	return 1
}
