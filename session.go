package tracker

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionConfig holds everything a Session depends on.
type SessionConfig struct {
	Quotes MarketData
	Rates  RateSource
	// Remote is where the document is loaded from and saved to. A nil Remote
	// keeps everything in memory.
	Remote *Remote

	// Display is the currency reports are shown in, BaseCurrency when empty.
	Display string

	IngestTTL  time.Duration // defaults to DefaultIngestTTL
	RefreshTTL time.Duration // defaults to DefaultRefreshTTL
	RateTTL    time.Duration // defaults to DefaultRateTTL
	StaleTTL   time.Duration // defaults to DefaultStaleTTL
	Fallback   map[Pair]float64

	Clock   Clock
	Log     zerolog.Logger
	Metrics *Metrics
}

// Session is the application state: the profile store, the market data
// caches and the remote document. Its methods are safe for concurrent use and
// run one at a time.
type Session struct {
	mu sync.Mutex

	store   *Store
	ingest  *QuoteCache
	refresh *QuoteCache
	fx      *FXCache
	remote  *Remote
	display string

	log     zerolog.Logger
	metrics *Metrics
}

// NewSession returns a session with an empty store.
func NewSession(cfg SessionConfig) *Session {
	if cfg.IngestTTL <= 0 {
		cfg.IngestTTL = DefaultIngestTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.RateTTL <= 0 {
		cfg.RateTTL = DefaultRateTTL
	}
	if cfg.StaleTTL <= 0 {
		cfg.StaleTTL = DefaultStaleTTL
	}
	display := strings.ToUpper(strings.TrimSpace(cfg.Display))
	if display == "" {
		display = BaseCurrency
	}
	return &Session{
		store: NewStore(),
		ingest: NewQuoteCache(QuoteCacheConfig{
			Name: "ingest", Source: cfg.Quotes, TTL: cfg.IngestTTL,
			Clock: cfg.Clock, Log: cfg.Log, Metrics: cfg.Metrics,
		}),
		refresh: NewQuoteCache(QuoteCacheConfig{
			Name: "refresh", Source: cfg.Quotes, TTL: cfg.RefreshTTL,
			Clock: cfg.Clock, Log: cfg.Log, Metrics: cfg.Metrics,
		}),
		fx: NewFXCache(FXCacheConfig{
			Source: cfg.Rates, TTL: cfg.RateTTL, StaleTTL: cfg.StaleTTL, Fallback: cfg.Fallback,
			Clock: cfg.Clock, Log: cfg.Log, Metrics: cfg.Metrics,
		}),
		remote:  cfg.Remote,
		display: display,
		log:     cfg.Log.With().Str("component", "session").Logger(),
		metrics: cfg.Metrics,
	}
}

// Load replaces the store with the remote document. The store is always
// replaced, with the empty default document when loading failed, and the
// error explains the degradation.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.remote == nil {
		return nil
	}
	doc, err := s.remote.Load(ctx)
	s.store = StoreFromDocument(doc)
	return err
}

// Save replaces the remote document with every profile of the store.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx)
}

func (s *Session) save(ctx context.Context) error {
	if s.remote == nil {
		return nil
	}
	return s.remote.Save(ctx, s.store.Document())
}

// View runs f with the store. f must not keep references to the store or to
// the slices it returns.
func (s *Session) View(f func(*Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.store)
}

// Update runs f with the store and, when f succeeds and save is true, saves
// the document.
func (s *Session) Update(ctx context.Context, save bool, f func(*Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := f(s.store); err != nil {
		return err
	}
	if !save {
		return nil
	}
	return s.save(ctx)
}

// DisplayCurrency returns the default display currency.
func (s *Session) DisplayCurrency() string { return s.display }

// AddHolding looks up ticker and appends a new lot to the active profile.
// When the lookup fails nothing is appended.
func (s *Session) AddHolding(ctx context.Context, ticker string, avgPrice, quantity float64) (Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addHolding(ctx, Lot{Ticker: ticker, AvgPrice: avgPrice, Quantity: quantity})
}

func (s *Session) addHolding(ctx context.Context, lot Lot) (Holding, error) {
	if err := lot.validate(); err != nil {
		return Holding{}, err
	}
	q, err := s.ingest.Get(ctx, lot.Ticker)
	if err != nil {
		return Holding{}, err
	}
	q = s.inBase(ctx, q)
	h := Holding{
		Ticker:         lot.Ticker,
		AvgPrice:       lot.AvgPrice,
		Quantity:       lot.Quantity,
		CurrentPrice:   q.Price,
		Sector:         q.Sector,
		MarketCapClass: q.Class(),
	}
	s.store.Append(h)
	return h, nil
}

// inBase converts the quote's price and market cap into BaseCurrency.
func (s *Session) inBase(ctx context.Context, q Quote) Quote {
	q.Price = s.toBase(ctx, q.Price, q.Currency)
	q.MarketCap = s.toBase(ctx, q.MarketCap, q.CapCurrency)
	q.Currency, q.CapCurrency = BaseCurrency, BaseCurrency
	return q
}

func (s *Session) toBase(ctx context.Context, v float64, currency string) float64 {
	if v == 0 || currency == "" || currency == BaseCurrency {
		return v
	}
	return v * s.fx.Rate(ctx, NewPair(currency, BaseCurrency))
}

// Import ingests a headerless "ticker,avgPrice,quantity" CSV into the active
// profile, row by row. A bad row or a failed lookup is counted and skipped,
// the batch always runs to the end. The error is only for an unreadable r,
// in which case nothing is ingested.
func (s *Session) Import(ctx context.Context, r io.Reader, progress Progress) (BatchResult, error) {
	rows, err := readBatch(r)
	if err != nil {
		return BatchResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res := BatchResult{Attempted: len(rows)}
	for i, row := range rows {
		err := row.err
		if err == nil {
			_, err = s.addHolding(ctx, row.lot)
		}
		if err != nil {
			s.log.Warn().Err(err).Int("line", row.line).Str("ticker", row.lot.Ticker).Msg("skipping row")
			res.Failures = append(res.Failures, RowError{Line: row.line, Ticker: row.lot.Ticker, Err: err})
			s.metrics.batch("import", "failed")
		} else {
			res.Succeeded++
			s.metrics.batch("import", "added")
		}
		if progress != nil {
			progress(i+1, len(rows))
		}
	}
	return res, nil
}

// Valuation values the active profile in currency, or in the session's
// display currency when currency is empty.
func (s *Session) Valuation(ctx context.Context, currency string) Valuation {
	s.mu.Lock()
	defer s.mu.Unlock()
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = s.display
	}
	display := Display{Currency: currency, Rate: s.fx.Rate(ctx, NewPair(BaseCurrency, currency))}
	return Value(s.store.ActiveHoldings(), display)
}
