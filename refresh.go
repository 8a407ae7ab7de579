package tracker

import "context"

// RefreshResult summarizes a refresh.
type RefreshResult struct {
	Attempted int
	Updated   int
	Failed    []string // tickers whose quote could not be fetched, in order
}

// Refresh fetches a fresh quote for every holding of the active profile and
// updates its current price, sector and market cap class. Cost basis is never
// touched. A holding whose lookup fails is left as is and the refresh goes on.
// When only the price could be fetched, sector and class are kept.
func (s *Session) Refresh(ctx context.Context, progress Progress) RefreshResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	holdings := s.store.ActiveHoldings()
	res := RefreshResult{Attempted: len(holdings)}
	for i := range holdings {
		ticker := holdings[i].Ticker
		q, err := s.refresh.Fetch(ctx, ticker)
		if err != nil {
			res.Failed = append(res.Failed, ticker)
			s.metrics.batch("refresh", "failed")
		} else {
			q = s.inBase(ctx, q)
			// index is in range: the store is locked for the whole loop.
			_ = s.store.UpdateHolding(i, func(h *Holding) {
				h.CurrentPrice = q.Price
				if q.Described {
					h.Sector = q.Sector
					h.MarketCapClass = q.Class()
				}
			})
			res.Updated++
			s.metrics.batch("refresh", "updated")
		}
		if progress != nil {
			progress(i+1, len(holdings))
		}
	}
	if len(res.Failed) > 0 {
		s.log.Warn().Strs("tickers", res.Failed).Int("updated", res.Updated).Msg("refresh incomplete")
	}
	return res
}
