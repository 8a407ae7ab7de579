package renderer

import (
	"strings"

	"github.com/etnz/tracker"
)

// Profiles is the data of the profiles list.
type Profiles struct {
	Profiles []Profile
}

// Profile is one row of the profiles list.
type Profile struct {
	Name     string
	Holdings int
	Active   bool
}

// NewProfiles lists the profiles of a store, in name order.
func NewProfiles(s *tracker.Store) *Profiles {
	p := &Profiles{}
	for _, name := range s.Profiles() {
		holdings, _ := s.Holdings(name)
		p.Profiles = append(p.Profiles, Profile{
			Name:     cell(name),
			Holdings: len(holdings),
			Active:   name == s.Active(),
		})
	}
	return p
}

// Batch is the data of an import report.
type Batch struct {
	Attempted int
	Succeeded int
	Failures  []BatchFailure
}

// BatchFailure is a skipped row.
type BatchFailure struct {
	Line   int
	Ticker string
	Error  string
}

func NewBatch(r tracker.BatchResult) *Batch {
	b := &Batch{Attempted: r.Attempted, Succeeded: r.Succeeded}
	for _, f := range r.Failures {
		var msg string
		if f.Err != nil {
			msg = cell(f.Err.Error())
		}
		b.Failures = append(b.Failures, BatchFailure{Line: f.Line, Ticker: cell(f.Ticker), Error: msg})
	}
	return b
}

// Refresh is the data of a refresh report.
type Refresh struct {
	Attempted int
	Updated   int
	Failed    string // comma separated tickers, empty when all succeeded
}

func NewRefresh(r tracker.RefreshResult) *Refresh {
	return &Refresh{
		Attempted: r.Attempted,
		Updated:   r.Updated,
		Failed:    strings.Join(r.Failed, ", "),
	}
}
