package tracker

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultProfile is the profile every new store starts with, and the profile
// legacy documents are migrated into.
const DefaultProfile = "Default"

// Store is the in-memory set of profiles, each an ordered list of holdings,
// and the name of the active profile.
//
// A Store always holds at least one profile and its active profile always
// exists. It is not safe for concurrent use, Session serializes the access.
type Store struct {
	profiles map[string][]Holding
	active   string
}

// NewStore returns a store with a single empty Default profile.
func NewStore() *Store {
	return &Store{
		profiles: map[string][]Holding{DefaultProfile: {}},
		active:   DefaultProfile,
	}
}

// Active returns the name of the active profile.
func (s *Store) Active() string { return s.active }

// Profiles returns the profile names in sorted order.
func (s *Store) Profiles() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a profile exists.
func (s *Store) Has(name string) bool {
	_, ok := s.profiles[name]
	return ok
}

// Holdings returns the holdings of a profile.
func (s *Store) Holdings(name string) ([]Holding, error) {
	h, ok := s.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return h, nil
}

// CreateProfile adds a new empty profile. The active profile is unchanged.
func (s *Store) CreateProfile(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidProfileName
	}
	if s.Has(name) {
		return fmt.Errorf("%w: %q", ErrDuplicateProfile, name)
	}
	s.profiles[name] = []Holding{}
	return nil
}

// DeleteProfile removes a profile and its holdings. The last remaining
// profile cannot be deleted. If the deleted profile was active, the Default
// profile (or the first one by name) becomes active.
func (s *Store) DeleteProfile(name string) error {
	if !s.Has(name) {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	if len(s.profiles) == 1 {
		return fmt.Errorf("%w: %q", ErrLastProfile, name)
	}
	delete(s.profiles, name)
	if s.active == name {
		s.active = s.fallbackActive()
	}
	return nil
}

func (s *Store) fallbackActive() string {
	if s.Has(DefaultProfile) {
		return DefaultProfile
	}
	return s.Profiles()[0]
}

// SetActive selects the active profile.
func (s *Store) SetActive(name string) error {
	if !s.Has(name) {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	s.active = name
	return nil
}

// ActiveHoldings returns the live list of holdings of the active profile.
//
// The slice is shared with the store: callers must not modify it, changes go
// through Append, UpdateHolding, EditHolding, RemoveHolding or
// ReplaceActiveHoldings.
func (s *Store) ActiveHoldings() []Holding { return s.profiles[s.active] }

// ReplaceActiveHoldings swaps the holdings of the active profile.
func (s *Store) ReplaceActiveHoldings(holdings []Holding) {
	if holdings == nil {
		holdings = []Holding{}
	}
	s.profiles[s.active] = holdings
}

// Append adds a lot at the end of the active profile. Lots of the same
// ticker are kept separate.
func (s *Store) Append(h Holding) {
	s.profiles[s.active] = append(s.profiles[s.active], h)
}

// UpdateHolding applies f to the i-th holding of the active profile.
func (s *Store) UpdateHolding(i int, f func(*Holding)) error {
	holdings := s.profiles[s.active]
	if i < 0 || i >= len(holdings) {
		return fmt.Errorf("%w: index %d in profile %q", ErrNoSuchHolding, i, s.active)
	}
	f(&holdings[i])
	return nil
}

// EditHolding changes the cost basis of the i-th holding of the active profile.
func (s *Store) EditHolding(i int, avgPrice, quantity float64) error {
	if err := checkAmount("average price", avgPrice); err != nil {
		return err
	}
	if err := checkAmount("quantity", quantity); err != nil {
		return err
	}
	return s.UpdateHolding(i, func(h *Holding) {
		h.AvgPrice = avgPrice
		h.Quantity = quantity
	})
}

// RemoveHolding deletes the i-th holding of the active profile and returns it.
func (s *Store) RemoveHolding(i int) (Holding, error) {
	holdings := s.profiles[s.active]
	if i < 0 || i >= len(holdings) {
		return Holding{}, fmt.Errorf("%w: index %d in profile %q", ErrNoSuchHolding, i, s.active)
	}
	removed := holdings[i]
	s.profiles[s.active] = append(holdings[:i:i], holdings[i+1:]...)
	return removed, nil
}

// ClearActive removes every holding of the active profile.
func (s *Store) ClearActive() { s.profiles[s.active] = []Holding{} }

// Document returns a snapshot of all profiles, detached from the store.
func (s *Store) Document() Document {
	doc := Document{Profiles: make(map[string][]Holding, len(s.profiles))}
	for name, holdings := range s.profiles {
		doc.Profiles[name] = append([]Holding{}, holdings...)
	}
	return doc
}

// StoreFromDocument builds a store from a document. The active profile is
// Default when present, otherwise the first profile by name. A document
// without profiles yields an empty Default profile.
func StoreFromDocument(doc Document) *Store {
	s := &Store{profiles: make(map[string][]Holding, len(doc.Profiles))}
	for name, holdings := range doc.Profiles {
		s.profiles[name] = append([]Holding{}, holdings...)
	}
	if len(s.profiles) == 0 {
		s.profiles[DefaultProfile] = []Holding{}
	}
	s.active = s.fallbackActive()
	return s
}
