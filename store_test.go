package tracker

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewStore(t *testing.T) {
	s := NewStore()
	if s.Active() != DefaultProfile {
		t.Errorf("Active() = %q, want %q", s.Active(), DefaultProfile)
	}
	if diff := cmp.Diff([]string{DefaultProfile}, s.Profiles()); diff != "" {
		t.Errorf("Profiles() mismatch (-want +got):\n%s", diff)
	}
	if len(s.ActiveHoldings()) != 0 {
		t.Errorf("ActiveHoldings() = %v, want empty", s.ActiveHoldings())
	}
}

func TestStore_CreateProfile(t *testing.T) {
	s := NewStore()
	if err := s.CreateProfile("  Retirement "); err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}
	if !s.Has("Retirement") {
		t.Errorf("Has(%q) = false, want true", "Retirement")
	}
	if s.Active() != DefaultProfile {
		t.Errorf("Active() = %q, want %q", s.Active(), DefaultProfile)
	}
	if err := s.CreateProfile("Retirement"); !errors.Is(err, ErrDuplicateProfile) {
		t.Errorf("CreateProfile(duplicate) error = %v, want %v", err, ErrDuplicateProfile)
	}
	if err := s.CreateProfile("   "); !errors.Is(err, ErrInvalidProfileName) {
		t.Errorf("CreateProfile(blank) error = %v, want %v", err, ErrInvalidProfileName)
	}
}

func TestStore_DeleteLastProfile(t *testing.T) {
	s := NewStore()
	s.Append(Holding{Ticker: "AAPL", AvgPrice: 150, Quantity: 10})
	before := s.Document()

	if err := s.DeleteProfile(DefaultProfile); !errors.Is(err, ErrLastProfile) {
		t.Fatalf("DeleteProfile() error = %v, want %v", err, ErrLastProfile)
	}
	if diff := cmp.Diff(before, s.Document()); diff != "" {
		t.Errorf("store changed after rejected delete (-want +got):\n%s", diff)
	}
	if s.Active() != DefaultProfile {
		t.Errorf("Active() = %q, want %q", s.Active(), DefaultProfile)
	}
}

func TestStore_DeleteActiveProfile(t *testing.T) {
	tests := []struct {
		name     string
		profiles []string
		active   string
		deleted  string
		want     string
	}{
		{"falls back to Default", []string{"Growth", "Income"}, "Growth", "Growth", DefaultProfile},
		{"falls back to first by name", []string{"Zeta", "Alpha"}, DefaultProfile, DefaultProfile, "Alpha"},
		{"inactive profile keeps active", []string{"Growth"}, DefaultProfile, "Growth", DefaultProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			for _, p := range tt.profiles {
				if err := s.CreateProfile(p); err != nil {
					t.Fatalf("CreateProfile(%q) error = %v", p, err)
				}
			}
			if err := s.SetActive(tt.active); err != nil {
				t.Fatalf("SetActive(%q) error = %v", tt.active, err)
			}
			deleted := tt.deleted
			if err := s.DeleteProfile(deleted); err != nil {
				t.Fatalf("DeleteProfile(%q) error = %v", deleted, err)
			}
			if s.Has(deleted) {
				t.Errorf("Has(%q) = true after delete", deleted)
			}
			if s.Active() != tt.want {
				t.Errorf("Active() = %q, want %q", s.Active(), tt.want)
			}
		})
	}
}

func TestStore_UnknownProfile(t *testing.T) {
	s := NewStore()
	if err := s.SetActive("Nope"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("SetActive() error = %v, want %v", err, ErrUnknownProfile)
	}
	if err := s.DeleteProfile("Nope"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("DeleteProfile() error = %v, want %v", err, ErrUnknownProfile)
	}
	if _, err := s.Holdings("Nope"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("Holdings() error = %v, want %v", err, ErrUnknownProfile)
	}
}

func TestStore_Holdings(t *testing.T) {
	s := NewStore()
	s.Append(Holding{Ticker: "AAPL", AvgPrice: 150, Quantity: 10})
	s.Append(Holding{Ticker: "AAPL", AvgPrice: 170, Quantity: 2})
	s.Append(Holding{Ticker: "MSFT", AvgPrice: 300, Quantity: 5})
	if got := len(s.ActiveHoldings()); got != 3 {
		t.Fatalf("len(ActiveHoldings()) = %d, want 3: lots of the same ticker are not merged", got)
	}

	if err := s.EditHolding(1, 165, 4); err != nil {
		t.Fatalf("EditHolding() error = %v", err)
	}
	if h := s.ActiveHoldings()[1]; h.AvgPrice != 165 || h.Quantity != 4 {
		t.Errorf("after EditHolding() = %+v, want AvgPrice 165 Quantity 4", h)
	}
	if err := s.EditHolding(1, -1, 4); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("EditHolding(negative) error = %v, want %v", err, ErrInvalidInput)
	}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := s.EditHolding(1, v, 4); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("EditHolding(%v, 4) error = %v, want %v", v, err, ErrInvalidInput)
		}
		if err := s.EditHolding(1, 165, v); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("EditHolding(165, %v) error = %v, want %v", v, err, ErrInvalidInput)
		}
	}
	if h := s.ActiveHoldings()[1]; h.AvgPrice != 165 || h.Quantity != 4 {
		t.Errorf("rejected edits changed the lot: %+v", h)
	}
	if err := s.EditHolding(3, 1, 1); !errors.Is(err, ErrNoSuchHolding) {
		t.Errorf("EditHolding(out of range) error = %v, want %v", err, ErrNoSuchHolding)
	}

	removed, err := s.RemoveHolding(0)
	if err != nil {
		t.Fatalf("RemoveHolding() error = %v", err)
	}
	if removed.Ticker != "AAPL" || removed.AvgPrice != 150 {
		t.Errorf("RemoveHolding() = %+v, want the first AAPL lot", removed)
	}
	var tickers []string
	for _, h := range s.ActiveHoldings() {
		tickers = append(tickers, h.Ticker)
	}
	if diff := cmp.Diff([]string{"AAPL", "MSFT"}, tickers); diff != "" {
		t.Errorf("holdings after RemoveHolding() mismatch (-want +got):\n%s", diff)
	}
	if _, err := s.RemoveHolding(-1); !errors.Is(err, ErrNoSuchHolding) {
		t.Errorf("RemoveHolding(-1) error = %v, want %v", err, ErrNoSuchHolding)
	}

	s.ClearActive()
	if len(s.ActiveHoldings()) != 0 {
		t.Errorf("ActiveHoldings() after ClearActive() = %v, want empty", s.ActiveHoldings())
	}
}

func TestStore_ProfilesAreIndependent(t *testing.T) {
	s := NewStore()
	s.Append(Holding{Ticker: "AAPL"})
	if err := s.CreateProfile("Kids"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetActive("Kids"); err != nil {
		t.Fatal(err)
	}
	s.Append(Holding{Ticker: "DIS"})
	s.ClearActive()

	def, _ := s.Holdings(DefaultProfile)
	if len(def) != 1 || def[0].Ticker != "AAPL" {
		t.Errorf("Holdings(Default) = %v, want [AAPL]", def)
	}
}

func TestStore_Document(t *testing.T) {
	s := NewStore()
	s.Append(Holding{Ticker: "AAPL", AvgPrice: 150, Quantity: 10})
	doc := s.Document()
	doc.Profiles[DefaultProfile][0].Quantity = 99
	if got := s.ActiveHoldings()[0].Quantity; got != 10 {
		t.Errorf("store changed through its document: Quantity = %v, want 10", got)
	}

	restored := StoreFromDocument(s.Document())
	if diff := cmp.Diff(s.Document(), restored.Document()); diff != "" {
		t.Errorf("StoreFromDocument() mismatch (-want +got):\n%s", diff)
	}

	empty := StoreFromDocument(Document{})
	if empty.Active() != DefaultProfile || len(empty.Profiles()) != 1 {
		t.Errorf("StoreFromDocument(empty) = %v active %q, want a single Default profile", empty.Profiles(), empty.Active())
	}

	other := StoreFromDocument(Document{Profiles: map[string][]Holding{"B": {}, "A": {}}})
	if other.Active() != "A" {
		t.Errorf("StoreFromDocument() active = %q, want %q", other.Active(), "A")
	}
}
