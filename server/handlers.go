package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/etnz/tracker"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type profileResponse struct {
	Name     string `json:"name"`
	Holdings int    `json:"holdings"`
	Active   bool   `json:"active"`
}

type profilesResponse struct {
	Active   string            `json:"active"`
	Profiles []profileResponse `json:"profiles"`
}

func (s *Server) profiles() profilesResponse {
	var res profilesResponse
	s.session.View(func(st *tracker.Store) {
		res.Active = st.Active()
		for _, name := range st.Profiles() {
			holdings, _ := st.Holdings(name)
			res.Profiles = append(res.Profiles, profileResponse{Name: name, Holdings: len(holdings), Active: name == st.Active()})
		}
	})
	return res
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.profiles())
}

type nameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.session.Update(r.Context(), true, func(st *tracker.Store) error {
		return st.CreateProfile(req.Name)
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, s.profiles())
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.session.Update(r.Context(), true, func(st *tracker.Store) error {
		return st.DeleteProfile(name)
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.profiles())
}

// handleSetActive switches the active profile. Nothing is saved, the active
// profile is not part of the document.
func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.session.Update(r.Context(), false, func(st *tracker.Store) error {
		return st.SetActive(req.Name)
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.profiles())
}

type holdingRequest struct {
	Ticker   string  `json:"ticker"`
	AvgPrice float64 `json:"avgPrice"`
	Quantity float64 `json:"quantity"`
}

func (s *Server) handleAddHolding(w http.ResponseWriter, r *http.Request) {
	var req holdingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h, err := s.session.AddHolding(r.Context(), req.Ticker, req.AvgPrice, req.Quantity)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if err := s.session.Save(r.Context()); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleEditHolding(w http.ResponseWriter, r *http.Request) {
	i, ok := s.holdingIndex(w, r)
	if !ok {
		return
	}
	var req holdingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var edited tracker.Holding
	err := s.session.Update(r.Context(), true, func(st *tracker.Store) error {
		if err := st.EditHolding(i, req.AvgPrice, req.Quantity); err != nil {
			return err
		}
		edited = st.ActiveHoldings()[i]
		return nil
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, edited)
}

func (s *Server) handleRemoveHolding(w http.ResponseWriter, r *http.Request) {
	i, ok := s.holdingIndex(w, r)
	if !ok {
		return
	}
	var removed tracker.Holding
	err := s.session.Update(r.Context(), true, func(st *tracker.Store) (err error) {
		removed, err = st.RemoveHolding(i)
		return err
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, removed)
}

func (s *Server) handleResetHoldings(w http.ResponseWriter, r *http.Request) {
	err := s.session.Update(r.Context(), true, func(st *tracker.Store) error {
		st.ClearActive()
		return nil
	})
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// holdingIndex reads the 0-based {index} path parameter.
func (s *Server) holdingIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid holding index")
		return 0, false
	}
	return i, true
}

type batchFailure struct {
	Line   int    `json:"line"`
	Ticker string `json:"ticker,omitempty"`
	Error  string `json:"error"`
}

type batchResponse struct {
	Attempted int            `json:"attempted"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Failures  []batchFailure `json:"failures"`
}

// handleImport ingests a headerless ticker,avgPrice,quantity CSV body.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.Import(r.Context(), r.Body, nil)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.session.Save(r.Context()); err != nil {
		s.writeFailure(w, err)
		return
	}
	out := batchResponse{Attempted: res.Attempted, Succeeded: res.Succeeded, Failed: res.Failed(), Failures: []batchFailure{}}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, batchFailure{Line: f.Line, Ticker: f.Ticker, Error: f.Err.Error()})
	}
	s.writeJSON(w, http.StatusOK, out)
}

type refreshResponse struct {
	Attempted int      `json:"attempted"`
	Updated   int      `json:"updated"`
	Failed    []string `json:"failed"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res := s.session.Refresh(r.Context(), nil)
	if err := s.session.Save(r.Context()); err != nil {
		s.writeFailure(w, err)
		return
	}
	failed := res.Failed
	if failed == nil {
		failed = []string{}
	}
	s.writeJSON(w, http.StatusOK, refreshResponse{Attempted: res.Attempted, Updated: res.Updated, Failed: failed})
}

type figuresResponse struct {
	Invested        tracker.Money   `json:"invested"`
	Value           tracker.Money   `json:"value"`
	PnL             tracker.Money   `json:"pnl"`
	DisplayInvested tracker.Money   `json:"displayInvested"`
	DisplayValue    tracker.Money   `json:"displayValue"`
	DisplayPnL      tracker.Money   `json:"displayPnl"`
	Return          tracker.Percent `json:"return"`
}

func figures(f tracker.Figures) figuresResponse {
	return figuresResponse{
		Invested:        f.Invested,
		Value:           f.Value,
		PnL:             f.PnL,
		DisplayInvested: f.DisplayInvested,
		DisplayValue:    f.DisplayValue,
		DisplayPnL:      f.DisplayPnL,
		Return:          f.Return,
	}
}

type positionResponse struct {
	Holding tracker.Holding `json:"holding"`
	figuresResponse
}

type groupResponse struct {
	Name         string          `json:"name"`
	Positions    int             `json:"positions"`
	Value        tracker.Money   `json:"value"`
	DisplayValue tracker.Money   `json:"displayValue"`
	Weight       tracker.Percent `json:"weight"`
}

func groups(gs []tracker.Group) []groupResponse {
	out := make([]groupResponse, 0, len(gs))
	for _, g := range gs {
		out = append(out, groupResponse{Name: g.Name, Positions: g.Positions, Value: g.Value, DisplayValue: g.DisplayValue, Weight: g.Weight})
	}
	return out
}

type valuationResponse struct {
	Profile     string             `json:"profile"`
	Currency    string             `json:"currency"`
	Rate        float64            `json:"rate"`
	Positions   []positionResponse `json:"positions"`
	Total       figuresResponse    `json:"total"`
	BySector    []groupResponse    `json:"bySector"`
	ByMarketCap []groupResponse    `json:"byMarketCap"`
}

// handleValuation values the active profile, in ?currency= or the session's
// display currency.
func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	var profile string
	s.session.View(func(st *tracker.Store) { profile = st.Active() })
	v := s.session.Valuation(r.Context(), r.URL.Query().Get("currency"))

	res := valuationResponse{
		Profile:     profile,
		Currency:    v.Display.Currency,
		Rate:        v.Display.Rate,
		Positions:   make([]positionResponse, 0, len(v.Positions)),
		Total:       figures(v.Total),
		BySector:    groups(v.BySector()),
		ByMarketCap: groups(v.ByMarketCap()),
	}
	for _, p := range v.Positions {
		res.Positions = append(res.Positions, positionResponse{Holding: p.Holding, figuresResponse: figures(p.Figures)})
	}
	s.writeJSON(w, http.StatusOK, res)
}

// writeFailure maps a session error to its HTTP status.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tracker.ErrDuplicateProfile):
		status = http.StatusConflict
	case errors.Is(err, tracker.ErrUnknownProfile), errors.Is(err, tracker.ErrNoSuchHolding):
		status = http.StatusNotFound
	case errors.Is(err, tracker.ErrLastProfile),
		errors.Is(err, tracker.ErrInvalidProfileName),
		errors.Is(err, tracker.ErrInvalidInput),
		errors.Is(err, tracker.ErrQuoteUnavailable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, tracker.ErrRemoteUnreachable), errors.Is(err, tracker.ErrRemoteRejected):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.writeError(w, status, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
