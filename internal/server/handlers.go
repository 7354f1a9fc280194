package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"

	"github.com/gorilla/mux"

	"github.com/utakatalp/cup-simulator/internal/league"
	"github.com/utakatalp/cup-simulator/internal/montecarlo"
	"github.com/utakatalp/cup-simulator/internal/store"
)

type tournamentBody struct {
	Name       string             `json:"name"`
	GroupSize  int                `json:"groupSize"`
	Qualifiers int                `json:"qualifiers"`
	Groups     []league.Group     `json:"groups"`
	Knockout   [][2]string        `json:"knockout"`
	Rounds     int                `json:"rounds"`
	Strengths  map[string]float64 `json:"strengths"`
	Scale      float64            `json:"scale"`
}

func (s *Server) handleTournament(w http.ResponseWriter, r *http.Request) {
	t := s.cfg.Tournament
	body := tournamentBody{
		Name:       t.Name,
		GroupSize:  t.GroupSize,
		Qualifiers: t.Qualifiers,
		Groups:     t.Groups,
		Rounds:     t.Skeleton.Rounds(),
		Strengths:  make(map[string]float64),
		Scale:      t.Model.Scale,
	}
	for _, p := range t.Skeleton.FirstRound() {
		body.Knockout = append(body.Knockout, [2]string{p[0].String(), p[1].String()})
	}
	for _, team := range t.Teams() {
		v, err := t.Strengths.Strength(team)
		if err != nil {
			writeError(w, r, err)
			return
		}
		body.Strengths[team] = v
	}
	writeJSON(w, http.StatusOK, body)
}

type simulateRequest struct {
	Runs    *int    `json:"runs"`
	Seed    *uint64 `json:"seed"`
	Workers *int    `json:"workers"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many simulation requests, try again later"})
		return
	}

	var req simulateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, &league.ConfigurationError{Field: "body", Message: err.Error()})
		return
	}

	opts := s.cfg.Defaults
	if req.Runs != nil {
		opts.Runs = *req.Runs
	}
	if req.Seed != nil {
		opts.Seed = req.Seed
	}
	if req.Workers != nil {
		opts.Workers = *req.Workers
	}
	if opts.Runs > s.cfg.MaxRuns {
		writeError(w, r, &league.ConfigurationError{Field: "runs", Message: fmt.Sprintf("at most %d per request", s.cfg.MaxRuns)})
		return
	}
	if n := runtime.NumCPU(); opts.Workers > n {
		writeError(w, r, &league.ConfigurationError{Field: "workers", Message: fmt.Sprintf("at most %d on this host", n)})
		return
	}

	res, err := montecarlo.Aggregate(r.Context(), s.cfg.Tournament, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	batch := &store.Batch{Result: res}
	if s.cfg.Store == nil {
		writeJSON(w, http.StatusOK, batch)
		return
	}
	if batch.ID, err = s.cfg.Store.SaveBatch(r.Context(), res); err != nil {
		writeError(w, r, err)
		return
	}
	// read back for the stored timestamp
	saved, err := s.cfg.Store.LoadBatch(r.Context(), batch.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/simulations/"+batch.ID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	b, err := s.cfg.Store.LatestBatch(r.Context(), s.cfg.Tournament.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	b, err := s.cfg.Store.LoadBatch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.cfg.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "no results store configured"})
		return false
	}
	return true
}
