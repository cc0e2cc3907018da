package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/serialyear/internal/core"
	"github.com/JonMunkholm/serialyear/internal/history"
)

// lookupResponse is a QueryResult plus an explicit matched flag, so clients
// can tell "no range covers the serial" from "the matching row has no year".
type lookupResponse struct {
	core.QueryResult
	Matched bool `json:"matched"`
}

// handleListBrands returns brands containing the q parameter, in table order.
func (s *Server) handleListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := s.service.Brands(r.URL.Query().Get("q"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if brands == nil {
		brands = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"brands": brands,
		"count":  len(brands),
	})
}

// handleLookup resolves a brand and serial to a production year and records
// the query in history.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	brand := strings.TrimSpace(q.Get("brand"))
	serial := strings.TrimSpace(q.Get("serial"))

	var missing []string
	if brand == "" {
		missing = append(missing, "brand")
	}
	if serial == "" {
		missing = append(missing, "serial")
	}
	if len(missing) > 0 {
		s.respondError(w, r, errMissingParam(missing...), http.StatusBadRequest)
		return
	}

	res, err := s.service.Lookup(brand, serial)
	if err != nil {
		s.respondLookupError(w, r, brand, err)
		return
	}

	s.recordLookup(r, res)
	writeJSON(w, http.StatusOK, lookupResponse{QueryResult: res, Matched: res.Matched()})
}

// handleBreakpoints returns a brand's breakpoints with anomaly flags. An
// optional serial is resolved and its year's rows are highlighted.
func (s *Server) handleBreakpoints(w http.ResponseWriter, r *http.Request) {
	brand := brandParam(r)
	detail, err := s.service.BrandDetail(brand, r.URL.Query().Get("serial"))
	if err != nil {
		s.respondLookupError(w, r, brand, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleAnomalies returns every brand with flagged breakpoints.
func (s *Server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Anomalies()
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	flagged := 0
	for _, b := range report {
		flagged += len(b.Rows)
	}
	if report == nil {
		report = []core.BrandAnomalies{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"brands":  report,
		"flagged": flagged,
	})
}

// respondLookupError attaches spelling suggestions to unknown-brand errors.
func (s *Server) respondLookupError(w http.ResponseWriter, r *http.Request, brand string, err error) {
	var suggestions []string
	if errors.Is(err, core.ErrUnknownBrand) {
		suggestions = s.service.Suggest(brand, suggestionLimit)
	}
	s.respondErrorWithSuggestions(w, r, err, statusFor(err), suggestions)
}

// handleListHistory returns recent lookups, newest first.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", s.cfg.History.MaxEntries, s.cfg.History.MaxEntries)
	entries, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleDeleteHistory removes the entries for one brand and serial, or
// clears the history when neither is given.
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	brand := strings.TrimSpace(q.Get("brand"))
	serial := strings.TrimSpace(q.Get("serial"))

	switch {
	case brand == "" && serial == "":
		if err := s.history.Clear(r.Context()); err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cleared": true})

	case brand == "" || serial == "":
		s.respondError(w, r, errMissingParam("brand", "serial"), http.StatusBadRequest)

	default:
		n, err := s.history.Remove(r.Context(), brand, serial)
		if err != nil {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": n})
	}
}
