package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/serialyear/internal/core"
	"github.com/JonMunkholm/serialyear/internal/history"
	"github.com/JonMunkholm/serialyear/internal/logging"
	"github.com/JonMunkholm/serialyear/internal/web/templates"
)

// suggestionLimit caps the "did you mean" list for unknown brands.
const suggestionLimit = 3

// handleIndex renders the lookup form. When brand and serial are both
// present the lookup runs and its answer is shown above the history.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	data := templates.IndexData{
		Snapshot: s.service.Snapshot(),
		Brand:    strings.TrimSpace(q.Get("brand")),
		Serial:   strings.TrimSpace(q.Get("serial")),
	}
	if brands, err := s.service.Brands(""); err == nil {
		data.Brands = brands
	}

	status := http.StatusOK
	if data.Brand != "" && data.Serial != "" {
		res, err := s.service.Lookup(data.Brand, data.Serial)
		if err != nil {
			status = statusFor(err)
			data.Error = core.MapError(err).Message
			if errors.Is(err, core.ErrUnknownBrand) {
				data.Suggestions = s.service.Suggest(data.Brand, suggestionLimit)
			}
		} else {
			data.Result = &res
			s.recordLookup(r, res)
		}
	}

	entries, err := s.history.List(ctx, s.cfg.History.MaxEntries)
	if err != nil {
		logging.FromContext(ctx).Warn("failed to list history", "error", err)
	}
	data.History = entries

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.IndexPage(data).Render(ctx, w); err != nil {
		logging.FromContext(ctx).Error("render index", "error", err)
	}
}

// handleBrandPage renders a brand's breakpoints as an HTML table, resolving
// the optional serial query parameter.
func (s *Server) handleBrandPage(w http.ResponseWriter, r *http.Request) {
	brand := brandParam(r)
	detail, err := s.service.BrandDetail(brand, r.URL.Query().Get("serial"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.BrandPage(detail).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render brand page", "brand", brand, "error", err)
	}
}

// recordLookup adds a successful lookup to history. Failures are logged
// and never fail the request.
func (s *Server) recordLookup(r *http.Request, res core.QueryResult) {
	ctx := r.Context()
	if err := s.history.Add(ctx, history.NewEntry(ctx, res)); err != nil {
		logging.FromContext(ctx).Warn("failed to record lookup",
			"brand", res.Brand,
			"serial", res.Serial,
			"error", err,
		)
	}
}

// brandParam returns the {brand} path segment, unescaping it when the
// request path carried escapes chi routes on verbatim (such as %2F).
func brandParam(r *http.Request) string {
	brand := chi.URLParam(r, "brand")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(brand); err == nil {
			brand = unescaped
		}
	}
	return brand
}

// parseIntParam parses an integer query parameter with a default value.
// Values below 1 fall back to the default and values above maxVal are clamped.
func parseIntParam(r *http.Request, name string, defaultVal, maxVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	if maxVal > 0 && i > maxVal {
		return maxVal
	}
	return i
}
