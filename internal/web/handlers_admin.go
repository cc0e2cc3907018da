package web

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/serialyear/internal/core"
	"github.com/JonMunkholm/serialyear/internal/logging"
)

const (
	defaultLoadsLimit = 20
	maxLoadsLimit     = 100
)

type snapshotView struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	LoadedAt    time.Time `json:"loadedAt"`
	Bytes       int64     `json:"bytes"`
	DurationMs  int64     `json:"durationMs"`
	Brands      int       `json:"brands"`
	Breakpoints int       `json:"breakpoints"`
}

func newSnapshotView(snap *core.Snapshot) *snapshotView {
	if snap == nil {
		return nil
	}
	return &snapshotView{
		ID:          snap.ID,
		Source:      snap.Source,
		LoadedAt:    snap.LoadedAt,
		Bytes:       snap.Bytes,
		DurationMs:  snap.Duration.Milliseconds(),
		Brands:      snap.Table.Len(),
		Breakpoints: snap.Table.BreakpointCount(),
	}
}

type loadView struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	LoadedAt    time.Time       `json:"loadedAt"`
	DurationMs  int64           `json:"durationMs"`
	Bytes       int64           `json:"bytes"`
	Brands      int             `json:"brands"`
	Breakpoints int             `json:"breakpoints"`
	Anomalies   int             `json:"anomalies"`
	Stats       core.BuildStats `json:"stats"`
	Error       string          `json:"error,omitempty"`
}

// handleHealth reports liveness, the published snapshot and load limiter usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"ready":    s.service.Ready(),
		"snapshot": newSnapshotView(s.service.Snapshot()),
		"loads":    s.service.Limiter().Status(),
	})
}

// handleReady returns 503 until the first snapshot is published.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.service.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleReload rebuilds the table from the source and publishes it.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.service.Reload(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	logging.FromContext(r.Context()).Info("reload requested", "load_id", snap.ID)
	writeJSON(w, http.StatusOK, newSnapshotView(snap))
}

// handleListLoads returns recent load attempts, newest first.
func (s *Server) handleListLoads(w http.ResponseWriter, r *http.Request) {
	if s.loads == nil {
		s.respondError(w, r, errNoLoadStore, http.StatusNotFound)
		return
	}

	limit := parseIntParam(r, "limit", defaultLoadsLimit, maxLoadsLimit)
	recs, err := s.loads.RecentLoads(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	views := make([]loadView, len(recs))
	for i, rec := range recs {
		views[i] = loadView{
			ID:          rec.ID,
			Source:      rec.Source,
			LoadedAt:    rec.LoadedAt,
			DurationMs:  rec.Duration.Milliseconds(),
			Bytes:       rec.Bytes,
			Brands:      rec.Brands,
			Breakpoints: rec.Breakpoints,
			Anomalies:   rec.Anomalies,
			Stats:       rec.Stats,
			Error:       rec.Err,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loads": views,
		"count": len(views),
	})
}
