package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//   - Formatted appropriately based on request type (HTMX, JSON, or HTML)
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode), or statusFor(err) first
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered in appropriate format for the client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/serialyear/internal/core"
	"github.com/JonMunkholm/serialyear/internal/web/templates"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoLoadStore = errors.New("load records are not persisted")
)

// errMissingParam reports a required query parameter that was empty.
func errMissingParam(names ...string) error {
	return fmt.Errorf("missing parameter: %s", strings.Join(names, ", "))
}

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error       string   `json:"error"`
	Message     string   `json:"message"`
	Action      string   `json:"action,omitempty"`
	Code        string   `json:"code"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var loadErr *core.LoadError
	switch {
	case errors.Is(err, core.ErrInvalidSerial):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnknownBrand):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotLoaded), errors.Is(err, core.ErrTooManyLoads):
		return http.StatusServiceUnavailable
	case errors.As(err, &loadErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns an appropriate response
// based on the request type (HTMX, JSON, or HTML).
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	s.respondErrorWithSuggestions(w, r, err, statusCode, nil)
}

// respondErrorWithSuggestions is respondError with alternative brand names
// attached to JSON responses.
func (s *Server) respondErrorWithSuggestions(w http.ResponseWriter, r *http.Request, err error, statusCode int, suggestions []string) {
	userMsg := core.MapError(err)

	// Get request ID for correlation
	requestID := middleware.GetReqID(r.Context())

	level := slog.LevelError
	if statusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", requestID,
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		writeJSON(w, statusCode, ErrorResponse{
			Error:       userMsg.Message,
			Message:     userMsg.Message,
			Action:      userMsg.Action,
			Code:        userMsg.Code,
			Suggestions: suggestions,
		})
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
	}
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		slog.Error("render error partial", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
