package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/split2ynab/backend/internal/logging"
	mW "github.com/split2ynab/backend/internal/middleware"
	"github.com/split2ynab/backend/internal/services"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error string `json:"error"`
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

type StatusHandler struct {
	tracker *services.StatusTracker
}

func NewStatusHandler(tracker *services.StatusTracker) *StatusHandler {
	return &StatusHandler{tracker: tracker}
}

// Health reports that the process is up
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Status returns the last sync and funding outcomes
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Snapshot())
}

// LastRun returns only the most recent sync run, or 404 before the first one
func (h *StatusHandler) LastRun(w http.ResponseWriter, r *http.Request) {
	snap := h.tracker.Snapshot()
	if snap.LastRun == nil {
		SendErrorResponse(w, "no sync run recorded yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap.LastRun)
}

// NewRouter mounts the status endpoints and the metrics handler, if any
func NewRouter(h *StatusHandler, metricsHandler http.Handler, logger *logging.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(mW.SecurityHeaders)
	r.Use(mW.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         86400,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		SendErrorResponse(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		SendErrorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/health", h.Health)
	r.Get("/status", h.Status)
	r.Get("/status/last-run", h.LastRun)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	return r
}
