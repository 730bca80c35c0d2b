// Package api exposes the generation service over HTTP: session
// submission, result polling, live event streaming over SSE, and health.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmcortes/newswire/internal/errors"
	"github.com/jmcortes/newswire/internal/event"
	"github.com/jmcortes/newswire/internal/logging"
	"github.com/jmcortes/newswire/internal/orchestrator"
	"github.com/jmcortes/newswire/internal/registry"
)

// Runner executes the pipeline for an allocated session.
type Runner interface {
	Run(ctx context.Context, sessionID string) (orchestrator.Result, error)
}

// SessionHandler serves the session lifecycle endpoints.
type SessionHandler struct {
	registry     *registry.Registry
	bus          *event.Bus
	runner       Runner
	logger       *logging.Logger
	pingInterval time.Duration
}

// NewSessionHandler creates the session endpoints. pingInterval is the
// SSE keepalive period.
func NewSessionHandler(reg *registry.Registry, bus *event.Bus, runner Runner, pingInterval time.Duration, logger *logging.Logger) *SessionHandler {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if pingInterval <= 0 {
		pingInterval = 15 * time.Second
	}
	return &SessionHandler{
		registry:     reg,
		bus:          bus,
		runner:       runner,
		logger:       logger.WithComponent("api"),
		pingInterval: pingInterval,
	}
}

type generateRequest struct {
	Topic string `json:"topic"`
}

type generateResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// Generate handles POST /api/generate. It allocates a session and kicks
// off the pipeline on its own goroutine, answering 202 immediately.
func (h *SessionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sess, err := h.registry.Create(req.Topic)
	if err != nil {
		if errors.Is(err, errors.ErrEmptyTopic) {
			writeError(w, http.StatusBadRequest, "topic is required")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The run outlives the HTTP request.
	go func() {
		if _, err := h.runner.Run(context.Background(), sess.ID); err != nil {
			h.logger.Error("pipeline run failed", "session_id", sess.ID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, generateResponse{
		SessionID: sess.ID,
		Status:    string(sess.Status),
	})
}

// Result handles GET /api/result/{id}.
func (h *SessionHandler) Result(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := h.registry.Get(id)
	if err != nil {
		if errors.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "session not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type listResponse struct {
	Sessions []registry.Session `json:"sessions"`
	Count    int                `json:"count"`
}

// List handles GET /api/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.registry.List()
	writeJSON(w, http.StatusOK, listResponse{Sessions: sessions, Count: len(sessions)})
}

// Delete handles DELETE /api/sessions/{id}. Only finished sessions can
// be deleted; their event topic is dropped with them.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.registry.Delete(id); err != nil {
		if errors.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "session not found: "+id)
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	h.bus.Drop(id)
	w.WriteHeader(http.StatusNoContent)
}

type healthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
}

// Health handles GET /api/health.
func (h *SessionHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:         "ok",
		ActiveSessions: h.registry.ActiveCount(),
	})
}
