// File: internal/server/handlers.go
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/gazerhq/gazer/api/schemas"
	"github.com/gazerhq/gazer/internal/stream"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Router builds the HTTP surface.
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", a.handleRoot)
	r.Get("/health", a.handleHealth)
	r.Post("/api/execute", a.handleExecute)
	r.Post("/api/reset-session", a.handleResetSession)
	return r
}

func (a *App) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func (a *App) handleRoot(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{
		"service": "gazer",
		"status":  "running",
	})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := schemas.HealthResponse{
		Status:           "ok",
		Message:          "Service is healthy.",
		AgentInitialized: a.initialized,
	}

	probeCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.detector.CheckHealth(probeCtx); err != nil {
		resp.Status = "degraded"
		resp.Message = "Detector service is unreachable."
		a.logger.Warn("Detector health probe failed", zap.Error(err))
	}

	status := http.StatusOK
	if !a.initialized {
		status = http.StatusServiceUnavailable
		resp.Status = "unavailable"
		resp.Message = "Agent is not initialized."
	}
	a.writeJSON(w, status, resp)
}

// handleExecute runs one agent turn and streams its messages as push
// records, ending with the completion record.
func (a *App) handleExecute(w http.ResponseWriter, r *http.Request) {
	if !a.initialized {
		a.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "agent is not initialized",
		})
		return
	}

	var req schemas.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "task must not be empty"})
		return
	}

	session := a.sessions.GetOrCreate(req.UserID, req.SessionID)

	// One in-flight turn per session; the browser has a single page.
	lock := a.turnLock(session.Key())
	lock.Lock()
	defer lock.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Disable proxy buffering so records reach the client as they are
	// produced.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	a.logger.Info("Turn started",
		zap.String("session_id", session.SessionID),
		zap.String("user_id", session.UserID))

	emitter := stream.NewEmitter(w, a.cfg.Server.StreamPacing, a.logger)
	events := a.runner.RunTurn(r.Context(), session, req.Task)
	stream.Relay(r.Context(), emitter, events)
}

func (a *App) handleResetSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string `json:"user_id"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.UserID == "" || req.SessionID == "" {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id and session_id are required"})
		return
	}

	session := schemas.Session{AppID: a.cfg.Agent.AppName, UserID: req.UserID, SessionID: req.SessionID}
	a.sessions.Reset(req.UserID, req.SessionID)
	a.runner.DropSession(session)

	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
