// File: internal/sessions/store.go

// Package sessions keeps the in-memory registry of agent conversations.
// Sessions are created on first reference and reused across turns until the
// caller resets them.
package sessions

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gazerhq/gazer/api/schemas"
)

// Store is a concurrency-safe session registry keyed by the composite
// (app_id, user_id, session_id).
type Store struct {
	appID  string
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]schemas.Session
}

// NewStore creates an empty registry for one application.
func NewStore(appID string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		appID:    appID,
		logger:   logger.Named("sessions"),
		sessions: make(map[string]schemas.Session),
	}
}

// GetOrCreate returns the session for (userID, sessionID), creating it on
// first reference. Empty IDs get generated UUIDs, so a bare request always
// lands in a fresh session.
func (s *Store) GetOrCreate(userID, sessionID string) schemas.Session {
	if userID == "" {
		userID = uuid.NewString()
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	session := schemas.Session{AppID: s.appID, UserID: userID, SessionID: sessionID}
	key := session.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[key]; ok {
		return existing
	}
	s.sessions[key] = session
	s.logger.Info("Session created",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID))
	return session
}

// Reset discards the session for (userID, sessionID). Resetting an unknown
// session is a no-op; the next reference recreates it.
func (s *Store) Reset(userID, sessionID string) {
	session := schemas.Session{AppID: s.appID, UserID: userID, SessionID: sessionID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Key()]; ok {
		delete(s.sessions, session.Key())
		s.logger.Info("Session reset",
			zap.String("user_id", userID),
			zap.String("session_id", sessionID))
	}
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
