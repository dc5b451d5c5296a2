// File: internal/artifacts/store.go

// Package artifacts holds screenshot payloads out-of-band of the model
// conversation. Tool results reference artifacts by ID; the runner rehydrates
// them exactly once when it feeds the result back to the model.
package artifacts

import (
	"fmt"
	"sync"
)

// ScreenshotID formats the canonical artifact ID for the screenshot captured
// by the tool call identified by callID.
func ScreenshotID(callID string) string {
	return fmt.Sprintf("computer_screenshot_%s.png", callID)
}

// Store is an in-memory, session-scoped artifact store.
type Store struct {
	mu       sync.Mutex
	sessions map[string]map[string][]byte
}

// NewStore creates an empty artifact store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]map[string][]byte)}
}

// Put saves data under (sessionKey, id), replacing any previous payload with
// the same ID.
func (s *Store) Put(sessionKey, id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.sessions[sessionKey]
	if !ok {
		bucket = make(map[string][]byte)
		s.sessions[sessionKey] = bucket
	}
	bucket[id] = data
}

// TakeOnce removes and returns the payload stored under (sessionKey, id).
// The second return is false when no such artifact exists; a second take of
// the same ID always misses.
func (s *Store) TakeOnce(sessionKey, id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.sessions[sessionKey]
	if !ok {
		return nil, false
	}
	data, ok := bucket[id]
	if !ok {
		return nil, false
	}
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(s.sessions, sessionKey)
	}
	return data, true
}

// DropSession discards every artifact held for sessionKey.
func (s *Store) DropSession(sessionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey)
}

// Len reports the number of artifacts held for sessionKey.
func (s *Store) Len(sessionKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions[sessionKey])
}
