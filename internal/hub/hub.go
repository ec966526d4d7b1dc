// Package hub tracks the live sessions owned by this process so they can be
// counted and torn down together on shutdown.
package hub

import (
	"sync"

	"go.uber.org/zap"

	"wordchain/internal/session"
)

type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session // client id -> session
	logger   *zap.Logger
}

func New(logger *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]*session.Session),
		logger:   logger,
	}
}

func (h *Hub) Add(clientID string, s *session.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[clientID] = s
}

func (h *Hub) Remove(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, clientID)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Close leaves every live session. Leave is synchronous, so when Close
// returns no timer or subscription is still running.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*session.Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessions = make(map[string]*session.Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Leave()
	}
	h.logger.Info("hub closed", zap.Int("sessions", len(sessions)))
}
