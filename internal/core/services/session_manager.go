package services

import (
	"context"
	"sync"

	"communiconnect/internal/core/domain"
	"communiconnect/internal/core/ports"
	"communiconnect/pkg/utils"

	"go.uber.org/zap"
)

// ControllerFactory builds a controller for a freshly opened session. The
// manager stays ignorant of gateways and surfaces; wiring lives in main.
type ControllerFactory func(id domain.SessionID, livestreamID domain.LivestreamID, author string) ports.SessionController

// SessionManager tracks live session controllers by ID.
type SessionManager struct {
	factory ControllerFactory
	logger  *zap.SugaredLogger

	mu       sync.RWMutex
	sessions map[domain.SessionID]ports.SessionController
}

func NewSessionManager(factory ControllerFactory, logger *zap.SugaredLogger) *SessionManager {
	return &SessionManager{
		factory:  factory,
		logger:   logger,
		sessions: make(map[domain.SessionID]ports.SessionController),
	}
}

func (m *SessionManager) Open(ctx context.Context, livestreamID domain.LivestreamID, author string) (domain.SessionID, ports.SessionController, error) {
	id := domain.SessionID(utils.GenerateSessionID())
	ctrl := m.factory(id, livestreamID, author)

	m.mu.Lock()
	m.sessions[id] = ctrl
	m.mu.Unlock()

	m.logger.Infow("session opened",
		"session_id", id, "livestream_id", livestreamID, "author", author)
	return id, ctrl, nil
}

func (m *SessionManager) Get(id domain.SessionID) (ports.SessionController, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctrl, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return ctrl, nil
}

func (m *SessionManager) Close(ctx context.Context, id domain.SessionID) error {
	m.mu.Lock()
	ctrl, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	return ctrl.Close(ctx)
}

// CloseAll tears down every session, used on shutdown.
func (m *SessionManager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[domain.SessionID]ports.SessionController)
	m.mu.Unlock()

	for id, ctrl := range sessions {
		if err := ctrl.Close(ctx); err != nil {
			m.logger.Warnw("failed to close session", "session_id", id, "error", err)
		}
	}
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
