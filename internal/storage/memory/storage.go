package memory

import (
	"context"
	"sync"

	"github.com/mcoot/wordduel/internal/model"
	"github.com/mcoot/wordduel/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu       sync.RWMutex
	sessions map[model.SessionKey]*model.Session
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		sessions: make(map[model.SessionKey]*model.Session),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) CreateSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Key]; ok {
		return model.ErrSessionExists
	}
	session.Version = 1
	s.sessions[session.Key] = session.Clone()
	return nil
}

func (s *Storage) GetSession(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *Storage) SessionExists(ctx context.Context, key model.SessionKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[key]
	return ok, nil
}

func (s *Storage) UpdateSession(ctx context.Context, session *model.Session, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[session.Key]
	if !ok {
		return model.ErrSessionNotFound
	}
	if current.Version != expectedVersion {
		return model.ErrVersionConflict
	}
	session.Version = expectedVersion + 1
	s.sessions[session.Key] = session.Clone()
	return nil
}

func (s *Storage) DeleteSession(ctx context.Context, key model.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}
