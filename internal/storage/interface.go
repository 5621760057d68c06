package storage

import (
	"context"

	"github.com/mcoot/wordduel/internal/model"
)

// Storage defines the interface for session persistence.
//
// Implementations return deep copies, so callers may mutate results freely.
// A successful write sets session.Version to the newly stored stamp.
type Storage interface {
	// CreateSession inserts a new session at version 1.
	// Returns model.ErrSessionExists if the key is already taken.
	CreateSession(ctx context.Context, session *model.Session) error

	// GetSession loads a session by key.
	// Returns model.ErrSessionNotFound if there is none.
	GetSession(ctx context.Context, key model.SessionKey) (*model.Session, error)

	// SessionExists reports whether a session with the key is stored
	SessionExists(ctx context.Context, key model.SessionKey) (bool, error)

	// UpdateSession replaces a session only if its stored version still equals
	// expectedVersion. Returns model.ErrVersionConflict otherwise, and
	// model.ErrSessionNotFound if the session has gone.
	UpdateSession(ctx context.Context, session *model.Session, expectedVersion int64) error

	// DeleteSession removes a session. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, key model.SessionKey) error
}
