package soapnote

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no note matches the lookup.
	ErrNotFound = errors.New("soap note not found")
	// ErrNoteExists is returned when a note already exists for the session.
	ErrNoteExists = errors.New("soap note already exists for session")
)

// Repository is the note store capability. Create must reject a second note
// for the same session with ErrNoteExists (the Postgres implementation
// relies on the unique index on session_id).
type Repository interface {
	Create(ctx context.Context, n *Note) error
	GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*Note, error)
	GetByCallID(ctx context.Context, callID string) (*NoteWithSession, error)
	// ListRecent returns the newest notes with joined session fields.
	ListRecent(ctx context.Context, limit int) ([]*NoteWithSession, error)
}
