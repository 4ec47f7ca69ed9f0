package intake

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no session matches the lookup.
var ErrNotFound = errors.New("intake session not found")

// Repository is the session store capability. Updates are keyed whole-row
// writes; the store's per-row consistency is the only concurrency guarantee
// callers may rely on.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	FindByCallID(ctx context.Context, callID string) (*Session, error)
	// FindMostRecentByStatus returns the most recently created session in
	// the given status, or ErrNotFound.
	FindMostRecentByStatus(ctx context.Context, status Status) (*Session, error)
	Update(ctx context.Context, s *Session) error
	// List returns sessions ordered by creation time descending.
	List(ctx context.Context, limit, offset int) ([]*Session, int, error)
}
