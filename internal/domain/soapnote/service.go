package soapnote

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "soapnote").Logger()}
}

// CreateOnce persists a note unless one already exists for the session.
// Returns false with a nil error when the note was already there, which is
// the expected outcome under webhook redelivery.
func (s *Service) CreateOnce(ctx context.Context, n *Note) (bool, error) {
	if n.SessionID == uuid.Nil {
		return false, fmt.Errorf("session_id is required")
	}

	if _, err := s.repo.GetBySessionID(ctx, n.SessionID); err == nil {
		s.logger.Debug().Stringer("session_id", n.SessionID).Msg("soap note already exists, skipping")
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	err := s.repo.Create(ctx, n)
	if errors.Is(err, ErrNoteExists) {
		// Lost the race against a concurrent redelivery; the note exists.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*Note, error) {
	return s.repo.GetBySessionID(ctx, sessionID)
}

func (s *Service) GetByCallID(ctx context.Context, callID string) (*NoteWithSession, error) {
	return s.repo.GetByCallID(ctx, callID)
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]*NoteWithSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.repo.ListRecent(ctx, limit)
}
