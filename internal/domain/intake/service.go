package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verde-health/intake-api/internal/platform/vapi"
)

// ErrNoRecording is returned when a session has no archived recording.
var ErrNoRecording = errors.New("session has no archived recording")

// CallInitiator is the outbound call-initiation capability.
type CallInitiator interface {
	InitiateCall(ctx context.Context, phoneNumber string) (*vapi.CallInfo, error)
}

// RecordingSigner mints time-limited download URLs for blob keys.
type RecordingSigner interface {
	SignedURL(key string, ttl time.Duration) (string, error)
}

type Service struct {
	repo   Repository
	calls  CallInitiator
	signer RecordingSigner
	logger zerolog.Logger
}

func NewService(repo Repository, calls CallInitiator, signer RecordingSigner, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		calls:  calls,
		signer: signer,
		logger: logger.With().Str("component", "intake").Logger(),
	}
}

// StartCall creates a session in calling status and asks the provider to
// place the call. Provider failure flips the session to failed and is
// surfaced to the caller; the failed session row is kept for the audit
// trail.
func (s *Service) StartCall(ctx context.Context, phoneNumber string) (*Session, error) {
	if phoneNumber == "" {
		return nil, fmt.Errorf("phone number is required")
	}

	sess := &Session{
		PhoneNumber: phoneNumber,
		Status:      StatusCalling,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	info, err := s.calls.InitiateCall(ctx, phoneNumber)
	if err != nil {
		sess.Status = StatusFailed
		if uerr := s.repo.Update(ctx, sess); uerr != nil {
			s.logger.Error().Err(uerr).Stringer("session_id", sess.ID).Msg("failed to mark session failed")
		}
		return nil, fmt.Errorf("initiate call: %w", err)
	}

	if info.ID != "" {
		if err := sess.AttachCallID(info.ID); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("attach call id: %w", err)
	}

	s.logger.Info().Stringer("session_id", sess.ID).Str("call_id", info.ID).Msg("intake call started")
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListSessions(ctx context.Context, limit, offset int) ([]*Session, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// RecordingURL returns a signed, time-limited download URL for the
// session's archived recording.
func (s *Service) RecordingURL(ctx context.Context, id uuid.UUID, ttl time.Duration) (string, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if sess.RecordingKey == nil || *sess.RecordingKey == "" {
		return "", ErrNoRecording
	}
	return s.signer.SignedURL(*sess.RecordingKey, ttl)
}
