// Package ingest reconciles provider webhook events against intake sessions:
// it owns the session state machine and the at-most-once SOAP note creation
// that closes out a completed call.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/verde-health/intake-api/internal/domain/intake"
	"github.com/verde-health/intake-api/internal/domain/soapnote"
	"github.com/verde-health/intake-api/internal/platform/archive"
	"github.com/verde-health/intake-api/internal/platform/vapi"
	"github.com/verde-health/intake-api/internal/soap"
)

// NoteWriter creates a SOAP note unless one already exists for the session.
type NoteWriter interface {
	CreateOnce(ctx context.Context, n *soapnote.Note) (bool, error)
}

// BlobArchiver copies a remote artifact into durable storage and returns its
// blob key.
type BlobArchiver interface {
	Archive(ctx context.Context, remoteURL, callID string, kind archive.Kind) (string, error)
}

// Reconciler applies canonical webhook events to the session store. All
// methods run post-acknowledgment; errors are for the caller to log, the
// webhook response is already sent.
type Reconciler struct {
	sessions intake.Repository
	notes    NoteWriter
	archiver BlobArchiver
	cache    *callCache
	logger   zerolog.Logger
}

func NewReconciler(sessions intake.Repository, notes NoteWriter, archiver BlobArchiver, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		sessions: sessions,
		notes:    notes,
		archiver: archiver,
		cache:    newCallCache(256),
		logger:   logger.With().Str("component", "ingest").Logger(),
	}
}

// Handle dispatches a single event. Redeliveries are safe: session updates
// are last-write-wins and note creation is skipped when a note exists.
func (r *Reconciler) Handle(ctx context.Context, ev *vapi.Event) error {
	switch ev.Type {
	case vapi.EventCallStarted:
		return r.handleCallStarted(ctx, ev)
	case vapi.EventTranscript:
		return r.handleTranscript(ctx, ev)
	case vapi.EventEndOfCall:
		return r.handleEndOfCall(ctx, ev)
	case vapi.EventStatusUpdate:
		return r.handleStatusUpdate(ctx, ev)
	default:
		r.logger.Debug().Str("raw_type", ev.RawType).Msg("ignoring unknown event type")
		return nil
	}
}

// resolve finds the session behind a call id: store lookup first, then the
// cache shortcut. Returns intake.ErrNotFound when neither knows the call.
func (r *Reconciler) resolve(ctx context.Context, callID string) (*intake.Session, error) {
	if callID == "" {
		return nil, intake.ErrNotFound
	}
	s, err := r.sessions.FindByCallID(ctx, callID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, intake.ErrNotFound) {
		return nil, err
	}
	if id, ok := r.cache.get(callID); ok {
		return r.sessions.GetByID(ctx, id)
	}
	return nil, intake.ErrNotFound
}

func (r *Reconciler) handleCallStarted(ctx context.Context, ev *vapi.Event) error {
	s, err := r.resolve(ctx, ev.CallID)
	if errors.Is(err, intake.ErrNotFound) {
		// An outbound call just placed has no call id bound yet; bind the
		// newest dialing session. Racy when two calls start back to back,
		// but the provider delivers call-started within milliseconds of
		// initiation and sessions dial one at a time in practice.
		s, err = r.sessions.FindMostRecentByStatus(ctx, intake.StatusCalling)
	}
	if errors.Is(err, intake.ErrNotFound) {
		// Call we never initiated (inbound, or the session row is gone).
		// Record it anyway so transcripts have somewhere to land.
		s = &intake.Session{
			PhoneNumber: ev.PhoneNumber,
			Status:      intake.StatusInProgress,
		}
		if ev.CallID != "" {
			s.CallID = &ev.CallID
		}
		if err := r.sessions.Create(ctx, s); err != nil {
			return fmt.Errorf("create session for untracked call: %w", err)
		}
		r.cache.put(ev.CallID, s.ID)
		r.logger.Info().Str("call_id", ev.CallID).Stringer("session_id", s.ID).
			Msg("created session for untracked call")
		return nil
	}
	if err != nil {
		return err
	}

	if s.Status.Terminal() {
		r.logger.Warn().Str("call_id", ev.CallID).Str("status", string(s.Status)).
			Msg("call-started for terminal session, ignoring")
		return nil
	}

	if ev.CallID != "" {
		if err := s.AttachCallID(ev.CallID); err != nil {
			r.logger.Warn().Err(err).Str("call_id", ev.CallID).Msg("call id bind conflict")
			return nil
		}
	}
	if s.Status == intake.StatusCalling {
		s.Status = intake.StatusInProgress
	}
	if err := r.sessions.Update(ctx, s); err != nil {
		return fmt.Errorf("update session on call-started: %w", err)
	}
	r.cache.put(ev.CallID, s.ID)
	r.logger.Info().Str("call_id", ev.CallID).Stringer("session_id", s.ID).Msg("call started")
	return nil
}

func (r *Reconciler) handleTranscript(ctx context.Context, ev *vapi.Event) error {
	lines := ev.Transcript
	if ev.Partial != nil {
		lines = append(lines, *ev.Partial)
	}
	if len(lines) == 0 {
		return nil
	}

	s, err := r.resolve(ctx, ev.CallID)
	if errors.Is(err, intake.ErrNotFound) {
		r.logger.Warn().Str("call_id", ev.CallID).Msg("transcript for unknown call, dropping")
		return nil
	}
	if err != nil {
		return err
	}
	if s.Status.Terminal() {
		r.logger.Debug().Stringer("session_id", s.ID).Msg("transcript after terminal status, dropping")
		return nil
	}

	if s.AppendUtterances(toUtterances(lines)...) == 0 {
		return nil
	}
	if err := r.sessions.Update(ctx, s); err != nil {
		return fmt.Errorf("update transcript: %w", err)
	}
	return nil
}

func (r *Reconciler) handleEndOfCall(ctx context.Context, ev *vapi.Event) error {
	s, err := r.resolve(ctx, ev.CallID)
	if errors.Is(err, intake.ErrNotFound) {
		s, err = r.sessions.FindMostRecentByStatus(ctx, intake.StatusCalling)
	}
	if errors.Is(err, intake.ErrNotFound) {
		r.logger.Warn().Str("call_id", ev.CallID).Msg("end-of-call for unknown call, dropping")
		return nil
	}
	if err != nil {
		return err
	}
	if s.Status == intake.StatusFailed {
		r.logger.Warn().Stringer("session_id", s.ID).Msg("end-of-call for failed session, ignoring")
		return nil
	}

	if ev.CallID != "" {
		if err := s.AttachCallID(ev.CallID); err != nil {
			r.logger.Warn().Err(err).Str("call_id", ev.CallID).Msg("call id bind conflict on end-of-call")
			return nil
		}
	}

	s.AppendUtterances(toUtterances(ev.Transcript)...)

	name, age := vapi.ExtractPatient(ev.Analysis, ev.Summary)
	if name == vapi.DefaultPatientName {
		// The analysis payload often omits the name; the transcript cue
		// is the next source before settling for the default.
		if fromTranscript := soap.Extract(s.Conversation()).PatientName; fromTranscript != "" {
			name = fromTranscript
		}
	}
	s.PatientName = &name
	if age != nil {
		s.PatientAge = age
	}
	if ev.DurationSeconds > 0 {
		d := ev.DurationSeconds
		s.DurationSeconds = &d
	}

	// Recording archival is best effort: a dead artifact URL must not keep
	// the session from completing.
	if ev.RecordingURL != "" && s.RecordingKey == nil {
		key, err := r.archiver.Archive(ctx, ev.RecordingURL, ev.CallID, archive.KindRecording)
		if err != nil {
			r.logger.Warn().Err(err).Str("call_id", ev.CallID).Msg("recording archive failed")
		} else {
			s.RecordingKey = &key
		}
	}

	s.Status = intake.StatusCompleted
	if err := r.sessions.Update(ctx, s); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	r.cache.drop(ev.CallID)

	if err := r.createNote(ctx, s, ev); err != nil {
		return err
	}

	r.logger.Info().Str("call_id", ev.CallID).Stringer("session_id", s.ID).
		Str("patient", name).Msg("call completed")
	return nil
}

// createNote archives the provider's PDF when present and writes the SOAP
// note at most once. Sessions with neither transcript text nor a PDF yield
// no note at all.
func (r *Reconciler) createNote(ctx context.Context, s *intake.Session, ev *vapi.Event) error {
	var pdfKey *string
	if ev.PDFURL != "" {
		key, err := r.archiver.Archive(ctx, ev.PDFURL, ev.CallID, archive.KindSOAPPDF)
		if err != nil {
			r.logger.Warn().Err(err).Str("call_id", ev.CallID).Msg("pdf archive failed")
		} else {
			pdfKey = &key
		}
	}

	conversation := s.Conversation()
	if conversation == "" && pdfKey == nil {
		r.logger.Debug().Stringer("session_id", s.ID).Msg("no transcript or pdf, skipping note")
		return nil
	}

	composed := soap.Compose(soap.Extract(conversation), conversation)
	n := &soapnote.Note{
		SessionID:  s.ID,
		Subjective: composed.Subjective,
		Objective:  composed.Objective,
		Assessment: composed.Assessment,
		Plan:       composed.Plan,
		PDFKey:     pdfKey,
		Analysis:   ev.Analysis,
	}
	if ev.CallID != "" {
		id := ev.CallID
		n.RawCallID = &id
	}

	created, err := r.notes.CreateOnce(ctx, n)
	if err != nil {
		return fmt.Errorf("create soap note: %w", err)
	}
	if created {
		r.logger.Info().Stringer("session_id", s.ID).Msg("soap note created")
	}
	return nil
}

func (r *Reconciler) handleStatusUpdate(ctx context.Context, ev *vapi.Event) error {
	s, err := r.resolve(ctx, ev.CallID)
	if errors.Is(err, intake.ErrNotFound) {
		r.logger.Debug().Str("call_id", ev.CallID).Str("status", ev.Status).
			Msg("status update for unknown call, dropping")
		return nil
	}
	if err != nil {
		return err
	}
	if s.Status.Terminal() {
		return nil
	}

	switch ev.Status {
	case "failed", "error":
		s.Status = intake.StatusFailed
		if err := r.sessions.Update(ctx, s); err != nil {
			return fmt.Errorf("mark session failed: %w", err)
		}
		r.cache.drop(ev.CallID)
		r.logger.Warn().Stringer("session_id", s.ID).Str("call_id", ev.CallID).Msg("call failed")
	case "ended":
		// Provisional: the end-of-call report may still upgrade this to
		// completed with the full transcript.
		s.Status = intake.StatusCallEnded
		if err := r.sessions.Update(ctx, s); err != nil {
			return fmt.Errorf("mark session call-ended: %w", err)
		}
	case "in-progress", "ringing":
		if s.Status == intake.StatusCalling {
			s.Status = intake.StatusInProgress
			if err := r.sessions.Update(ctx, s); err != nil {
				return fmt.Errorf("mark session in-progress: %w", err)
			}
			r.cache.put(ev.CallID, s.ID)
		}
	default:
		r.logger.Debug().Str("status", ev.Status).Msg("unhandled call status")
	}
	return nil
}

func toUtterances(lines []vapi.Utterance) []intake.Utterance {
	out := make([]intake.Utterance, 0, len(lines))
	for _, u := range lines {
		out = append(out, intake.Utterance{Role: u.Role, Text: u.Text, Timestamp: u.Timestamp})
	}
	return out
}
