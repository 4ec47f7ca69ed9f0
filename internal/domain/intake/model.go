// Package intake owns the IntakeSession resource: one phone-call-based
// patient intake attempt and its outcome.
package intake

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session, driven by provider webhook
// events: calling -> in-progress -> completed, with failed as an alternate
// terminal and call-ended as a non-authoritative terminal that a late
// end-of-call report may still upgrade to completed.
type Status string

const (
	StatusCalling    Status = "calling"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCallEnded  Status = "call-ended"
)

var validStatuses = map[Status]bool{
	StatusCalling:    true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusFailed:     true,
	StatusCallEnded:  true,
}

// Valid reports whether s is a known session status.
func (s Status) Valid() bool { return validStatuses[s] }

// Terminal reports whether no further transitions are allowed out of s.
// call-ended is deliberately not terminal: an end-of-call report arriving
// after the provider's "ended" status signal still completes the session.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// Active reports whether the call behind the session may still be live.
func (s Status) Active() bool { return s == StatusCalling || s == StatusInProgress }

// Utterance is one transcript line in conversation order.
type Utterance struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session maps to the intake_sessions table.
type Session struct {
	ID              uuid.UUID   `db:"id" json:"id"`
	CallID          *string     `db:"call_id" json:"call_id,omitempty"`
	PhoneNumber     string      `db:"phone_number" json:"phone_number"`
	Status          Status      `db:"status" json:"status"`
	PatientName     *string     `db:"patient_name" json:"patient_name,omitempty"`
	PatientAge      *int        `db:"patient_age" json:"patient_age,omitempty"`
	Transcript      []Utterance `db:"transcript" json:"transcript"`
	DurationSeconds *int        `db:"duration_seconds" json:"duration_seconds,omitempty"`
	RecordingKey    *string     `db:"recording_key" json:"recording_key,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`

	// HasNote reports whether a SOAP note exists for the session. Populated
	// by list reads only; single-session lookups leave it false.
	HasNote bool `db:"-" json:"has_soap_note"`
}

// AttachCallID records the provider's external call id. The id is immutable
// once assigned; attaching the same id again is a no-op.
func (s *Session) AttachCallID(callID string) error {
	if callID == "" {
		return fmt.Errorf("call id is empty")
	}
	if s.CallID != nil {
		if *s.CallID != callID {
			return fmt.Errorf("session %s already bound to call %s", s.ID, *s.CallID)
		}
		return nil
	}
	s.CallID = &callID
	return nil
}

// AppendUtterances appends transcript lines in order, skipping any line the
// session already holds with the same role, text, and second-granularity
// timestamp. Redelivered partial transcripts are therefore idempotent while
// genuinely new lines still append. Returns the number appended.
func (s *Session) AppendUtterances(lines ...Utterance) int {
	seen := make(map[string]bool, len(s.Transcript))
	for _, u := range s.Transcript {
		seen[utteranceKey(u)] = true
	}

	appended := 0
	for _, u := range lines {
		if u.Text == "" {
			continue
		}
		k := utteranceKey(u)
		if seen[k] {
			continue
		}
		seen[k] = true
		s.Transcript = append(s.Transcript, u)
		appended++
	}
	return appended
}

func utteranceKey(u Utterance) string {
	return u.Role + "\x00" + u.Text + "\x00" + u.Timestamp.UTC().Format("2006-01-02T15:04:05")
}

// Conversation flattens the transcript into the one-line-per-utterance form
// the SOAP extractor consumes: "role: text".
func (s *Session) Conversation() string {
	if len(s.Transcript) == 0 {
		return ""
	}
	var b strings.Builder
	for i, u := range s.Transcript {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(u.Role)
		b.WriteString(": ")
		b.WriteString(u.Text)
	}
	return b.String()
}
