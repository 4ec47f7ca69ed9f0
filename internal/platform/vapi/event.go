package vapi

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EventType is the canonical classification of an inbound webhook event.
// The provider has shipped several payload schemas over time; every variant
// is normalized to one of these before it reaches business logic.
type EventType string

const (
	EventCallStarted  EventType = "call-started"
	EventTranscript   EventType = "transcript"
	EventEndOfCall    EventType = "end-of-call-report"
	EventStatusUpdate EventType = "status-update"
	EventUnknown      EventType = "unknown"
)

// Utterance is a single transcript line in conversation order.
type Utterance struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Event is the canonical internal form of a webhook delivery. Optional
// fields are zero-valued when the payload variant does not carry them.
type Event struct {
	Type            EventType
	RawType         string
	CallID          string
	PhoneNumber     string
	Status          string // provider call status on status-update events
	Partial         *Utterance
	Transcript      []Utterance
	RecordingURL    string
	PDFURL          string
	DurationSeconds int
	Summary         string
	Analysis        map[string]interface{}
}

// wire structs mirror the union of payload shapes seen from the provider.

type wirePayload struct {
	Type            string                 `json:"type"`
	Status          string                 `json:"status"`
	Call            *wireCall              `json:"call"`
	CallID          string                 `json:"callId"`
	Customer        *wireCustomer          `json:"customer"`
	Role            string                 `json:"role"`
	Transcript      json.RawMessage        `json:"transcript"`
	Messages        []wireUtterance        `json:"messages"`
	Artifact        *wireArtifact          `json:"artifact"`
	Analysis        map[string]interface{} `json:"analysis"`
	Summary         string                 `json:"summary"`
	RecordingURL    string                 `json:"recordingUrl"`
	PDFURL          string                 `json:"pdfUrl"`
	DurationSeconds float64                `json:"durationSeconds"`
	EndedReason     string                 `json:"endedReason"`
}

type wireCall struct {
	ID       string        `json:"id"`
	Status   string        `json:"status"`
	Duration float64       `json:"duration"`
	Customer *wireCustomer `json:"customer"`
}

type wireCustomer struct {
	Number string `json:"number"`
}

type wireArtifact struct {
	Messages     []wireUtterance `json:"messages"`
	RecordingURL string          `json:"recordingUrl"`
	PDFURL       string          `json:"pdfUrl"`
}

type wireUtterance struct {
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	Transcript string          `json:"transcript"`
	Text       string          `json:"text"`
	Message    string          `json:"message"`
	Timestamp  json.RawMessage `json:"timestamp"`
}

func (u wireUtterance) text() string {
	for _, s := range []string{u.Content, u.Transcript, u.Text, u.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (u wireUtterance) when(fallback time.Time) time.Time {
	if len(u.Timestamp) == 0 {
		return fallback
	}
	var s string
	if err := json.Unmarshal(u.Timestamp, &s); err == nil {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
		return fallback
	}
	var ms float64
	if err := json.Unmarshal(u.Timestamp, &ms); err == nil && ms > 0 {
		return time.UnixMilli(int64(ms)).UTC()
	}
	return fallback
}

// ParseEvent normalizes a raw webhook body into an Event. It accepts both
// the wrapped shape {"message": {...}} and the flattened legacy shape.
// Unrecognized event types yield EventUnknown, not an error; an error means
// the body is not syntactically usable at all.
func ParseEvent(body []byte) (*Event, error) {
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}
	if len(envelope.Message) > 0 && string(envelope.Message) != "null" {
		body = envelope.Message
	}

	var w wirePayload
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	ev := &Event{
		RawType:  w.Type,
		Summary:  w.Summary,
		Analysis: w.Analysis,
	}
	ev.Type, ev.Status = normalizeType(w.Type)

	// Call id: call object first, then the flattened field.
	if w.Call != nil && w.Call.ID != "" {
		ev.CallID = w.Call.ID
	} else if w.CallID != "" {
		ev.CallID = w.CallID
	}

	// Phone number fallback chain.
	if w.Customer != nil && w.Customer.Number != "" {
		ev.PhoneNumber = w.Customer.Number
	} else if w.Call != nil && w.Call.Customer != nil {
		ev.PhoneNumber = w.Call.Customer.Number
	}

	if ev.Status == "" {
		if w.Status != "" {
			ev.Status = strings.ToLower(w.Status)
		} else if w.Call != nil && w.Call.Status != "" {
			ev.Status = strings.ToLower(w.Call.Status)
		}
	}

	now := time.Now().UTC()

	// Live transcript fragment: either an object {role, transcript} or a
	// plain string alongside a top-level role field.
	if ev.Type == EventTranscript && len(w.Transcript) > 0 {
		ev.Partial = parsePartial(w.Transcript, w.Role, now)
	}

	// Full transcript on terminal events, across schema variants.
	msgs := w.Messages
	if len(msgs) == 0 && w.Artifact != nil {
		msgs = w.Artifact.Messages
	}
	for _, m := range msgs {
		text := m.text()
		if text == "" {
			continue
		}
		ev.Transcript = append(ev.Transcript, Utterance{
			Role:      m.Role,
			Text:      text,
			Timestamp: m.when(now),
		})
	}

	ev.RecordingURL = w.RecordingURL
	if ev.RecordingURL == "" && w.Artifact != nil {
		ev.RecordingURL = w.Artifact.RecordingURL
	}

	ev.PDFURL = firstNonEmpty(
		w.PDFURL,
		stringField(w.Analysis, "soapPdfUrl"),
		stringField(w.Analysis, "pdfUrl"),
		artifactPDF(w.Artifact),
	)

	if w.DurationSeconds > 0 {
		ev.DurationSeconds = int(w.DurationSeconds)
	} else if w.Call != nil && w.Call.Duration > 0 {
		ev.DurationSeconds = int(w.Call.Duration)
	}

	if ev.Summary == "" {
		ev.Summary = stringField(w.Analysis, "summary")
	}

	return ev, nil
}

func normalizeType(raw string) (EventType, string) {
	switch strings.ToLower(raw) {
	case "call-started", "call.started":
		return EventCallStarted, ""
	case "transcript", "transcript-complete", "transcript.complete":
		return EventTranscript, ""
	case "end-of-call-report", "call-ended", "call.ended":
		return EventEndOfCall, ""
	case "status-update", "call.status-update":
		return EventStatusUpdate, ""
	case "call-failed", "call.failed":
		return EventStatusUpdate, "failed"
	default:
		return EventUnknown, ""
	}
}

func parsePartial(raw json.RawMessage, topRole string, now time.Time) *Utterance {
	var obj wireUtterance
	if err := json.Unmarshal(raw, &obj); err == nil && obj.text() != "" {
		return &Utterance{Role: obj.Role, Text: obj.text(), Timestamp: obj.when(now)}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return &Utterance{Role: topRole, Text: s, Timestamp: now}
	}
	return nil
}

func artifactPDF(a *wireArtifact) string {
	if a == nil {
		return ""
	}
	return a.PDFURL
}

// DefaultPatientName is recorded when no analysis field yields a name.
const DefaultPatientName = "Patient Name Not Captured"

// ExtractPatient resolves the patient name and age from the provider's
// analysis payload, falling back through the known field locations in
// order. First non-empty wins. The summary text is the last-resort name
// source: a leading "Patient name: X" line, when the analysis has nothing.
func ExtractPatient(analysis map[string]interface{}, summary string) (string, *int) {
	structured, _ := analysis["structuredData"].(map[string]interface{})

	name := firstNonEmpty(
		stringField(structured, "patientName"),
		stringField(structured, "patient_name"),
		stringField(structured, "name"),
		stringField(analysis, "patientName"),
		stringField(analysis, "name"),
	)
	if name == "" {
		name = summaryName(summary)
	}
	if name == "" {
		name = DefaultPatientName
	}

	for _, candidate := range []interface{}{
		fieldOf(structured, "patientAge"),
		fieldOf(structured, "patient_age"),
		fieldOf(structured, "age"),
		fieldOf(analysis, "patientAge"),
		fieldOf(analysis, "age"),
	} {
		if age, ok := asAge(candidate); ok {
			return name, &age
		}
	}
	return name, nil
}

var summaryNamePattern = regexp.MustCompile(`(?i)^\s*patient(?: name)?\s*:\s*([a-zA-Z ]+?)\s*(?:\.|,|\n|$)`)

func summaryName(summary string) string {
	m := summaryNamePattern.FindStringSubmatch(summary)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func fieldOf(m map[string]interface{}, key string) interface{} {
	if m == nil {
		return nil
	}
	return m[key]
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func asAge(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n > 0 && n < 150 {
			return int(n), true
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil && parsed > 0 && parsed < 150 {
			return parsed, true
		}
	}
	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
