package intake

import (
	"testing"
	"time"
)

func TestAttachCallIDImmutable(t *testing.T) {
	s := &Session{}
	if err := s.AttachCallID("call-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.AttachCallID("call-1"); err != nil {
		t.Errorf("re-attaching same id should be a no-op: %v", err)
	}
	if err := s.AttachCallID("call-2"); err == nil {
		t.Error("expected error attaching a different call id")
	}
	if *s.CallID != "call-1" {
		t.Errorf("CallID = %q", *s.CallID)
	}
}

func TestAppendUtterancesDedup(t *testing.T) {
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{}

	n := s.AppendUtterances(
		Utterance{Role: "assistant", Text: "What brings you in?", Timestamp: ts},
		Utterance{Role: "user", Text: "A headache.", Timestamp: ts.Add(2 * time.Second)},
	)
	if n != 2 || len(s.Transcript) != 2 {
		t.Fatalf("appended %d, transcript %d", n, len(s.Transcript))
	}

	// Redelivery of the same lines, sub-second timestamp jitter included.
	n = s.AppendUtterances(
		Utterance{Role: "assistant", Text: "What brings you in?", Timestamp: ts.Add(300 * time.Millisecond)},
		Utterance{Role: "user", Text: "A headache.", Timestamp: ts.Add(2 * time.Second)},
		Utterance{Role: "user", Text: "It started Monday.", Timestamp: ts.Add(5 * time.Second)},
	)
	if n != 1 {
		t.Errorf("appended %d, want 1", n)
	}
	if len(s.Transcript) != 3 {
		t.Errorf("transcript length = %d", len(s.Transcript))
	}
	// Order preserved.
	if s.Transcript[2].Text != "It started Monday." {
		t.Errorf("last line = %q", s.Transcript[2].Text)
	}
}

func TestAppendUtterancesSkipsEmptyText(t *testing.T) {
	s := &Session{}
	if n := s.AppendUtterances(Utterance{Role: "user"}); n != 0 {
		t.Errorf("appended %d", n)
	}
}

func TestConversation(t *testing.T) {
	s := &Session{Transcript: []Utterance{
		{Role: "assistant", Text: "What brings you in?"},
		{Role: "user", Text: "My name is Jane Doe."},
	}}
	want := "assistant: What brings you in?\nuser: My name is Jane Doe."
	if got := s.Conversation(); got != want {
		t.Errorf("Conversation() = %q, want %q", got, want)
	}

	if got := (&Session{}).Conversation(); got != "" {
		t.Errorf("empty transcript conversation = %q", got)
	}
}

func TestStatusPredicates(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Error("completed and failed must be terminal")
	}
	if StatusCallEnded.Terminal() {
		t.Error("call-ended must not be terminal")
	}
	if !StatusCalling.Active() || !StatusInProgress.Active() {
		t.Error("calling and in-progress must be active")
	}
	if StatusCompleted.Active() {
		t.Error("completed must not be active")
	}
	if Status("bogus").Valid() {
		t.Error("bogus status must not validate")
	}
}
