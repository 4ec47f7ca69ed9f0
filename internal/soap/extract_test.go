package soap

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractPatientName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"my name is", "user: My name is Jane Doe. I feel unwell.", "Jane Doe"},
		{"i am", "user: Hello, I am John Smith, calling about my cough.", "John Smith"},
		{"contraction", "user: Hi, I'm Maria Garcia.", "Maria Garcia"},
		{"no cue", "user: I have a headache.", ""},
		{"stops at comma", "user: my name is Alan Turing, born June 1912.", "Alan Turing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text).PatientName; got != tt.want {
				t.Errorf("PatientName = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractPainLevel(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"out of 10", "The pain is about 7 out of 10 right now.", "7"},
		{"slash 10", "discomfort I'd say 4/10", "4"},
		{"no pain cue", "It is 7 out of 10.", ""},
		{"no scale marker", "The pain is bad, maybe a 7.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.text).PainLevel; got != tt.want {
				t.Errorf("PainLevel = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractClauseBounds(t *testing.T) {
	f := Extract("Currently taking: ibuprofen twice daily. Allergic: none known.")
	if f.Medications != "ibuprofen twice daily" {
		t.Errorf("Medications = %q", f.Medications)
	}
	if f.Allergies != "none known" {
		t.Errorf("Allergies = %q", f.Allergies)
	}
}

func TestExtractFirstMatchWins(t *testing.T) {
	f := Extract("My main concern is back pain. The other problem is insomnia.")
	if f.ChiefComplaint != "is back pain" {
		t.Errorf("ChiefComplaint = %q, want first match", f.ChiefComplaint)
	}
}

func TestExtractSymptomsVocabularyOrder(t *testing.T) {
	// Mentioned out of vocabulary order; output must follow the vocabulary.
	f := Extract("I have swelling around the ankle, plus a fever and some nausea.")
	want := []string{"fever", "nausea", "ankle", "swelling"}
	if !reflect.DeepEqual(f.Symptoms, want) {
		t.Errorf("Symptoms = %v, want %v", f.Symptoms, want)
	}
}

func TestExtractNoCuesYieldsEmptyFacts(t *testing.T) {
	f := Extract("assistant: Thank you for calling. Goodbye.")
	if !f.Empty() {
		t.Errorf("expected empty facts, got %+v", f)
	}
}

func TestExtractDeterministic(t *testing.T) {
	text := "user: My name is Jane Doe. My main concern is chest pain that started yesterday. Pain is 7 out of 10."
	first := Extract(text)
	for i := 0; i < 5; i++ {
		if got := Extract(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("extraction not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestExtractDateOfBirth(t *testing.T) {
	f := Extract("I was born May 3 1985 and live alone.")
	if f.DateOfBirth == "" || !strings.Contains(f.DateOfBirth, "May 3 1985") {
		t.Errorf("DateOfBirth = %q", f.DateOfBirth)
	}
}
