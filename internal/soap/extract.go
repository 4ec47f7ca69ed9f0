// Package soap derives a SOAP (Subjective/Objective/Assessment/Plan) note
// from a phone-intake conversation transcript. Extraction is rule-based:
// ordered regular-expression cues, first match wins, no semantic analysis.
package soap

import (
	"regexp"
	"strings"
)

// Facts holds the discrete pieces of clinical information recognized in a
// conversation. A zero-value field means the corresponding cue was absent.
type Facts struct {
	PatientName    string
	ChiefComplaint string
	Duration       string
	PainLevel      string // digits only, e.g. "7"
	Medications    string
	Allergies      string
	DateOfBirth    string
	Symptoms       []string
}

// Empty reports whether no fact was recognized at all.
func (f Facts) Empty() bool {
	return f.PatientName == "" &&
		f.ChiefComplaint == "" &&
		f.Duration == "" &&
		f.PainLevel == "" &&
		f.Medications == "" &&
		f.Allergies == "" &&
		f.DateOfBirth == "" &&
		len(f.Symptoms) == 0
}

// Clause captures stop at the first sentence terminator, comma, or line
// break after the cue.
var (
	namePattern       = regexp.MustCompile(`(?i)(?:my name is|i am|i'm)\s+([a-zA-Z ]+?)\s*(?:\.|,|\n|$)`)
	complaintPattern  = regexp.MustCompile(`(?i)(?:brings you in|main concern|problem|issue|experiencing|feeling|symptoms?)[\s:]+([^.?,\n]+)`)
	durationPattern   = regexp.MustCompile(`(?i)(?:started|began|how long|since when|duration)[\s:]+([^.?,\n]+)`)
	painPattern       = regexp.MustCompile(`(?i)(?:pain|discomfort).*?(\d+)\s*(?:out of 10|/10)`)
	medicationPattern = regexp.MustCompile(`(?i)(?:medications?|taking|prescribed)[\s:]+([^.?,\n]+)`)
	allergyPattern    = regexp.MustCompile(`(?i)(?:allergies?|allergic)[\s:]+([^.?,\n]+)`)
	dobPattern        = regexp.MustCompile(`(?i)(?:born|birth|dob)[\s:]+([^.?,\n]+)`)
)

// symptomVocabulary is the fixed keyword set checked for associated symptoms.
// Output order follows this list, not order of appearance in the text.
var symptomVocabulary = []string{
	"fever", "cough", "headache", "nausea", "vomiting",
	"dizziness", "fatigue", "chills", "sweating", "ankle", "swelling",
}

// Extract applies every pattern rule independently to the conversation text
// and returns the recognized facts. Rules never consume each other's text;
// for each rule the leftmost match wins. A missing cue yields an absent
// fact, never an error.
func Extract(conversation string) Facts {
	var f Facts

	if m := namePattern.FindStringSubmatch(conversation); m != nil {
		f.PatientName = strings.TrimSpace(m[1])
	}
	if m := complaintPattern.FindStringSubmatch(conversation); m != nil {
		f.ChiefComplaint = strings.TrimSpace(m[1])
	}
	if m := durationPattern.FindStringSubmatch(conversation); m != nil {
		f.Duration = strings.TrimSpace(m[1])
	}
	if m := painPattern.FindStringSubmatch(conversation); m != nil {
		f.PainLevel = m[1]
	}
	if m := medicationPattern.FindStringSubmatch(conversation); m != nil {
		f.Medications = strings.TrimSpace(m[1])
	}
	if m := allergyPattern.FindStringSubmatch(conversation); m != nil {
		f.Allergies = strings.TrimSpace(m[1])
	}
	if m := dobPattern.FindStringSubmatch(conversation); m != nil {
		f.DateOfBirth = strings.TrimSpace(m[1])
	}

	lower := strings.ToLower(conversation)
	for _, symptom := range symptomVocabulary {
		if strings.Contains(lower, symptom) {
			f.Symptoms = append(f.Symptoms, symptom)
		}
	}

	return f
}
