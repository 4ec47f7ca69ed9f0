package soap

import "strings"

// Note is a composed SOAP note. All four sections are always non-empty:
// sections with nothing extracted carry fixed boilerplate text.
type Note struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

const (
	subjectiveFallback = "Patient intake information recorded via phone assessment."

	objectiveBoilerplate = "Phone assessment - vital signs and physical examination pending in-person evaluation.\n" +
		"Patient alert and oriented based on phone conversation.\n" +
		"Speech clear and coherent."

	assessmentFallback = "Assessment pending physical examination and review of symptoms."

	planBoilerplate = "Patient scheduled for in-person evaluation.\n" +
		"Will obtain vital signs and perform physical examination.\n" +
		"Consider diagnostic testing based on examination findings.\n" +
		"Patient advised to proceed to emergency department if symptoms worsen."
)

// differentials maps symptom-cluster triggers to assessment lines. Checked
// in this fixed order; every trigger present in the text contributes its
// line.
var differentials = []struct {
	keywords []string
	line     string
}{
	{[]string{"chest pain"}, "Differential includes: cardiac etiology, GERD, musculoskeletal pain, anxiety"},
	{[]string{"headache"}, "Differential includes: tension headache, migraine, sinusitis"},
	{[]string{"cough", "fever"}, "Differential includes: upper respiratory infection, influenza, COVID-19"},
	{[]string{"ankle", "swelling"}, "Differential includes: ankle sprain, tendinitis, fracture (requires imaging), venous insufficiency"},
}

// Compose builds the four SOAP sections from extracted facts and the raw
// conversation text. Pure: the same input always produces the same note.
func Compose(f Facts, conversation string) Note {
	return Note{
		Subjective: composeSubjective(f),
		Objective:  objectiveBoilerplate,
		Assessment: composeAssessment(conversation),
		Plan:       planBoilerplate,
	}
}

// composeSubjective joins the present facts in fixed priority order.
func composeSubjective(f Facts) string {
	var items []string
	if f.PatientName != "" {
		items = append(items, "Patient Name: "+f.PatientName)
	}
	if f.ChiefComplaint != "" {
		items = append(items, "Chief Complaint: "+f.ChiefComplaint)
	}
	if f.Duration != "" {
		items = append(items, "Duration: "+f.Duration)
	}
	if f.PainLevel != "" {
		items = append(items, "Pain Level: "+f.PainLevel+"/10")
	}
	if f.Medications != "" {
		items = append(items, "Current Medications: "+f.Medications)
	}
	if f.Allergies != "" {
		items = append(items, "Allergies: "+f.Allergies)
	}
	if len(f.Symptoms) > 0 {
		items = append(items, "Associated Symptoms: "+strings.Join(f.Symptoms, ", "))
	}
	if f.DateOfBirth != "" {
		items = append(items, "Date of Birth: "+f.DateOfBirth)
	}

	if len(items) == 0 {
		return subjectiveFallback
	}
	return strings.Join(items, "\n")
}

func composeAssessment(conversation string) string {
	lower := strings.ToLower(conversation)

	var lines []string
	for _, d := range differentials {
		for _, kw := range d.keywords {
			if strings.Contains(lower, kw) {
				lines = append(lines, d.line)
				break
			}
		}
	}

	if len(lines) == 0 {
		return assessmentFallback
	}
	return strings.Join(lines, "\n")
}
