package synthesis

import "strings"

// The diagnostic narrative is a textual contract, not parsed structure: the raw
// string stays the source of truth and display segments are extracted on read
// by marker-delimited substring, tolerating the absence of any marker.
const (
	MarkerSynthese        = "**SYNTHÈSE DES SYMPTÔMES**"
	MarkerDiagnostic      = "**DIAGNOSTIC PRÉLIMINAIRE**"
	MarkerRecommandations = "**RECOMMANDATIONS**"
	MarkerConseils        = "**CONSEILS PRATIQUES**"
)

// Section returns the text between marker and the next "**" heading, trimmed.
// When marker is absent it returns the empty string.
func Section(text, marker string) string {
	_, after, found := strings.Cut(text, marker)
	if !found {
		return ""
	}
	if idx := strings.Index(after, "**"); idx >= 0 {
		after = after[:idx]
	}
	return strings.TrimSpace(after)
}

// Sections splits a narrative into its four display segments. A missing
// synthesis marker falls back to the whole narrative so the patient-facing
// summary is never empty.
type Sections struct {
	Synthese        string `json:"synthese"`
	Diagnostic      string `json:"diagnostic"`
	Recommandations string `json:"recommandations"`
	Conseils        string `json:"conseils"`
}

func Split(text string) Sections {
	s := Sections{
		Synthese:        Section(text, MarkerSynthese),
		Diagnostic:      Section(text, MarkerDiagnostic),
		Recommandations: Section(text, MarkerRecommandations),
		Conseils:        Section(text, MarkerConseils),
	}
	if s.Synthese == "" {
		s.Synthese = strings.TrimSpace(text)
	}
	return s
}
