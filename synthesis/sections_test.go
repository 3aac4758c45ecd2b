package synthesis

import "testing"

const fullNarrative = `**SYNTHÈSE DES SYMPTÔMES**
Fièvre depuis 3 jours, accompagnée de toux et de fatigue.

**DIAGNOSTIC PRÉLIMINAIRE**
Syndrome grippal probable.

**RECOMMANDATIONS**
Consultation sous 48h si la fièvre persiste.

**CONSEILS PRATIQUES**
Repos et hydratation.`

func TestSplitFullNarrative(t *testing.T) {
	s := Split(fullNarrative)
	if s.Synthese != "Fièvre depuis 3 jours, accompagnée de toux et de fatigue." {
		t.Errorf("synthese = %q", s.Synthese)
	}
	if s.Diagnostic != "Syndrome grippal probable." {
		t.Errorf("diagnostic = %q", s.Diagnostic)
	}
	if s.Recommandations != "Consultation sous 48h si la fièvre persiste." {
		t.Errorf("recommandations = %q", s.Recommandations)
	}
	if s.Conseils != "Repos et hydratation." {
		t.Errorf("conseils = %q", s.Conseils)
	}
}

func TestSplitWithoutMarkersFallsBack(t *testing.T) {
	s := Split("  Un texte libre sans sections.  ")
	if s.Synthese != "Un texte libre sans sections." {
		t.Errorf("synthese = %q", s.Synthese)
	}
	if s.Diagnostic != "" || s.Recommandations != "" || s.Conseils != "" {
		t.Errorf("other sections must stay empty: %+v", s)
	}
}

func TestSplitPartialMarkers(t *testing.T) {
	s := Split("**DIAGNOSTIC PRÉLIMINAIRE**\nGrippe.")
	if s.Diagnostic != "Grippe." {
		t.Errorf("diagnostic = %q", s.Diagnostic)
	}
	// no synthesis marker: the whole narrative becomes the summary
	if s.Synthese != "**DIAGNOSTIC PRÉLIMINAIRE**\nGrippe." {
		t.Errorf("synthese fallback = %q", s.Synthese)
	}
}

func TestSectionStopsAtNextHeading(t *testing.T) {
	text := "**RECOMMANDATIONS**\nRepos.\n**CONSEILS PRATIQUES**\nEau."
	if got := Section(text, MarkerRecommandations); got != "Repos." {
		t.Errorf("section = %q", got)
	}
	if got := Section(text, MarkerSynthese); got != "" {
		t.Errorf("absent marker must yield empty, got %q", got)
	}
}
