package questions

// Ordered intake questionnaire. The seven prompts are fixed: the chat flow walks
// them in order and the answer of each one maps to a single field of the symptom
// record, so indexes here must stay aligned with intake.Session.
var bank = []string{
	"Quel est votre symptôme principal ? (ex: maux de tête, douleur abdominale...)",
	"Depuis combien de temps ressentez-vous ce symptôme ?",
	"Sur une échelle de 1 à 10, quelle est l'intensité de votre symptôme ?",
	"Quels autres symptômes associez-vous à ce problème ? (liste séparée par des virgules)",
	"Avez-vous des antécédents médicaux pertinents ?",
	"Prenez-vous actuellement des médicaments ? Lesquels ?",
	"Avez-vous des allergies connues ?",
}

// Count is the number of questions in the intake questionnaire.
const Count = 7

// At returns the prompt for the given step. ok is false once the questionnaire
// is exhausted (step >= Count) or for a negative step; callers treat that as the
// completion sentinel.
func At(step int) (string, bool) {
	if step < 0 || step >= len(bank) {
		return "", false
	}
	return bank[step], true
}

// All returns a copy of the full prompt list, in order.
func All() []string {
	out := make([]string, len(bank))
	copy(out, bank)
	return out
}
