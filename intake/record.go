package intake

import (
	"strings"

	"mediguide-backend/synthesis"
)

// applyAnswer stores a trimmed answer into the record field mapped by the step
// index. Step 3 is the comma-separated associated-symptoms list; every other
// step keeps the raw trimmed text.
func applyAnswer(r *synthesis.SymptomRecord, step int, answer string) {
	switch step {
	case 0:
		r.Principal = answer
	case 1:
		r.Duree = answer
	case 2:
		r.Intensite = answer
	case 3:
		r.SymptomesAssocies = splitSymptoms(answer)
	case 4:
		r.Antecedents = answer
	case 5:
		r.Medicaments = answer
	case 6:
		r.Allergies = answer
	}
}

func splitSymptoms(answer string) []string {
	parts := strings.Split(answer, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
