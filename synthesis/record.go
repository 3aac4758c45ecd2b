package synthesis

import "strings"

// SymptomRecord is the synthesizer's input: the answers of the seven intake
// questions. Field names follow the wire vocabulary of the rest of the
// platform (French), one field per question, in questionnaire order.
type SymptomRecord struct {
	Principal         string   `json:"principal"`
	Duree             string   `json:"duree"`
	Intensite         string   `json:"intensite"`
	SymptomesAssocies []string `json:"symptomes_associes"`
	Antecedents       string   `json:"antecedents"`
	Medicaments       string   `json:"medicaments"`
	Allergies         string   `json:"allergies"`
}

// Keywords returns the free-text terms used for reference-source filtering:
// the principal symptom plus every associated symptom.
func (r SymptomRecord) Keywords() string {
	terms := append([]string{r.Principal}, r.SymptomesAssocies...)
	return strings.Join(terms, " ")
}
