package matching

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNoMatch means no doctor of the roster covers the symptoms, generalists
// included. The caller surfaces it to the patient as "no specialist available",
// never as a crash.
var ErrNoMatch = errors.New("matching: aucun spécialiste disponible")

// Candidate is the slice of a roster entry the matcher reads.
type Candidate struct {
	ID        string
	Name      string
	Specialty string
}

// Matcher selects a doctor by comparing symptom text against specialty strings.
// Candidates are ranked by match specificity:
//
//	exact folded-token equality > containment either way > shared stem prefix
//
// and ties within the best rank are broken uniformly at random. Doctors whose
// specialty contains "general" are a separate fallback tier: a roster with a
// true specialist match never routes to the generalist.
type Matcher struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Matcher drawing tie-breaks from the given source. Tests pass a
// seeded source for reproducible picks.
func New(rng *rand.Rand) *Matcher {
	return &Matcher{rng: rng}
}

// stemLen is the minimum shared prefix for the stem rule, long enough that
// "cardiaque" reaches "cardiologue" while "douleur" stays clear of
// "dermatologue".
const stemLen = 5

// minPhraseLen keeps stopwords like "de" or "la" out of the containment rule;
// without it "de" is a substring of "dermatologue".
const minPhraseLen = 4

const (
	rankExact = iota
	rankContains
	rankStem
	rankNone
)

// Match picks a doctor for the given symptom or diagnosis text. The text and
// every specialty are lowercased and stripped of diacritics before comparison,
// so "généraliste" and "generaliste" are the same specialty.
func (m *Matcher) Match(symptomText string, roster []Candidate) (Candidate, error) {
	phrases := candidatePhrases(symptomText)

	best := rankNone
	var matched []Candidate
	var generalists []Candidate

	for _, doc := range roster {
		spec := Fold(doc.Specialty)
		if spec == "" {
			continue
		}
		if strings.Contains(spec, "general") {
			generalists = append(generalists, doc)
		}
		r := rankAgainst(spec, phrases)
		if r == rankNone {
			continue
		}
		if r < best {
			best = r
			matched = matched[:0]
		}
		if r == best {
			matched = append(matched, doc)
		}
	}

	if len(matched) > 0 {
		return m.pick(matched), nil
	}
	if len(generalists) > 0 {
		return m.pick(generalists), nil
	}
	return Candidate{}, ErrNoMatch
}

func (m *Matcher) pick(from []Candidate) Candidate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return from[m.rng.Intn(len(from))]
}

func rankAgainst(foldedSpecialty string, phrases []string) int {
	rank := rankNone
	for _, p := range phrases {
		switch {
		case p == foldedSpecialty:
			return rankExact
		case len(p) < minPhraseLen:
			// too short for substring or stem rules
		case strings.Contains(foldedSpecialty, p) || strings.Contains(p, foldedSpecialty):
			if rankContains < rank {
				rank = rankContains
			}
		case sharesStem(p, foldedSpecialty):
			if rankStem < rank {
				rank = rankStem
			}
		}
	}
	return rank
}

func sharesStem(a, b string) bool {
	if len(a) < stemLen || len(b) < stemLen {
		return false
	}
	return a[:stemLen] == b[:stemLen]
}

// candidatePhrases tokenizes folded symptom text into the set of phrases
// compared against specialties: the comma/period-delimited segments plus every
// single word. Words are split on the delimiters too, so a token adjacent to a
// comma or period still reaches exact-equality rank.
func candidatePhrases(symptomText string) []string {
	folded := Fold(symptomText)
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	isDelim := func(r rune) bool { return r == ',' || r == '.' || r == ';' }
	for _, seg := range strings.FieldsFunc(folded, isDelim) {
		add(seg)
	}
	for _, w := range strings.FieldsFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || isDelim(r)
	}) {
		add(w)
	}
	return out
}

// Fold lowercases and strips diacritics. The transformer chain is built per
// call: transform.Chain values are stateful and not safe for concurrent reuse.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
