package synthesis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrSynthesisFailed wraps any backend failure or timeout of the generation
// call. The intake session stays in awaiting_diagnosis and the call may be
// retried.
var ErrSynthesisFailed = errors.New("synthesis: échec de la génération du diagnostic")

// TextGenerator abstracts the generation backend for easier mocking in unit
// tests. Only the two calls the synthesizer needs are listed.
type TextGenerator interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Stream(ctx context.Context, system, user string) (<-chan string, error)
}

// Source is one reference snippet kept after keyword filtering.
type Source struct {
	URL       string
	Relevance int
	Content   string
}

// Synthesizer turns a finalized symptom record into the marker-delimited
// diagnostic narrative. Reference sources are fetched best effort: a dead
// source never fails the synthesis, it is just absent from the prompt.
type Synthesizer struct {
	gen     TextGenerator
	http    *http.Client
	sources []string
	timeout time.Duration
}

// New builds a Synthesizer around the given generator. MEDIGUIDE_SOURCES is a
// comma-separated list of reference URLs (empty disables retrieval);
// SYNTHESIS_TIMEOUT_SEC bounds the generation call, 30s by default.
func New(gen TextGenerator) *Synthesizer {
	var urls []string
	for _, u := range strings.Split(os.Getenv("MEDIGUIDE_SOURCES"), ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	timeout := 30
	if v := os.Getenv("SYNTHESIS_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = n
		}
	}
	return &Synthesizer{
		gen:     gen,
		http:    &http.Client{Timeout: 10 * time.Second},
		sources: urls,
		timeout: time.Duration(timeout) * time.Second,
	}
}

// Synthesize generates the diagnostic narrative for a finalized record.
func (s *Synthesizer) Synthesize(ctx context.Context, rec SymptomRecord) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	refs := s.fetchSources(ctx, rec.Keywords())
	out, err := s.gen.Complete(ctx, systemPrompt, buildPrompt(rec, refs))
	if err != nil {
		log.Printf("[Synthesis][Complete] generation failed: %v", err)
		return "", fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: réponse vide", ErrSynthesisFailed)
	}
	return out, nil
}

// Stream generates the narrative as a token channel, for the SSE path. The
// returned channel carries exactly what Synthesize would have returned, split
// into model tokens, and is bounded by the same timeout: past the deadline the
// backend stream is cancelled and the channel closes.
func (s *Synthesizer) Stream(ctx context.Context, rec SymptomRecord) (<-chan string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	refs := s.fetchSources(ctx, rec.Keywords())
	ch, err := s.gen.Stream(ctx, systemPrompt, buildPrompt(rec, refs))
	if err != nil {
		cancel()
		log.Printf("[Synthesis][Stream] generation failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	out := make(chan string)
	go func() {
		defer cancel()
		defer close(out)
		for tok := range ch {
			out <- tok
		}
	}()
	return out, nil
}

// fetchSources downloads the configured reference pages, keeps those containing
// at least one symptom keyword and ranks them by total occurrence count,
// descending, ties kept in fetch order.
func (s *Synthesizer) fetchSources(ctx context.Context, symptoms string) []Source {
	if len(s.sources) == 0 || strings.TrimSpace(symptoms) == "" {
		return nil
	}
	var found []Source
	for _, u := range s.sources {
		content, err := s.fetch(ctx, u)
		if err != nil {
			log.Printf("[Synthesis][Sources] fetch %s: %v", u, err)
			continue
		}
		if !ContainsKeyword(content, symptoms) {
			continue
		}
		found = append(found, Source{URL: u, Relevance: Relevance(content, symptoms), Content: content})
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Relevance > found[j].Relevance })
	return found
}

func (s *Synthesizer) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256<<10))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ContainsKeyword reports whether any symptom keyword appears in content,
// case-insensitive substring containment.
func ContainsKeyword(content, symptoms string) bool {
	c := strings.ToLower(content)
	for _, kw := range strings.Fields(strings.ToLower(symptoms)) {
		if strings.Contains(c, kw) {
			return true
		}
	}
	return false
}

// Relevance scores content by counting every occurrence of every symptom
// keyword.
func Relevance(content, symptoms string) int {
	c := strings.ToLower(content)
	score := 0
	for _, kw := range strings.Fields(strings.ToLower(symptoms)) {
		score += strings.Count(c, kw)
	}
	return score
}

const systemPrompt = `Tu es un assistant médical virtuel professionnel.
Après avoir recueilli 7 informations clés auprès du patient, tu dois :
1. Synthétiser les informations
2. Proposer un diagnostic différentiel
3. Recommander des actions appropriées
4. Préciser quand consulter un médecin
5. Recommander les spécialités médicales pertinentes selon le diagnostic

Structure impérativement ta réponse avec ces quatre sections, chacune introduite
par son marqueur exact :
**SYNTHÈSE DES SYMPTÔMES**
**DIAGNOSTIC PRÉLIMINAIRE**
**RECOMMANDATIONS**
**CONSEILS PRATIQUES**

Sois empathique et factuel. Utilise des termes médicaux précis mais expliqués.`

func buildPrompt(rec SymptomRecord, refs []Source) string {
	var b strings.Builder
	b.WriteString("Sur la base des informations suivantes:\n")
	fmt.Fprintf(&b, "- Symptôme principal: %s\n", rec.Principal)
	fmt.Fprintf(&b, "- Durée: %s\n", rec.Duree)
	fmt.Fprintf(&b, "- Intensité: %s/10\n", rec.Intensite)
	fmt.Fprintf(&b, "- Symptômes associés: %s\n", strings.Join(rec.SymptomesAssocies, ", "))
	fmt.Fprintf(&b, "- Antécédents: %s\n", rec.Antecedents)
	fmt.Fprintf(&b, "- Médicaments: %s\n", rec.Medicaments)
	fmt.Fprintf(&b, "- Allergies: %s\n", rec.Allergies)

	if len(refs) > 0 {
		b.WriteString("\nInformations supplémentaires des sources médicales:\n")
		for _, src := range refs {
			excerpt := src.Content
			if r := []rune(excerpt); len(r) > 500 {
				excerpt = string(r[:500]) + "..."
			}
			fmt.Fprintf(&b, "Source: %s\n%s\n", src.URL, excerpt)
		}
	}

	b.WriteString(`
Fournis:
1. Un diagnostic différentiel en 3 points maximum
2. Des recommandations adaptées
3. Le degré d'urgence (consultation immédiate/sous 48h/surveillance)
4. Des conseils pour le soulagement des symptômes`)
	return b.String()
}
