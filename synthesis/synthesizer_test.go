package synthesis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeGenerator struct {
	out        string
	err        error
	tokens     []string
	lastUser   string
	lastSystem string
	block      bool // honour ctx cancellation instead of answering
}

func (g *fakeGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	g.lastSystem, g.lastUser = system, user
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.out, g.err
}

func (g *fakeGenerator) Stream(ctx context.Context, system, user string) (<-chan string, error) {
	g.lastSystem, g.lastUser = system, user
	if g.err != nil {
		return nil, g.err
	}
	ch := make(chan string)
	go func() {
		defer close(ch)
		if g.block {
			<-ctx.Done()
			return
		}
		for _, tok := range g.tokens {
			ch <- tok
		}
	}()
	return ch, nil
}

var testRecord = SymptomRecord{
	Principal:         "fièvre",
	Duree:             "3 jours",
	Intensite:         "7",
	SymptomesAssocies: []string{"toux", "fatigue"},
	Antecedents:       "aucun",
	Medicaments:       "aucun",
	Allergies:         "aucune",
}

func TestSynthesizePromptCarriesRecord(t *testing.T) {
	gen := &fakeGenerator{out: "**SYNTHÈSE DES SYMPTÔMES**\nok"}
	s := New(gen)

	out, err := s.Synthesize(context.Background(), testRecord)
	if err != nil {
		t.Fatal(err)
	}
	if out != gen.out {
		t.Errorf("output = %q", out)
	}
	for _, want := range []string{"fièvre", "3 jours", "7/10", "toux, fatigue", "aucune"} {
		if !strings.Contains(gen.lastUser, want) {
			t.Errorf("prompt missing %q:\n%s", want, gen.lastUser)
		}
	}
	if !strings.Contains(gen.lastSystem, MarkerSynthese) {
		t.Error("system prompt must demand the section markers")
	}
}

func TestSynthesizeWrapsBackendError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota dépassé")}
	s := New(gen)
	if _, err := s.Synthesize(context.Background(), testRecord); !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
}

func TestSynthesizeRejectsEmptyOutput(t *testing.T) {
	gen := &fakeGenerator{out: "   \n"}
	s := New(gen)
	if _, err := s.Synthesize(context.Background(), testRecord); !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
}

func TestSynthesizeTimeout(t *testing.T) {
	gen := &fakeGenerator{block: true}
	s := New(gen)
	s.timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := s.Synthesize(context.Background(), testRecord)
	if !errors.Is(err, ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout not enforced")
	}
}

func TestStreamForwardsTokens(t *testing.T) {
	gen := &fakeGenerator{tokens: []string{"a", "b"}}
	s := New(gen)
	ch, err := s.Stream(context.Background(), testRecord)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for tok := range ch {
		got = append(got, tok)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("tokens = %v", got)
	}
}

func TestStreamBoundedByTimeout(t *testing.T) {
	gen := &fakeGenerator{block: true}
	s := New(gen)
	s.timeout = 50 * time.Millisecond

	ch, err := s.Stream(context.Background(), testRecord)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case tok, ok := <-ch:
		if ok {
			t.Fatalf("unexpected token %q from a stalled backend", tok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stalled stream not cancelled by the timeout")
	}
}

func TestFetchSourcesFiltersAndRanks(t *testing.T) {
	weak := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("la fièvre est un symptôme courant"))
	}))
	defer weak.Close()
	strong := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fièvre, toux: la toux accompagne souvent la fièvre"))
	}))
	defer strong.Close()
	offTopic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("entretien du jardin en automne"))
	}))
	defer offTopic.Close()

	s := New(&fakeGenerator{})
	s.sources = []string{weak.URL, strong.URL, offTopic.URL}

	refs := s.fetchSources(context.Background(), "fièvre toux")
	if len(refs) != 2 {
		t.Fatalf("sources kept = %d", len(refs))
	}
	if refs[0].URL != strong.URL {
		t.Errorf("best source = %s (relevance %d)", refs[0].URL, refs[0].Relevance)
	}
	if refs[0].Relevance <= refs[1].Relevance {
		t.Errorf("ranking not descending: %d then %d", refs[0].Relevance, refs[1].Relevance)
	}
}

func TestFetchSourcesSurvivesDeadSource(t *testing.T) {
	alive := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fièvre"))
	}))
	defer alive.Close()
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer dead.Close()

	s := New(&fakeGenerator{})
	s.sources = []string{dead.URL, alive.URL, "http://127.0.0.1:1/closed"}

	refs := s.fetchSources(context.Background(), "fièvre")
	if len(refs) != 1 || refs[0].URL != alive.URL {
		t.Errorf("sources = %+v", refs)
	}
}

func TestContainsKeywordAndRelevance(t *testing.T) {
	content := "Fièvre et toux. La toux persiste."
	if !ContainsKeyword(content, "toux") {
		t.Error("keyword not found")
	}
	if ContainsKeyword(content, "vertige") {
		t.Error("false positive")
	}
	if got := Relevance(content, "fièvre toux"); got != 3 {
		t.Errorf("relevance = %d", got)
	}
}
