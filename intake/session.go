package intake

import (
	"errors"
	"strings"
	"sync"
	"time"

	"mediguide-backend/questions"
	"mediguide-backend/routing"
	"mediguide-backend/synthesis"
)

// Session status values exposed on the wire.
type Status string

const (
	StatusInProgress        Status = "in_progress"
	StatusAwaitingDiagnosis Status = "awaiting_diagnosis"
	StatusComplete          Status = "complete"
)

var (
	// ErrEmptyAnswer rejects answers that are empty after trimming; the caller
	// re-asks the same question.
	ErrEmptyAnswer = errors.New("intake: réponse vide")
	// ErrSessionComplete rejects answers once the questionnaire is exhausted.
	ErrSessionComplete = errors.New("intake: questionnaire terminé")
	// ErrNotReady rejects a synthesis request before the seventh answer.
	ErrNotReady = errors.New("intake: questionnaire incomplet")
)

// HistoryEntry is one turn of the conversation, kept in submission order.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"` // "question" | "answer" | "diagnostic"
	Content   string    `json:"content"`
}

// Outcome is the result of a successful SubmitAnswer.
type Outcome struct {
	// Question is the next prompt; empty once the record is finalized.
	Question string
	// Step is the step the session now awaits (equals questions.Count when done).
	Step int
	// Finalized is true after the seventh answer; Record then carries the full
	// symptom record and the caller is expected to invoke the synthesizer.
	Finalized bool
	Record    *synthesis.SymptomRecord
}

// Session walks the question bank for a single patient conversation. All state
// transitions go through the session mutex: answer N+1 cannot overtake answer N
// even if the UI misbehaves, and a reset observed mid-flight is total.
type Session struct {
	ID          string
	PatientID   string
	PatientName string

	mu         sync.Mutex
	step       int
	status     Status
	record     synthesis.SymptomRecord
	diagnostic string
	routed     *routing.RoutedCase
	history    []HistoryEntry
	createdAt  time.Time
}

func newSession(id string) *Session {
	s := &Session{ID: id, status: StatusInProgress, createdAt: time.Now()}
	if q, ok := questions.At(0); ok {
		s.history = append(s.history, HistoryEntry{Timestamp: time.Now(), Type: "question", Content: q})
	}
	return s
}

// CurrentQuestion returns the prompt the session is waiting on. ok is false once
// all seven answers are in.
func (s *Session) CurrentQuestion() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return "", false
	}
	return questions.At(s.step)
}

// Step returns the index of the question currently awaited, in [0,7].
func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Status returns the session status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SubmitAnswer stores one answer and advances the questionnaire. The answer is
// trimmed first; an answer that trims to nothing fails with ErrEmptyAnswer and
// does not advance the step. After the seventh answer the record is finalized
// and never mutated again: a new diagnostic requires a reset.
func (s *Session) SubmitAnswer(answer string) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInProgress {
		return Outcome{}, ErrSessionComplete
	}
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return Outcome{}, ErrEmptyAnswer
	}

	applyAnswer(&s.record, s.step, trimmed)
	s.step++
	s.history = append(s.history, HistoryEntry{Timestamp: time.Now(), Type: "answer", Content: trimmed})

	if q, ok := questions.At(s.step); ok {
		s.history = append(s.history, HistoryEntry{Timestamp: time.Now(), Type: "question", Content: q})
		return Outcome{Question: q, Step: s.step}, nil
	}

	s.status = StatusAwaitingDiagnosis
	rec := s.record
	return Outcome{Step: s.step, Finalized: true, Record: &rec}, nil
}

// Record returns a copy of the symptom record accumulated so far.
func (s *Session) Record() synthesis.SymptomRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// AttachDiagnostic stores the synthesized narrative and completes the session.
// Only valid once the record is finalized; a failed synthesis leaves the session
// in awaiting_diagnosis so the call can be retried.
func (s *Session) AttachDiagnostic(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusInProgress {
		return ErrNotReady
	}
	s.diagnostic = text
	s.status = StatusComplete
	s.history = append(s.history, HistoryEntry{Timestamp: time.Now(), Type: "diagnostic", Content: text})
	return nil
}

// Diagnostic returns the attached narrative, empty until synthesis succeeded.
func (s *Session) Diagnostic() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diagnostic
}

// SetRouted stores the committed routing outcome. A questionnaire is routed at
// most once: retries of the diagnostic endpoint serve the stored case instead
// of creating a second one.
func (s *Session) SetRouted(rc *routing.RoutedCase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routed = rc
}

// Routed returns the stored routing outcome, nil until routing succeeded.
func (s *Session) Routed() *routing.RoutedCase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.routed
}

// Reset returns the session to step 0 with an emptied record and history, from
// any state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = 0
	s.status = StatusInProgress
	s.record = synthesis.SymptomRecord{}
	s.diagnostic = ""
	s.routed = nil
	s.history = nil
	if q, ok := questions.At(0); ok {
		s.history = append(s.history, HistoryEntry{Timestamp: time.Now(), Type: "question", Content: q})
	}
}

// History returns a copy of the conversation log.
func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// SetPatient records the patient identity used when the finalized case is
// routed. Empty values leave the current identity untouched.
func (s *Session) SetPatient(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(id) != "" {
		s.PatientID = strings.TrimSpace(id)
	}
	if strings.TrimSpace(name) != "" {
		s.PatientName = strings.TrimSpace(name)
	}
}

// Patient returns the recorded patient identity.
func (s *Session) Patient() (id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PatientID, s.PatientName
}
