package routing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediguide-backend/matching"
)

// DoctorStore reads the roster from the persistence collaborator.
type DoctorStore interface {
	Roster(ctx context.Context) ([]matching.Candidate, error)
}

// CaseStore persists diagnostic cases. Assign must be atomic from the caller's
// perspective: it both appends the case to the selected doctor's record and
// creates the case, and if it errors the match is not committed.
type CaseStore interface {
	Assign(ctx context.Context, doctorID string, cs DiagnosticCase) error
	Get(ctx context.Context, id string) (DiagnosticCase, error)
	UpdateStatus(ctx context.Context, id, status string) error
	List(ctx context.Context, status string) ([]DiagnosticCase, error)
}

// PatientStore resolves display names when a request carries only an id.
type PatientStore interface {
	NameByID(ctx context.Context, id string) (string, error)
}

// Matcher is the subset of matching.Matcher the router needs; declared here so
// tests can inject a double.
type Matcher interface {
	Match(symptomText string, roster []matching.Candidate) (matching.Candidate, error)
}

// Router orchestrates finalized symptom text into an assigned, persisted case
// and owns the doctor-side pending→treated transition.
type Router struct {
	doctors  DoctorStore
	cases    CaseStore
	patients PatientStore
	matcher  Matcher
}

func NewRouter(doctors DoctorStore, cases CaseStore, patients PatientStore, matcher Matcher) *Router {
	return &Router{doctors: doctors, cases: cases, patients: patients, matcher: matcher}
}

// RouteRequest carries the inputs of a routing decision. SymptomText is either
// a synthesized diagnostic narrative or the raw symptoms of the direct path.
type RouteRequest struct {
	PatientID   string
	PatientName string
	SymptomText string
}

// RoutedCase is the committed outcome reported to the patient.
type RoutedCase struct {
	Case   DiagnosticCase `json:"diagnostic"`
	Doctor DoctorRef      `json:"doctor"`
}

// Route matches the symptom text against the roster, creates the pending case
// and persists the assignment. Returns matching.ErrNoMatch when nobody on the
// roster, generalists included, covers the symptoms; ErrPersistenceFailed when
// the collaborator write fails (no doctor is reported in that situation).
func (r *Router) Route(ctx context.Context, req RouteRequest) (*RoutedCase, error) {
	text := strings.TrimSpace(req.SymptomText)
	if text == "" {
		return nil, fmt.Errorf("routing: texte de symptômes vide")
	}

	name := strings.TrimSpace(req.PatientName)
	if name == "" && req.PatientID != "" && r.patients != nil {
		resolved, err := r.patients.NameByID(ctx, req.PatientID)
		if err != nil {
			log.Printf("[Routing][Route] patient name lookup failed for id=%s: %v", req.PatientID, err)
		} else {
			name = resolved
		}
	}

	roster, err := r.doctors.Roster(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	doc, err := r.matcher.Match(text, roster)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cs := DiagnosticCase{
		ID:          uuid.NewString(),
		PatientID:   req.PatientID,
		PatientName: name,
		Date:        dateLabel(now),
		Symptoms:    text,
		Status:      StatusPending,
		DoctorID:    doc.ID,
		DoctorName:  doc.Name,
		CreatedAt:   now,
	}
	if err := r.cases.Assign(ctx, doc.ID, cs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	log.Printf("[Routing][Route] case=%s patient=%s doctor=%s specialty=%s", cs.ID, req.PatientID, doc.ID, doc.Specialty)
	return &RoutedCase{
		Case:   cs,
		Doctor: DoctorRef{ID: doc.ID, Name: doc.Name, Specialty: doc.Specialty},
	}, nil
}

// MarkTreated transitions a pending case to treated, exactly once, by doctor
// action only.
func (r *Router) MarkTreated(ctx context.Context, caseID string) error {
	cs, err := r.cases.Get(ctx, caseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if cs.Status == StatusTreated {
		return ErrAlreadyTreated
	}
	if err := r.cases.UpdateStatus(ctx, caseID, StatusTreated); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	log.Printf("[Routing][MarkTreated] case=%s", caseID)
	return nil
}

// List returns the persisted cases, optionally filtered by status
// ("en_attente" | "traité"; empty means all).
func (r *Router) List(ctx context.Context, status string) ([]DiagnosticCase, error) {
	list, err := r.cases.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return list, nil
}
