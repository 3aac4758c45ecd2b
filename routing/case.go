package routing

import (
	"errors"
	"time"
)

// Case status values; the wire keeps the platform's French vocabulary.
const (
	StatusPending = "en_attente"
	StatusTreated = "traité"
)

var (
	// ErrNotFound means the case id does not exist.
	ErrNotFound = errors.New("routing: diagnostic introuvable")
	// ErrAlreadyTreated guards the exactly-once pending→treated transition;
	// a second treat call is reported, not silently absorbed, so callers can
	// tell a no-op from a real transition.
	ErrAlreadyTreated = errors.New("routing: diagnostic déjà traité")
	// ErrPersistenceFailed means the collaborator write failed; the case must
	// not be reported as routed.
	ErrPersistenceFailed = errors.New("routing: échec d'enregistrement du diagnostic")
)

// DiagnosticCase is the persisted, routed unit of work for a doctor to triage.
// Symptoms carries either the raw principal complaint (direct path) or the
// synthesized diagnostic narrative (chat path).
type DiagnosticCase struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patientId"`
	PatientName string    `json:"patientName"`
	Date        string    `json:"date"`
	Symptoms    string    `json:"symptoms"`
	Status      string    `json:"status"`
	DoctorID    string    `json:"doctorId,omitempty"`
	DoctorName  string    `json:"doctorName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DoctorRef identifies the selected doctor to the caller.
type DoctorRef struct {
	ID        string `json:"id"`
	Name      string `json:"noms"`
	Specialty string `json:"specialite"`
}

func dateLabel(t time.Time) string {
	return t.Format("02/01/2006")
}
