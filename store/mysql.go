// Package store is the MySQL implementation of the roster and case stores,
// used when the service owns its database instead of talking to the REST
// collaborator.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"mediguide-backend/matching"
	"mediguide-backend/routing"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store { return &Store{db: db} }

// Roster returns every doctor as a matcher candidate.
func (s *Store) Roster(ctx context.Context) ([]matching.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, noms, specialite FROM doctors ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]matching.Candidate, 0)
	for rows.Next() {
		var id int
		var noms, spec string
		if err := rows.Scan(&id, &noms, &spec); err != nil {
			return nil, err
		}
		out = append(out, matching.Candidate{ID: fmt.Sprint(id), Name: noms, Specialty: spec})
	}
	return out, rows.Err()
}

// Assign creates the case already bound to its doctor. The diagnostics row
// carries the doctor id, so the doctor-side append and the case creation are a
// single transactional insert; this is the atomic append the REST collaborator
// cannot offer.
func (s *Store) Assign(ctx context.Context, doctorID string, cs routing.DiagnosticCase) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM doctors WHERE id=?`, doctorID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("store: doctor %s inconnu", doctorID)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO diagnostics (id, patient_id, patient_name, date_label, symptoms, status, doctor_id, doctor_name, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		cs.ID, cs.PatientID, cs.PatientName, cs.Date, cs.Symptoms, cs.Status, doctorID, cs.DoctorName, cs.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Get fetches one case by id.
func (s *Store) Get(ctx context.Context, id string) (routing.DiagnosticCase, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, patient_id, patient_name, date_label, symptoms, status, doctor_id, doctor_name, created_at
		 FROM diagnostics WHERE id=? LIMIT 1`, id)
	var cs routing.DiagnosticCase
	err := row.Scan(&cs.ID, &cs.PatientID, &cs.PatientName, &cs.Date, &cs.Symptoms, &cs.Status, &cs.DoctorID, &cs.DoctorName, &cs.CreatedAt)
	if err == sql.ErrNoRows {
		return cs, routing.ErrNotFound
	}
	if err != nil {
		return cs, err
	}
	return cs, nil
}

// UpdateStatus sets the status of one case.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE diagnostics SET status=? WHERE id=?`, status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports zero rows for a no-op update too, so distinguish a
		// missing case from an unchanged one.
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM diagnostics WHERE id=?`, id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return routing.ErrNotFound
		}
	}
	return nil
}

// List returns cases, newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, status string) ([]routing.DiagnosticCase, error) {
	q := `SELECT id, patient_id, patient_name, date_label, symptoms, status, doctor_id, doctor_name, created_at
	      FROM diagnostics`
	args := []any{}
	if status != "" {
		q += ` WHERE status=?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]routing.DiagnosticCase, 0)
	for rows.Next() {
		var cs routing.DiagnosticCase
		if err := rows.Scan(&cs.ID, &cs.PatientID, &cs.PatientName, &cs.Date, &cs.Symptoms, &cs.Status, &cs.DoctorID, &cs.DoctorName, &cs.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// NameByID resolves a patient display name.
func (s *Store) NameByID(ctx context.Context, id string) (string, error) {
	var noms string
	err := s.db.QueryRowContext(ctx, `SELECT noms FROM patients WHERE id=? LIMIT 1`, id).Scan(&noms)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("store: patient %s inconnu", id)
	}
	if err != nil {
		return "", err
	}
	return noms, nil
}
