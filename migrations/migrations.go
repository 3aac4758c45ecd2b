package migrations

import (
	"database/sql"
	"fmt"
)

var db *sql.DB

// Init sets the DB connection used by Migrate and the seed helpers.
func Init(database *sql.DB) {
	db = database
}

// Migrate creates the triage tables if they do not exist.
func Migrate() error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	createDoctors := `
	CREATE TABLE IF NOT EXISTS doctors (
		id INT AUTO_INCREMENT PRIMARY KEY,
		noms VARCHAR(150) NOT NULL,
		specialite VARCHAR(100) NOT NULL,
		description TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createDoctors); err != nil {
		return err
	}

	createPatients := `
	CREATE TABLE IF NOT EXISTS patients (
		id INT AUTO_INCREMENT PRIMARY KEY,
		noms VARCHAR(150) NOT NULL,
		age INT NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createPatients); err != nil {
		return err
	}

	createDiagnostics := `
	CREATE TABLE IF NOT EXISTS diagnostics (
		id VARCHAR(64) PRIMARY KEY,
		patient_id VARCHAR(64) NOT NULL DEFAULT '',
		patient_name VARCHAR(150) NOT NULL DEFAULT '',
		date_label VARCHAR(20) NOT NULL DEFAULT '',
		symptoms MEDIUMTEXT NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'en_attente',
		doctor_id VARCHAR(64) NOT NULL DEFAULT '',
		doctor_name VARCHAR(150) NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_diagnostics_status (status),
		INDEX idx_diagnostics_doctor (doctor_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`
	if _, err := db.Exec(createDiagnostics); err != nil {
		return err
	}
	return nil
}

// SeedDoctors inserts a starter roster when the doctors table is empty, so a
// fresh install can route cases immediately.
func SeedDoctors() error {
	if db == nil {
		return fmt.Errorf("db is not initialized")
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM doctors`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	seed := []struct {
		noms, specialite, description string
	}{
		{"Dr. Mukendi Ilunga", "cardiologue", "Maladies cardiovasculaires et hypertension"},
		{"Dr. Kalala Tshibanda", "dermatologue", "Affections de la peau"},
		{"Dr. Nzuzi Mbemba", "gastro-enterologue", "Appareil digestif"},
		{"Dr. Kabongo Mwamba", "neurologue", "Système nerveux, céphalées et migraines"},
		{"Dr. Tshilombo Kasongo", "pneumologue", "Appareil respiratoire"},
		{"Dr. Mwanza Kabeya", "generaliste", "Médecine générale"},
	}
	for _, d := range seed {
		if _, err := db.Exec(
			`INSERT INTO doctors (noms, specialite, description) VALUES (?,?,?)`,
			d.noms, d.specialite, d.description,
		); err != nil {
			return err
		}
	}
	return nil
}
