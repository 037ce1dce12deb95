package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "healthgate/pkg/domain"
	"healthgate/pkg/platform/sentinel"
)

// Postgres reads identity entities from the patients, doctors, and users
// tables. The engine never mutates these; writes belong to the (external)
// registration service.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindPatient(ctx context.Context, patientID id.PatientID) (*Patient, error) {
	query := `SELECT id, first_name, last_name, created_at FROM patients WHERE id = $1`
	var (
		p   Patient
		pid uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(patientID)).
		Scan(&pid, &p.FirstName, &p.LastName, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query patient: %w", err)
	}
	p.ID = id.PatientID(pid)
	return &p, nil
}

func (s *Postgres) FindDoctor(ctx context.Context, doctorID id.DoctorID) (*Doctor, error) {
	query := `SELECT id, first_name, last_name, specialization, created_at FROM doctors WHERE id = $1`
	var (
		d   Doctor
		did uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(doctorID)).
		Scan(&did, &d.FirstName, &d.LastName, &d.Specialization, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query doctor: %w", err)
	}
	d.ID = id.DoctorID(did)
	return &d, nil
}

func (s *Postgres) FindUser(ctx context.Context, userID id.UserID) (*User, error) {
	query := `SELECT id, username, role, created_at FROM users WHERE id = $1`
	var (
		u    User
		uid  uuid.UUID
		role string
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(userID)).
		Scan(&uid, &u.Username, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.ID = id.UserID(uid)
	u.Role = id.Role(role)
	return &u, nil
}

// Schema returns the DDL for the directory tables. Integration tests apply
// it directly; deployments manage it through migrations.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS patients (
			id UUID PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS doctors (
			id UUID PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			specialization TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
}
