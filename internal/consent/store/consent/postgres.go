package consent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"healthgate/internal/consent/models"
	id "healthgate/pkg/domain"
	"healthgate/pkg/platform/sentinel"
	txcontext "healthgate/pkg/platform/tx"
)

// PostgresStore persists consents in the consents table. The
// consents_patient_doctor_key unique constraint is what upholds the
// one-record-per-pair invariant under concurrent creation.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const consentColumns = `id, patient_id, doctor_id, authorization_type, purpose, status, start_date, end_date, created_at, revoked_at`

// CreateIfPairAvailable inserts the consent; the unique constraint on
// (patient_id, doctor_id) turns a concurrent duplicate into ErrConflict.
func (s *PostgresStore) CreateIfPairAvailable(ctx context.Context, c *models.Consent) error {
	query := `
		INSERT INTO consents (` + consentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID),
		uuid.UUID(c.PatientID),
		uuid.UUID(c.DoctorID),
		c.AuthorizationType,
		c.Purpose,
		string(c.Status),
		c.StartDate,
		c.EndDate,
		c.CreatedAt,
		c.RevokedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, consentID id.ConsentID) (*models.Consent, error) {
	query := `SELECT ` + consentColumns + ` FROM consents WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(consentID))
	return scanConsent(row)
}

// ListByPatient returns the patient's consents in creation order.
func (s *PostgresStore) ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Consent, error) {
	query := `
		SELECT ` + consentColumns + `
		FROM consents
		WHERE patient_id = $1
		ORDER BY created_at, id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(patientID))
	if err != nil {
		return nil, fmt.Errorf("query consents by patient: %w", err)
	}
	defer rows.Close()
	return scanConsents(rows)
}

// ListByPair returns all consents for a (patient, doctor) pair in creation order.
func (s *PostgresStore) ListByPair(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID) ([]*models.Consent, error) {
	query := `
		SELECT ` + consentColumns + `
		FROM consents
		WHERE patient_id = $1 AND doctor_id = $2
		ORDER BY created_at, id
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(patientID), uuid.UUID(doctorID))
	if err != nil {
		return nil, fmt.Errorf("query consents by pair: %w", err)
	}
	defer rows.Close()
	return scanConsents(rows)
}

// Execute atomically validates and mutates a consent using SELECT ... FOR
// UPDATE, so concurrent revocations serialize on the row lock.
func (s *PostgresStore) Execute(ctx context.Context, consentID id.ConsentID, validate func(*models.Consent) error, mutate func(*models.Consent)) (*models.Consent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin consent tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + consentColumns + ` FROM consents WHERE id = $1 FOR UPDATE`
	c, err := scanConsent(tx.QueryRowContext(ctx, query, uuid.UUID(consentID)))
	if err != nil {
		return nil, err
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)

	update := `
		UPDATE consents
		SET status = $2, end_date = $3, revoked_at = $4
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, update, uuid.UUID(c.ID), string(c.Status), c.EndDate, c.RevokedAt); err != nil {
		return nil, fmt.Errorf("update consent: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit consent tx: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsent(row rowScanner) (*models.Consent, error) {
	var (
		c         models.Consent
		cID       uuid.UUID
		patientID uuid.UUID
		doctorID  uuid.UUID
		status    string
		revokedAt sql.NullTime
	)
	err := row.Scan(
		&cID,
		&patientID,
		&doctorID,
		&c.AuthorizationType,
		&c.Purpose,
		&status,
		&c.StartDate,
		&c.EndDate,
		&c.CreatedAt,
		&revokedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan consent: %w", err)
	}
	c.ID = id.ConsentID(cID)
	c.PatientID = id.PatientID(patientID)
	c.DoctorID = id.DoctorID(doctorID)
	c.Status = models.ConsentStatus(status)
	if revokedAt.Valid {
		t := revokedAt.Time
		c.RevokedAt = &t
	}
	return &c, nil
}

func scanConsents(rows *sql.Rows) ([]*models.Consent, error) {
	var out []*models.Consent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return out, nil
}

// Schema returns the DDL for the consents table. Integration tests apply it
// directly; deployments manage it through migrations.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS consents (
			id UUID PRIMARY KEY,
			patient_id UUID NOT NULL,
			doctor_id UUID NOT NULL,
			authorization_type TEXT NOT NULL,
			purpose TEXT NOT NULL,
			status TEXT NOT NULL,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			revoked_at TIMESTAMPTZ,
			CONSTRAINT consents_patient_doctor_key UNIQUE (patient_id, doctor_id),
			CONSTRAINT consents_window_check CHECK (start_date <= end_date)
		)
	`
}
