package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"healthgate/internal/audit/models"
	id "healthgate/pkg/domain"
	"healthgate/pkg/platform/sentinel"
	txcontext "healthgate/pkg/platform/tx"
)

// PostgresStore persists audit entries in the access_logs table.
// A monotonically increasing seq column carries creation order; AccessTime
// alone cannot, since callers may backdate it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

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

const entryColumns = `id, user_id, patient_id, consent_id, action_type, resource_type, resource_id, origin, details, status, access_time`

func (s *PostgresStore) Append(ctx context.Context, e *models.Entry) error {
	query := `
		INSERT INTO access_logs (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	var consentID *uuid.UUID
	if e.ConsentID != nil {
		cid := uuid.UUID(*e.ConsentID)
		consentID = &cid
	}
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.ID),
		uuid.UUID(e.UserID),
		uuid.UUID(e.PatientID),
		consentID,
		string(e.ActionType),
		e.ResourceType,
		e.ResourceID,
		e.Origin,
		e.Details,
		string(e.Status),
		e.AccessTime,
	)
	if err != nil {
		return fmt.Errorf("insert access log: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, entryID id.EntryID) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM access_logs WHERE id = $1`
	return scanEntry(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(entryID)))
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Entry, error) {
	return s.listWhere(ctx, `user_id = $1`, uuid.UUID(userID))
}

func (s *PostgresStore) ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Entry, error) {
	return s.listWhere(ctx, `patient_id = $1`, uuid.UUID(patientID))
}

// ListByResource matches on the structured resource identity, never on
// substrings of Details.
func (s *PostgresStore) ListByResource(ctx context.Context, resourceType, resourceID string) ([]*models.Entry, error) {
	return s.listWhere(ctx, `resource_type = $1 AND resource_id = $2`, resourceType, resourceID)
}

func (s *PostgresStore) ListByActionType(ctx context.Context, action id.ActionType) ([]*models.Entry, error) {
	return s.listWhere(ctx, `action_type = $1`, string(action))
}

// ListByTimeRange returns entries with start <= access_time <= end.
func (s *PostgresStore) ListByTimeRange(ctx context.Context, start, end time.Time) ([]*models.Entry, error) {
	return s.listWhere(ctx, `access_time >= $1 AND access_time <= $2`, start, end)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]*models.Entry, error) {
	return s.listWhere(ctx, `TRUE`)
}

func (s *PostgresStore) listWhere(ctx context.Context, where string, args ...any) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM access_logs WHERE ` + where + ` ORDER BY seq`
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query access logs: %w", err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access logs: %w", err)
	}
	return out, nil
}

// UpdateStatus is the one permitted post-write mutation.
func (s *PostgresStore) UpdateStatus(ctx context.Context, entryID id.EntryID, status id.EntryStatus) (*models.Entry, error) {
	query := `
		UPDATE access_logs SET status = $2 WHERE id = $1
		RETURNING ` + entryColumns + `
	`
	return scanEntry(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(entryID), string(status)))
}

// Delete removes an entry. Administrative purge only.
func (s *PostgresStore) Delete(ctx context.Context, entryID id.EntryID) error {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM access_logs WHERE id = $1`, uuid.UUID(entryID))
	if err != nil {
		return fmt.Errorf("delete access log: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete access log: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		e         models.Entry
		eID       uuid.UUID
		userID    uuid.UUID
		patientID uuid.UUID
		consentID *uuid.UUID
		action    string
		status    string
	)
	err := row.Scan(
		&eID,
		&userID,
		&patientID,
		&consentID,
		&action,
		&e.ResourceType,
		&e.ResourceID,
		&e.Origin,
		&e.Details,
		&status,
		&e.AccessTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan access log: %w", err)
	}
	e.ID = id.EntryID(eID)
	e.UserID = id.UserID(userID)
	e.PatientID = id.PatientID(patientID)
	if consentID != nil {
		cid := id.ConsentID(*consentID)
		e.ConsentID = &cid
	}
	e.ActionType = id.ActionType(action)
	e.Status = id.EntryStatus(status)
	return &e, nil
}

// Schema returns the DDL for the access_logs table. Integration tests apply
// it directly; deployments manage it through migrations.
func Schema() string {
	return `
		CREATE TABLE IF NOT EXISTS access_logs (
			seq BIGSERIAL,
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			patient_id UUID NOT NULL,
			consent_id UUID,
			action_type TEXT NOT NULL,
			resource_type TEXT NOT NULL,
			resource_id TEXT NOT NULL DEFAULT '',
			origin TEXT NOT NULL DEFAULT '',
			details TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			access_time TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS access_logs_user_idx ON access_logs (user_id);
		CREATE INDEX IF NOT EXISTS access_logs_patient_idx ON access_logs (patient_id);
		CREATE INDEX IF NOT EXISTS access_logs_resource_idx ON access_logs (resource_type, resource_id);
		CREATE INDEX IF NOT EXISTS access_logs_time_idx ON access_logs (access_time)
	`
}
