package main

import (
	"context"
	"database/sql"
	"fmt"

	"healthgate/internal/consent/models"
	consentservice "healthgate/internal/consent/service"
	id "healthgate/pkg/domain"
	txcontext "healthgate/pkg/platform/tx"
)

// consentTx wraps the consent service so a grant and its audit entry commit
// in one database transaction. The Postgres stores pick the transaction up
// from context; the in-memory composition uses the service directly.
//
// Only Create is wrapped. Revoke serializes on a row lock inside the store
// and must not run under an outer transaction.
type consentTx struct {
	db  *sql.DB
	svc *consentservice.Service
}

func newConsentTx(db *sql.DB, svc *consentservice.Service) *consentTx {
	return &consentTx{db: db, svc: svc}
}

func (t *consentTx) Create(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID, purpose string, durationDays int) (*models.Consent, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin consent tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	consent, err := t.svc.Create(txcontext.WithTx(ctx, tx), patientID, doctorID, purpose, durationDays)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit consent tx: %w", err)
	}
	return consent, nil
}

func (t *consentTx) Revoke(ctx context.Context, consentID id.ConsentID) (*models.Consent, error) {
	return t.svc.Revoke(ctx, consentID)
}

func (t *consentTx) IsActive(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID) (bool, error) {
	return t.svc.IsActive(ctx, patientID, doctorID)
}

func (t *consentTx) Get(ctx context.Context, consentID id.ConsentID) (*models.Consent, error) {
	return t.svc.Get(ctx, consentID)
}

func (t *consentTx) ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Consent, error) {
	return t.svc.ListByPatient(ctx, patientID)
}
