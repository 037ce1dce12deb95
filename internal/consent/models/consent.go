package models

import (
	"time"

	id "healthgate/pkg/domain"
	dErrors "healthgate/pkg/domain-errors"
)

// ConsentStatus is the stored lifecycle state of a consent record.
// EXPIRED is never stored; expiry is derived from the time window.
type ConsentStatus string

const (
	ConsentStatusActive  ConsentStatus = "ACTIVE"
	ConsentStatusRevoked ConsentStatus = "REVOKED"
)

// AuthorizationTypeConsent is the conventional authorization type for
// patient-granted consents. The field is an open tag: other clinical
// authorization kinds may appear without code changes.
const AuthorizationTypeConsent = "CONSENT"

// DefaultPurpose is applied when the caller grants consent without stating
// a purpose.
const DefaultPurpose = "General Medical Records Access"

// Consent is a time-bounded grant permitting a specific doctor to access a
// specific patient's data for a stated purpose.
//
// Invariants:
//   - StartDate < EndDate at creation
//   - Status transitions ACTIVE → REVOKED only; never reactivated
//   - At most one record exists per (patient, doctor) pair; enforced by the
//     store at creation time, not by background compaction
//   - Records are never physically deleted; revocation truncates the window
type Consent struct {
	ID                id.ConsentID  `json:"id"`
	PatientID         id.PatientID  `json:"patient_id"`
	DoctorID          id.DoctorID   `json:"doctor_id"`
	AuthorizationType string        `json:"authorization_type"`
	Purpose           string        `json:"purpose"`
	Status            ConsentStatus `json:"status"`
	StartDate         time.Time     `json:"start_date"`
	EndDate           time.Time     `json:"end_date"`
	CreatedAt         time.Time     `json:"created_at"`
	RevokedAt         *time.Time    `json:"revoked_at,omitempty"`
}

// NewConsent constructs an ACTIVE consent starting now and ending after the
// given duration.
func NewConsent(consentID id.ConsentID, patientID id.PatientID, doctorID id.DoctorID, purpose string, duration time.Duration, now time.Time) (*Consent, error) {
	if patientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent requires a patient")
	}
	if doctorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent requires a doctor")
	}
	if duration <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent end date must be after start date")
	}
	if purpose == "" {
		purpose = DefaultPurpose
	}
	return &Consent{
		ID:                consentID,
		PatientID:         patientID,
		DoctorID:          doctorID,
		AuthorizationType: AuthorizationTypeConsent,
		Purpose:           purpose,
		Status:            ConsentStatusActive,
		StartDate:         now,
		EndDate:           now.Add(duration),
		CreatedAt:         now,
	}, nil
}

// IsActiveAt reports whether the consent grants access at instant t.
//
// The window is half-open: StartDate is inclusive, EndDate is exclusive.
// Every window check in the system goes through this method so the boundary
// convention cannot drift between call sites.
func (c *Consent) IsActiveAt(t time.Time) bool {
	if c.Status != ConsentStatusActive {
		return false
	}
	return !t.Before(c.StartDate) && t.Before(c.EndDate)
}

// CanRevoke checks whether the consent can transition to REVOKED.
// A second revoke is rejected rather than silently re-timestamping EndDate:
// moving the cutoff after the fact would falsify the audit trail.
func (c *Consent) CanRevoke() error {
	if c.Status == ConsentStatusRevoked {
		return dErrors.New(dErrors.CodeInvariantViolation, "consent is already revoked")
	}
	return nil
}

// ApplyRevocation transitions the consent to REVOKED, truncating the grant
// at the revocation instant. Call CanRevoke first to validate the transition.
func (c *Consent) ApplyRevocation(now time.Time) {
	c.Status = ConsentStatusRevoked
	c.EndDate = now
	c.RevokedAt = &now
}

// Revoke validates and applies revocation in one call.
// Prefer CanRevoke + ApplyRevocation for Execute callback usage.
func (c *Consent) Revoke(now time.Time) error {
	if err := c.CanRevoke(); err != nil {
		return err
	}
	c.ApplyRevocation(now)
	return nil
}
