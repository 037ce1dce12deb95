package domain

import (
	"github.com/google/uuid"

	dErrors "healthgate/pkg/domain-errors"
)

// Typed identifiers for the core entities. Distinct types stop a doctor ID
// from being passed where a patient ID is expected; the compiler enforces
// what a bare uuid.UUID cannot.
//
// Usage: construct via the Parse* functions at trust boundaries to enforce
// the non-nil invariant; direct casting bypasses validation.
type (
	// PatientID identifies the patient whose data is being guarded.
	PatientID uuid.UUID

	// DoctorID identifies the grantee of a consent.
	DoctorID uuid.UUID

	// UserID identifies the actor making a request.
	UserID uuid.UUID

	// ConsentID identifies an authorization/consent record.
	ConsentID uuid.UUID

	// EntryID identifies an audit log entry.
	EntryID uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be the nil uuid")
	}
	return u, nil
}

// ParsePatientID constructs a PatientID from external input.
func ParsePatientID(s string) (PatientID, error) {
	u, err := parseUUID(s, "patient")
	return PatientID(u), err
}

// ParseDoctorID constructs a DoctorID from external input.
func ParseDoctorID(s string) (DoctorID, error) {
	u, err := parseUUID(s, "doctor")
	return DoctorID(u), err
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user")
	return UserID(u), err
}

// ParseConsentID constructs a ConsentID from external input.
func ParseConsentID(s string) (ConsentID, error) {
	u, err := parseUUID(s, "consent")
	return ConsentID(u), err
}

// ParseEntryID constructs an EntryID from external input.
func ParseEntryID(s string) (EntryID, error) {
	u, err := parseUUID(s, "log entry")
	return EntryID(u), err
}

func (id PatientID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DoctorID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id EntryID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

func (id PatientID) String() string { return uuid.UUID(id).String() }
func (id DoctorID) String() string  { return uuid.UUID(id).String() }
func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id ConsentID) String() string { return uuid.UUID(id).String() }
func (id EntryID) String() string   { return uuid.UUID(id).String() }

// NewPatientID returns a fresh random PatientID.
func NewPatientID() PatientID { return PatientID(uuid.New()) }

// NewDoctorID returns a fresh random DoctorID.
func NewDoctorID() DoctorID { return DoctorID(uuid.New()) }

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewConsentID returns a fresh random ConsentID.
func NewConsentID() ConsentID { return ConsentID(uuid.New()) }

// NewEntryID returns a fresh random EntryID.
func NewEntryID() EntryID { return EntryID(uuid.New()) }
