// Package directory exposes read-only lookups for the identity entities the
// engine references but does not own: patients, doctors, and users.
// Registration and profile management live outside this service; the engine
// only ever needs existence and, for users, the role.
package directory

import (
	"context"
	"time"

	id "healthgate/pkg/domain"
)

// Patient is the subject whose clinical data is being guarded.
type Patient struct {
	ID        id.PatientID `json:"id"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	CreatedAt time.Time    `json:"created_at"`
}

// Doctor is a clinician who may be granted consent.
type Doctor struct {
	ID             id.DoctorID `json:"id"`
	FirstName      string      `json:"first_name"`
	LastName       string      `json:"last_name"`
	Specialization string      `json:"specialization"`
	CreatedAt      time.Time   `json:"created_at"`
}

// User is an authenticated actor. Role drives the administrative override in
// the decision engine.
type User struct {
	ID        id.UserID `json:"id"`
	Username  string    `json:"username"`
	Role      id.Role   `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Directory is the read surface consumed by the consent, decision, and audit
// services. Implementations return sentinel.ErrNotFound for absent entities.
type Directory interface {
	FindPatient(ctx context.Context, patientID id.PatientID) (*Patient, error)
	FindDoctor(ctx context.Context, doctorID id.DoctorID) (*Doctor, error)
	FindUser(ctx context.Context, userID id.UserID) (*User, error)
}
