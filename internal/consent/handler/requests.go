package handler

import (
	"strings"

	id "healthgate/pkg/domain"
	dErrors "healthgate/pkg/domain-errors"
)

const maxPurposeLen = 512

// CreateConsentRequest is the HTTP request body for POST /consents.
type CreateConsentRequest struct {
	PatientID    string `json:"patient_id"`
	DoctorID     string `json:"doctor_id"`
	Purpose      string `json:"purpose"`
	DurationDays int    `json:"duration_days"`

	// Parsed values (populated by Validate)
	parsedPatientID id.PatientID
	parsedDoctorID  id.DoctorID
}

// Validate validates and parses the request.
func (r *CreateConsentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if len(r.Purpose) > maxPurposeLen {
		return dErrors.New(dErrors.CodeValidation, "purpose exceeds maximum length")
	}
	r.Purpose = strings.TrimSpace(r.Purpose)

	if r.DurationDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "duration_days must be a positive number of days")
	}

	patientID, err := id.ParsePatientID(r.PatientID)
	if err != nil {
		return err
	}
	r.parsedPatientID = patientID

	doctorID, err := id.ParseDoctorID(r.DoctorID)
	if err != nil {
		return err
	}
	r.parsedDoctorID = doctorID

	return nil
}

// ParsedPatientID returns the validated patient ID.
func (r *CreateConsentRequest) ParsedPatientID() id.PatientID {
	return r.parsedPatientID
}

// ParsedDoctorID returns the validated doctor ID.
func (r *CreateConsentRequest) ParsedDoctorID() id.DoctorID {
	return r.parsedDoctorID
}
