package handler

import (
	"strings"

	id "healthgate/pkg/domain"
	dErrors "healthgate/pkg/domain-errors"
)

// DefaultResourceType is recorded when the caller does not name the resource
// kind being accessed.
const DefaultResourceType = "MedicalRecord"

// DecideRequest is the HTTP request body for POST /access/decide. The actor
// is the authenticated user; the body names the target.
type DecideRequest struct {
	PatientID    string `json:"patient_id"`
	ActionType   string `json:"action_type"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`

	// Parsed values (populated by Validate)
	parsedPatientID  id.PatientID
	parsedActionType id.ActionType
}

// Validate validates and parses the request.
func (r *DecideRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	patientID, err := id.ParsePatientID(r.PatientID)
	if err != nil {
		return err
	}
	r.parsedPatientID = patientID

	if strings.TrimSpace(r.ActionType) == "" {
		r.ActionType = string(id.ActionRead)
	}
	action, err := id.ParseActionType(r.ActionType)
	if err != nil {
		return err
	}
	r.parsedActionType = action

	r.ResourceType = strings.TrimSpace(r.ResourceType)
	if r.ResourceType == "" {
		r.ResourceType = DefaultResourceType
	}
	r.ResourceID = strings.TrimSpace(r.ResourceID)

	return nil
}

// ParsedPatientID returns the validated patient ID.
func (r *DecideRequest) ParsedPatientID() id.PatientID {
	return r.parsedPatientID
}

// ParsedActionType returns the validated action type.
func (r *DecideRequest) ParsedActionType() id.ActionType {
	return r.parsedActionType
}
