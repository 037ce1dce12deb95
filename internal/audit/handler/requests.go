package handler

import (
	"strings"
	"time"

	id "healthgate/pkg/domain"
	dErrors "healthgate/pkg/domain-errors"
)

const maxDetailsLen = 2048

// RecordEntryRequest is the HTTP request body for POST /audit. The actor
// defaults to the authenticated user when user_id is omitted.
type RecordEntryRequest struct {
	UserID       string `json:"user_id"`
	PatientID    string `json:"patient_id"`
	ConsentID    string `json:"consent_id"`
	ActionType   string `json:"action_type"`
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Details      string `json:"details"`
	Status       string `json:"status"`
	AccessTime   string `json:"access_time"`

	// Parsed values (populated by Validate)
	parsedUserID     id.UserID
	parsedPatientID  id.PatientID
	parsedConsentID  *id.ConsentID
	parsedActionType id.ActionType
	parsedStatus     id.EntryStatus
	parsedAccessTime time.Time
}

// Validate validates and parses the request.
func (r *RecordEntryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if len(r.Details) > maxDetailsLen {
		return dErrors.New(dErrors.CodeValidation, "details exceeds maximum length")
	}

	if r.UserID != "" {
		userID, err := id.ParseUserID(r.UserID)
		if err != nil {
			return err
		}
		r.parsedUserID = userID
	}

	patientID, err := id.ParsePatientID(r.PatientID)
	if err != nil {
		return err
	}
	r.parsedPatientID = patientID

	if r.ConsentID != "" {
		consentID, err := id.ParseConsentID(r.ConsentID)
		if err != nil {
			return err
		}
		r.parsedConsentID = &consentID
	}

	action, err := id.ParseActionType(r.ActionType)
	if err != nil {
		return err
	}
	r.parsedActionType = action

	r.ResourceType = strings.TrimSpace(r.ResourceType)
	if r.ResourceType == "" {
		return dErrors.New(dErrors.CodeValidation, "resource_type is required")
	}

	if r.Status != "" {
		status, err := id.ParseEntryStatus(r.Status)
		if err != nil {
			return err
		}
		r.parsedStatus = status
	}

	if r.AccessTime != "" {
		t, err := time.Parse(time.RFC3339, r.AccessTime)
		if err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "access_time must be RFC 3339")
		}
		r.parsedAccessTime = t
	}

	return nil
}

// ParsedUserID returns the validated actor ID; nil UUID when omitted.
func (r *RecordEntryRequest) ParsedUserID() id.UserID { return r.parsedUserID }

// ParsedPatientID returns the validated patient ID.
func (r *RecordEntryRequest) ParsedPatientID() id.PatientID { return r.parsedPatientID }

// ParsedConsentID returns the validated consent reference, if any.
func (r *RecordEntryRequest) ParsedConsentID() *id.ConsentID { return r.parsedConsentID }

// ParsedActionType returns the validated action type.
func (r *RecordEntryRequest) ParsedActionType() id.ActionType { return r.parsedActionType }

// ParsedStatus returns the validated status; empty when omitted.
func (r *RecordEntryRequest) ParsedStatus() id.EntryStatus { return r.parsedStatus }

// ParsedAccessTime returns the validated access time; zero when omitted.
func (r *RecordEntryRequest) ParsedAccessTime() time.Time { return r.parsedAccessTime }

// UpdateStatusRequest is the HTTP request body for PUT /audit/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`

	parsedStatus id.EntryStatus
}

// Validate validates and parses the request.
func (r *UpdateStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	status, err := id.ParseEntryStatus(r.Status)
	if err != nil {
		return err
	}
	r.parsedStatus = status
	return nil
}

// ParsedStatus returns the validated status.
func (r *UpdateStatusRequest) ParsedStatus() id.EntryStatus { return r.parsedStatus }
