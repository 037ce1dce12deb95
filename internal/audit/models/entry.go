package models

import (
	"time"

	id "healthgate/pkg/domain"
	dErrors "healthgate/pkg/domain-errors"
)

// Entry is an immutable record of one access-relevant event: either an
// access decision or a completed resource action.
//
// Invariants:
//   - ID and AccessTime never change once written
//   - Status and Details change only through the explicit correction path
//     (Service.UpdateStatus); nothing overwrites them silently
//   - UserID and PatientID always reference existing directory entities;
//     the service refuses to write a dangling entry
type Entry struct {
	ID           id.EntryID     `json:"id"`
	UserID       id.UserID      `json:"user_id"`
	PatientID    id.PatientID   `json:"patient_id"`
	ConsentID    *id.ConsentID  `json:"consent_id,omitempty"`
	ActionType   id.ActionType  `json:"action_type"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Origin       string         `json:"origin"`
	Details      string         `json:"details"`
	Status       id.EntryStatus `json:"status"`
	AccessTime   time.Time      `json:"access_time"`
}

// RecordRequest carries everything needed to append one audit entry.
// AccessTime defaults to the event time when zero.
type RecordRequest struct {
	UserID       id.UserID
	PatientID    id.PatientID
	ConsentID    *id.ConsentID
	ActionType   id.ActionType
	ResourceType string
	ResourceID   string
	Origin       string
	Details      string
	Status       id.EntryStatus
	AccessTime   time.Time
}

// NewEntry builds an Entry from a validated request, stamping defaults.
func NewEntry(entryID id.EntryID, req RecordRequest, now time.Time) (*Entry, error) {
	if req.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit entry requires an actor")
	}
	if req.PatientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit entry requires a patient")
	}
	if req.ActionType == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit entry requires an action type")
	}
	if req.ResourceType == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit entry requires a resource type")
	}
	status := req.Status
	if status == "" {
		status = id.StatusSuccess
	}
	accessTime := req.AccessTime
	if accessTime.IsZero() {
		accessTime = now
	}
	return &Entry{
		ID:           entryID,
		UserID:       req.UserID,
		PatientID:    req.PatientID,
		ConsentID:    req.ConsentID,
		ActionType:   req.ActionType,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Origin:       req.Origin,
		Details:      req.Details,
		Status:       status,
		AccessTime:   accessTime,
	}, nil
}
