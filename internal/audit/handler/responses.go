package handler

import (
	"time"

	"healthgate/internal/audit/models"
)

// EntryResponse is the HTTP representation of one audit entry.
type EntryResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	PatientID    string    `json:"patient_id"`
	ConsentID    string    `json:"consent_id,omitempty"`
	ActionType   string    `json:"action_type"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Origin       string    `json:"origin,omitempty"`
	Details      string    `json:"details,omitempty"`
	Status       string    `json:"status"`
	AccessTime   time.Time `json:"access_time"`
}

// FromEntry converts an audit entry to its HTTP representation.
func FromEntry(e *models.Entry) *EntryResponse {
	resp := &EntryResponse{
		ID:           e.ID.String(),
		UserID:       e.UserID.String(),
		PatientID:    e.PatientID.String(),
		ActionType:   string(e.ActionType),
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Origin:       e.Origin,
		Details:      e.Details,
		Status:       string(e.Status),
		AccessTime:   e.AccessTime,
	}
	if e.ConsentID != nil {
		resp.ConsentID = e.ConsentID.String()
	}
	return resp
}

// FromEntries converts a list of audit entries, preserving order.
func FromEntries(entries []*models.Entry) []*EntryResponse {
	out := make([]*EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromEntry(e))
	}
	return out
}
