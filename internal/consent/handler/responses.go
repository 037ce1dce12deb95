package handler

import (
	"time"

	"healthgate/internal/consent/models"
)

// ConsentResponse is the HTTP representation of one consent record.
type ConsentResponse struct {
	ID                string     `json:"id"`
	PatientID         string     `json:"patient_id"`
	DoctorID          string     `json:"doctor_id"`
	AuthorizationType string     `json:"authorization_type"`
	Purpose           string     `json:"purpose"`
	Status            string     `json:"status"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           time.Time  `json:"end_date"`
	CreatedAt         time.Time  `json:"created_at"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`
}

// CheckResponse is the HTTP response for GET /consents/check.
type CheckResponse struct {
	IsActive bool `json:"is_active"`
}

// FromConsent converts a consent record to its HTTP representation.
func FromConsent(c *models.Consent) *ConsentResponse {
	return &ConsentResponse{
		ID:                c.ID.String(),
		PatientID:         c.PatientID.String(),
		DoctorID:          c.DoctorID.String(),
		AuthorizationType: c.AuthorizationType,
		Purpose:           c.Purpose,
		Status:            string(c.Status),
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		CreatedAt:         c.CreatedAt,
		RevokedAt:         c.RevokedAt,
	}
}

// FromConsents converts a list of consent records, preserving order.
func FromConsents(consents []*models.Consent) []*ConsentResponse {
	out := make([]*ConsentResponse, 0, len(consents))
	for _, c := range consents {
		out = append(out, FromConsent(c))
	}
	return out
}
