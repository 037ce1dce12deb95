package handler

import (
	"time"

	"healthgate/internal/decision"
)

// DecideResponse is the HTTP response for POST /access/decide.
type DecideResponse struct {
	Decision     string    `json:"decision"`
	Reason       string    `json:"reason"`
	ConsentID    string    `json:"consent_id,omitempty"`
	AuditEntryID string    `json:"audit_entry_id,omitempty"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

// FromOutcome converts a decision outcome to its HTTP representation.
func FromOutcome(o decision.Outcome, auditEntryID string) *DecideResponse {
	resp := &DecideResponse{
		Decision:     string(o.Decision),
		Reason:       string(o.Reason),
		AuditEntryID: auditEntryID,
		EvaluatedAt:  o.EvaluatedAt,
	}
	if o.ConsentID != nil {
		resp.ConsentID = o.ConsentID.String()
	}
	return resp
}
