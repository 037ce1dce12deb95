package decision

import (
	"time"

	"healthgate/internal/consent/models"
	id "healthgate/pkg/domain"
)

// Decision is the outcome of evaluating an access request.
type Decision string

const (
	DecisionAllow Decision = "ALLOW"
	DecisionDeny  Decision = "DENY"
)

// Reason explains an outcome. A Deny carries a distinguishable reason so the
// caller can audit "unknown actor" differently from "no consent".
type Reason string

const (
	ReasonAdminOverride   Reason = "admin_override"
	ReasonActiveConsent   Reason = "active_consent"
	ReasonNoActiveConsent Reason = "no_active_consent"
	ReasonActorNotFound   Reason = "actor_not_found"
	ReasonPatientNotFound Reason = "patient_not_found"
)

// Outcome is the result of one decision. ConsentID references the consent
// that justified an allow, when one did; the administrative override carries
// none.
type Outcome struct {
	Decision    Decision      `json:"decision"`
	Reason      Reason        `json:"reason"`
	ConsentID   *id.ConsentID `json:"consent_id,omitempty"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

// Allowed reports whether the outcome permits the access.
func (o Outcome) Allowed() bool { return o.Decision == DecisionAllow }

// Status maps the outcome to the audit-entry status recorded for it.
func (o Outcome) Status() id.EntryStatus {
	if o.Allowed() {
		return id.StatusSuccess
	}
	return id.StatusDenied
}

// Decide applies the access rules to produce an outcome.
// This is pure domain logic - no I/O, no side effects.
//
// Rule priority:
//  1. ADMIN role - unconditional allow, no consent or time check
//  2. Any consent for the patient active at now - allow
//  3. Deny
//
// The activity check delegates to Consent.IsActiveAt, so the decision path
// and the registry's consent-active query share one window convention.
func Decide(role id.Role, consents []*models.Consent, now time.Time) Outcome {
	if role.IsAdmin() {
		return Outcome{Decision: DecisionAllow, Reason: ReasonAdminOverride, EvaluatedAt: now}
	}
	for _, c := range consents {
		if c.IsActiveAt(now) {
			cid := c.ID
			return Outcome{Decision: DecisionAllow, Reason: ReasonActiveConsent, ConsentID: &cid, EvaluatedAt: now}
		}
	}
	return Outcome{Decision: DecisionDeny, Reason: ReasonNoActiveConsent, EvaluatedAt: now}
}
