package domain

import (
	"strings"

	dErrors "healthgate/pkg/domain-errors"
)

// Role is the actor's role as recorded in the user directory. The set is
// open: new roles may be introduced without code changes, and only ADMIN
// carries special meaning for the decision engine.
type Role string

// Conventional roles.
const (
	RoleAdmin   Role = "ADMIN"
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
)

// IsAdmin reports whether the role grants the administrative override.
// The comparison is case-insensitive, matching how directory data is stored.
func (r Role) IsAdmin() bool {
	return strings.EqualFold(string(r), string(RoleAdmin))
}

func (r Role) String() string { return string(r) }

// ActionType labels what an actor did to a resource. Open string set with a
// conventional vocabulary; the engine validates shape, not membership.
type ActionType string

// Conventional action types.
const (
	ActionRead   ActionType = "READ"
	ActionCreate ActionType = "CREATE"
	ActionUpdate ActionType = "UPDATE"
	ActionDelete ActionType = "DELETE"
	ActionDecide ActionType = "DECIDE"
)

func (a ActionType) String() string { return string(a) }

// EntryStatus records the disposition of an audited event. Open string set;
// the decision engine writes SUCCESS/DENIED, other writers may extend it.
type EntryStatus string

// Conventional entry statuses.
const (
	StatusSuccess EntryStatus = "SUCCESS"
	StatusDenied  EntryStatus = "DENIED"
	StatusFailure EntryStatus = "FAILURE"
)

func (s EntryStatus) String() string { return string(s) }

const maxTagLen = 64

// validateTag enforces the shape shared by all open tags: non-empty,
// bounded length, uppercase alphanumerics and underscores.
func validateTag(s, kind string) error {
	if s == "" {
		return dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	if len(s) > maxTagLen {
		return dErrors.New(dErrors.CodeInvalidInput, kind+" exceeds maximum length")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' {
			continue
		}
		return dErrors.New(dErrors.CodeInvalidInput, kind+" must contain only A-Z, 0-9 and underscore")
	}
	return nil
}

// ParseActionType constructs an ActionType from external input. Lowercase
// input is normalized to the uppercase convention.
func ParseActionType(s string) (ActionType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if err := validateTag(s, "action type"); err != nil {
		return "", err
	}
	return ActionType(s), nil
}

// ParseEntryStatus constructs an EntryStatus from external input.
func ParseEntryStatus(s string) (EntryStatus, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if err := validateTag(s, "status"); err != nil {
		return "", err
	}
	return EntryStatus(s), nil
}
