package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"healthgate/internal/consent/models"
	id "healthgate/pkg/domain"
)

type RulesSuite struct {
	suite.Suite
	now time.Time
}

func (s *RulesSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestRulesSuite(t *testing.T) {
	suite.Run(t, new(RulesSuite))
}

func (s *RulesSuite) consentStarting(start time.Time, duration time.Duration) *models.Consent {
	c, err := models.NewConsent(id.NewConsentID(), id.NewPatientID(), id.NewDoctorID(), "", duration, start)
	s.Require().NoError(err)
	return c
}

func (s *RulesSuite) TestAdminOverride() {
	s.Run("allows with no consents at all", func() {
		outcome := Decide(id.RoleAdmin, nil, s.now)
		s.True(outcome.Allowed())
		s.Equal(ReasonAdminOverride, outcome.Reason)
		s.Nil(outcome.ConsentID)
	})

	s.Run("role comparison is case-insensitive", func() {
		outcome := Decide(id.Role("admin"), nil, s.now)
		s.True(outcome.Allowed())
	})

	s.Run("ignores consent state entirely", func() {
		expired := s.consentStarting(s.now.Add(-48*time.Hour), time.Hour)
		outcome := Decide(id.RoleAdmin, []*models.Consent{expired}, s.now)
		s.True(outcome.Allowed())
		s.Equal(ReasonAdminOverride, outcome.Reason)
	})
}

func (s *RulesSuite) TestConsentPath() {
	s.Run("allows on an active consent and references it", func() {
		c := s.consentStarting(s.now.Add(-time.Hour), 48*time.Hour)
		outcome := Decide(id.RoleDoctor, []*models.Consent{c}, s.now)
		s.True(outcome.Allowed())
		s.Equal(ReasonActiveConsent, outcome.Reason)
		s.Require().NotNil(outcome.ConsentID)
		s.Equal(c.ID, *outcome.ConsentID)
	})

	s.Run("denies with no consents", func() {
		outcome := Decide(id.RoleDoctor, nil, s.now)
		s.False(outcome.Allowed())
		s.Equal(ReasonNoActiveConsent, outcome.Reason)
	})

	s.Run("denies when every consent is outside its window", func() {
		expired := s.consentStarting(s.now.Add(-48*time.Hour), time.Hour)
		future := s.consentStarting(s.now.Add(time.Hour), 24*time.Hour)
		outcome := Decide(id.RoleDoctor, []*models.Consent{expired, future}, s.now)
		s.False(outcome.Allowed())
	})

	s.Run("window start is inclusive", func() {
		c := s.consentStarting(s.now, 24*time.Hour)
		s.True(Decide(id.RoleDoctor, []*models.Consent{c}, s.now).Allowed())
	})

	s.Run("window end is exclusive", func() {
		c := s.consentStarting(s.now.Add(-24*time.Hour), 24*time.Hour)
		s.False(Decide(id.RoleDoctor, []*models.Consent{c}, s.now).Allowed())
	})

	s.Run("denies on a revoked consent", func() {
		c := s.consentStarting(s.now.Add(-time.Hour), 48*time.Hour)
		s.Require().NoError(c.Revoke(s.now.Add(-time.Minute)))
		outcome := Decide(id.RoleDoctor, []*models.Consent{c}, s.now)
		s.False(outcome.Allowed())
	})
}

func (s *RulesSuite) TestOutcomeStatus() {
	s.Run("allow maps to SUCCESS", func() {
		outcome := Decide(id.RoleAdmin, nil, s.now)
		s.Equal(id.StatusSuccess, outcome.Status())
	})

	s.Run("deny maps to DENIED", func() {
		outcome := Decide(id.RolePatient, nil, s.now)
		s.Equal(id.StatusDenied, outcome.Status())
	})
}
