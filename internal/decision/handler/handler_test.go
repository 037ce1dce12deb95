package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	auditmodels "healthgate/internal/audit/models"
	"healthgate/internal/decision"
	id "healthgate/pkg/domain"
	"healthgate/pkg/testutil"
)

type fakeDecider struct {
	outcome decision.Outcome
	err     error
}

func (f *fakeDecider) Decide(context.Context, id.UserID, id.PatientID) (decision.Outcome, error) {
	return f.outcome, f.err
}

type fakeRecorder struct {
	recorded []auditmodels.RecordRequest
}

func (f *fakeRecorder) Record(_ context.Context, req auditmodels.RecordRequest) (*auditmodels.Entry, error) {
	f.recorded = append(f.recorded, req)
	return &auditmodels.Entry{ID: id.NewEntryID(), Status: req.Status}, nil
}

type DecisionHandlerSuite struct {
	suite.Suite
	decider  *fakeDecider
	recorder *fakeRecorder
	router   chi.Router
	actor    id.UserID
	now      time.Time
}

func (s *DecisionHandlerSuite) SetupTest() {
	s.decider = &fakeDecider{}
	s.recorder = &fakeRecorder{}
	s.actor = id.NewUserID()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.router = chi.NewRouter()
	New(s.decider, s.recorder, slog.Default()).Register(s.router)
}

func TestDecisionHandlerSuite(t *testing.T) {
	suite.Run(t, new(DecisionHandlerSuite))
}

func (s *DecisionHandlerSuite) decide(body map[string]any) *http.Request {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/access/decide", body)
	return testutil.WithActor(req, s.actor, id.RoleDoctor)
}

func (s *DecisionHandlerSuite) TestAllow() {
	consentID := id.NewConsentID()
	s.decider.outcome = decision.Outcome{
		Decision:    decision.DecisionAllow,
		Reason:      decision.ReasonActiveConsent,
		ConsentID:   &consentID,
		EvaluatedAt: s.now,
	}

	patientID := id.NewPatientID()
	rr := testutil.DoRequest(s.router, s.decide(map[string]any{
		"patient_id":  patientID.String(),
		"resource_id": "42",
	}))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[DecideResponse](s.T(), rr)
	s.Equal("ALLOW", resp.Decision)
	s.Equal(consentID.String(), resp.ConsentID)
	s.NotEmpty(resp.AuditEntryID)

	s.Require().Len(s.recorder.recorded, 1, "exactly one audit entry per decision")
	entry := s.recorder.recorded[0]
	s.Equal(s.actor, entry.UserID)
	s.Equal(patientID, entry.PatientID)
	s.Equal(id.StatusSuccess, entry.Status)
	s.Equal(id.ActionRead, entry.ActionType)
	s.Equal(DefaultResourceType, entry.ResourceType)
	s.Equal("42", entry.ResourceID)
}

func (s *DecisionHandlerSuite) TestDeny() {
	s.decider.outcome = decision.Outcome{
		Decision:    decision.DecisionDeny,
		Reason:      decision.ReasonNoActiveConsent,
		EvaluatedAt: s.now,
	}

	rr := testutil.DoRequest(s.router, s.decide(map[string]any{
		"patient_id": id.NewPatientID().String(),
	}))

	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	resp := testutil.UnmarshalResponse[DecideResponse](s.T(), rr)
	s.Equal("DENY", resp.Decision)
	s.Equal(string(decision.ReasonNoActiveConsent), resp.Reason)

	s.Require().Len(s.recorder.recorded, 1)
	s.Equal(id.StatusDenied, s.recorder.recorded[0].Status, "audit status must match the decision")
}

func (s *DecisionHandlerSuite) TestUnrecordableDenials() {
	s.decider.outcome = decision.Outcome{
		Decision:    decision.DecisionDeny,
		Reason:      decision.ReasonPatientNotFound,
		EvaluatedAt: s.now,
	}

	rr := testutil.DoRequest(s.router, s.decide(map[string]any{
		"patient_id": id.NewPatientID().String(),
	}))

	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	s.Empty(s.recorder.recorded, "a dangling reference must not be written")
}

func (s *DecisionHandlerSuite) TestValidation() {
	s.Run("requires authentication", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/access/decide", map[string]any{
			"patient_id": id.NewPatientID().String(),
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("rejects a malformed patient id", func() {
		rr := testutil.DoRequest(s.router, s.decide(map[string]any{
			"patient_id": "nope",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("rejects a malformed action type", func() {
		rr := testutil.DoRequest(s.router, s.decide(map[string]any{
			"patient_id":  id.NewPatientID().String(),
			"action_type": "not valid",
		}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}
