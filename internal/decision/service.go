package decision

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"healthgate/internal/consent/models"
	decisionmetrics "healthgate/internal/decision/metrics"
	"healthgate/internal/directory"
	id "healthgate/pkg/domain"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/platform/sentinel"
	"healthgate/pkg/requestcontext"
)

// ConsentSource lists the consents active for a patient at the
// request-scoped now. Satisfied by the consent service.
type ConsentSource interface {
	ListActiveForPatient(ctx context.Context, patientID id.PatientID) ([]*models.Consent, error)
}

// Service is the single authorization gate for patient-data operations. It
// resolves the actor's role and the patient's consents, then delegates to the
// pure rules in Decide. It never writes audit entries itself; the caller
// pairs each outcome with one audit record.
type Service struct {
	dir      directory.Directory
	consents ConsentSource
	logger   *slog.Logger
	metrics  *decisionmetrics.Metrics
	tracer   trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *decisionmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(dir directory.Directory, consents ConsentSource, opts ...Option) *Service {
	s := &Service{
		dir:      dir,
		consents: consents,
		tracer:   otel.Tracer("healthgate/decision"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Decide evaluates whether the actor may access the patient's data at the
// request-scoped now.
//
// Unresolvable identifiers are a Deny with a distinguishable reason, not an
// error: a decision is rendered for every well-formed request, and only
// store failures surface as errors.
func (s *Service) Decide(ctx context.Context, userID id.UserID, patientID id.PatientID) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "decision.Decide",
		trace.WithAttributes(
			attribute.String("user_id", userID.String()),
			attribute.String("patient_id", patientID.String()),
		))
	defer span.End()

	now := requestcontext.Now(ctx)

	user, err := s.dir.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.finish(ctx, Outcome{Decision: DecisionDeny, Reason: ReasonActorNotFound, EvaluatedAt: now}), nil
		}
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve actor")
	}

	// The administrative override skips the patient lookup entirely: an
	// admin is allowed for any patient, known or not.
	if user.Role.IsAdmin() {
		return s.finish(ctx, Decide(user.Role, nil, now)), nil
	}

	if _, err := s.dir.FindPatient(ctx, patientID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return s.finish(ctx, Outcome{Decision: DecisionDeny, Reason: ReasonPatientNotFound, EvaluatedAt: now}), nil
		}
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve patient")
	}

	consents, err := s.consents.ListActiveForPatient(ctx, patientID)
	if err != nil {
		return Outcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents for decision")
	}

	return s.finish(ctx, Decide(user.Role, consents, now)), nil
}

func (s *Service) finish(ctx context.Context, outcome Outcome) Outcome {
	if s.metrics != nil {
		s.metrics.IncrementOutcome(string(outcome.Decision), string(outcome.Reason))
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "access decision rendered",
			"decision", string(outcome.Decision),
			"reason", string(outcome.Reason),
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
	return outcome
}
