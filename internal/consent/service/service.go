package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	auditmodels "healthgate/internal/audit/models"
	consentmetrics "healthgate/internal/consent/metrics"
	"healthgate/internal/consent/models"
	"healthgate/internal/directory"
	id "healthgate/pkg/domain"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/platform/sentinel"
	"healthgate/pkg/requestcontext"
)

// DefaultDurationDays is applied when the caller grants consent without a
// duration.
const DefaultDurationDays = 365

// Store is the persistence surface for consent records. Implementations
// return sentinel errors; this service translates them into domain errors.
// CreateIfPairAvailable must be atomic: under concurrent creates for one
// (patient, doctor) pair, exactly one caller succeeds.
type Store interface {
	CreateIfPairAvailable(ctx context.Context, c *models.Consent) error
	FindByID(ctx context.Context, consentID id.ConsentID) (*models.Consent, error)
	ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Consent, error)
	ListByPair(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID) ([]*models.Consent, error)
	Execute(ctx context.Context, consentID id.ConsentID, validate func(*models.Consent) error, mutate func(*models.Consent)) (*models.Consent, error)
}

// ActiveCache caches the outcome of pair-activity checks. Entries are
// invalidated on every mutation for the pair, so a revocation is visible on
// the next check regardless of TTL.
type ActiveCache interface {
	Get(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID) (active bool, ok bool)
	Set(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID, active bool)
	Invalidate(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID)
}

// AuditRecorder appends audit entries for consent mutations. Satisfied by
// the audit service.
type AuditRecorder interface {
	Record(ctx context.Context, req auditmodels.RecordRequest) (*auditmodels.Entry, error)
}

// Service owns the consent registry: creation, lookup, revocation, and
// activity checks. No other component mutates consent records.
type Service struct {
	store   Store
	dir     directory.Directory
	cache   ActiveCache
	audit   AuditRecorder
	logger  *slog.Logger
	metrics *consentmetrics.Metrics
	tracer  trace.Tracer
	locks   pairLock
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *consentmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithActiveCache(cache ActiveCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithAuditRecorder(audit AuditRecorder) Option {
	return func(s *Service) { s.audit = audit }
}

func New(store Store, dir directory.Directory, opts ...Option) *Service {
	s := &Service{
		store:  store,
		dir:    dir,
		tracer: otel.Tracer("healthgate/consent"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create grants a consent for the (patient, doctor) pair.
//
// Any existing record for the pair blocks creation, revoked or not: the
// registry enforces one record per pair, so a revoked grant must be for a
// different doctor or the patient re-grants after an administrative purge.
func (s *Service) Create(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID, purpose string, durationDays int) (*models.Consent, error) {
	ctx, span := s.tracer.Start(ctx, "consent.Create",
		trace.WithAttributes(attribute.String("patient_id", patientID.String())))
	defer span.End()

	if durationDays < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "duration must be a positive number of days")
	}
	if durationDays == 0 {
		durationDays = DefaultDurationDays
	}

	if _, err := s.dir.FindPatient(ctx, patientID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "patient not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve patient")
	}
	if _, err := s.dir.FindDoctor(ctx, doctorID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "doctor not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve doctor")
	}

	mu := s.locks.lock(patientID.String() + "/" + doctorID.String())
	defer mu.Unlock()

	now := requestcontext.Now(ctx)
	consent, err := models.NewConsent(id.NewConsentID(), patientID, doctorID, purpose, time.Duration(durationDays)*24*time.Hour, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.store.CreateIfPairAvailable(ctx, consent); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "consent already exists for this patient-doctor pair")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create consent")
	}

	s.invalidate(ctx, patientID, doctorID)
	s.emitAudit(ctx, consent, id.ActionCreate, "consent created")
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.log(ctx, "consent created", consent)
	return consent, nil
}

// Revoke transitions a consent to REVOKED, truncating its window at the
// revocation instant. A second revoke returns Conflict.
func (s *Service) Revoke(ctx context.Context, consentID id.ConsentID) (*models.Consent, error) {
	ctx, span := s.tracer.Start(ctx, "consent.Revoke",
		trace.WithAttributes(attribute.String("consent_id", consentID.String())))
	defer span.End()

	now := requestcontext.Now(ctx)
	consent, err := s.store.Execute(ctx, consentID,
		func(c *models.Consent) error {
			if err := c.CanRevoke(); err != nil {
				if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
					return dErrors.New(dErrors.CodeConflict, "consent is already revoked")
				}
				return err
			}
			return nil
		},
		func(c *models.Consent) {
			c.ApplyRevocation(now)
		},
	)
	if err != nil {
		return nil, wrapConsentErr(err)
	}

	s.invalidate(ctx, consent.PatientID, consent.DoctorID)
	s.emitAudit(ctx, consent, id.ActionUpdate, "consent revoked")
	if s.metrics != nil {
		s.metrics.IncrementRevoked()
	}
	s.log(ctx, "consent revoked", consent)
	return consent, nil
}

// IsActive reports whether any consent for the pair is active at the
// request-scoped now. Unknown patients or doctors simply yield false.
func (s *Service) IsActive(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "consent.IsActive")
	defer span.End()

	if s.cache != nil {
		if active, ok := s.cache.Get(ctx, patientID, doctorID); ok {
			if s.metrics != nil {
				s.metrics.IncrementCheckCacheHit()
			}
			return active, nil
		}
	}

	consents, err := s.store.ListByPair(ctx, patientID, doctorID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents")
	}
	now := requestcontext.Now(ctx)
	active := false
	for _, c := range consents {
		if c.IsActiveAt(now) {
			active = true
			break
		}
	}
	if s.cache != nil {
		s.cache.Set(ctx, patientID, doctorID, active)
	}
	return active, nil
}

// Get returns one consent by ID.
func (s *Service) Get(ctx context.Context, consentID id.ConsentID) (*models.Consent, error) {
	consent, err := s.store.FindByID(ctx, consentID)
	if err != nil {
		return nil, wrapConsentErr(err)
	}
	return consent, nil
}

// ListByPatient returns the patient's consents in creation order.
func (s *Service) ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Consent, error) {
	if _, err := s.dir.FindPatient(ctx, patientID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "patient not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve patient")
	}
	consents, err := s.store.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents")
	}
	return consents, nil
}

// ListActiveForPatient returns the patient's consents active at now; the
// decision engine reads through this.
func (s *Service) ListActiveForPatient(ctx context.Context, patientID id.PatientID) ([]*models.Consent, error) {
	consents, err := s.store.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents")
	}
	now := requestcontext.Now(ctx)
	var active []*models.Consent
	for _, c := range consents {
		if c.IsActiveAt(now) {
			active = append(active, c)
		}
	}
	return active, nil
}

func (s *Service) invalidate(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, patientID, doctorID)
	}
}

// emitAudit records the consent mutation as its own auditable event.
// Best-effort: a missing actor (no authenticated context) or a failed write
// is logged, not propagated, so registry mutations never fail after commit.
func (s *Service) emitAudit(ctx context.Context, c *models.Consent, action id.ActionType, details string) {
	if s.audit == nil {
		return
	}
	actor := requestcontext.UserID(ctx)
	if actor.IsNil() {
		return
	}
	cid := c.ID
	_, err := s.audit.Record(ctx, auditmodels.RecordRequest{
		UserID:       actor,
		PatientID:    c.PatientID,
		ConsentID:    &cid,
		ActionType:   action,
		ResourceType: "Consent",
		ResourceID:   c.ID.String(),
		Origin:       requestcontext.ClientIP(ctx),
		Details:      details,
		Status:       id.StatusSuccess,
	})
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to audit consent mutation",
			"consent_id", c.ID.String(),
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func (s *Service) log(ctx context.Context, msg string, c *models.Consent) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, msg,
		"consent_id", c.ID.String(),
		"patient_id", c.PatientID.String(),
		"doctor_id", c.DoctorID.String(),
		"status", string(c.Status),
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
}

func wrapConsentErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "consent store failure")
}
