package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	auditmetrics "healthgate/internal/audit/metrics"
	"healthgate/internal/audit/models"
	"healthgate/internal/directory"
	id "healthgate/pkg/domain"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/platform/sentinel"
	"healthgate/pkg/requestcontext"
)

// Store is the persistence surface for audit entries. Implementations return
// sentinel errors; this service translates them into domain errors.
type Store interface {
	Append(ctx context.Context, e *models.Entry) error
	FindByID(ctx context.Context, entryID id.EntryID) (*models.Entry, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Entry, error)
	ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Entry, error)
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]*models.Entry, error)
	ListByActionType(ctx context.Context, action id.ActionType) ([]*models.Entry, error)
	ListByTimeRange(ctx context.Context, start, end time.Time) ([]*models.Entry, error)
	ListAll(ctx context.Context) ([]*models.Entry, error)
	UpdateStatus(ctx context.Context, entryID id.EntryID, status id.EntryStatus) (*models.Entry, error)
	Delete(ctx context.Context, entryID id.EntryID) error
}

// Service is the audit trail: it appends access-decision and resource-action
// records and serves the read queries. Writes are synchronous; a request is
// not done until its audit entry is durable.
type Service struct {
	store   Store
	dir     directory.Directory
	logger  *slog.Logger
	metrics *auditmetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *auditmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, dir directory.Directory, opts ...Option) *Service {
	s := &Service{store: store, dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends one audit entry. Both references are resolved before
// anything is written: an entry with a dangling actor or patient is worse
// than a failed request.
func (s *Service) Record(ctx context.Context, req models.RecordRequest) (*models.Entry, error) {
	if _, err := s.dir.FindUser(ctx, req.UserID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve user")
	}
	if _, err := s.dir.FindPatient(ctx, req.PatientID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "patient not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve patient")
	}

	if req.Origin == "" {
		req.Origin = requestcontext.ClientIP(ctx)
	}

	entry, err := models.NewEntry(id.NewEntryID(), req, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}

	s.logEntry(ctx, entry)
	if s.metrics != nil {
		s.metrics.IncrementAppended(string(entry.Status))
	}
	return entry, nil
}

// Get returns one entry by ID.
func (s *Service) Get(ctx context.Context, entryID id.EntryID) (*models.Entry, error) {
	entry, err := s.store.FindByID(ctx, entryID)
	if err != nil {
		return nil, wrapEntryErr(err)
	}
	return entry, nil
}

// ListByUser returns the actor's entries in creation order.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Entry, error) {
	if _, err := s.dir.FindUser(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve user")
	}
	entries, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

// ListByPatient returns the subject's entries in creation order.
func (s *Service) ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Entry, error) {
	entries, err := s.store.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

// ListByResource matches the structured resource identity.
func (s *Service) ListByResource(ctx context.Context, resourceType, resourceID string) ([]*models.Entry, error) {
	if resourceType == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "resource type is required")
	}
	entries, err := s.store.ListByResource(ctx, resourceType, resourceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

// ListByActionType returns entries for one action tag.
func (s *Service) ListByActionType(ctx context.Context, action id.ActionType) ([]*models.Entry, error) {
	entries, err := s.store.ListByActionType(ctx, action)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

// ListByTimeRange returns entries with start <= AccessTime <= end, both
// bounds inclusive.
func (s *Service) ListByTimeRange(ctx context.Context, start, end time.Time) ([]*models.Entry, error) {
	if end.Before(start) {
		return nil, dErrors.New(dErrors.CodeValidation, "range end must not precede range start")
	}
	entries, err := s.store.ListByTimeRange(ctx, start, end)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

// ListAll returns every entry in creation order.
func (s *Service) ListAll(ctx context.Context) ([]*models.Entry, error) {
	entries, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

// UpdateStatus corrects an entry's disposition after the fact, e.g. marking
// a SUCCESS entry later found to be unauthorized. Identity and AccessTime
// are untouchable.
func (s *Service) UpdateStatus(ctx context.Context, entryID id.EntryID, status id.EntryStatus) (*models.Entry, error) {
	entry, err := s.store.UpdateStatus(ctx, entryID, status)
	if err != nil {
		return nil, wrapEntryErr(err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "audit entry status corrected",
			"entry_id", entry.ID.String(),
			"status", string(status),
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
	return entry, nil
}

// Delete purges an entry. Restricted to administrators at the HTTP boundary;
// not part of the audit-integrity guarantee.
func (s *Service) Delete(ctx context.Context, entryID id.EntryID) error {
	if err := s.store.Delete(ctx, entryID); err != nil {
		return wrapEntryErr(err)
	}
	if s.logger != nil {
		s.logger.WarnContext(ctx, "audit entry purged",
			"entry_id", entryID.String(),
			"actor_id", requestcontext.UserID(ctx).String(),
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
	return nil
}

func (s *Service) logEntry(ctx context.Context, entry *models.Entry) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, "audit entry recorded",
		"entry_id", entry.ID.String(),
		"user_id", entry.UserID.String(),
		"patient_id", entry.PatientID.String(),
		"action_type", string(entry.ActionType),
		"resource_type", entry.ResourceType,
		"status", string(entry.Status),
		"request_id", requestcontext.RequestID(ctx),
		"log_type", "audit",
	)
}

func wrapEntryErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "audit entry not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "audit store failure")
}
