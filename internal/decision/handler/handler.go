package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	auditmodels "healthgate/internal/audit/models"
	"healthgate/internal/decision"
	"healthgate/internal/transport/http/shared"
	id "healthgate/pkg/domain"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/requestcontext"
)

// Service defines the interface for rendering access decisions.
type Service interface {
	Decide(ctx context.Context, userID id.UserID, patientID id.PatientID) (decision.Outcome, error)
}

// AuditRecorder appends the audit entry paired with each decision.
type AuditRecorder interface {
	Record(ctx context.Context, req auditmodels.RecordRequest) (*auditmodels.Entry, error)
}

// Handler wires the access decision endpoint to the decision engine. Every
// rendered decision is paired with exactly one audit entry whose status
// matches the outcome.
type Handler struct {
	service Service
	audit   AuditRecorder
	logger  *slog.Logger
}

// New constructs a decision handler with its dependencies.
func New(service Service, audit AuditRecorder, logger *slog.Logger) *Handler {
	return &Handler{service: service, audit: audit, logger: logger}
}

// Register mounts the decision endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/access/decide", h.HandleDecide)
}

// HandleDecide handles POST /access/decide requests. An Allow renders 200, a
// Deny renders 403; both carry the outcome body, since a denial is a valid
// business result rather than a fault.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := shared.DecodeAndPrepare[*DecideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outcome, err := h.service.Decide(ctx, userID, req.ParsedPatientID())
	if err != nil {
		h.logger.ErrorContext(ctx, "access decision failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"patient_id", req.PatientID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	entryID := h.recordOutcome(ctx, userID, req, outcome)

	status := http.StatusOK
	if !outcome.Allowed() {
		status = http.StatusForbidden
	}
	shared.WriteJSON(w, status, FromOutcome(outcome, entryID))
}

// recordOutcome appends the audit entry for a rendered decision. A failed
// write is logged but does not withhold the decision from the caller; the
// outcomes whose references cannot resolve (unknown actor or patient) are
// unrecordable without a dangling reference and are skipped.
func (h *Handler) recordOutcome(ctx context.Context, userID id.UserID, req *DecideRequest, outcome decision.Outcome) string {
	if outcome.Reason == decision.ReasonActorNotFound || outcome.Reason == decision.ReasonPatientNotFound {
		return ""
	}

	entry, err := h.audit.Record(ctx, auditmodels.RecordRequest{
		UserID:       userID,
		PatientID:    req.ParsedPatientID(),
		ConsentID:    outcome.ConsentID,
		ActionType:   req.ParsedActionType(),
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Origin:       requestcontext.ClientIP(ctx),
		Details:      "access decision: " + string(outcome.Reason),
		Status:       outcome.Status(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to audit access decision",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"decision", string(outcome.Decision),
			"error", err.Error(),
		)
		return ""
	}
	return entry.ID.String()
}
