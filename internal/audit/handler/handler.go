package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"healthgate/internal/audit/models"
	"healthgate/internal/platform/middleware"
	"healthgate/internal/transport/http/shared"
	id "healthgate/pkg/domain"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/requestcontext"
)

// Service defines the interface for audit trail operations.
type Service interface {
	Record(ctx context.Context, req models.RecordRequest) (*models.Entry, error)
	Get(ctx context.Context, entryID id.EntryID) (*models.Entry, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Entry, error)
	ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Entry, error)
	ListByResource(ctx context.Context, resourceType, resourceID string) ([]*models.Entry, error)
	ListByActionType(ctx context.Context, action id.ActionType) ([]*models.Entry, error)
	ListByTimeRange(ctx context.Context, start, end time.Time) ([]*models.Entry, error)
	ListAll(ctx context.Context) ([]*models.Entry, error)
	UpdateStatus(ctx context.Context, entryID id.EntryID, status id.EntryStatus) (*models.Entry, error)
	Delete(ctx context.Context, entryID id.EntryID) error
}

// Handler wires audit trail endpoints to the audit service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an audit handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts audit endpoints on the router. Status correction and purge
// are restricted to administrators.
func (h *Handler) Register(r chi.Router) {
	r.Post("/audit", h.HandleRecord)
	r.Get("/audit", h.HandleList)
	r.Get("/audit/range", h.HandleListByTimeRange)
	r.Get("/audit/user/{userID}", h.HandleListByUser)
	r.Get("/audit/patient/{patientID}", h.HandleListByPatient)
	r.Get("/audit/{entryID}", h.HandleGet)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(h.logger))
		admin.Put("/audit/{entryID}/status", h.HandleUpdateStatus)
		admin.Delete("/audit/{entryID}", h.HandleDelete)
	})
}

// HandleRecord handles POST /audit requests.
func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := shared.DecodeAndPrepare[*RecordEntryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	userID := req.ParsedUserID()
	if userID.IsNil() {
		userID = requestcontext.UserID(ctx)
	}
	if userID.IsNil() {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "user_id is required"))
		return
	}

	entry, err := h.service.Record(ctx, models.RecordRequest{
		UserID:       userID,
		PatientID:    req.ParsedPatientID(),
		ConsentID:    req.ParsedConsentID(),
		ActionType:   req.ParsedActionType(),
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Details:      req.Details,
		Status:       req.ParsedStatus(),
		AccessTime:   req.ParsedAccessTime(),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to record audit entry",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, FromEntry(entry))
}

// HandleGet handles GET /audit/{entryID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entryID, err := id.ParseEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entry, err := h.service.Get(r.Context(), entryID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, FromEntry(entry))
}

// HandleList handles GET /audit requests. Optional query parameters narrow
// the listing: resource_type with resource_id, or action_type.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		entries []*models.Entry
		err     error
	)
	switch {
	case q.Get("resource_type") != "":
		entries, err = h.service.ListByResource(ctx, q.Get("resource_type"), q.Get("resource_id"))
	case q.Get("action_type") != "":
		var action id.ActionType
		action, err = id.ParseActionType(q.Get("action_type"))
		if err == nil {
			entries, err = h.service.ListByActionType(ctx, action)
		}
	default:
		entries, err = h.service.ListAll(ctx)
	}
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, FromEntries(entries))
}

// HandleListByTimeRange handles GET /audit/range?start=&end= requests. Both
// bounds are RFC 3339 and inclusive.
func (h *Handler) HandleListByTimeRange(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "start must be RFC 3339"))
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "end must be RFC 3339"))
		return
	}

	entries, err := h.service.ListByTimeRange(r.Context(), start, end)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, FromEntries(entries))
}

// HandleListByUser handles GET /audit/user/{userID} requests.
func (h *Handler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entries, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, FromEntries(entries))
}

// HandleListByPatient handles GET /audit/patient/{patientID} requests.
func (h *Handler) HandleListByPatient(w http.ResponseWriter, r *http.Request) {
	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entries, err := h.service.ListByPatient(r.Context(), patientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, FromEntries(entries))
}

// HandleUpdateStatus handles PUT /audit/{entryID}/status requests.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	entryID, err := id.ParseEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	req, ok := shared.DecodeAndPrepare[*UpdateStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.service.UpdateStatus(ctx, entryID, req.ParsedStatus())
	if err != nil {
		h.logger.WarnContext(ctx, "failed to update audit entry status",
			"request_id", requestID,
			"entry_id", entryID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, FromEntry(entry))
}

// HandleDelete handles DELETE /audit/{entryID} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entryID, err := id.ParseEntryID(chi.URLParam(r, "entryID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, entryID); err != nil {
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
