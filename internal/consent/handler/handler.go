package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"healthgate/internal/consent/models"
	"healthgate/internal/transport/http/shared"
	id "healthgate/pkg/domain"
	"healthgate/pkg/requestcontext"
)

// Service defines the interface for consent registry operations.
type Service interface {
	Create(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID, purpose string, durationDays int) (*models.Consent, error)
	Revoke(ctx context.Context, consentID id.ConsentID) (*models.Consent, error)
	IsActive(ctx context.Context, patientID id.PatientID, doctorID id.DoctorID) (bool, error)
	Get(ctx context.Context, consentID id.ConsentID) (*models.Consent, error)
	ListByPatient(ctx context.Context, patientID id.PatientID) ([]*models.Consent, error)
}

// Handler wires consent registry endpoints to the consent service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a consent handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts consent endpoints on the router. The router is expected to
// already carry the authentication middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consents", h.HandleCreate)
	r.Get("/consents/check", h.HandleCheck)
	r.Get("/consents/{consentID}", h.HandleGet)
	r.Put("/consents/{consentID}/revoke", h.HandleRevoke)
	r.Get("/consents/patient/{patientID}", h.HandleListByPatient)
}

// HandleCreate handles POST /consents requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := shared.DecodeAndPrepare[*CreateConsentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	consent, err := h.service.Create(ctx, req.ParsedPatientID(), req.ParsedDoctorID(), req.Purpose, req.DurationDays)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create consent",
			"request_id", requestID,
			"patient_id", req.PatientID,
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, FromConsent(consent))
}

// HandleCheck handles GET /consents/check?patient_id=&doctor_id= requests.
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patientID, err := id.ParsePatientID(r.URL.Query().Get("patient_id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	doctorID, err := id.ParseDoctorID(r.URL.Query().Get("doctor_id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	active, err := h.service.IsActive(ctx, patientID, doctorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to check consent activity",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, CheckResponse{IsActive: active})
}

// HandleGet handles GET /consents/{consentID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	consentID, err := id.ParseConsentID(chi.URLParam(r, "consentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	consent, err := h.service.Get(ctx, consentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, FromConsent(consent))
}

// HandleRevoke handles PUT /consents/{consentID}/revoke requests.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	consentID, err := id.ParseConsentID(chi.URLParam(r, "consentID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	consent, err := h.service.Revoke(ctx, consentID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to revoke consent",
			"request_id", requestID,
			"consent_id", consentID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, FromConsent(consent))
}

// HandleListByPatient handles GET /consents/patient/{patientID} requests.
func (h *Handler) HandleListByPatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	patientID, err := id.ParsePatientID(chi.URLParam(r, "patientID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	consents, err := h.service.ListByPatient(ctx, patientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, FromConsents(consents))
}
