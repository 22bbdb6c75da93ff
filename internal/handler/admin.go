package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/respondaai/automation-server-go/internal/errors"
	"github.com/respondaai/automation-server-go/internal/httputil"
	"github.com/respondaai/automation-server-go/internal/model"
	"github.com/respondaai/automation-server-go/internal/repository"
	"github.com/respondaai/automation-server-go/internal/service"
)

// AdminHandler exposes the operator API: conversation control and the
// appointment book.
type AdminHandler struct {
	conversations repository.ConversationRepository
	sessions      repository.SessionRepository
	appointments  *service.AppointmentService
}

func NewAdminHandler(
	conversations repository.ConversationRepository,
	sessions repository.SessionRepository,
	appointments *service.AppointmentService,
) *AdminHandler {
	return &AdminHandler{
		conversations: conversations,
		sessions:      sessions,
		appointments:  appointments,
	}
}

// ReactivateConversation is the explicit staff action that turns
// automation back on, including for handed-off sessions.
func (h *AdminHandler) ReactivateConversation(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	phone := chi.URLParam(r, "phone")
	ctx := r.Context()

	conv, err := h.conversations.FindByTenantAndPhone(ctx, tenantID, phone)
	if err != nil {
		httputil.WriteError(w, errors.Database(err))
		return
	}
	if conv == nil {
		httputil.WriteError(w, errors.NotFound("conversation"))
		return
	}

	if err := h.conversations.SetAutomationEnabled(ctx, conv.ID, true); err != nil {
		httputil.WriteError(w, errors.Database(err))
		return
	}
	if err := h.sessions.ReactivateByHuman(ctx, tenantID, phone); err != nil {
		httputil.WriteError(w, errors.Database(err))
		return
	}

	log.Info().Str("tenant_id", tenantID).Str("phone", phone).Msg("conversation reactivated by staff")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reactivated"})
}

type setAutomationRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *AdminHandler) SetAutomation(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	phone := chi.URLParam(r, "phone")

	var req setAutomationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, errors.InvalidInput("body", "expected JSON with enabled field"))
		return
	}

	ctx := r.Context()
	conv, err := h.conversations.FindByTenantAndPhone(ctx, tenantID, phone)
	if err != nil {
		httputil.WriteError(w, errors.Database(err))
		return
	}
	if conv == nil {
		httputil.WriteError(w, errors.NotFound("conversation"))
		return
	}

	if err := h.conversations.SetAutomationEnabled(ctx, conv.ID, req.Enabled); err != nil {
		httputil.WriteError(w, errors.Database(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": req.Enabled})
}

func (h *AdminHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	date := r.URL.Query().Get("date")

	slots, err := h.appointments.CheckAvailability(r.Context(), tenantID, date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "availableSlots": slots})
}

func (h *AdminHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	query := r.URL.Query()

	apts, err := h.appointments.List(r.Context(), tenantID, query.Get("phone"), query.Get("from"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": apts})
}

type createAppointmentRequest struct {
	Phone       string  `json:"phone"`
	ContactName *string `json:"contactName"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Duration    int     `json:"durationMinutes"`
}

func (h *AdminHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, errors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Phone == "" {
		httputil.WriteError(w, errors.MissingRequired("phone"))
		return
	}

	apt, err := h.appointments.Create(r.Context(), model.CreateAppointmentParams{
		TenantID:        tenantID,
		Phone:           req.Phone,
		ContactName:     req.ContactName,
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: req.Duration,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, apt)
}

type updateStatusRequest struct {
	Status model.AppointmentStatus `json:"status"`
}

func (h *AdminHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, errors.InvalidInput("body", "expected JSON with status field"))
		return
	}
	switch req.Status {
	case model.AppointmentScheduled, model.AppointmentConfirmed,
		model.AppointmentCompleted, model.AppointmentCancelled:
	default:
		httputil.WriteError(w, errors.InvalidInput("status", "unknown appointment status"))
		return
	}

	rows, err := h.appointments.UpdateStatus(r.Context(), tenantID, id, req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if rows == 0 {
		httputil.WriteError(w, errors.NotFound("appointment"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": req.Status})
}

func (h *AdminHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	id := chi.URLParam(r, "id")

	rows, err := h.appointments.CancelByID(r.Context(), tenantID, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if rows == 0 {
		httputil.WriteError(w, errors.NotFound("appointment"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
