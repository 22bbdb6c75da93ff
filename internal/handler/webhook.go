package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/respondaai/automation-server-go/internal/metrics"
	"github.com/respondaai/automation-server-go/internal/model"
	"github.com/respondaai/automation-server-go/internal/repository"
	"github.com/respondaai/automation-server-go/internal/service"
)

// WebhookHandler receives gateway events. It always acknowledges with
// 200 once the envelope decodes; the gateway retries on anything else
// and duplicate retries are worse than a dropped malformed event.
type WebhookHandler struct {
	instances repository.InstanceRepository
	intake    *service.IntakeService
}

func NewWebhookHandler(instances repository.InstanceRepository, intake *service.IntakeService) *WebhookHandler {
	return &WebhookHandler{instances: instances, intake: intake}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var envelope WebhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		log.Warn().Err(err).Msg("invalid webhook payload")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	metrics.WebhookEvents.WithLabelValues(envelope.Event).Inc()

	ctx := r.Context()
	instance, err := h.instances.FindByName(ctx, envelope.Instance)
	if err != nil {
		log.Error().Err(err).Str("instance", envelope.Instance).Msg("instance lookup failed")
		writeJSON(w, http.StatusOK, map[string]string{"status": "error"})
		return
	}
	if instance == nil {
		log.Warn().Str("instance", envelope.Instance).Msg("event for unknown instance")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	switch envelope.Event {
	case eventMessagesUpsert:
		h.handleMessage(w, r, instance.TenantID, envelope)
	case eventConnectionUpdate:
		h.handleConnectionUpdate(w, r, instance.TenantID, envelope)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

func (h *WebhookHandler) handleMessage(w http.ResponseWriter, r *http.Request, tenantID string, envelope WebhookEnvelope) {
	data := envelope.Data
	if data.Key.IsGroup() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	phone := data.Key.Phone()
	if phone == "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	event := service.InboundEvent{
		TenantID:    tenantID,
		Phone:       phone,
		ContactName: data.PushName,
		MessageID:   data.Key.ID,
		FromMe:      data.Key.FromMe,
		Source:      data.Source,
		Kind:        messageKind(data.Message),
		Text:        data.Message.Text(),
	}
	if data.Message != nil {
		switch {
		case data.Message.AudioMessage != nil:
			event.MediaURL = data.Message.AudioMessage.URL
		case data.Message.ImageMessage != nil:
			event.MediaURL = data.Message.ImageMessage.URL
		}
	}

	if err := h.intake.HandleEvent(r.Context(), event); err != nil {
		log.Error().Err(err).
			Str("tenant_id", tenantID).
			Str("phone", phone).
			Msg("failed to process message event")
		writeJSON(w, http.StatusOK, map[string]string{"status": "error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WebhookHandler) handleConnectionUpdate(w http.ResponseWriter, r *http.Request, tenantID string, envelope WebhookEnvelope) {
	status := model.InstanceDisconnected
	if envelope.Data.State == "open" {
		status = model.InstanceConnected
	}
	if err := h.instances.UpdateStatus(r.Context(), tenantID, status, nil); err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to update instance status")
	}
	log.Info().
		Str("tenant_id", tenantID).
		Str("state", envelope.Data.State).
		Msg("channel connection update")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func messageKind(m *MessageContent) model.MessageKind {
	switch {
	case m == nil:
		return model.KindText
	case m.AudioMessage != nil:
		return model.KindAudio
	case m.ImageMessage != nil:
		return model.KindImage
	case m.DocumentMessage != nil:
		return model.KindDocument
	default:
		return model.KindText
	}
}
