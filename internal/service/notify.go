package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/respondaai/automation-server-go/internal/gateway"
	"github.com/respondaai/automation-server-go/internal/model"
	"github.com/respondaai/automation-server-go/internal/repository"
)

// NotifyService fans out internal notifications to the tenant's staff
// contacts. Delivery is best effort; a failed notification never fails
// the operation that produced it.
type NotifyService struct {
	contacts  repository.NotificationContactRepository
	instances repository.InstanceRepository
	sender    gateway.Sender
}

func NewNotifyService(
	contacts repository.NotificationContactRepository,
	instances repository.InstanceRepository,
	sender gateway.Sender,
) *NotifyService {
	return &NotifyService{contacts: contacts, instances: instances, sender: sender}
}

func (s *NotifyService) NotifyHandoff(ctx context.Context, tenantID, customerPhone string, contactName *string) {
	name := customerPhone
	if contactName != nil && *contactName != "" {
		name = fmt.Sprintf("%s (%s)", *contactName, customerPhone)
	}
	text := fmt.Sprintf(
		"🔔 *Atendimento transferido*\n\nA conversa com %s atingiu o limite de respostas automáticas e precisa de atenção humana.",
		name)

	recipients, err := s.contacts.FindHandoffRecipients(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to load handoff recipients")
		return
	}
	s.fanOut(ctx, tenantID, recipients, text)
}

func (s *NotifyService) NotifyBooking(ctx context.Context, tenantID string, apt *model.Appointment) {
	name := apt.Phone
	if apt.ContactName != nil && *apt.ContactName != "" {
		name = fmt.Sprintf("%s (%s)", *apt.ContactName, apt.Phone)
	}
	text := fmt.Sprintf(
		"📅 *Novo agendamento*\n\nCliente: %s\nServiço: %s\nData: %s às %s",
		name, apt.Title, apt.Date, apt.Time)

	recipients, err := s.contacts.FindBookingRecipients(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("failed to load booking recipients")
		return
	}
	s.fanOut(ctx, tenantID, recipients, text)
}

func (s *NotifyService) fanOut(ctx context.Context, tenantID string, recipients []model.NotificationContact, text string) {
	if len(recipients) == 0 {
		return
	}
	instance, err := s.instances.FindByTenant(ctx, tenantID)
	if err != nil || instance == nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("no channel instance for notifications")
		return
	}
	for _, recipient := range recipients {
		if err := s.sender.SendText(ctx, instance.Name, recipient.Phone, text); err != nil {
			log.Error().Err(err).
				Str("tenant_id", tenantID).
				Str("recipient", recipient.Phone).
				Msg("failed to deliver staff notification")
		}
	}
}
