package jobs

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/respondaai/automation-server-go/internal/audit"
	"github.com/respondaai/automation-server-go/internal/config"
	"github.com/respondaai/automation-server-go/internal/gateway"
	"github.com/respondaai/automation-server-go/internal/metrics"
	"github.com/respondaai/automation-server-go/internal/model"
	"github.com/respondaai/automation-server-go/internal/repository"
)

const defaultReminderTemplate = "Olá {nome}! Passando para lembrar do seu agendamento de {titulo} {dia_referencia} às {hora}. Podemos confirmar sua presença?"

// ReminderJob sends appointment reminders ahead of their start time.
// Reminders only go out during the tenant's business hours; each
// appointment is reminded at most once.
type ReminderJob struct {
	configs       repository.ConfigRepository
	appointments  repository.AppointmentRepository
	instances     repository.InstanceRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	sender        gateway.Sender
	interval      time.Duration
	now           func() time.Time
	done          chan struct{}
}

func NewReminderJob(
	configs repository.ConfigRepository,
	appointments repository.AppointmentRepository,
	instances repository.InstanceRepository,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	sender gateway.Sender,
	interval time.Duration,
) *ReminderJob {
	return &ReminderJob{
		configs:       configs,
		appointments:  appointments,
		instances:     instances,
		conversations: conversations,
		messages:      messages,
		sender:        sender,
		interval:      interval,
		now:           time.Now,
		done:          make(chan struct{}),
	}
}

func (j *ReminderJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("reminder job started")
}

func (j *ReminderJob) Stop() {
	close(j.done)
	log.Info().Msg("reminder job stopped")
}

func (j *ReminderJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *ReminderJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepWorkTimeout)
	defer cancel()

	cfgs, err := j.configs.FindWithRemindersEnabled(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load reminder configs")
		return
	}
	for i := range cfgs {
		j.sweepTenant(ctx, &cfgs[i])
	}
}

func (j *ReminderJob) sweepTenant(ctx context.Context, cfg *model.AutomationConfig) {
	now := j.now()
	if !withinBusinessWindow(cfg, now) {
		return
	}

	instance, err := j.instances.FindByTenant(ctx, cfg.TenantID)
	if err != nil || instance == nil {
		return
	}

	// Appointments starting today or tomorrow can fall inside the
	// reminder lead window.
	today := now.Format("2006-01-02")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")
	apts, err := j.appointments.FindUnreminded(ctx, cfg.TenantID, []string{today, tomorrow})
	if err != nil {
		log.Error().Err(err).Str("tenant_id", cfg.TenantID).Msg("failed to load unreminded appointments")
		return
	}

	leadHours := cfg.ReminderHoursBefore
	if leadHours <= 0 {
		leadHours = config.DefaultReminderHours
	}

	for i := range apts {
		apt := &apts[i]
		startsAt, err := time.ParseInLocation("2006-01-02 15:04", apt.Date+" "+apt.Time, now.Location())
		if err != nil {
			continue
		}
		if startsAt.Before(now) {
			continue
		}
		if startsAt.Sub(now) > time.Duration(leadHours)*time.Hour {
			continue
		}
		j.send(ctx, cfg, instance.Name, apt, today)
	}
}

func (j *ReminderJob) send(ctx context.Context, cfg *model.AutomationConfig, instanceName string, apt *model.Appointment, today string) {
	text := renderReminder(cfg.ReminderTemplate, apt, today)
	if err := j.sender.SendText(ctx, instanceName, apt.Phone, text); err != nil {
		log.Error().Err(err).
			Str("tenant_id", cfg.TenantID).
			Str("appointment_id", apt.ID).
			Msg("failed to deliver reminder")
		return
	}
	if err := j.appointments.MarkReminderSent(ctx, apt.ID); err != nil {
		log.Error().Err(err).Str("appointment_id", apt.ID).Msg("failed to mark reminder sent")
		return
	}
	j.recordOutbound(ctx, cfg.TenantID, apt.Phone, text)

	metrics.RemindersSent.Inc()
	audit.Log(audit.Event{
		Type:     audit.EventReminderSent,
		TenantID: cfg.TenantID,
		Phone:    apt.Phone,
		Details:  map[string]interface{}{"appointment_id": apt.ID},
	})
}

// recordOutbound keeps the conversation log complete so the next
// completion call sees the reminder it is being answered about.
func (j *ReminderJob) recordOutbound(ctx context.Context, tenantID, phone, text string) {
	conv, err := j.conversations.FindByTenantAndPhone(ctx, tenantID, phone)
	if err != nil || conv == nil {
		return
	}
	if _, err := j.messages.Create(ctx, model.CreateMessageParams{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		Direction:      model.DirectionOutbound,
		Author:         model.AuthorAutomation,
		Kind:           model.KindText,
		Content:        text,
	}); err != nil {
		log.Error().Err(err).Str("phone", phone).Msg("failed to persist reminder message")
		return
	}
	_ = j.conversations.RecordActivity(ctx, conv.ID)
}

func renderReminder(template string, apt *model.Appointment, today string) string {
	if template == "" {
		template = defaultReminderTemplate
	}
	name := apt.Phone
	if apt.ContactName != nil && *apt.ContactName != "" {
		name = *apt.ContactName
	}
	dayRef := "amanhã"
	if apt.Date == today {
		dayRef = "hoje"
	}

	replacer := strings.NewReplacer(
		"{nome}", name,
		"{titulo}", apt.Title,
		"{dia_referencia}", dayRef,
		"{data}", apt.Date,
		"{hora}", apt.Time,
	)
	return replacer.Replace(template)
}

func withinBusinessWindow(cfg *model.AutomationConfig, now time.Time) bool {
	if !cfg.IsBusinessDay(int(now.Weekday())) {
		return false
	}
	start := cfg.BusinessHoursStart
	if start == "" {
		start = config.DefaultBusinessHoursStart
	}
	end := cfg.BusinessHoursEnd
	if end == "" {
		end = config.DefaultBusinessHoursEnd
	}
	current := now.Format("15:04")
	return current >= start && current < end
}
