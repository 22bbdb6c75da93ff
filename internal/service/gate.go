package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/respondaai/automation-server-go/internal/audit"
	"github.com/respondaai/automation-server-go/internal/config"
	"github.com/respondaai/automation-server-go/internal/metrics"
	"github.com/respondaai/automation-server-go/internal/model"
	"github.com/respondaai/automation-server-go/internal/repository"
)

const (
	defaultOutOfHoursMessage = "No momento estamos fora do horário de atendimento. Assim que a equipe voltar, retornamos sua mensagem! 🙏"
	defaultHandoffMessage    = "Vou passar sua conversa para um de nossos atendentes, só um momento por favor. 🙏"
)

// GateService decides, for each claimed trigger, whether a reply may be
// generated and runs the reply pipeline when it may. The checks run in a
// fixed order: disabled, out of hours, handed off, quota, keyword gating.
type GateService struct {
	configs       repository.ConfigRepository
	conversations repository.ConversationRepository
	sessions      repository.SessionRepository
	messages      repository.MessageRepository
	instances     repository.InstanceRepository
	generator     *Generator
	pacer         *Pacer
	notify        *NotifyService
	now           func() time.Time
}

func NewGateService(
	configs repository.ConfigRepository,
	conversations repository.ConversationRepository,
	sessions repository.SessionRepository,
	messages repository.MessageRepository,
	instances repository.InstanceRepository,
	generator *Generator,
	pacer *Pacer,
	notify *NotifyService,
) *GateService {
	return &GateService{
		configs:       configs,
		conversations: conversations,
		sessions:      sessions,
		messages:      messages,
		instances:     instances,
		generator:     generator,
		pacer:         pacer,
		notify:        notify,
		now:           time.Now,
	}
}

// HandleTriggerFired runs the gate for one claimed trigger. Returning nil
// means the firing is settled, including the cases where policy decided
// to stay silent.
func (s *GateService) HandleTriggerFired(ctx context.Context, tenantID, phone string) error {
	cfg, err := s.configs.FindByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	conv, err := s.conversations.FindByTenantAndPhone(ctx, tenantID, phone)
	if err != nil {
		return err
	}
	if conv == nil || !conv.AutomationEnabled {
		return nil
	}

	instance, err := s.instances.FindByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if instance == nil {
		log.Warn().Str("tenant_id", tenantID).Msg("trigger fired for tenant without channel instance")
		return nil
	}

	session, err := s.sessions.FindByTenantAndPhone(ctx, tenantID, phone)
	if err != nil {
		return err
	}

	now := s.now()
	if !withinBusinessHours(cfg, now) {
		return s.handleOutOfHours(ctx, cfg, conv, session, instance.Name, now)
	}

	if session != nil && session.Status == model.SessionHandedOff {
		return nil
	}

	maxReplies := cfg.MaxRepliesWithoutHuman
	if maxReplies <= 0 {
		maxReplies = config.DefaultMaxReplies
	}
	if session != nil && session.RepliesWithoutHuman >= maxReplies {
		return s.handleQuotaExhausted(ctx, cfg, conv, instance.Name)
	}

	aggregated, err := s.aggregateBurst(ctx, conv.ID)
	if err != nil {
		return err
	}
	if aggregated == "" {
		return nil
	}

	if cfg.KeywordActivationEnabled && (session == nil || session.Status != model.SessionActive) {
		if !matchesKeyword(aggregated, cfg.TriggerKeywords) {
			return nil
		}
		if err := s.sessions.MarkActive(ctx, tenantID, phone); err != nil {
			return err
		}
	}

	reply, err := s.generator.GenerateReply(ctx, cfg, conv)
	if err != nil {
		log.Error().Err(err).
			Str("tenant_id", tenantID).
			Str("phone", phone).
			Msg("reply generation aborted")
		return err
	}
	if reply == "" {
		return nil
	}

	if err := s.deliver(ctx, conv, instance.Name, reply); err != nil {
		return err
	}
	if err := s.sessions.IncrementReplies(ctx, tenantID, phone); err != nil {
		return err
	}

	metrics.RepliesGenerated.Inc()
	audit.Log(audit.Event{
		Type:     audit.EventReplyGenerated,
		TenantID: tenantID,
		Phone:    phone,
		Details:  map[string]interface{}{"length": len(reply)},
	})
	return nil
}

// handleOutOfHours sends the away message at most once per calendar day
// and never consumes reply quota.
func (s *GateService) handleOutOfHours(
	ctx context.Context,
	cfg *model.AutomationConfig,
	conv *model.Conversation,
	session *model.AutomationSession,
	instanceName string,
	now time.Time,
) error {
	if session != nil && session.OutOfHoursNotifiedAt != nil {
		notified := session.OutOfHoursNotifiedAt.In(now.Location())
		if notified.Year() == now.Year() && notified.YearDay() == now.YearDay() {
			return nil
		}
	}

	message := cfg.OutOfHoursMessage
	if message == "" {
		message = defaultOutOfHoursMessage
	}
	if err := s.deliver(ctx, conv, instanceName, message); err != nil {
		return err
	}
	if err := s.sessions.MarkOutOfHoursNotified(ctx, cfg.TenantID, conv.Phone); err != nil {
		return err
	}

	audit.Log(audit.Event{
		Type:     audit.EventOutOfHoursReply,
		TenantID: cfg.TenantID,
		Phone:    conv.Phone,
	})
	return nil
}

// handleQuotaExhausted hands the session off. The handoff transition is
// what makes the farewell message one-shot: subsequent firings stop at
// the handed_off check.
func (s *GateService) handleQuotaExhausted(
	ctx context.Context,
	cfg *model.AutomationConfig,
	conv *model.Conversation,
	instanceName string,
) error {
	if err := s.sessions.MarkHandedOff(ctx, cfg.TenantID, conv.Phone); err != nil {
		return err
	}

	message := cfg.HandoffMessage
	if message == "" {
		message = defaultHandoffMessage
	}
	if err := s.deliver(ctx, conv, instanceName, message); err != nil {
		return err
	}

	s.notify.NotifyHandoff(ctx, cfg.TenantID, conv.Phone, conv.ContactName)

	metrics.Handoffs.Inc()
	audit.Log(audit.Event{
		Type:     audit.EventHandoff,
		TenantID: cfg.TenantID,
		Phone:    conv.Phone,
		Details:  map[string]interface{}{"reason": "reply_quota_exhausted"},
	})
	return nil
}

// deliver sends a reply through the pacer and persists each part as an
// outbound automation message.
func (s *GateService) deliver(ctx context.Context, conv *model.Conversation, instanceName, text string) error {
	return s.pacer.Deliver(ctx, instanceName, conv.Phone, text, func(part string) error {
		_, err := s.messages.Create(ctx, model.CreateMessageParams{
			ID:             uuid.NewString(),
			ConversationID: conv.ID,
			Direction:      model.DirectionOutbound,
			Author:         model.AuthorAutomation,
			Kind:           model.KindText,
			Content:        part,
		})
		if err != nil {
			return err
		}
		return s.conversations.RecordActivity(ctx, conv.ID)
	})
}

// aggregateBurst joins the trailing inbound messages into the text the
// keyword gate inspects.
func (s *GateService) aggregateBurst(ctx context.Context, conversationID string) (string, error) {
	msgs, err := s.messages.FindRecentInbound(ctx, conversationID, config.DebounceAggregateLimit)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Content != "" {
			parts = append(parts, msg.Content)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func withinBusinessHours(cfg *model.AutomationConfig, now time.Time) bool {
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

// matchesKeyword does a case-insensitive substring match of any trigger
// keyword against the aggregated burst.
func matchesKeyword(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword != "" && strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
