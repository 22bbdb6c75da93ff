package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/respondaai/automation-server-go/internal/audit"
	"github.com/respondaai/automation-server-go/internal/config"
	"github.com/respondaai/automation-server-go/internal/gateway"
	"github.com/respondaai/automation-server-go/internal/model"
	"github.com/respondaai/automation-server-go/internal/repository"
)

// Media placeholders recorded when content cannot be turned into text.
const (
	placeholderAudio    = "[Áudio não transcrito]"
	placeholderImage    = "[Imagem recebida]"
	placeholderDocument = "[Documento recebido]"
)

// InboundEvent is one message event after webhook decoding.
type InboundEvent struct {
	TenantID    string
	Phone       string
	ContactName string
	MessageID   string
	FromMe      bool
	Source      string
	Kind        model.MessageKind
	Text        string
	MediaURL    string
}

// IntakeService classifies inbound events, persists them and arms the
// debounce window.
type IntakeService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	sessions      repository.SessionRepository
	configs       repository.ConfigRepository
	transcriber   gateway.Transcriber
	debounce      *DebounceService
	gate          TriggerHandler
	now           func() time.Time
}

func NewIntakeService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	sessions repository.SessionRepository,
	configs repository.ConfigRepository,
	transcriber gateway.Transcriber,
	debounce *DebounceService,
	gate TriggerHandler,
) *IntakeService {
	return &IntakeService{
		conversations: conversations,
		messages:      messages,
		sessions:      sessions,
		configs:       configs,
		transcriber:   transcriber,
		debounce:      debounce,
		gate:          gate,
		now:           time.Now,
	}
}

// HandleEvent processes one message event. Echoes of the automation's own
// sends arrive flagged from_me with an api source and are dropped; any
// other outbound message means a human picked up the conversation.
func (s *IntakeService) HandleEvent(ctx context.Context, event InboundEvent) error {
	if event.FromMe {
		if event.Source == "api" {
			return nil
		}
		return s.handleHumanOutbound(ctx, event)
	}
	return s.handleCustomerInbound(ctx, event)
}

// handleHumanOutbound records a message typed by staff and switches the
// conversation to manual mode. The hard off survives until a keyword
// match or an explicit reactivation turns automation back on.
func (s *IntakeService) handleHumanOutbound(ctx context.Context, event InboundEvent) error {
	conv, err := s.conversations.Upsert(ctx, model.UpsertConversationParams{
		TenantID:          event.TenantID,
		Phone:             event.Phone,
		ContactName:       optional(event.ContactName),
		AutomationEnabled: true,
	})
	if err != nil {
		return err
	}

	if _, err := s.messages.Create(ctx, model.CreateMessageParams{
		ID:             messageID(event),
		ConversationID: conv.ID,
		Direction:      model.DirectionOutbound,
		Author:         model.AuthorHuman,
		Kind:           event.Kind,
		Content:        s.resolveContent(ctx, event),
	}); err != nil {
		return err
	}
	if err := s.conversations.RecordActivity(ctx, conv.ID); err != nil {
		return err
	}

	if err := s.conversations.SetAutomationEnabled(ctx, conv.ID, false); err != nil {
		return err
	}
	if err := s.sessions.RecordHumanReply(ctx, event.TenantID, event.Phone); err != nil {
		return err
	}

	audit.Log(audit.Event{
		Type:     audit.EventHumanTakeover,
		TenantID: event.TenantID,
		Phone:    event.Phone,
	})
	return nil
}

func (s *IntakeService) handleCustomerInbound(ctx context.Context, event InboundEvent) error {
	conv, err := s.conversations.Upsert(ctx, model.UpsertConversationParams{
		TenantID:          event.TenantID,
		Phone:             event.Phone,
		ContactName:       optional(event.ContactName),
		AutomationEnabled: true,
	})
	if err != nil {
		return err
	}

	content := s.resolveContent(ctx, event)
	if _, err := s.messages.Create(ctx, model.CreateMessageParams{
		ID:             messageID(event),
		ConversationID: conv.ID,
		Direction:      model.DirectionInbound,
		Author:         model.AuthorCustomer,
		Kind:           event.Kind,
		Content:        content,
	}); err != nil {
		return err
	}
	if err := s.conversations.RecordActivity(ctx, conv.ID); err != nil {
		return err
	}

	cfg, err := s.configs.FindByTenant(ctx, event.TenantID)
	if err != nil {
		return err
	}
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	if !conv.AutomationEnabled {
		if !cfg.KeywordActivationEnabled || !matchesKeyword(content, cfg.TriggerKeywords) {
			return nil
		}
		// A trigger keyword turns automation back on for a conversation a
		// human had taken over. Handed-off sessions stay handed off; the
		// session upsert refuses to flip them.
		if err := s.conversations.SetAutomationEnabled(ctx, conv.ID, true); err != nil {
			return err
		}
		if err := s.sessions.MarkActive(ctx, event.TenantID, event.Phone); err != nil {
			return err
		}
	}

	// Out of hours there is nothing to debounce: no reply will be
	// generated, so the gate runs inline to send the away message and no
	// trigger row is armed.
	if !withinBusinessHours(cfg, s.now()) {
		return s.gate.HandleTriggerFired(ctx, event.TenantID, event.Phone)
	}

	delay := time.Duration(cfg.ReplyDelaySeconds) * time.Second
	if cfg.ReplyDelaySeconds < 0 {
		delay = 0
	} else if cfg.ReplyDelaySeconds == 0 {
		delay = time.Duration(config.DefaultReplyDelaySeconds) * time.Second
	}
	return s.debounce.Schedule(ctx, event.TenantID, event.Phone, delay)
}

// resolveContent turns a media message into text, falling back to a
// placeholder so the conversation log never has silent gaps.
func (s *IntakeService) resolveContent(ctx context.Context, event InboundEvent) string {
	switch event.Kind {
	case model.KindAudio:
		if s.transcriber == nil || event.MediaURL == "" {
			return placeholderAudio
		}
		text, err := s.transcriber.Transcribe(ctx, event.MediaURL)
		if err != nil || text == "" {
			log.Warn().Err(err).Str("phone", event.Phone).Msg("transcription failed, using placeholder")
			return placeholderAudio
		}
		return text
	case model.KindImage:
		if event.Text != "" {
			return placeholderImage + " " + event.Text
		}
		return placeholderImage
	case model.KindDocument:
		return placeholderDocument
	default:
		return event.Text
	}
}

func messageID(event InboundEvent) string {
	if event.MessageID != "" {
		return event.MessageID
	}
	return uuid.NewString()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
