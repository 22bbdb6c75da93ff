package audit

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventTriggerClaimed  EventType = "trigger_claimed"
	EventReplyGenerated  EventType = "reply_generated"
	EventHandoff         EventType = "handoff"
	EventBookingCreated  EventType = "booking_created"
	EventBookingRejected EventType = "booking_rejected"
	EventOutOfHoursReply EventType = "out_of_hours_reply"
	EventHumanTakeover   EventType = "human_takeover"
	EventReminderSent    EventType = "reminder_sent"
)

type Event struct {
	Type     EventType
	TenantID string
	Phone    string
	Details  map[string]interface{}
}

// Log writes one structured automation audit event.
func Log(event Event) {
	logger := log.With().
		Str("audit", "automation").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.TenantID != "" {
		logger = logger.With().Str("tenant_id", event.TenantID).Logger()
	}
	if event.Phone != "" {
		logger = logger.With().Str("phone", event.Phone).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("automation audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}
