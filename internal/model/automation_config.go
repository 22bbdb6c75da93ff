package model

import (
	"time"

	"github.com/lib/pq"
)

// AutomationConfig is the per-tenant configuration surface consumed by the
// gate, generator and reminder job.
type AutomationConfig struct {
	ID                       string         `db:"id" json:"id"`
	TenantID                 string         `db:"tenant_id" json:"tenantId"`
	Enabled                  bool           `db:"enabled" json:"enabled"`
	AgentName                string         `db:"agent_name" json:"agentName"`
	PersonaPrompt            string         `db:"persona_prompt" json:"personaPrompt"`
	BusinessHoursStart       string         `db:"business_hours_start" json:"businessHoursStart"`
	BusinessHoursEnd         string         `db:"business_hours_end" json:"businessHoursEnd"`
	BusinessDays             pq.Int64Array  `db:"business_days" json:"businessDays"`
	MaxRepliesWithoutHuman   int            `db:"max_replies_without_human" json:"maxRepliesWithoutHuman"`
	KeywordActivationEnabled bool           `db:"keyword_activation_enabled" json:"keywordActivationEnabled"`
	TriggerKeywords          pq.StringArray `db:"trigger_keywords" json:"triggerKeywords"`
	ReplyDelaySeconds        int            `db:"reply_delay_seconds" json:"replyDelaySeconds"`
	OutOfHoursMessage        string         `db:"out_of_hours_message" json:"outOfHoursMessage"`
	HandoffMessage           string         `db:"handoff_message" json:"handoffMessage"`
	RemindersEnabled         bool           `db:"reminders_enabled" json:"remindersEnabled"`
	ReminderHoursBefore      int            `db:"reminder_hours_before" json:"reminderHoursBefore"`
	ReminderTemplate         string         `db:"reminder_template" json:"reminderTemplate"`
	UpdatedAt                time.Time      `db:"updated_at" json:"updatedAt"`
}

// IsBusinessDay reports whether the weekday (0 = Sunday) is configured as a
// business day. An empty set means Monday through Friday.
func (c *AutomationConfig) IsBusinessDay(weekday int) bool {
	days := c.BusinessDays
	if len(days) == 0 {
		days = pq.Int64Array{1, 2, 3, 4, 5}
	}
	for _, d := range days {
		if int(d) == weekday {
			return true
		}
	}
	return false
}
