package model

import (
	"time"
)

type Conversation struct {
	ID                string     `db:"id" json:"id"`
	TenantID          string     `db:"tenant_id" json:"tenantId"`
	Phone             string     `db:"phone" json:"phone"`
	ContactName       *string    `db:"contact_name" json:"contactName,omitempty"`
	AutomationEnabled bool       `db:"automation_enabled" json:"automationEnabled"`
	TotalMessages     int        `db:"total_messages" json:"totalMessages"`
	LastMessageAt     *time.Time `db:"last_message_at" json:"lastMessageAt,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
}

type UpsertConversationParams struct {
	TenantID          string
	Phone             string
	ContactName       *string
	AutomationEnabled bool
}
