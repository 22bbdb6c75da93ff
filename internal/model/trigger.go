package model

import (
	"time"
)

// PendingTrigger is the persisted debounce schedule for one conversation.
// At most one unprocessed row exists per (tenant, phone); new inbound
// activity overwrites scheduled_at instead of inserting a duplicate.
type PendingTrigger struct {
	ID          string    `db:"id" json:"id"`
	TenantID    string    `db:"tenant_id" json:"tenantId"`
	Phone       string    `db:"phone" json:"phone"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduledAt"`
	Processed   bool      `db:"processed" json:"processed"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}
