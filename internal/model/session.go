package model

import (
	"time"
)

// AutomationSession tracks the automation state for one (tenant, phone) pair.
// handed_off is terminal except via explicit human reactivation; keyword
// matches only reactivate sessions that are still inactive.
type AutomationSession struct {
	ID                   string        `db:"id" json:"id"`
	TenantID             string        `db:"tenant_id" json:"tenantId"`
	Phone                string        `db:"phone" json:"phone"`
	Status               SessionStatus `db:"status" json:"status"`
	RepliesWithoutHuman  int           `db:"replies_without_human" json:"repliesWithoutHuman"`
	LastHumanReplyAt     *time.Time    `db:"last_human_reply_at" json:"lastHumanReplyAt,omitempty"`
	HandedOffAt          *time.Time    `db:"handed_off_at" json:"handedOffAt,omitempty"`
	OutOfHoursNotifiedAt *time.Time    `db:"out_of_hours_notified_at" json:"outOfHoursNotifiedAt,omitempty"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updatedAt"`
}
