package model

import (
	"time"
)

// ChannelInstance maps a tenant to its messaging channel instance. The
// gateway addresses outbound sends by instance name.
type ChannelInstance struct {
	ID          string         `db:"id" json:"id"`
	TenantID    string         `db:"tenant_id" json:"tenantId"`
	Name        string         `db:"instance_name" json:"instanceName"`
	Status      InstanceStatus `db:"status" json:"status"`
	PhoneNumber *string        `db:"phone_number" json:"phoneNumber,omitempty"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}
