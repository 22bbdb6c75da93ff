package model

type NotificationContact struct {
	ID             string `db:"id" json:"id"`
	TenantID       string `db:"tenant_id" json:"tenantId"`
	Phone          string `db:"phone" json:"phone"`
	Name           string `db:"name" json:"name"`
	NotifyHandoffs bool   `db:"notify_handoffs" json:"notifyHandoffs"`
	NotifyBookings bool   `db:"notify_bookings" json:"notifyBookings"`
}
