package model

import (
	"time"

	"github.com/lib/pq"
)

type Appointment struct {
	ID                  string            `db:"id" json:"id"`
	TenantID            string            `db:"tenant_id" json:"tenantId"`
	Phone               string            `db:"phone" json:"phone"`
	ContactName         *string           `db:"contact_name" json:"contactName,omitempty"`
	Title               string            `db:"title" json:"title"`
	Description         *string           `db:"description" json:"description,omitempty"`
	Date                string            `db:"appointment_date" json:"date"`
	Time                string            `db:"appointment_time" json:"time"`
	DurationMinutes     int               `db:"duration_minutes" json:"durationMinutes"`
	Status              AppointmentStatus `db:"status" json:"status"`
	Tags                pq.StringArray    `db:"tags" json:"tags"`
	ReminderSent        bool              `db:"reminder_sent" json:"reminderSent"`
	ConfirmedByCustomer bool              `db:"confirmed_by_customer" json:"confirmedByCustomer"`
	CreatedAt           time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time         `db:"updated_at" json:"updatedAt"`
}

type CreateAppointmentParams struct {
	TenantID        string
	Phone           string
	ContactName     *string
	Title           string
	Description     *string
	Date            string
	Time            string
	DurationMinutes int
}

// SlotRule defines the bookable window for one weekday. Candidate start
// times are generated at SlotMinutes granularity across the window; each
// candidate admits up to Capacity non-cancelled appointments.
type SlotRule struct {
	ID          string `db:"id" json:"id"`
	TenantID    string `db:"tenant_id" json:"tenantId"`
	Weekday     int    `db:"weekday" json:"weekday"`
	StartTime   string `db:"start_time" json:"startTime"`
	EndTime     string `db:"end_time" json:"endTime"`
	SlotMinutes int    `db:"slot_minutes" json:"slotMinutes"`
	Capacity    int    `db:"capacity" json:"capacity"`
	Active      bool   `db:"active" json:"active"`
}
