package repository

import (
	"context"

	"github.com/lib/pq"

	"github.com/respondaai/automation-server-go/internal/database"
	"github.com/respondaai/automation-server-go/internal/model"
)

// SlotCount is the number of non-cancelled appointments at one start time.
type SlotCount struct {
	Time  string `db:"appointment_time"`
	Count int    `db:"count"`
}

type AppointmentRepository interface {
	FindByID(ctx context.Context, tenantID, id string) (*model.Appointment, error)
	Create(ctx context.Context, params model.CreateAppointmentParams) (*model.Appointment, error)
	CountActiveAt(ctx context.Context, tenantID, date, timeOfDay string) (int, error)
	CountActiveByDate(ctx context.Context, tenantID, date string) ([]SlotCount, error)
	CancelByID(ctx context.Context, tenantID, id string) (int64, error)
	CancelBySlot(ctx context.Context, tenantID, phone, date, timeOfDay string) (int64, error)
	UpdateStatus(ctx context.Context, tenantID, id string, status model.AppointmentStatus) (int64, error)
	FindEarliestScheduled(ctx context.Context, tenantID, phone, id string) (*model.Appointment, error)
	Confirm(ctx context.Context, id string, tags []string) error
	UpdateTags(ctx context.Context, tenantID, id string, tags []string) error
	ListUpcoming(ctx context.Context, tenantID, phone, fromDate string, limit int) ([]model.Appointment, error)
	FindUnreminded(ctx context.Context, tenantID string, dates []string) ([]model.Appointment, error)
	MarkReminderSent(ctx context.Context, id string) error
}

type appointmentRepo struct {
	db database.DBTX
}

func NewAppointmentRepository(db database.DBTX) AppointmentRepository {
	return &appointmentRepo{db: db}
}

func (r *appointmentRepo) FindByID(ctx context.Context, tenantID, id string) (*model.Appointment, error) {
	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, `
		SELECT * FROM appointments WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return HandleNotFound(&apt, err)
}

func (r *appointmentRepo) Create(ctx context.Context, params model.CreateAppointmentParams) (*model.Appointment, error) {
	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, `
		INSERT INTO appointments
			(tenant_id, phone, contact_name, title, description, appointment_date, appointment_time, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'scheduled')
		RETURNING *
	`, params.TenantID, params.Phone, params.ContactName, params.Title,
		params.Description, params.Date, params.Time, params.DurationMinutes)
	if err != nil {
		return nil, err
	}
	return &apt, nil
}

func (r *appointmentRepo) CountActiveAt(ctx context.Context, tenantID, date, timeOfDay string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM appointments
		WHERE tenant_id = $1 AND appointment_date = $2 AND appointment_time = $3
			AND status <> 'cancelled'
	`, tenantID, date, timeOfDay)
	return count, err
}

func (r *appointmentRepo) CountActiveByDate(ctx context.Context, tenantID, date string) ([]SlotCount, error) {
	var counts []SlotCount
	err := r.db.SelectContext(ctx, &counts, `
		SELECT appointment_time, COUNT(*) AS count FROM appointments
		WHERE tenant_id = $1 AND appointment_date = $2 AND status <> 'cancelled'
		GROUP BY appointment_time
	`, tenantID, date)
	return counts, err
}

func (r *appointmentRepo) CancelByID(ctx context.Context, tenantID, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET
			status = 'cancelled',
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND status <> 'cancelled'
	`, tenantID, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *appointmentRepo) CancelBySlot(ctx context.Context, tenantID, phone, date, timeOfDay string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET
			status = 'cancelled',
			updated_at = NOW()
		WHERE tenant_id = $1 AND phone = $2 AND appointment_date = $3
			AND appointment_time = $4 AND status <> 'cancelled'
	`, tenantID, phone, date, timeOfDay)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *appointmentRepo) UpdateStatus(ctx context.Context, tenantID, id string, status model.AppointmentStatus) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET
			status = $3,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id, status)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// FindEarliestScheduled returns the next scheduled appointment for the
// counterpart, optionally narrowed to one id.
func (r *appointmentRepo) FindEarliestScheduled(ctx context.Context, tenantID, phone, id string) (*model.Appointment, error) {
	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, `
		SELECT * FROM appointments
		WHERE tenant_id = $1 AND status = 'scheduled'
			AND ($2 = '' OR phone = $2)
			AND ($3 = '' OR id = $3)
		ORDER BY appointment_date ASC, appointment_time ASC
		LIMIT 1
	`, tenantID, phone, id)
	return HandleNotFound(&apt, err)
}

func (r *appointmentRepo) Confirm(ctx context.Context, id string, tags []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET
			status = 'confirmed',
			confirmed_by_customer = TRUE,
			tags = $2,
			updated_at = NOW()
		WHERE id = $1
	`, id, pq.StringArray(tags))
	return err
}

func (r *appointmentRepo) UpdateTags(ctx context.Context, tenantID, id string, tags []string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET
			tags = $3,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id, pq.StringArray(tags))
	return err
}

func (r *appointmentRepo) ListUpcoming(ctx context.Context, tenantID, phone, fromDate string, limit int) ([]model.Appointment, error) {
	var apts []model.Appointment
	err := r.db.SelectContext(ctx, &apts, `
		SELECT * FROM appointments
		WHERE tenant_id = $1 AND status <> 'cancelled'
			AND ($2 = '' OR phone = $2)
			AND ($3 = '' OR appointment_date >= $3)
		ORDER BY appointment_date ASC, appointment_time ASC
		LIMIT $4
	`, tenantID, phone, fromDate, limit)
	return apts, err
}

func (r *appointmentRepo) FindUnreminded(ctx context.Context, tenantID string, dates []string) ([]model.Appointment, error) {
	var apts []model.Appointment
	err := r.db.SelectContext(ctx, &apts, `
		SELECT * FROM appointments
		WHERE tenant_id = $1 AND status = 'scheduled' AND NOT reminder_sent
			AND appointment_date = ANY($2)
		ORDER BY appointment_date ASC, appointment_time ASC
	`, tenantID, pq.StringArray(dates))
	return apts, err
}

func (r *appointmentRepo) MarkReminderSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET
			reminder_sent = TRUE,
			updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}
