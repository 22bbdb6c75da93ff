package service

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/respondaai/automation-server-go/internal/audit"
	"github.com/respondaai/automation-server-go/internal/config"
	"github.com/respondaai/automation-server-go/internal/database"
	"github.com/respondaai/automation-server-go/internal/errors"
	"github.com/respondaai/automation-server-go/internal/metrics"
	"github.com/respondaai/automation-server-go/internal/model"
	"github.com/respondaai/automation-server-go/internal/repository"
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

// AppointmentService owns slot generation and the booking lifecycle.
type AppointmentService struct {
	db           *database.DB
	appointments repository.AppointmentRepository
	slotRules    repository.SlotRuleRepository
	notify       *NotifyService
	now          func() time.Time
}

func NewAppointmentService(
	db *database.DB,
	appointments repository.AppointmentRepository,
	slotRules repository.SlotRuleRepository,
	notify *NotifyService,
) *AppointmentService {
	return &AppointmentService{
		db:           db,
		appointments: appointments,
		slotRules:    slotRules,
		notify:       notify,
		now:          time.Now,
	}
}

// CheckAvailability returns the open start times for a date, in order.
// A day with no active slot rules is closed and yields nothing.
func (s *AppointmentService) CheckAvailability(ctx context.Context, tenantID, date string) ([]string, error) {
	if !dateRe.MatchString(date) {
		return nil, errors.InvalidInput("date", "expected YYYY-MM-DD")
	}
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return nil, errors.InvalidInput("date", "expected YYYY-MM-DD")
	}

	rules, err := s.slotRules.FindActiveByWeekday(ctx, tenantID, int(day.Weekday()))
	if err != nil {
		return nil, errors.Database(err)
	}
	if len(rules) == 0 {
		return []string{}, nil
	}

	counts, err := s.appointments.CountActiveByDate(ctx, tenantID, date)
	if err != nil {
		return nil, errors.Database(err)
	}
	taken := make(map[string]int, len(counts))
	for _, c := range counts {
		taken[normalizeTime(c.Time)] = c.Count
	}

	now := s.now()
	today := now.Format("2006-01-02")
	seen := make(map[string]bool)
	var open []string
	for _, rule := range rules {
		for _, slot := range candidateTimes(rule) {
			if seen[slot] {
				continue
			}
			seen[slot] = true
			if date == today && slot <= now.Format("15:04") {
				continue
			}
			if taken[slot] >= rule.Capacity {
				continue
			}
			open = append(open, slotLabel(slot, rule.Capacity-taken[slot], rule.Capacity))
		}
	}
	sort.Strings(open)
	return open, nil
}

// Create books one slot. The count-then-insert pair runs inside a
// transaction holding an advisory lock on (tenant, date, time), so two
// racing bookings for the last seat serialize and exactly one wins.
func (s *AppointmentService) Create(ctx context.Context, params model.CreateAppointmentParams) (*model.Appointment, error) {
	if !dateRe.MatchString(params.Date) {
		return nil, errors.InvalidInput("date", "expected YYYY-MM-DD")
	}
	if !timeRe.MatchString(params.Time) {
		return nil, errors.InvalidInput("time", "expected HH:MM")
	}
	params.Time = normalizeTime(params.Time)
	if params.Title == "" {
		return nil, errors.MissingRequired("title")
	}
	if params.DurationMinutes <= 0 {
		params.DurationMinutes = config.DefaultSlotMinutes
	}

	day, err := time.ParseInLocation("2006-01-02", params.Date, time.Local)
	if err != nil {
		return nil, errors.InvalidInput("date", "expected YYYY-MM-DD")
	}
	capacity, err := s.slotCapacity(ctx, params.TenantID, int(day.Weekday()))
	if err != nil {
		return nil, err
	}

	var created *model.Appointment
	lockKey := fmt.Sprintf("booking:%s:%s:%s", params.TenantID, params.Date, params.Time)
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := database.AdvisoryLock(ctx, tx, lockKey); err != nil {
			return err
		}
		txRepo := repository.NewAppointmentRepository(tx)
		count, err := txRepo.CountActiveAt(ctx, params.TenantID, params.Date, params.Time)
		if err != nil {
			return errors.Database(err)
		}
		if count >= capacity {
			return errors.CapacityExceeded(params.Date, params.Time)
		}
		created, err = txRepo.Create(ctx, params)
		if err != nil {
			return errors.Database(err)
		}
		return nil
	})
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeCapacityExceeded) {
			metrics.BookingsRejected.Inc()
			audit.Log(audit.Event{
				Type:     audit.EventBookingRejected,
				TenantID: params.TenantID,
				Phone:    params.Phone,
				Details:  map[string]interface{}{"date": params.Date, "time": params.Time},
			})
		}
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	audit.Log(audit.Event{
		Type:     audit.EventBookingCreated,
		TenantID: params.TenantID,
		Phone:    params.Phone,
		Details: map[string]interface{}{
			"appointment_id": created.ID,
			"date":           created.Date,
			"time":           created.Time,
			"title":          created.Title,
		},
	})
	if s.notify != nil {
		s.notify.NotifyBooking(ctx, params.TenantID, created)
	}
	return created, nil
}

// slotCapacity resolves the per-slot capacity for a weekday from its
// first active rule, falling back to the default when the day has none.
func (s *AppointmentService) slotCapacity(ctx context.Context, tenantID string, weekday int) (int, error) {
	rules, err := s.slotRules.FindActiveByWeekday(ctx, tenantID, weekday)
	if err != nil {
		return 0, errors.Database(err)
	}
	if len(rules) == 0 || rules[0].Capacity <= 0 {
		return config.DefaultSlotCapacity, nil
	}
	return rules[0].Capacity, nil
}

// Cancel voids the counterpart's booking at one slot. Returns the number
// of appointments cancelled.
func (s *AppointmentService) Cancel(ctx context.Context, tenantID, phone, date, timeOfDay string) (int64, error) {
	if !dateRe.MatchString(date) {
		return 0, errors.InvalidInput("date", "expected YYYY-MM-DD")
	}
	if !timeRe.MatchString(timeOfDay) {
		return 0, errors.InvalidInput("time", "expected HH:MM")
	}
	rows, err := s.appointments.CancelBySlot(ctx, tenantID, phone, date, normalizeTime(timeOfDay))
	if err != nil {
		return 0, errors.Database(err)
	}
	return rows, nil
}

// CancelByID voids one appointment by id. Returns the number of rows
// cancelled; zero means it did not exist or was already cancelled.
func (s *AppointmentService) CancelByID(ctx context.Context, tenantID, id string) (int64, error) {
	rows, err := s.appointments.CancelByID(ctx, tenantID, id)
	if err != nil {
		return 0, errors.Database(err)
	}
	return rows, nil
}

// Confirm marks the counterpart's next scheduled appointment as confirmed
// and appends the confirmation tag. Confirming twice never duplicates it.
func (s *AppointmentService) Confirm(ctx context.Context, tenantID, phone, id string) (*model.Appointment, error) {
	apt, err := s.appointments.FindEarliestScheduled(ctx, tenantID, phone, id)
	if err != nil {
		return nil, errors.Database(err)
	}
	if apt == nil {
		return nil, nil
	}

	tags := appendUnique(apt.Tags, "confirmado")
	if err := s.appointments.Confirm(ctx, apt.ID, tags); err != nil {
		return nil, errors.Database(err)
	}
	apt.Status = model.AppointmentConfirmed
	apt.ConfirmedByCustomer = true
	apt.Tags = tags
	return apt, nil
}

// UpdateTags adds or removes tags on one appointment.
func (s *AppointmentService) UpdateTags(ctx context.Context, tenantID, id string, tags []string, action string) (*model.Appointment, error) {
	apt, err := s.appointments.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, errors.Database(err)
	}
	if apt == nil {
		return nil, errors.NotFound("appointment")
	}

	var updated []string
	switch action {
	case "remove":
		updated = removeTags(apt.Tags, tags)
	default:
		updated = apt.Tags
		for _, tag := range tags {
			updated = appendUnique(updated, tag)
		}
	}
	if err := s.appointments.UpdateTags(ctx, tenantID, id, updated); err != nil {
		return nil, errors.Database(err)
	}
	apt.Tags = updated
	return apt, nil
}

// UpdateStatus moves one appointment to a new lifecycle status.
func (s *AppointmentService) UpdateStatus(ctx context.Context, tenantID, id string, status model.AppointmentStatus) (int64, error) {
	rows, err := s.appointments.UpdateStatus(ctx, tenantID, id, status)
	if err != nil {
		return 0, errors.Database(err)
	}
	return rows, nil
}

// List returns the counterpart's upcoming appointments.
func (s *AppointmentService) List(ctx context.Context, tenantID, phone, fromDate string) ([]model.Appointment, error) {
	apts, err := s.appointments.ListUpcoming(ctx, tenantID, phone, fromDate, 10)
	if err != nil {
		return nil, errors.Database(err)
	}
	return apts, nil
}

// candidateTimes enumerates the start times a rule generates, stepping
// SlotMinutes from the start of the window while a full slot still fits.
func candidateTimes(rule model.SlotRule) []string {
	start, err := time.Parse("15:04", normalizeTime(rule.StartTime))
	if err != nil {
		return nil
	}
	end, err := time.Parse("15:04", normalizeTime(rule.EndTime))
	if err != nil || !end.After(start) {
		return nil
	}
	step := rule.SlotMinutes
	if step <= 0 {
		step = config.DefaultSlotMinutes
	}

	var out []string
	for t := start; !t.Add(time.Duration(step) * time.Minute).After(end); t = t.Add(time.Duration(step) * time.Minute) {
		out = append(out, t.Format("15:04"))
	}
	return out
}

// slotLabel appends the remaining seat count when a slot admits more than
// one booking, so shared slots read as "09:00 (2 vagas)".
func slotLabel(slot string, remaining, capacity int) string {
	if capacity <= 1 {
		return slot
	}
	if remaining == 1 {
		return fmt.Sprintf("%s (1 vaga)", slot)
	}
	return fmt.Sprintf("%s (%d vagas)", slot, remaining)
}

// normalizeTime pads "9:30" to "09:30" and strips seconds from "09:30:00".
func normalizeTime(t string) string {
	if len(t) == 4 {
		t = "0" + t
	}
	if len(t) > 5 {
		t = t[:5]
	}
	return t
}

func appendUnique(tags []string, tag string) []string {
	for _, existing := range tags {
		if existing == tag {
			return tags
		}
	}
	return append(tags, tag)
}

func removeTags(tags, toRemove []string) []string {
	drop := make(map[string]bool, len(toRemove))
	for _, t := range toRemove {
		drop[t] = true
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if !drop[t] {
			out = append(out, t)
		}
	}
	return out
}
