package repository

import (
	"context"
	"time"

	"github.com/respondaai/automation-server-go/internal/database"
	"github.com/respondaai/automation-server-go/internal/model"
)

type TriggerRepository interface {
	Upsert(ctx context.Context, tenantID, phone string, scheduledAt time.Time) (*model.PendingTrigger, error)
	FindUnprocessed(ctx context.Context, tenantID, phone string) (*model.PendingTrigger, error)
	Claim(ctx context.Context, id string) (bool, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]model.PendingTrigger, error)
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type triggerRepo struct {
	db database.DBTX
}

func NewTriggerRepository(db database.DBTX) TriggerRepository {
	return &triggerRepo{db: db}
}

// Upsert keeps at most one unprocessed row per (tenant, phone): new inbound
// activity pushes scheduled_at forward instead of inserting a duplicate.
func (r *triggerRepo) Upsert(ctx context.Context, tenantID, phone string, scheduledAt time.Time) (*model.PendingTrigger, error) {
	var trigger model.PendingTrigger
	err := r.db.GetContext(ctx, &trigger, `
		INSERT INTO pending_triggers (tenant_id, phone, scheduled_at, processed)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (tenant_id, phone) WHERE NOT processed DO UPDATE SET
			scheduled_at = EXCLUDED.scheduled_at,
			updated_at = NOW()
		RETURNING *
	`, tenantID, phone, scheduledAt)
	if err != nil {
		return nil, err
	}
	return &trigger, nil
}

func (r *triggerRepo) FindUnprocessed(ctx context.Context, tenantID, phone string) (*model.PendingTrigger, error) {
	var trigger model.PendingTrigger
	err := r.db.GetContext(ctx, &trigger, `
		SELECT * FROM pending_triggers
		WHERE tenant_id = $1 AND phone = $2 AND NOT processed
	`, tenantID, phone)
	return HandleNotFound(&trigger, err)
}

// Claim flips processed from false to true as a compare-and-set. Exactly one
// of any number of racing callers observes true; work may only start after a
// successful claim.
func (r *triggerRepo) Claim(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pending_triggers SET
			processed = TRUE,
			updated_at = NOW()
		WHERE id = $1 AND NOT processed
	`, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *triggerRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]model.PendingTrigger, error) {
	var triggers []model.PendingTrigger
	err := r.db.SelectContext(ctx, &triggers, `
		SELECT * FROM pending_triggers
		WHERE NOT processed AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
		LIMIT $2
	`, now, limit)
	return triggers, err
}

func (r *triggerRepo) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pending_triggers WHERE processed AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
