package repository

import (
	"context"

	"github.com/respondaai/automation-server-go/internal/database"
	"github.com/respondaai/automation-server-go/internal/model"
)

type SlotRuleRepository interface {
	FindActiveByWeekday(ctx context.Context, tenantID string, weekday int) ([]model.SlotRule, error)
}

type slotRuleRepo struct {
	db database.DBTX
}

func NewSlotRuleRepository(db database.DBTX) SlotRuleRepository {
	return &slotRuleRepo{db: db}
}

func (r *slotRuleRepo) FindActiveByWeekday(ctx context.Context, tenantID string, weekday int) ([]model.SlotRule, error) {
	var rules []model.SlotRule
	err := r.db.SelectContext(ctx, &rules, `
		SELECT * FROM slot_rules
		WHERE tenant_id = $1 AND weekday = $2 AND active
		ORDER BY start_time ASC
	`, tenantID, weekday)
	return rules, err
}
