package repository

import (
	"context"

	"github.com/respondaai/automation-server-go/internal/database"
	"github.com/respondaai/automation-server-go/internal/model"
)

type ConfigRepository interface {
	FindByTenant(ctx context.Context, tenantID string) (*model.AutomationConfig, error)
	FindWithRemindersEnabled(ctx context.Context) ([]model.AutomationConfig, error)
}

type configRepo struct {
	db database.DBTX
}

func NewConfigRepository(db database.DBTX) ConfigRepository {
	return &configRepo{db: db}
}

func (r *configRepo) FindByTenant(ctx context.Context, tenantID string) (*model.AutomationConfig, error) {
	var cfg model.AutomationConfig
	err := r.db.GetContext(ctx, &cfg, `
		SELECT * FROM automation_configs WHERE tenant_id = $1
	`, tenantID)
	return HandleNotFound(&cfg, err)
}

func (r *configRepo) FindWithRemindersEnabled(ctx context.Context) ([]model.AutomationConfig, error) {
	var cfgs []model.AutomationConfig
	err := r.db.SelectContext(ctx, &cfgs, `
		SELECT * FROM automation_configs WHERE reminders_enabled
	`)
	return cfgs, err
}
