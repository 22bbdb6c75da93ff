package repository

import (
	"context"

	"github.com/respondaai/automation-server-go/internal/database"
	"github.com/respondaai/automation-server-go/internal/model"
)

type InstanceRepository interface {
	FindByName(ctx context.Context, name string) (*model.ChannelInstance, error)
	FindByTenant(ctx context.Context, tenantID string) (*model.ChannelInstance, error)
	UpdateStatus(ctx context.Context, tenantID string, status model.InstanceStatus, phoneNumber *string) error
}

type instanceRepo struct {
	db database.DBTX
}

func NewInstanceRepository(db database.DBTX) InstanceRepository {
	return &instanceRepo{db: db}
}

func (r *instanceRepo) FindByName(ctx context.Context, name string) (*model.ChannelInstance, error) {
	var inst model.ChannelInstance
	err := r.db.GetContext(ctx, &inst, `
		SELECT * FROM channel_instances WHERE instance_name = $1
	`, name)
	return HandleNotFound(&inst, err)
}

func (r *instanceRepo) FindByTenant(ctx context.Context, tenantID string) (*model.ChannelInstance, error) {
	var inst model.ChannelInstance
	err := r.db.GetContext(ctx, &inst, `
		SELECT * FROM channel_instances WHERE tenant_id = $1
	`, tenantID)
	return HandleNotFound(&inst, err)
}

func (r *instanceRepo) UpdateStatus(ctx context.Context, tenantID string, status model.InstanceStatus, phoneNumber *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE channel_instances SET
			status = $2,
			phone_number = COALESCE($3, phone_number),
			updated_at = NOW()
		WHERE tenant_id = $1
	`, tenantID, status, phoneNumber)
	return err
}
