package repository

import (
	"context"

	"github.com/respondaai/automation-server-go/internal/database"
	"github.com/respondaai/automation-server-go/internal/model"
)

type ConversationRepository interface {
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindByTenantAndPhone(ctx context.Context, tenantID, phone string) (*model.Conversation, error)
	Upsert(ctx context.Context, params model.UpsertConversationParams) (*model.Conversation, error)
	SetAutomationEnabled(ctx context.Context, id string, enabled bool) error
	RecordActivity(ctx context.Context, id string) error
}

type conversationRepo struct {
	db database.DBTX
}

func NewConversationRepository(db database.DBTX) ConversationRepository {
	return &conversationRepo{db: db}
}

func (r *conversationRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `
		SELECT * FROM conversations WHERE id = $1
	`, id)
	return HandleNotFound(&conv, err)
}

func (r *conversationRepo) FindByTenantAndPhone(ctx context.Context, tenantID, phone string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `
		SELECT * FROM conversations WHERE tenant_id = $1 AND phone = $2
	`, tenantID, phone)
	return HandleNotFound(&conv, err)
}

func (r *conversationRepo) Upsert(ctx context.Context, params model.UpsertConversationParams) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, `
		INSERT INTO conversations (tenant_id, phone, contact_name, automation_enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, phone) DO UPDATE SET
			contact_name = COALESCE(EXCLUDED.contact_name, conversations.contact_name),
			updated_at = NOW()
		RETURNING *
	`, params.TenantID, params.Phone, params.ContactName, params.AutomationEnabled)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepo) SetAutomationEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET
			automation_enabled = $2,
			updated_at = NOW()
		WHERE id = $1
	`, id, enabled)
	return err
}

func (r *conversationRepo) RecordActivity(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET
			total_messages = total_messages + 1,
			last_message_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}
