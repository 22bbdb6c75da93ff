package repository

import (
	"context"

	"github.com/respondaai/automation-server-go/internal/database"
	"github.com/respondaai/automation-server-go/internal/model"
)

type SessionRepository interface {
	FindByTenantAndPhone(ctx context.Context, tenantID, phone string) (*model.AutomationSession, error)
	MarkActive(ctx context.Context, tenantID, phone string) error
	IncrementReplies(ctx context.Context, tenantID, phone string) error
	MarkHandedOff(ctx context.Context, tenantID, phone string) error
	RecordHumanReply(ctx context.Context, tenantID, phone string) error
	ReactivateByHuman(ctx context.Context, tenantID, phone string) error
	MarkOutOfHoursNotified(ctx context.Context, tenantID, phone string) error
}

type sessionRepo struct {
	db database.DBTX
}

func NewSessionRepository(db database.DBTX) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) FindByTenantAndPhone(ctx context.Context, tenantID, phone string) (*model.AutomationSession, error) {
	var session model.AutomationSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM automation_sessions WHERE tenant_id = $1 AND phone = $2
	`, tenantID, phone)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) MarkActive(ctx context.Context, tenantID, phone string) error {
	// handed_off is monotonic: a keyword match or a new burst never
	// reactivates a handed-off session.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO automation_sessions (tenant_id, phone, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (tenant_id, phone) DO UPDATE SET
			status = 'active',
			updated_at = NOW()
		WHERE automation_sessions.status <> 'handed_off'
	`, tenantID, phone)
	return err
}

func (r *sessionRepo) IncrementReplies(ctx context.Context, tenantID, phone string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO automation_sessions (tenant_id, phone, status, replies_without_human)
		VALUES ($1, $2, 'active', 1)
		ON CONFLICT (tenant_id, phone) DO UPDATE SET
			status = 'active',
			replies_without_human = automation_sessions.replies_without_human + 1,
			updated_at = NOW()
		WHERE automation_sessions.status <> 'handed_off'
	`, tenantID, phone)
	return err
}

func (r *sessionRepo) MarkHandedOff(ctx context.Context, tenantID, phone string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO automation_sessions (tenant_id, phone, status, handed_off_at)
		VALUES ($1, $2, 'handed_off', NOW())
		ON CONFLICT (tenant_id, phone) DO UPDATE SET
			status = 'handed_off',
			handed_off_at = NOW(),
			updated_at = NOW()
	`, tenantID, phone)
	return err
}

func (r *sessionRepo) RecordHumanReply(ctx context.Context, tenantID, phone string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO automation_sessions (tenant_id, phone, status, replies_without_human, last_human_reply_at)
		VALUES ($1, $2, 'inactive', 0, NOW())
		ON CONFLICT (tenant_id, phone) DO UPDATE SET
			replies_without_human = 0,
			last_human_reply_at = NOW(),
			updated_at = NOW()
	`, tenantID, phone)
	return err
}

// ReactivateByHuman is the only path out of handed_off.
func (r *sessionRepo) ReactivateByHuman(ctx context.Context, tenantID, phone string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE automation_sessions SET
			status = 'active',
			replies_without_human = 0,
			handed_off_at = NULL,
			updated_at = NOW()
		WHERE tenant_id = $1 AND phone = $2
	`, tenantID, phone)
	return err
}

func (r *sessionRepo) MarkOutOfHoursNotified(ctx context.Context, tenantID, phone string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO automation_sessions (tenant_id, phone, status, out_of_hours_notified_at)
		VALUES ($1, $2, 'inactive', NOW())
		ON CONFLICT (tenant_id, phone) DO UPDATE SET
			out_of_hours_notified_at = NOW(),
			updated_at = NOW()
	`, tenantID, phone)
	return err
}
