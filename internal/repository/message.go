package repository

import (
	"context"

	"github.com/respondaai/automation-server-go/internal/database"
	"github.com/respondaai/automation-server-go/internal/model"
)

type MessageRepository interface {
	Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error)
	FindRecent(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	FindRecentInbound(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
}

type messageRepo struct {
	db database.DBTX
}

func NewMessageRepository(db database.DBTX) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, `
		INSERT INTO messages (id, conversation_id, direction, author, kind, content)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.ID, params.ConversationID, params.Direction, params.Author, params.Kind, params.Content)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindRecent returns the newest messages in chronological order.
func (r *messageRepo) FindRecent(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM (
			SELECT * FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent ORDER BY created_at ASC
	`, conversationID, limit)
	return msgs, err
}

func (r *messageRepo) FindRecentInbound(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.SelectContext(ctx, &msgs, `
		SELECT * FROM (
			SELECT * FROM messages
			WHERE conversation_id = $1 AND direction = 'inbound'
			ORDER BY created_at DESC
			LIMIT $2
		) recent ORDER BY created_at ASC
	`, conversationID, limit)
	return msgs, err
}
