package model

import (
	"time"
)

// Message is one entry in a conversation's append-only log.
type Message struct {
	ID             string           `db:"id" json:"id"`
	ConversationID string           `db:"conversation_id" json:"conversationId"`
	Direction      MessageDirection `db:"direction" json:"direction"`
	Author         MessageAuthor    `db:"author" json:"author"`
	Kind           MessageKind      `db:"kind" json:"kind"`
	Content        string           `db:"content" json:"content"`
	CreatedAt      time.Time        `db:"created_at" json:"createdAt"`
}

type CreateMessageParams struct {
	ID             string
	ConversationID string
	Direction      MessageDirection
	Author         MessageAuthor
	Kind           MessageKind
	Content        string
}
