package repository

import (
	"context"

	"github.com/respondaai/automation-server-go/internal/database"
	"github.com/respondaai/automation-server-go/internal/model"
)

type NotificationContactRepository interface {
	FindHandoffRecipients(ctx context.Context, tenantID string) ([]model.NotificationContact, error)
	FindBookingRecipients(ctx context.Context, tenantID string) ([]model.NotificationContact, error)
}

type notificationContactRepo struct {
	db database.DBTX
}

func NewNotificationContactRepository(db database.DBTX) NotificationContactRepository {
	return &notificationContactRepo{db: db}
}

func (r *notificationContactRepo) FindHandoffRecipients(ctx context.Context, tenantID string) ([]model.NotificationContact, error) {
	var contacts []model.NotificationContact
	err := r.db.SelectContext(ctx, &contacts, `
		SELECT * FROM notification_contacts WHERE tenant_id = $1 AND notify_handoffs
	`, tenantID)
	return contacts, err
}

func (r *notificationContactRepo) FindBookingRecipients(ctx context.Context, tenantID string) ([]model.NotificationContact, error) {
	var contacts []model.NotificationContact
	err := r.db.SelectContext(ctx, &contacts, `
		SELECT * FROM notification_contacts WHERE tenant_id = $1 AND notify_bookings
	`, tenantID)
	return contacts, err
}
