package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func triggerColumns() []string {
	return []string{"id", "tenant_id", "phone", "scheduled_at", "processed", "updated_at"}
}

func TestTriggerUpsertReturnsRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTriggerRepository(db)

	scheduledAt := time.Date(2026, 3, 2, 10, 0, 5, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO pending_triggers .* ON CONFLICT \(tenant_id, phone\) WHERE NOT processed`).
		WithArgs("t1", "5511999", scheduledAt).
		WillReturnRows(sqlmock.NewRows(triggerColumns()).
			AddRow("trg-1", "t1", "5511999", scheduledAt, false, time.Now()))

	trigger, err := repo.Upsert(context.Background(), "t1", "5511999", scheduledAt)
	require.NoError(t, err)
	assert.Equal(t, "trg-1", trigger.ID)
	assert.False(t, trigger.Processed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTriggerClaimWinner(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTriggerRepository(db)

	mock.ExpectExec(`UPDATE pending_triggers SET\s+processed = TRUE`).
		WithArgs("trg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.Claim(context.Background(), "trg-1")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestTriggerClaimAlreadyProcessed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTriggerRepository(db)

	mock.ExpectExec(`UPDATE pending_triggers`).
		WithArgs("trg-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.Claim(context.Background(), "trg-1")
	require.NoError(t, err)
	assert.False(t, claimed, "a second claimer must lose the compare-and-set")
}

func TestTriggerFindUnprocessedNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTriggerRepository(db)

	mock.ExpectQuery(`SELECT \* FROM pending_triggers`).
		WithArgs("t1", "5511999").
		WillReturnRows(sqlmock.NewRows(triggerColumns()))

	trigger, err := repo.FindUnprocessed(context.Background(), "t1", "5511999")
	require.NoError(t, err, "no pending trigger is not an error")
	assert.Nil(t, trigger)
}

func TestTriggerFindDue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTriggerRepository(db)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM pending_triggers\s+WHERE NOT processed AND scheduled_at <= \$1`).
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows(triggerColumns()).
			AddRow("trg-1", "t1", "5511999", now.Add(-time.Minute), false, time.Now()).
			AddRow("trg-2", "t2", "5511888", now.Add(-time.Second), false, time.Now()))

	due, err := repo.FindDue(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "trg-1", due[0].ID)
}

func TestTriggerDeleteProcessedBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTriggerRepository(db)

	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE FROM pending_triggers WHERE processed AND updated_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	deleted, err := repo.DeleteProcessedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 7, deleted)
}
