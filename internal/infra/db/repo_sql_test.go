package db

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/NasaVasa/nestwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Discard,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return conn, mock
}

// sameInstant matches a time argument by instant rather than by representation.
type sameInstant time.Time

func (s sameInstant) Match(v driver.Value) bool {
	got, ok := v.(time.Time)
	return ok && got.Equal(time.Time(s))
}

func TestNotificationRepository_CreateReportsConflict(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewNotificationRepository(conn)
	ctx := context.Background()

	insert := `INSERT INTO "notifications" .* ON CONFLICT \("alert_id","property_id"\) DO NOTHING RETURNING "id"`
	mock.ExpectQuery(insert).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectQuery(insert).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	first := &domain.Notification{AlertID: 1, UserID: 10, PropertyID: 101, Status: domain.NotificationPending, CreatedAt: time.Now()}
	created, err := repo.Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint(42), first.ID)

	again := &domain.Notification{AlertID: 1, UserID: 10, PropertyID: 101, Status: domain.NotificationPending, CreatedAt: time.Now()}
	created, err = repo.Create(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Zero(t, again.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRepository_AdvanceCheckpoint(t *testing.T) {
	prev := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	next := time.Date(2026, 10, 17, 9, 0, 0, 123456789, time.UTC)
	update := `UPDATE "alerts" SET "last_notified_at"=\$1,"updated_at"=\$2 WHERE id = \$3 AND last_notified_at = \$4`
	count := `SELECT count\(\*\) FROM "alerts" WHERE id = \$1`

	t.Run("advances from the expected value", func(t *testing.T) {
		conn, mock := newMockDB(t)
		mock.ExpectExec(update).
			WithArgs(sameInstant(next.Truncate(time.Microsecond)), sqlmock.AnyArg(), 7, sameInstant(prev)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewAlertRepository(conn).AdvanceCheckpoint(context.Background(), 7, &prev, next)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first checkpoint requires a null column", func(t *testing.T) {
		conn, mock := newMockDB(t)
		mock.ExpectExec(`UPDATE "alerts" SET "last_notified_at"=\$1,"updated_at"=\$2 WHERE id = \$3 AND last_notified_at IS NULL`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewAlertRepository(conn).AdvanceCheckpoint(context.Background(), 7, nil, next)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("moved by another writer", func(t *testing.T) {
		conn, mock := newMockDB(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(count).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := NewAlertRepository(conn).AdvanceCheckpoint(context.Background(), 7, &prev, next)
		assert.ErrorIs(t, err, domain.ErrCheckpointConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("alert gone", func(t *testing.T) {
		conn, mock := newMockDB(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(count).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		err := NewAlertRepository(conn).AdvanceCheckpoint(context.Background(), 7, &prev, next)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestNotificationRepository_ReadState(t *testing.T) {
	conn, mock := newMockDB(t)
	repo := NewNotificationRepository(conn)
	ctx := context.Background()
	readAt := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE "notifications" SET "read_at"=COALESCE\(read_at, \$1\) WHERE id = \$2 AND user_id = \$3`).
		WithArgs(sameInstant(readAt), 5, 10).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "notifications" SET "read_at"=COALESCE\(read_at, \$1\) WHERE id = \$2 AND user_id = \$3`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE "notifications" SET "read_at"=\$1 WHERE id = \$2 AND user_id = \$3`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "notifications" WHERE user_id = \$1 AND read_at IS NULL ORDER BY id DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "alert_id", "property_id", "user_id", "status", "message"}).
			AddRow(6, 1, 102, 10, "sent", "hello"))

	require.NoError(t, repo.MarkRead(ctx, 10, 5, readAt))
	assert.ErrorIs(t, repo.MarkRead(ctx, 11, 5, readAt), domain.ErrNotFound)
	require.NoError(t, repo.MarkUnread(ctx, 10, 5))

	unread, err := repo.ListByUser(ctx, 10, domain.NotificationQuery{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, uint(6), unread[0].ID)
	assert.False(t, unread[0].Read())

	require.NoError(t, mock.ExpectationsWereMet())
}
