package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func newNotificationsService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestNotifyAndList(t *testing.T) {
	db := setupNotificationsTestDB(t)
	svc := newNotificationsService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	require.NoError(t, svc.Notify(ctx, nil, NotifyInput{
		UserID:  userID,
		Type:    enums.NotificationTypePayment,
		Title:   "Payment successful",
		Message: "Your payment went through.",
	}))
	require.NoError(t, svc.Notify(ctx, nil, NotifyInput{
		UserID:  userID,
		Type:    enums.NotificationTypeDelivery,
		Title:   "Driver assigned",
		Message: "A courier was booked.",
	}))

	rows, err := svc.List(ctx, ListParams{UserID: userID})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// Another user's feed stays empty.
	rows, err = svc.List(ctx, ListParams{UserID: uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestNotifyValidation(t *testing.T) {
	svc := newNotificationsService(t, setupNotificationsTestDB(t))
	ctx := context.Background()

	err := svc.Notify(ctx, nil, NotifyInput{Type: enums.NotificationTypePayment, Title: "t", Message: "m"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.Notify(ctx, nil, NotifyInput{UserID: uuid.New(), Type: "bogus", Title: "t", Message: "m"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = svc.Notify(ctx, nil, NotifyInput{UserID: uuid.New(), Type: enums.NotificationTypePayment})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMarkReadFiltersUnread(t *testing.T) {
	db := setupNotificationsTestDB(t)
	svc := newNotificationsService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Notify(ctx, nil, NotifyInput{
			UserID:  userID,
			Type:    enums.NotificationTypeOrder,
			Title:   "Order update",
			Message: "Something changed.",
		}))
	}

	all, err := svc.List(ctx, ListParams{UserID: userID})
	require.NoError(t, err)
	require.Len(t, all, 3)

	require.NoError(t, svc.MarkRead(ctx, userID, all[0].ID))

	unread, err := svc.List(ctx, ListParams{UserID: userID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	// Re-marking an already-read notification is a safe no-op.
	require.NoError(t, svc.MarkRead(ctx, userID, all[0].ID))
}

func TestMarkReadUnknownNotification(t *testing.T) {
	svc := newNotificationsService(t, setupNotificationsTestDB(t))

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestMarkReadScopedToOwner(t *testing.T) {
	db := setupNotificationsTestDB(t)
	svc := newNotificationsService(t, db)
	ctx := context.Background()

	owner := uuid.New()
	require.NoError(t, svc.Notify(ctx, nil, NotifyInput{
		UserID:  owner,
		Type:    enums.NotificationTypePayment,
		Title:   "Payment successful",
		Message: "Paid.",
	}))
	rows, err := svc.List(ctx, ListParams{UserID: owner})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	err = svc.MarkRead(ctx, uuid.New(), rows[0].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestMarkAllRead(t *testing.T) {
	db := setupNotificationsTestDB(t)
	svc := newNotificationsService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	for i := 0; i < 2; i++ {
		require.NoError(t, svc.Notify(ctx, nil, NotifyInput{
			UserID:  userID,
			Type:    enums.NotificationTypePoints,
			Title:   "Points earned",
			Message: "You earned points.",
		}))
	}

	updated, err := svc.MarkAllRead(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	// Second pass has nothing left to mark.
	updated, err = svc.MarkAllRead(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)
}

func TestDeleteReadBeforeKeepsUnread(t *testing.T) {
	db := setupNotificationsTestDB(t)
	svc := newNotificationsService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	old := time.Now().UTC().Add(-48 * time.Hour)
	readAt := old.Add(time.Hour)

	stale := models.Notification{
		ID: uuid.New(), UserID: userID, Type: enums.NotificationTypeSystem,
		Title: "old", Message: "old", ReadAt: &readAt, CreatedAt: old,
	}
	unread := models.Notification{
		ID: uuid.New(), UserID: userID, Type: enums.NotificationTypeSystem,
		Title: "old unread", Message: "old unread", CreatedAt: old,
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&unread).Error)

	deleted, err := svc.DeleteReadBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rows, err := svc.List(ctx, ListParams{UserID: userID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, unread.ID, rows[0].ID)
}
