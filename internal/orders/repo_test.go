package orders

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
	"github.com/forkline/forkline-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ordersDDL := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  total_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  status TEXT NOT NULL DEFAULT 'pending',
  payment_ref TEXT,
  delivery_address TEXT,
  pickup_notes TEXT,
  contact_name TEXT NOT NULL,
  contact_phone TEXT NOT NULL,
  delivery_id TEXT,
  delivery_provider TEXT,
  delivery_status TEXT,
  tracking_url TEXT,
  courier_name TEXT,
  courier_phone TEXT,
  courier_location TEXT,
  delivery_eta DATETIME,
  proof_of_delivery TEXT,
  delivery_scheduled_at DATETIME,
  delivery_triggered_at DATETIME,
  points_earned INTEGER NOT NULL DEFAULT 0,
  cancellation_deadline DATETIME,
  failure_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItemsDDL := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(ordersDDL).Error)
	require.NoError(t, db.Exec(orderItemsDDL).Error)
	return db
}

var orderSeq int64

func newTestOrder(t *testing.T, db *gorm.DB, mutate func(*models.Order)) *models.Order {
	t.Helper()

	orderSeq++
	order := &models.Order{
		ID:           uuid.New(),
		OrderNumber:  1000 + orderSeq,
		UserID:       uuid.New(),
		TotalCents:   2500,
		Currency:     enums.CurrencyUSD,
		ContactName:  "Dana",
		ContactPhone: "+15550100",
		DeliveryAddress: &types.Address{
			Line1:      "44 Birch Street",
			City:       "Portland",
			PostalCode: "97201",
			Country:    "US",
		},
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestFindDispatchDue(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := newTestOrder(t, db, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusSucceeded
		o.Status = enums.OrderStatusPreparing
		o.DeliveryScheduledAt = &past
	})
	newTestOrder(t, db, func(o *models.Order) { // scheduled in the future
		o.PaymentStatus = enums.PaymentStatusSucceeded
		o.Status = enums.OrderStatusPreparing
		o.DeliveryScheduledAt = &future
	})
	newTestOrder(t, db, func(o *models.Order) { // already claimed
		o.PaymentStatus = enums.PaymentStatusSucceeded
		o.Status = enums.OrderStatusPreparing
		o.DeliveryScheduledAt = &past
		o.DeliveryTriggeredAt = &past
	})
	newTestOrder(t, db, func(o *models.Order) { // payment not settled
		o.PaymentStatus = enums.PaymentStatusPending
		o.Status = enums.OrderStatusPreparing
		o.DeliveryScheduledAt = &past
	})
	newTestOrder(t, db, func(o *models.Order) { // never scheduled (pickup)
		o.PaymentStatus = enums.PaymentStatusSucceeded
		o.Status = enums.OrderStatusPreparing
		o.DeliveryAddress = nil
	})
	newTestOrder(t, db, func(o *models.Order) { // kitchen already done
		o.PaymentStatus = enums.PaymentStatusSucceeded
		o.Status = enums.OrderStatusCompleted
		o.DeliveryScheduledAt = &past
	})

	found, err := repo.FindDispatchDue(ctx, now, 50)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, due.ID, found[0].ID)
}

func TestClaimDeliveryTriggerIsAtMostOnce(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	order := newTestOrder(t, db, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusSucceeded
		o.Status = enums.OrderStatusPreparing
		o.DeliveryScheduledAt = &now
	})

	claimed, err := repo.ClaimDeliveryTrigger(ctx, order.ID, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	// A second sweep racing on the same order must lose the claim.
	claimed, err = repo.ClaimDeliveryTrigger(ctx, order.ID, now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, claimed)

	var stored models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&stored).Error)
	require.NotNil(t, stored.DeliveryTriggeredAt)
	assert.WithinDuration(t, now, *stored.DeliveryTriggeredAt, time.Second)
}

func TestReleaseDeliveryTriggerMakesOrderEligibleAgain(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	order := newTestOrder(t, db, func(o *models.Order) {
		o.PaymentStatus = enums.PaymentStatusSucceeded
		o.Status = enums.OrderStatusPreparing
		o.DeliveryScheduledAt = &now
	})

	claimed, err := repo.ClaimDeliveryTrigger(ctx, order.ID, now)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.ReleaseDeliveryTrigger(ctx, order.ID))

	claimed, err = repo.ClaimDeliveryTrigger(ctx, order.ID, now)
	require.NoError(t, err)
	assert.True(t, claimed, "released order should be claimable again")
}

func TestClaimDeliveryTriggerUnknownOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	claimed, err := repo.ClaimDeliveryTrigger(context.Background(), uuid.New(), time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestFindByDeliveryID(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	deliveryID := "sd_12345"
	order := newTestOrder(t, db, func(o *models.Order) {
		o.DeliveryID = &deliveryID
	})

	found, err := repo.FindByDeliveryID(ctx, deliveryID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindByDeliveryID(ctx, "sd_unknown")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListByUserScopesAndPaginates(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		newTestOrder(t, db, func(o *models.Order) { o.UserID = userID })
	}
	newTestOrder(t, db, nil) // someone else's order

	mine, err := repo.ListByUser(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	page, err := repo.ListByUser(ctx, userID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}
