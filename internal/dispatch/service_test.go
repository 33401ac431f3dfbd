package dispatch

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/notifications"
	"github.com/forkline/forkline-backend/internal/orders"
	"github.com/forkline/forkline-backend/pkg/config"
	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/delivery"
	"github.com/forkline/forkline-backend/pkg/enums"
	"github.com/forkline/forkline-backend/pkg/logger"
	"github.com/forkline/forkline-backend/pkg/types"
)

type stubOrdersRepo struct {
	due      []models.Order
	claim    func(orderID uuid.UUID) (bool, error)
	update   func(orderID uuid.UUID, updates map[string]any) error
	released []uuid.UUID
	updates  map[uuid.UUID]map[string]any
}

func newStubOrdersRepo(due ...models.Order) *stubOrdersRepo {
	return &stubOrdersRepo{due: due, updates: map[uuid.UUID]map[string]any{}}
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) FindByDeliveryID(ctx context.Context, deliveryID string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrdersRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error) {
	return nil, nil
}

func (s *stubOrdersRepo) FindDispatchDue(ctx context.Context, now time.Time, limit int) ([]models.Order, error) {
	return s.due, nil
}

func (s *stubOrdersRepo) ClaimDeliveryTrigger(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error) {
	if s.claim != nil {
		return s.claim(orderID)
	}
	return true, nil
}

func (s *stubOrdersRepo) ReleaseDeliveryTrigger(ctx context.Context, orderID uuid.UUID) error {
	s.released = append(s.released, orderID)
	return nil
}

func (s *stubOrdersRepo) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if s.update != nil {
		if err := s.update(orderID, updates); err != nil {
			return err
		}
	}
	s.updates[orderID] = updates
	return nil
}

type fakeDispatcher struct {
	createErr error
	requests  []delivery.DispatchRequest
	nextID    int
}

func (f *fakeDispatcher) Provider() enums.DeliveryProvider {
	return enums.DeliveryProviderSwiftdrop
}

func (f *fakeDispatcher) CreateDelivery(ctx context.Context, req delivery.DispatchRequest) (*delivery.DispatchResponse, error) {
	f.requests = append(f.requests, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	return &delivery.DispatchResponse{
		DeliveryID:  fmt.Sprintf("sd_%d", f.nextID),
		Status:      enums.DeliveryStatusPending,
		TrackingURL: fmt.Sprintf("https://track.swiftdrop.test/sd_%d", f.nextID),
	}, nil
}

type fakeNotifier struct {
	sent []notifications.NotifyInput
}

func (f *fakeNotifier) Notify(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) error {
	f.sent = append(f.sent, input)
	return nil
}

func (f *fakeNotifier) List(ctx context.Context, params notifications.ListParams) ([]models.Notification, error) {
	return nil, nil
}

func (f *fakeNotifier) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (f *fakeNotifier) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeNotifier) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "dispatch-test", Output: io.Discard})
}

func dueOrder(number int64) models.Order {
	scheduled := time.Now().UTC().Add(-time.Minute)
	return models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		UserID:        uuid.New(),
		TotalCents:    2500,
		Currency:      enums.CurrencyUSD,
		PaymentStatus: enums.PaymentStatusSucceeded,
		Status:        enums.OrderStatusPreparing,
		ContactName:   "Casey",
		ContactPhone:  "+15550123",
		DeliveryAddress: &types.Address{
			Line1:      "88 Pine St",
			City:       "Portland",
			PostalCode: "97204",
			Country:    "US",
		},
		DeliveryScheduledAt: &scheduled,
	}
}

func newSweepService(t *testing.T, repo orders.Repository, dispatcher delivery.Dispatcher, notifier notifications.Service) Service {
	t.Helper()
	cfg := config.DeliveryConfig{
		PickupAddressLine: "1 Kitchen Way, Portland, OR 97204",
		PickupName:        "Forkline Kitchen",
		PickupPhone:       "+15550001",
	}
	svc, err := NewService(repo, dispatcher, notifier, cfg, testLogger())
	require.NoError(t, err)
	return svc
}

func TestSweepDispatchesDueOrder(t *testing.T) {
	order := dueOrder(5001)
	repo := newStubOrdersRepo(order)
	dispatcher := &fakeDispatcher{}
	notifier := &fakeNotifier{}
	svc := newSweepService(t, repo, dispatcher, notifier)

	result, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.Len(t, result.Results, 1)
	assert.True(t, result.Results[0].Dispatched)
	assert.Equal(t, "sd_1", result.Results[0].DeliveryID)
	assert.Empty(t, result.Results[0].Error)

	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, "order-5001", req.Reference)
	assert.Equal(t, "1 Kitchen Way, Portland, OR 97204", req.PickupAddress)
	assert.Equal(t, order.DeliveryAddress.Oneline(), req.DropoffAddress)
	assert.Equal(t, "Casey", req.DropoffContact.Name)

	updates := repo.updates[order.ID]
	require.NotNil(t, updates)
	assert.Equal(t, "sd_1", updates["delivery_id"])
	assert.Equal(t, enums.DeliveryProviderSwiftdrop, updates["delivery_provider"])
	assert.Equal(t, enums.DeliveryStatusPending, updates["delivery_status"])
	assert.Equal(t, "https://track.swiftdrop.test/sd_1", updates["tracking_url"])

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, order.UserID, notifier.sent[0].UserID)
	assert.Equal(t, "Driver assigned", notifier.sent[0].Title)
}

func TestSweepSkipsAlreadyClaimedOrder(t *testing.T) {
	order := dueOrder(5002)
	repo := newStubOrdersRepo(order)
	repo.claim = func(uuid.UUID) (bool, error) { return false, nil }
	dispatcher := &fakeDispatcher{}
	notifier := &fakeNotifier{}
	svc := newSweepService(t, repo, dispatcher, notifier)

	result, err := svc.Sweep(context.Background())
	require.NoError(t, err, "losing the claim race is not a failure")
	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Dispatched)
	assert.Empty(t, result.Results[0].Error)
	assert.Empty(t, dispatcher.requests, "claimed orders must not be booked again")
	assert.Empty(t, notifier.sent)
}

func TestSweepReleasesClaimOnProviderFailure(t *testing.T) {
	order := dueOrder(5003)
	repo := newStubOrdersRepo(order)
	dispatcher := &fakeDispatcher{createErr: fmt.Errorf("swiftdrop: 503 service unavailable")}
	notifier := &fakeNotifier{}
	svc := newSweepService(t, repo, dispatcher, notifier)

	result, err := svc.Sweep(context.Background())
	require.Error(t, err)
	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Dispatched)
	assert.Contains(t, result.Results[0].Error, "503")

	require.Len(t, repo.released, 1, "a failed booking must free the order for the next sweep")
	assert.Equal(t, order.ID, repo.released[0])
	assert.Empty(t, notifier.sent)
}

func TestSweepKeepsClaimWhenPersistFails(t *testing.T) {
	order := dueOrder(5004)
	repo := newStubOrdersRepo(order)
	repo.update = func(uuid.UUID, map[string]any) error {
		return fmt.Errorf("connection reset")
	}
	dispatcher := &fakeDispatcher{}
	notifier := &fakeNotifier{}
	svc := newSweepService(t, repo, dispatcher, notifier)

	result, err := svc.Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, result.Results[0].Error, "persist dispatch result")
	assert.Empty(t, repo.released, "the courier is booked; releasing would risk booking twice")
	assert.Empty(t, notifier.sent)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	first := dueOrder(5005)
	second := dueOrder(5006)
	repo := newStubOrdersRepo(first, second)
	failFirst := true
	dispatcher := &fakeDispatcher{}
	repo.claim = func(orderID uuid.UUID) (bool, error) {
		return true, nil
	}
	repo.update = func(orderID uuid.UUID, updates map[string]any) error {
		if failFirst && orderID == first.ID {
			failFirst = false
			return fmt.Errorf("deadlock detected")
		}
		return nil
	}
	notifier := &fakeNotifier{}
	svc := newSweepService(t, repo, dispatcher, notifier)

	result, err := svc.Sweep(context.Background())
	require.Error(t, err)
	require.Equal(t, 2, result.Processed)
	assert.NotEmpty(t, result.Results[0].Error)
	assert.True(t, result.Results[1].Dispatched, "one bad order must not abort the batch")
}

func TestSweepWithNothingDue(t *testing.T) {
	repo := newStubOrdersRepo()
	svc := newSweepService(t, repo, &fakeDispatcher{}, &fakeNotifier{})

	result, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Empty(t, result.Results)
}
