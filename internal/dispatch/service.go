package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/forkline/forkline-backend/internal/notifications"
	"github.com/forkline/forkline-backend/internal/orders"
	"github.com/forkline/forkline-backend/pkg/config"
	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/delivery"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/logger"
)

// batchLimit caps how many orders one sweep attempts; stragglers are picked
// up by the next run.
const batchLimit = 100

// OrderResult is the per-order outcome of one sweep.
type OrderResult struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	DeliveryID  string    `json:"delivery_id,omitempty"`
	Dispatched  bool      `json:"dispatched"`
	Error       string    `json:"error,omitempty"`
}

// SweepResult aggregates one sweep invocation.
type SweepResult struct {
	Processed int           `json:"processed"`
	Results   []OrderResult `json:"results"`
}

// Service books couriers for delivery orders whose dispatch time has come.
type Service interface {
	Sweep(ctx context.Context) (*SweepResult, error)
}

type service struct {
	repo          orders.Repository
	dispatcher    delivery.Dispatcher
	notifications notifications.Service
	logg          *logger.Logger
	pickup        config.DeliveryConfig
	now           func() time.Time
}

// NewService builds the dispatch sweep service.
func NewService(repo orders.Repository, dispatcher delivery.Dispatcher, notifs notifications.Service, cfg config.DeliveryConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("delivery dispatcher required")
	}
	if notifs == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:          repo,
		dispatcher:    dispatcher,
		notifications: notifs,
		logg:          logg,
		pickup:        cfg,
		now:           time.Now,
	}, nil
}

// Sweep dispatches every due order at most once. A failed provider call
// releases the order's claim so the next sweep retries it; the returned error
// aggregates per-order failures without aborting the batch.
func (s *service) Sweep(ctx context.Context) (*SweepResult, error) {
	now := s.now().UTC()
	due, err := s.repo.FindDispatchDue(ctx, now, batchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find due orders")
	}

	result := &SweepResult{Results: make([]OrderResult, 0, len(due))}
	var sweepErr error
	for i := range due {
		order := &due[i]
		outcome := s.dispatchOrder(ctx, order, now)
		result.Results = append(result.Results, outcome)
		result.Processed++
		if outcome.Error != "" {
			sweepErr = multierr.Append(sweepErr, fmt.Errorf("order %s: %s", order.ID, outcome.Error))
		}
	}
	return result, sweepErr
}

func (s *service) dispatchOrder(ctx context.Context, order *models.Order, now time.Time) OrderResult {
	outcome := OrderResult{OrderID: order.ID, OrderNumber: order.OrderNumber}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	claimed, err := s.repo.ClaimDeliveryTrigger(ctx, order.ID, now)
	if err != nil {
		outcome.Error = fmt.Sprintf("claim dispatch guard: %v", err)
		return outcome
	}
	if !claimed {
		// Another sweep got here first.
		return outcome
	}

	resp, err := s.dispatcher.CreateDelivery(ctx, s.buildRequest(order))
	if err != nil {
		// Leave the order eligible for the next sweep; a transient provider
		// outage should self-heal.
		if releaseErr := s.repo.ReleaseDeliveryTrigger(ctx, order.ID); releaseErr != nil {
			s.logg.Error(ctx, "release dispatch guard", releaseErr)
		}
		s.logg.Error(ctx, "create delivery", err)
		outcome.Error = err.Error()
		return outcome
	}

	provider := s.dispatcher.Provider()
	updates := map[string]any{
		"delivery_id":       resp.DeliveryID,
		"delivery_provider": provider,
		"delivery_status":   resp.Status,
	}
	if resp.TrackingURL != "" {
		updates["tracking_url"] = resp.TrackingURL
	}
	if err := s.repo.Update(ctx, order.ID, updates); err != nil {
		// The job is booked; keep the guard set so we cannot book twice, and
		// let the provider's webhooks backfill the delivery ID.
		s.logg.Error(ctx, "persist dispatch result", err)
		outcome.Error = fmt.Sprintf("persist dispatch result: %v", err)
		return outcome
	}

	if err := s.notifications.Notify(ctx, nil, notifications.NotifyInput{
		UserID:  order.UserID,
		Type:    enums.NotificationTypeDelivery,
		Title:   "Driver assigned",
		Message: fmt.Sprintf("A courier was booked for order #%d.", order.OrderNumber),
	}); err != nil {
		s.logg.Error(ctx, "emit dispatch notification", err)
	}

	s.logg.Info(ctx, fmt.Sprintf("order %d dispatched via %s as %s", order.OrderNumber, provider, resp.DeliveryID))
	outcome.DeliveryID = resp.DeliveryID
	outcome.Dispatched = true
	return outcome
}

func (s *service) buildRequest(order *models.Order) delivery.DispatchRequest {
	dropoff := ""
	if order.DeliveryAddress != nil {
		dropoff = order.DeliveryAddress.Oneline()
	}
	notes := ""
	if order.DeliveryAddress != nil && order.DeliveryAddress.Notes != nil {
		notes = *order.DeliveryAddress.Notes
	}
	return delivery.DispatchRequest{
		Reference:      fmt.Sprintf("order-%d", order.OrderNumber),
		PickupAddress:  s.pickup.PickupAddressLine,
		PickupContact:  delivery.Contact{Name: s.pickup.PickupName, Phone: s.pickup.PickupPhone},
		DropoffAddress: dropoff,
		DropoffContact: delivery.Contact{Name: order.ContactName, Phone: order.ContactPhone},
		Notes:          notes,
	}
}
