package paymentwebhook

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/notifications"
	"github.com/forkline/forkline-backend/internal/orders"
	"github.com/forkline/forkline-backend/internal/points"
	"github.com/forkline/forkline-backend/internal/users"
	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/logger"
	"github.com/forkline/forkline-backend/pkg/mailer"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams collects the dependencies of the payment webhook processor.
type ServiceParams struct {
	OrdersRepo        orders.Repository
	UsersRepo         users.Repository
	Points            points.Service
	Notifications     notifications.Service
	Mailer            mailer.Sender
	TransactionRunner txRunner
	Logger            *logger.Logger
	CancellationGrace time.Duration
	DispatchDelay     time.Duration
}

// Service applies payment processor events to the order store. Every event
// kind is safe to apply more than once.
type Service struct {
	ordersRepo    orders.Repository
	usersRepo     users.Repository
	points        points.Service
	notifications notifications.Service
	mailer        mailer.Sender
	txRunner      txRunner
	logg          *logger.Logger
	grace         time.Duration
	dispatchDelay time.Duration
	now           func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.UsersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	if params.Points == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "points service required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.CancellationGrace <= 0 {
		params.CancellationGrace = 5 * time.Minute
	}
	if params.DispatchDelay <= 0 {
		params.DispatchDelay = 10 * time.Minute
	}
	return &Service{
		ordersRepo:    params.OrdersRepo,
		usersRepo:     params.UsersRepo,
		points:        params.Points,
		notifications: params.Notifications,
		mailer:        params.Mailer,
		txRunner:      params.TransactionRunner,
		logg:          params.Logger,
		grace:         params.CancellationGrace,
		dispatchDelay: params.DispatchDelay,
		now:           time.Now,
	}, nil
}

// HandleEvent routes one verified event to its handler. Unknown event kinds
// are acknowledged without effect.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}

	orderID, err := uuid.Parse(event.Data.Object.Metadata.OrderID)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id missing from event metadata")
	}

	switch event.Type {
	case EventPaymentSucceeded:
		return s.handleSucceeded(ctx, event, orderID)
	case EventPaymentFailed:
		return s.handleFailed(ctx, event, orderID)
	case EventPaymentCanceled:
		return s.handleCanceled(ctx, event, orderID)
	case EventPaymentProcessing:
		return s.handleProcessing(ctx, event, orderID)
	default:
		return nil
	}
}

func (s *Service) handleSucceeded(ctx context.Context, event *Event, orderID uuid.UUID) error {
	var confirmed *models.Order

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		order, ok, err := s.loadOrder(ctx, repo, orderID)
		if err != nil || !ok {
			return err
		}

		now := s.now().UTC()
		updates := map[string]any{
			"payment_status": enums.PaymentStatusSucceeded,
			"payment_ref":    event.Data.Object.ID,
		}

		// A redelivered event for an already-confirmed order must not move
		// the deadline or re-run the side effects below.
		firstConfirmation := order.Status == enums.OrderStatusPending &&
			orders.CanTransition(order.Status, enums.OrderStatusPreparing)
		if firstConfirmation {
			updates["status"] = enums.OrderStatusPreparing
			updates["cancellation_deadline"] = now.Add(s.grace)
		}
		if order.IsDelivery() && order.DeliveryScheduledAt == nil {
			updates["delivery_scheduled_at"] = now.Add(s.dispatchDelay)
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		credited, err := s.points.CreditOrderEarn(ctx, tx, order.UserID, order.ID, order.PointsEarned)
		if err != nil {
			return err
		}

		if firstConfirmation {
			s.notify(ctx, tx, notifications.NotifyInput{
				UserID:  order.UserID,
				Type:    enums.NotificationTypePayment,
				Title:   "Payment successful",
				Message: fmt.Sprintf("Your payment for order #%d went through. We're on it!", order.OrderNumber),
			})
			if order.IsDelivery() && order.DeliveryScheduledAt == nil {
				s.notify(ctx, tx, notifications.NotifyInput{
					UserID:  order.UserID,
					Type:    enums.NotificationTypeDelivery,
					Title:   "Delivery scheduled",
					Message: fmt.Sprintf("A courier will be booked for order #%d shortly.", order.OrderNumber),
				})
			}
			if credited && order.PointsEarned > 0 {
				s.notify(ctx, tx, notifications.NotifyInput{
					UserID:  order.UserID,
					Type:    enums.NotificationTypePoints,
					Title:   "Points earned",
					Message: fmt.Sprintf("You earned %d points on order #%d.", order.PointsEarned, order.OrderNumber),
				})
			}
			confirmed = order
		}
		return nil
	})
	if err != nil {
		return err
	}

	if confirmed != nil {
		s.sendConfirmationEmail(ctx, confirmed)
	}
	return nil
}

func (s *Service) handleFailed(ctx context.Context, event *Event, orderID uuid.UUID) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		order, ok, err := s.loadOrder(ctx, repo, orderID)
		if err != nil || !ok {
			return err
		}

		updates := map[string]any{
			"payment_status": enums.PaymentStatusFailed,
			"payment_ref":    event.Data.Object.ID,
		}
		if reason := event.Data.Object.FailureReason; reason != "" {
			updates["failure_reason"] = reason
		}
		cancelled := orders.CanTransition(order.Status, enums.OrderStatusCancelled) &&
			order.Status != enums.OrderStatusCancelled
		if cancelled {
			updates["status"] = enums.OrderStatusCancelled
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		if cancelled {
			message := fmt.Sprintf("Payment for order #%d failed.", order.OrderNumber)
			if reason := event.Data.Object.FailureReason; reason != "" {
				message = fmt.Sprintf("Payment for order #%d failed: %s.", order.OrderNumber, reason)
			}
			s.notify(ctx, tx, notifications.NotifyInput{
				UserID:  order.UserID,
				Type:    enums.NotificationTypePayment,
				Title:   "Payment failed",
				Message: message,
			})
		}
		return nil
	})
}

func (s *Service) handleCanceled(ctx context.Context, event *Event, orderID uuid.UUID) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		order, ok, err := s.loadOrder(ctx, repo, orderID)
		if err != nil || !ok {
			return err
		}

		updates := map[string]any{
			"payment_status": enums.PaymentStatusCanceled,
			"payment_ref":    event.Data.Object.ID,
		}
		cancelled := orders.CanTransition(order.Status, enums.OrderStatusCancelled) &&
			order.Status != enums.OrderStatusCancelled
		if cancelled {
			updates["status"] = enums.OrderStatusCancelled
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		if cancelled && order.UserID != uuid.Nil {
			s.notify(ctx, tx, notifications.NotifyInput{
				UserID:  order.UserID,
				Type:    enums.NotificationTypeOrder,
				Title:   "Order cancelled",
				Message: fmt.Sprintf("Order #%d was cancelled because the payment was cancelled.", order.OrderNumber),
			})
		}
		return nil
	})
}

// handleProcessing mirrors the intermediate processor state onto the payment
// column only. A late processing event never downgrades a settled order.
func (s *Service) handleProcessing(ctx context.Context, event *Event, orderID uuid.UUID) error {
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		order, ok, err := s.loadOrder(ctx, repo, orderID)
		if err != nil || !ok {
			return err
		}
		if order.PaymentStatus != enums.PaymentStatusPending {
			return nil
		}
		updates := map[string]any{
			"payment_status": enums.PaymentStatusProcessing,
			"payment_ref":    event.Data.Object.ID,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		return nil
	})
}

// loadOrder resolves the correlation ID. A missing order is acknowledged
// without error since the processor cannot retry it productively.
func (s *Service) loadOrder(ctx context.Context, repo orders.Repository, orderID uuid.UUID) (*models.Order, bool, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("payment event references unknown order %s", orderID))
			}
			return nil, false, nil
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, true, nil
}

// notify logs and swallows notification failures; a missed notification must
// not fail the webhook.
func (s *Service) notify(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) {
	if err := s.notifications.Notify(ctx, tx, input); err != nil && s.logg != nil {
		s.logg.Error(ctx, "emit notification", err)
	}
}

// sendConfirmationEmail is best-effort and runs outside the transaction.
func (s *Service) sendConfirmationEmail(ctx context.Context, order *models.Order) {
	if s.mailer == nil {
		return
	}
	user, err := s.usersRepo.FindByID(ctx, order.UserID)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "load user for confirmation email", err)
		}
		return
	}

	msg := mailer.Message{
		To:      user.Email,
		Subject: fmt.Sprintf("Order #%d confirmed", order.OrderNumber),
		Body: fmt.Sprintf("Hi %s, your payment for order #%d was received and the kitchen is preparing it.",
			user.DisplayName, order.OrderNumber),
	}
	if err := s.mailer.Send(ctx, msg); err != nil && s.logg != nil {
		s.logg.Error(ctx, "send confirmation email", err)
	}
}
