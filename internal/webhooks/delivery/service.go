package deliverywebhook

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/internal/notifications"
	"github.com/forkline/forkline-backend/internal/orders"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams collects the dependencies of the delivery webhook processor.
type ServiceParams struct {
	OrdersRepo        orders.Repository
	Notifications     notifications.Service
	TransactionRunner txRunner
	Logger            *logger.Logger
}

// Service applies normalized courier updates to orders.
type Service struct {
	ordersRepo    orders.Repository
	notifications notifications.Service
	txRunner      txRunner
	logg          *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications service required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		ordersRepo:    params.OrdersRepo,
		notifications: params.Notifications,
		txRunner:      params.TransactionRunner,
		logg:          params.Logger,
	}, nil
}

// Apply writes the update to the matching order. An unknown delivery ID is
// acknowledged without any write: the job may belong to another environment,
// and a hard error would just make the provider retry forever.
func (s *Service) Apply(ctx context.Context, update *Update) error {
	if update == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "update required")
	}
	if update.DeliveryID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		order, err := repo.FindByDeliveryID(ctx, update.DeliveryID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				if s.logg != nil {
					s.logg.Warn(ctx, fmt.Sprintf("delivery event references unknown delivery %s", update.DeliveryID))
				}
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by delivery id")
		}

		statusChanged := order.DeliveryStatus == nil || *order.DeliveryStatus != update.Status

		updates := map[string]any{
			"delivery_status": update.Status,
		}
		if update.CourierName != nil {
			updates["courier_name"] = *update.CourierName
		}
		if update.CourierPhone != nil {
			updates["courier_phone"] = *update.CourierPhone
		}
		if update.CourierLocation != nil {
			updates["courier_location"] = *update.CourierLocation
		}
		if update.ETA != nil {
			updates["delivery_eta"] = *update.ETA
		}
		if update.TrackingURL != nil {
			updates["tracking_url"] = *update.TrackingURL
		}
		if len(update.ProofOfDelivery) > 0 {
			updates["proof_of_delivery"] = update.ProofOfDelivery
		}

		completed := update.Status == enums.DeliveryStatusDelivered &&
			order.Status != enums.OrderStatusCompleted &&
			orders.CanTransition(order.Status, enums.OrderStatusCompleted)
		if completed {
			updates["status"] = enums.OrderStatusCompleted
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order tracking")
		}

		if statusChanged {
			title, message := statusCopy(update.Status, order.OrderNumber)
			if err := s.notifications.Notify(ctx, tx, notifications.NotifyInput{
				UserID:  order.UserID,
				Type:    enums.NotificationTypeDelivery,
				Title:   title,
				Message: message,
				Link:    update.TrackingURL,
			}); err != nil && s.logg != nil {
				s.logg.Error(ctx, "emit delivery notification", err)
			}
		}
		return nil
	})
}

// statusCopy yields the customer-facing wording for each canonical state.
func statusCopy(status enums.DeliveryStatus, orderNumber int64) (string, string) {
	switch status {
	case enums.DeliveryStatusEnRouteToPickup:
		return "Courier on the way", fmt.Sprintf("A courier is heading to the restaurant for order #%d.", orderNumber)
	case enums.DeliveryStatusAtPickup:
		return "Courier at restaurant", fmt.Sprintf("Your courier arrived at the restaurant for order #%d.", orderNumber)
	case enums.DeliveryStatusEnRouteToDropoff:
		return "Order on the way", fmt.Sprintf("Order #%d is on its way to you.", orderNumber)
	case enums.DeliveryStatusDelivered:
		return "Order delivered", fmt.Sprintf("Order #%d was delivered. Enjoy!", orderNumber)
	case enums.DeliveryStatusCanceled:
		return "Delivery cancelled", fmt.Sprintf("The delivery for order #%d was cancelled. Our team will follow up.", orderNumber)
	default:
		return "Delivery update", fmt.Sprintf("Order #%d has a delivery update.", orderNumber)
	}
}
