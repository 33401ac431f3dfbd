package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/db/models"
)

// Repository defines persistence operations for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentRef(ctx context.Context, paymentRef string) (*models.Order, error)
	FindByDeliveryID(ctx context.Context, deliveryID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Order, error)
	FindDispatchDue(ctx context.Context, now time.Time, limit int) ([]models.Order, error)
	ClaimDeliveryTrigger(ctx context.Context, orderID uuid.UUID, at time.Time) (bool, error)
	ReleaseDeliveryTrigger(ctx context.Context, orderID uuid.UUID) error
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}
