package points

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/config"
	"github.com/forkline/forkline-backend/pkg/db"
	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

// earnIndexName matches the partial unique index that makes order-earn
// credits idempotent; see the points_entries migration.
const earnIndexName = "idx_points_entries_order_earn"

// Service defines operations over a customer's points ledger.
type Service interface {
	// CreditOrderEarn appends an earn entry for the order. It reports false
	// without error when the order was already credited, so webhook retries
	// cannot double-credit.
	CreditOrderEarn(ctx context.Context, tx *gorm.DB, userID, orderID uuid.UUID, amount int) (bool, error)
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.PointsEntry, error)
	PointsForTotal(totalCents int) int
}

type service struct {
	repo     Repository
	earnRate decimal.Decimal
}

// NewService builds the points service. The earn rate is points per currency
// unit spent, e.g. "0.1" credits one point per ten dollars of subtotal.
func NewService(repo Repository, cfg config.PointsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("points repository required")
	}
	rate, err := decimal.NewFromString(cfg.EarnRate)
	if err != nil {
		return nil, fmt.Errorf("parse points earn rate %q: %w", cfg.EarnRate, err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("points earn rate must not be negative")
	}
	return &service{repo: repo, earnRate: rate}, nil
}

func (s *service) CreditOrderEarn(ctx context.Context, tx *gorm.DB, userID, orderID uuid.UUID, amount int) (bool, error) {
	if userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if amount <= 0 {
		return false, nil
	}

	entry := &models.PointsEntry{
		UserID:  userID,
		OrderID: &orderID,
		Delta:   amount,
		Reason:  enums.PointsReasonOrderEarn,
	}
	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, earnIndexName) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert points entry")
	}
	return true, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	total, err := s.repo.SumByUser(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum points entries")
	}
	return total, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.PointsEntry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	entries, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list points entries")
	}
	return entries, nil
}

// PointsForTotal converts an order total in cents to earned points, rounded
// down to the nearest whole point.
func (s *service) PointsForTotal(totalCents int) int {
	if totalCents <= 0 {
		return 0
	}
	units := decimal.NewFromInt(int64(totalCents)).Div(decimal.NewFromInt(100))
	return int(units.Mul(s.earnRate).IntPart())
}
