package reservations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/db"
	"github.com/forkline/forkline-backend/pkg/db/models"
)

// Repository manages persistence for events and their reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	ReservationExists(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	DecrementSpots(ctx context.Context, eventID uuid.UUID, expected int) (bool, error)
	RestoreSpot(ctx context.Context, eventID uuid.UUID) error
	CreateReservation(ctx context.Context, reservation *models.Reservation) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reservations repository bound to the provided DB.
func NewRepository(gdb *gorm.DB) Repository {
	return &repository{db: gdb}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Where("id = ?", eventID).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) ReservationExists(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DecrementSpots is the correctness-critical primitive: it only lands when
// available_spots still equals the value the caller read.
func (r *repository) DecrementSpots(ctx context.Context, eventID uuid.UUID, expected int) (bool, error) {
	return db.CompareAndSwapColumn(ctx, r.db, &models.Event{}, eventID, "available_spots", expected, expected-1)
}

// RestoreSpot is the compensating write used when the reservation insert
// fails after a successful decrement. It increments rather than writing back
// the previously read value so it cannot clobber concurrent decrements.
func (r *repository) RestoreSpot(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", eventID).
		UpdateColumn("available_spots", gorm.Expr("available_spots + 1")).Error
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}
