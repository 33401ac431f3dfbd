package reservations

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/db"
	"github.com/forkline/forkline-backend/pkg/db/models"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

// Service allocates event spots under optimistic concurrency.
type Service interface {
	Reserve(ctx context.Context, eventID, userID uuid.UUID) (*ReserveResult, error)
}

// ReserveResult reports the created reservation and the spots left after it.
type ReserveResult struct {
	ReservationID  uuid.UUID `json:"reservation_id"`
	EventID        uuid.UUID `json:"event_id"`
	RemainingSpots int       `json:"remaining_spots"`
}

type service struct {
	repo Repository
}

// NewService builds the reservation allocator.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservations repository required")
	}
	return &service{repo: repo}, nil
}

// Reserve claims one spot for the user. The decrement is a compare-and-swap
// against the spot count read beforehand; losing the swap surfaces a
// retryable conflict distinct from sold-out. A duplicate insert after a won
// swap rolls the decrement back.
func (s *service) Reserve(ctx context.Context, eventID, userID uuid.UUID) (*ReserveResult, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	exists, err := s.repo.ReservationExists(ctx, eventID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing reservation")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyExists, "already reserved")
	}

	event, err := s.repo.FindEvent(ctx, eventID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load event")
	}
	if event.AvailableSpots <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeSoldOut, "event sold out")
	}

	swapped, err := s.repo.DecrementSpots(ctx, eventID, event.AvailableSpots)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement spots")
	}
	if !swapped {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "spot contention, try again")
	}

	reservation := &models.Reservation{
		EventID: eventID,
		UserID:  userID,
	}
	if err := s.repo.CreateReservation(ctx, reservation); err != nil {
		// A concurrent duplicate slipped past the first check; give the
		// claimed spot back before surfacing the error.
		if restoreErr := s.repo.RestoreSpot(ctx, eventID); restoreErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, restoreErr, "restore spot after failed insert")
		}
		if db.IsUniqueViolation(err, "idx_reservations_event_user") {
			return nil, pkgerrors.New(pkgerrors.CodeAlreadyExists, "already reserved")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert reservation")
	}

	return &ReserveResult{
		ReservationID:  reservation.ID,
		EventID:        eventID,
		RemainingSpots: event.AvailableSpots - 1,
	}, nil
}
