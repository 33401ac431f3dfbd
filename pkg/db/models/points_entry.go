package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/forkline/forkline-backend/pkg/enums"
)

// PointsEntry is one immutable row in a customer's rewards ledger. The
// balance is the running sum of deltas. The partial unique index on
// (user_id, order_id) for order_earn rows is what makes the payment webhook's
// credit structurally idempotent; see the points_entries migration.
type PointsEntry struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID   *uuid.UUID         `gorm:"column:order_id;type:uuid"`
	Delta     int                `gorm:"column:delta;not null"`
	Reason    enums.PointsReason `gorm:"column:reason;type:text;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the ID client-side when the database default is
// unavailable (sqlite has no gen_random_uuid).
func (p *PointsEntry) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
