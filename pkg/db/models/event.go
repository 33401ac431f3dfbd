package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a limited-capacity happening customers can sign up for.
// AvailableSpots is only ever changed by compare-and-swap, so it always
// equals capacity minus the reservation count.
type Event struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title          string    `gorm:"column:title;type:text;not null"`
	Description    *string   `gorm:"column:description;type:text"`
	StartsAt       time.Time `gorm:"column:starts_at;not null"`
	Capacity       int       `gorm:"column:capacity;not null"`
	AvailableSpots int       `gorm:"column:available_spots;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
