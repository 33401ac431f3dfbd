package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is a single menu line on an order.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	Name           string    `gorm:"column:name;type:text;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TotalCents returns the extended line total.
func (i OrderItem) TotalCents() int {
	return i.UnitPriceCents * i.Qty
}
