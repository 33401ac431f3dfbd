package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/forkline/forkline-backend/pkg/enums"
	"github.com/forkline/forkline-backend/pkg/types"
)

// Order carries both the commercial record and the fulfillment state of a
// customer purchase. Payment and kitchen lifecycles are tracked separately.
type Order struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber int64     `gorm:"column:order_number;not null;uniqueIndex"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`

	TotalCents int            `gorm:"column:total_cents;not null"`
	Currency   enums.Currency `gorm:"column:currency;type:text;not null;default:'USD'"`

	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`

	// PaymentRef correlates processor webhook events back to this order.
	PaymentRef *string `gorm:"column:payment_ref;type:text;index"`

	// Delivery orders carry an address; pickup orders carry optional notes.
	DeliveryAddress *types.Address `gorm:"column:delivery_address;type:jsonb;serializer:json"`
	PickupNotes     *string        `gorm:"column:pickup_notes;type:text"`
	ContactName     string         `gorm:"column:contact_name;type:text;not null"`
	ContactPhone    string         `gorm:"column:contact_phone;type:text;not null"`

	// Courier correlation fields, populated only after dispatch.
	DeliveryID          *string                 `gorm:"column:delivery_id;type:text;index"`
	DeliveryProvider    *enums.DeliveryProvider `gorm:"column:delivery_provider;type:text"`
	DeliveryStatus      *enums.DeliveryStatus   `gorm:"column:delivery_status;type:text"`
	TrackingURL         *string                 `gorm:"column:tracking_url;type:text"`
	CourierName         *string                 `gorm:"column:courier_name;type:text"`
	CourierPhone        *string                 `gorm:"column:courier_phone;type:text"`
	CourierLocation     *string                 `gorm:"column:courier_location;type:text"`
	DeliveryETA         *time.Time              `gorm:"column:delivery_eta"`
	ProofOfDelivery     json.RawMessage         `gorm:"column:proof_of_delivery;type:jsonb"`
	DeliveryScheduledAt *time.Time              `gorm:"column:delivery_scheduled_at"`
	// DeliveryTriggeredAt is the dispatch guard: set at most once, via a
	// conditional update, so overlapping sweeps cannot dispatch twice.
	DeliveryTriggeredAt *time.Time `gorm:"column:delivery_triggered_at"`

	PointsEarned         int        `gorm:"column:points_earned;not null;default:0"`
	CancellationDeadline *time.Time `gorm:"column:cancellation_deadline"`
	FailureReason        *string    `gorm:"column:failure_reason;type:text"`

	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// IsDelivery reports whether the order requires a courier dispatch.
func (o *Order) IsDelivery() bool {
	return o.DeliveryAddress != nil && !o.DeliveryAddress.IsZero()
}
