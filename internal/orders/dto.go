package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/forkline/forkline-backend/pkg/db/models"
	"github.com/forkline/forkline-backend/pkg/enums"
	"github.com/forkline/forkline-backend/pkg/types"
)

// OrderItemView is a single line item as returned by the read API.
type OrderItemView struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int       `json:"total_cents"`
}

// OrderView is the customer-facing projection of an order, including the
// courier tracking fields populated by delivery webhooks.
type OrderView struct {
	ID                   uuid.UUID             `json:"id"`
	OrderNumber          int64                 `json:"order_number"`
	TotalCents           int                   `json:"total_cents"`
	Currency             enums.Currency        `json:"currency"`
	PaymentStatus        enums.PaymentStatus   `json:"payment_status"`
	Status               enums.OrderStatus     `json:"status"`
	DeliveryAddress      *types.Address        `json:"delivery_address,omitempty"`
	PickupNotes          *string               `json:"pickup_notes,omitempty"`
	DeliveryStatus       *enums.DeliveryStatus `json:"delivery_status,omitempty"`
	TrackingURL          *string               `json:"tracking_url,omitempty"`
	CourierName          *string               `json:"courier_name,omitempty"`
	CourierPhone         *string               `json:"courier_phone,omitempty"`
	DeliveryETA          *time.Time            `json:"delivery_eta,omitempty"`
	PointsEarned         int                   `json:"points_earned"`
	CancellationDeadline *time.Time            `json:"cancellation_deadline,omitempty"`
	FailureReason        *string               `json:"failure_reason,omitempty"`
	Items                []OrderItemView       `json:"items"`
	CreatedAt            time.Time             `json:"created_at"`
}

func newOrderView(order *models.Order) *OrderView {
	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemView{
			ID:             item.ID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			TotalCents:     item.TotalCents(),
		})
	}
	return &OrderView{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		TotalCents:           order.TotalCents,
		Currency:             order.Currency,
		PaymentStatus:        order.PaymentStatus,
		Status:               order.Status,
		DeliveryAddress:      order.DeliveryAddress,
		PickupNotes:          order.PickupNotes,
		DeliveryStatus:       order.DeliveryStatus,
		TrackingURL:          order.TrackingURL,
		CourierName:          order.CourierName,
		CourierPhone:         order.CourierPhone,
		DeliveryETA:          order.DeliveryETA,
		PointsEarned:         order.PointsEarned,
		CancellationDeadline: order.CancellationDeadline,
		FailureReason:        order.FailureReason,
		Items:                items,
		CreatedAt:            order.CreatedAt,
	}
}
