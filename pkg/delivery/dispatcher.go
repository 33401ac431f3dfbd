package delivery

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/forkline/forkline-backend/pkg/enums"
)

// Dispatcher books courier jobs on one provider network. Both provider
// clients satisfy it so the dispatch sweep is provider-agnostic.
type Dispatcher interface {
	Provider() enums.DeliveryProvider
	CreateDelivery(ctx context.Context, req DispatchRequest) (*DispatchResponse, error)
}

// Contact identifies the person at one end of a courier leg.
type Contact struct {
	Name  string
	Phone string
}

// DispatchRequest carries everything a provider needs to book a courier.
type DispatchRequest struct {
	Reference      string
	PickupAddress  string
	PickupContact  Contact
	DropoffAddress string
	DropoffContact Contact
	Notes          string
}

// DispatchResponse is the normalized booking result.
type DispatchResponse struct {
	DeliveryID  string
	Status      enums.DeliveryStatus
	TrackingURL string
	Fee         decimal.Decimal
	Currency    string
}
