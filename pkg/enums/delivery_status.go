package enums

import "fmt"

// DeliveryStatus is the provider-agnostic courier status vocabulary. Every
// provider callback is normalized into one of these before it touches an order.
type DeliveryStatus string

const (
	DeliveryStatusPending          DeliveryStatus = "pending"
	DeliveryStatusEnRouteToPickup  DeliveryStatus = "en_route_to_pickup"
	DeliveryStatusAtPickup         DeliveryStatus = "at_pickup"
	DeliveryStatusEnRouteToDropoff DeliveryStatus = "en_route_to_dropoff"
	DeliveryStatusDelivered        DeliveryStatus = "delivered"
	DeliveryStatusCanceled         DeliveryStatus = "canceled"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusEnRouteToPickup,
	DeliveryStatusAtPickup,
	DeliveryStatusEnRouteToDropoff,
	DeliveryStatusDelivered,
	DeliveryStatusCanceled,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the courier job can no longer change state.
func (d DeliveryStatus) IsTerminal() bool {
	return d == DeliveryStatusDelivered || d == DeliveryStatusCanceled
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
