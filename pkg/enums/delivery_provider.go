package enums

import "fmt"

// DeliveryProvider identifies which courier network a delivery was booked on.
type DeliveryProvider string

const (
	DeliveryProviderSwiftdrop DeliveryProvider = "swiftdrop"
	DeliveryProviderFleetbird DeliveryProvider = "fleetbird"
)

var validDeliveryProviders = []DeliveryProvider{
	DeliveryProviderSwiftdrop,
	DeliveryProviderFleetbird,
}

// String implements fmt.Stringer.
func (d DeliveryProvider) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryProvider.
func (d DeliveryProvider) IsValid() bool {
	for _, candidate := range validDeliveryProviders {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryProvider converts raw input into a DeliveryProvider.
func ParseDeliveryProvider(value string) (DeliveryProvider, error) {
	for _, candidate := range validDeliveryProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery provider %q", value)
}
