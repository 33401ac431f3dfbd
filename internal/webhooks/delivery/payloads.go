package deliverywebhook

import (
	"encoding/json"
	"time"

	"github.com/forkline/forkline-backend/pkg/delivery"
	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

// Update is the provider-agnostic result of adapting one callback payload.
// Only non-nil fields are written to the order.
type Update struct {
	Provider        enums.DeliveryProvider
	DeliveryID      string
	Status          enums.DeliveryStatus
	RawStatus       string
	CourierName     *string
	CourierPhone    *string
	CourierLocation *string
	ETA             *time.Time
	TrackingURL     *string
	ProofOfDelivery json.RawMessage
}

type swiftdropCourier struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// swiftdropEvent mirrors Swiftdrop's callback body.
type swiftdropEvent struct {
	DeliveryID  string            `json:"delivery_id"`
	Status      string            `json:"status"`
	Courier     *swiftdropCourier `json:"courier"`
	ETA         *time.Time        `json:"eta"`
	TrackingURL string            `json:"tracking_url"`
	Proof       json.RawMessage   `json:"proof_of_delivery"`
}

// ParseSwiftdropEvent adapts a Swiftdrop callback into an Update.
func ParseSwiftdropEvent(payload []byte) (*Update, error) {
	var event swiftdropEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode swiftdrop payload")
	}
	if event.DeliveryID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery_id required")
	}
	if event.Status == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status required")
	}

	update := &Update{
		Provider:        enums.DeliveryProviderSwiftdrop,
		DeliveryID:      event.DeliveryID,
		Status:          delivery.NormalizeSwiftdropStatus(event.Status),
		RawStatus:       event.Status,
		ETA:             event.ETA,
		ProofOfDelivery: event.Proof,
	}
	if event.TrackingURL != "" {
		update.TrackingURL = &event.TrackingURL
	}
	if event.Courier != nil {
		if event.Courier.Name != "" {
			update.CourierName = &event.Courier.Name
		}
		if event.Courier.Phone != "" {
			update.CourierPhone = &event.Courier.Phone
		}
		if event.Courier.Location != "" {
			update.CourierLocation = &event.Courier.Location
		}
	}
	return update, nil
}

type fleetbirdDriver struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Position string `json:"position"`
}

// fleetbirdEvent mirrors Fleetbird's callback body.
type fleetbirdEvent struct {
	JobID       string           `json:"jobId"`
	State       string           `json:"state"`
	Driver      *fleetbirdDriver `json:"driver"`
	ETA         *time.Time       `json:"eta"`
	TrackingURL string           `json:"trackingUrl"`
	Proof       json.RawMessage  `json:"proof"`
}

// ParseFleetbirdEvent adapts a Fleetbird callback into an Update.
func ParseFleetbirdEvent(payload []byte) (*Update, error) {
	var event fleetbirdEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode fleetbird payload")
	}
	if event.JobID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "jobId required")
	}
	if event.State == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "state required")
	}

	update := &Update{
		Provider:        enums.DeliveryProviderFleetbird,
		DeliveryID:      event.JobID,
		Status:          delivery.NormalizeFleetbirdState(event.State),
		RawStatus:       event.State,
		ETA:             event.ETA,
		ProofOfDelivery: event.Proof,
	}
	if event.TrackingURL != "" {
		update.TrackingURL = &event.TrackingURL
	}
	if event.Driver != nil {
		if event.Driver.Name != "" {
			update.CourierName = &event.Driver.Name
		}
		if event.Driver.Phone != "" {
			update.CourierPhone = &event.Driver.Phone
		}
		if event.Driver.Position != "" {
			update.CourierLocation = &event.Driver.Position
		}
	}
	return update, nil
}
