package deliverywebhook

import (
	"testing"

	"github.com/forkline/forkline-backend/pkg/enums"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

func TestParseSwiftdropEvent(t *testing.T) {
	payload := []byte(`{
		"delivery_id": "sd_789",
		"status": "picked_up",
		"courier": {"name": "Sam", "phone": "+15550111", "location": "45.52,-122.68"},
		"tracking_url": "https://track.swiftdrop.test/sd_789",
		"proof_of_delivery": {"photo": "https://img.test/p.jpg"}
	}`)

	update, err := ParseSwiftdropEvent(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if update.Provider != enums.DeliveryProviderSwiftdrop {
		t.Fatalf("provider = %s", update.Provider)
	}
	if update.DeliveryID != "sd_789" {
		t.Fatalf("delivery id = %s", update.DeliveryID)
	}
	if update.Status != enums.DeliveryStatusEnRouteToDropoff {
		t.Fatalf("picked_up should normalize to en_route_to_dropoff, got %s", update.Status)
	}
	if update.RawStatus != "picked_up" {
		t.Fatalf("raw status = %s", update.RawStatus)
	}
	if update.CourierName == nil || *update.CourierName != "Sam" {
		t.Fatalf("courier name lost: %+v", update)
	}
	if update.TrackingURL == nil || *update.TrackingURL == "" {
		t.Fatal("tracking url lost")
	}
	if len(update.ProofOfDelivery) == 0 {
		t.Fatal("proof of delivery lost")
	}
}

func TestParseSwiftdropEventStatuses(t *testing.T) {
	cases := map[string]enums.DeliveryStatus{
		"created":          enums.DeliveryStatusPending,
		"courier_assigned": enums.DeliveryStatusEnRouteToPickup,
		"pickup_arrived":   enums.DeliveryStatusAtPickup,
		"delivered":        enums.DeliveryStatusDelivered,
		"cancelled":        enums.DeliveryStatusCanceled,
		"weird_new_code":   enums.DeliveryStatusPending,
	}
	for raw, want := range cases {
		update, err := ParseSwiftdropEvent([]byte(`{"delivery_id":"sd_1","status":"` + raw + `"}`))
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if update.Status != want {
			t.Fatalf("%s normalized to %s, want %s", raw, update.Status, want)
		}
	}
}

func TestParseSwiftdropEventRejectsMalformed(t *testing.T) {
	cases := []string{
		`{not json`,
		`{"status":"delivered"}`,
		`{"delivery_id":"sd_1"}`,
	}
	for _, payload := range cases {
		if _, err := ParseSwiftdropEvent([]byte(payload)); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("payload %q: expected VALIDATION, got %v", payload, err)
		}
	}
}

func TestParseFleetbirdEvent(t *testing.T) {
	payload := []byte(`{
		"jobId": "fb_42",
		"state": "OUT_FOR_DELIVERY",
		"driver": {"name": "Noa", "phone": "+15550122", "position": "45.51,-122.66"},
		"trackingUrl": "https://fleetbird.test/jobs/fb_42"
	}`)

	update, err := ParseFleetbirdEvent(payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if update.Provider != enums.DeliveryProviderFleetbird {
		t.Fatalf("provider = %s", update.Provider)
	}
	if update.DeliveryID != "fb_42" {
		t.Fatalf("delivery id = %s", update.DeliveryID)
	}
	if update.Status != enums.DeliveryStatusEnRouteToDropoff {
		t.Fatalf("OUT_FOR_DELIVERY should normalize to en_route_to_dropoff, got %s", update.Status)
	}
	if update.CourierName == nil || *update.CourierName != "Noa" {
		t.Fatalf("driver name lost: %+v", update)
	}
}

func TestParseFleetbirdEventStatuses(t *testing.T) {
	cases := map[string]enums.DeliveryStatus{
		"QUEUED":           enums.DeliveryStatusPending,
		"DRIVER_ASSIGNED":  enums.DeliveryStatusEnRouteToPickup,
		"ARRIVED_AT_STORE": enums.DeliveryStatusAtPickup,
		"COMPLETED":        enums.DeliveryStatusDelivered,
		"FAILED":           enums.DeliveryStatusCanceled,
	}
	for raw, want := range cases {
		update, err := ParseFleetbirdEvent([]byte(`{"jobId":"fb_1","state":"` + raw + `"}`))
		if err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if update.Status != want {
			t.Fatalf("%s normalized to %s, want %s", raw, update.Status, want)
		}
	}
}

func TestParseFleetbirdEventRejectsMalformed(t *testing.T) {
	cases := []string{
		`[]`,
		`{"state":"QUEUED"}`,
		`{"jobId":"fb_1"}`,
	}
	for _, payload := range cases {
		if _, err := ParseFleetbirdEvent([]byte(payload)); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("payload %q: expected VALIDATION, got %v", payload, err)
		}
	}
}
