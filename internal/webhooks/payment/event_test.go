package paymentwebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

const testSecret = "whsec_forkline_test"

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)
	sig := signPayload(payload, testSecret)

	if err := VerifySignature(payload, sig, testSecret); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
	if err := VerifySignature(payload, "sha256="+sig, testSecret); err != nil {
		t.Fatalf("prefixed signature rejected: %v", err)
	}

	err := VerifySignature(payload, signPayload(payload, "wrong-secret"), testSecret)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION for wrong secret, got %v", err)
	}

	// Signature over different bytes must not verify.
	err = VerifySignature([]byte(`{"id":"evt_2"}`), sig, testSecret)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION for tampered payload, got %v", err)
	}

	err = VerifySignature(payload, "", testSecret)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION for empty signature, got %v", err)
	}

	err = VerifySignature(payload, "not-hex!!", testSecret)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION for malformed signature, got %v", err)
	}

	err = VerifySignature(payload, sig, "")
	if !pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected INTERNAL for missing secret, got %v", err)
	}
}

func TestParseEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"object":{"id":"pay_1","status":"succeeded","metadata":{"orderId":"b3b9c7a2-93a1-4a07-9f40-1a2b3c4d5e6f"}}}}`)
	event, err := ParseEvent(payload, signPayload(payload, testSecret), testSecret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if event.ID != "evt_1" || event.Type != EventPaymentSucceeded {
		t.Fatalf("unexpected envelope %+v", event)
	}
	if event.Data.Object.Metadata.OrderID != "b3b9c7a2-93a1-4a07-9f40-1a2b3c4d5e6f" {
		t.Fatalf("metadata lost: %+v", event.Data.Object)
	}

	// Nothing is decoded before the signature checks out.
	if _, err := ParseEvent(payload, "deadbeef", testSecret); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION for bad signature, got %v", err)
	}

	garbage := []byte(`{"id":`)
	if _, err := ParseEvent(garbage, signPayload(garbage, testSecret), testSecret); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION for malformed payload, got %v", err)
	}

	missing := []byte(`{"type":"payment.succeeded"}`)
	if _, err := ParseEvent(missing, signPayload(missing, testSecret), testSecret); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION for missing event id, got %v", err)
	}
}
