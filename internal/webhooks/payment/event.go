package paymentwebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
)

// SignatureHeader carries the processor's hex HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Payment-Signature"

// Event kinds emitted by the payment processor.
const (
	EventPaymentSucceeded  = "payment.succeeded"
	EventPaymentFailed     = "payment.failed"
	EventPaymentCanceled   = "payment.canceled"
	EventPaymentProcessing = "payment.processing"
)

// Event is the processor's webhook envelope.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      EventData `json:"data"`
}

// EventData wraps the payment object the event describes.
type EventData struct {
	Object PaymentObject `json:"object"`
}

// PaymentObject is the processor's view of one payment. Metadata carries the
// correlation back to our order and user.
type PaymentObject struct {
	ID            string        `json:"id"`
	Status        string        `json:"status"`
	AmountCents   int           `json:"amount_cents"`
	Currency      string        `json:"currency"`
	FailureReason string        `json:"failure_reason"`
	Metadata      EventMetadata `json:"metadata"`
}

// EventMetadata echoes the identifiers attached at checkout time.
type EventMetadata struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
}

// ParseEvent verifies the payload signature and decodes the envelope. Nothing
// in the payload is trusted before the signature checks out.
func ParseEvent(payload []byte, signature, secret string) (*Event, error) {
	if err := VerifySignature(payload, signature, secret); err != nil {
		return nil, err
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event payload")
	}
	if event.ID == "" || event.Type == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id and type required")
	}
	return &event, nil
}

// VerifySignature checks the hex HMAC-SHA256 of payload against the shared
// secret. An optional "sha256=" prefix on the header value is accepted.
func VerifySignature(payload []byte, signature, secret string) error {
	if secret == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured")
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "signature missing")
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "signature malformed")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "signature mismatch")
	}
	return nil
}
