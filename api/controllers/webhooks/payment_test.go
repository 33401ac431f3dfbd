package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentwebhook "github.com/forkline/forkline-backend/internal/webhooks/payment"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/logger"
)

const webhookTestSecret = "whsec_test"

func signBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type recordingPaymentService struct {
	events []*paymentwebhook.Event
	err    error
}

func (s *recordingPaymentService) HandleEvent(ctx context.Context, event *paymentwebhook.Event) error {
	s.events = append(s.events, event)
	return s.err
}

type memoryGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{seen: map[string]bool{}}
}

func (g *memoryGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen[eventID] {
		return true, nil
	}
	g.seen[eventID] = true
	return false, nil
}

func (g *memoryGuard) Delete(ctx context.Context, eventID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, eventID)
	return nil
}

func webhookTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "webhook-test", Output: io.Discard})
}

func paymentEventBody(t *testing.T, eventID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": paymentwebhook.EventPaymentSucceeded,
		"data": map[string]any{
			"object": map[string]any{
				"id":           "pay_123",
				"status":       "succeeded",
				"amount_cents": 2500,
				"currency":     "USD",
				"metadata": map[string]string{
					"orderId": "0d4f1f6e-98a7-4f36-9f07-5a1a2b3c4d5e",
					"userId":  "2f6f6d71-8e12-44a8-9b44-1d2e3f4a5b6c",
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func postPaymentWebhook(handler http.HandlerFunc, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payments", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(paymentwebhook.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPaymentWebhookProcessesSignedEvent(t *testing.T) {
	svc := &recordingPaymentService{}
	handler := PaymentWebhook(svc, webhookTestSecret, newMemoryGuard(), nil, webhookTestLogger())

	body := paymentEventBody(t, "evt_1")
	rec := postPaymentWebhook(handler, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"received":true`)
	require.Len(t, svc.events, 1)
	assert.Equal(t, "evt_1", svc.events[0].ID)
	assert.Equal(t, "pay_123", svc.events[0].Data.Object.ID)
}

func TestPaymentWebhookReplayIsAcknowledgedOnce(t *testing.T) {
	svc := &recordingPaymentService{}
	handler := PaymentWebhook(svc, webhookTestSecret, newMemoryGuard(), nil, webhookTestLogger())

	body := paymentEventBody(t, "evt_2")
	signature := signBody(body)

	first := postPaymentWebhook(handler, body, signature)
	second := postPaymentWebhook(handler, body, signature)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), `"received":true`)
	assert.Len(t, svc.events, 1, "a redelivered event must not be handled twice")
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	svc := &recordingPaymentService{}
	handler := PaymentWebhook(svc, webhookTestSecret, newMemoryGuard(), nil, webhookTestLogger())

	body := paymentEventBody(t, "evt_3")
	rec := postPaymentWebhook(handler, body, signBody([]byte("different payload")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.events, "nothing in an unverified payload may be acted on")
}

func TestPaymentWebhookRequiresSignatureHeader(t *testing.T) {
	svc := &recordingPaymentService{}
	handler := PaymentWebhook(svc, webhookTestSecret, newMemoryGuard(), nil, webhookTestLogger())

	rec := postPaymentWebhook(handler, paymentEventBody(t, "evt_4"), "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, svc.events)
}

func TestPaymentWebhookAcknowledgesProcessingFailure(t *testing.T) {
	svc := &recordingPaymentService{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	guard := newMemoryGuard()
	handler := PaymentWebhook(svc, webhookTestSecret, guard, nil, webhookTestLogger())

	body := paymentEventBody(t, "evt_5")
	rec := postPaymentWebhook(handler, body, signBody(body))

	assert.Equal(t, http.StatusOK, rec.Code, "a verified event is acknowledged even when processing fails")
	assert.Contains(t, rec.Body.String(), `"received":true`)
	require.Len(t, svc.events, 1)
}

func TestPaymentWebhookFailureAllowsRedelivery(t *testing.T) {
	svc := &recordingPaymentService{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	guard := newMemoryGuard()
	handler := PaymentWebhook(svc, webhookTestSecret, guard, nil, webhookTestLogger())

	body := paymentEventBody(t, "evt_6")
	signature := signBody(body)

	rec := postPaymentWebhook(handler, body, signature)
	require.Equal(t, http.StatusOK, rec.Code)

	svc.err = nil
	rec = postPaymentWebhook(handler, body, signature)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, svc.events, 2, "a failed event must stay reprocessable")
}
