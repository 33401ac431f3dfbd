package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/forkline/forkline-backend/api/responses"
	paymentwebhook "github.com/forkline/forkline-backend/internal/webhooks/payment"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/logger"
	"github.com/forkline/forkline-backend/pkg/metrics"
)

type paymentWebhookService interface {
	HandleEvent(ctx context.Context, event *paymentwebhook.Event) error
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// PaymentWebhook handles payment processor lifecycle events. The signature
// is verified before any field of the payload is trusted; after that the
// processor only ever sees a 200 so it stops redelivering.
func PaymentWebhook(svc paymentWebhookService, secret string, guard webhookGuard, wm *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		sigHeader := r.Header.Get(paymentwebhook.SignatureHeader)
		if sigHeader == "" {
			wm.Inc("payment", "rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "payment signature missing"))
			return
		}

		event, err := paymentwebhook.ParseEvent(payload, sigHeader, secret)
		if err != nil {
			wm.Inc("payment", "rejected")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			wm.Inc("payment", "duplicate")
			responses.WriteSuccess(w, map[string]bool{"received": true})
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			// A verified event is always acknowledged so the processor stops
			// redelivering. Clearing the idempotency mark lets the next
			// natural redelivery retry the mutation.
			_ = guard.Delete(ctx, event.ID)
			wm.Inc("payment", "failed")
			if logg != nil {
				logg.Error(ctx, fmt.Sprintf("payment event %s failed", event.ID), err)
			}
			responses.WriteSuccess(w, map[string]bool{"received": true})
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("payment event %s processed", event.ID))
		}
		wm.Inc("payment", "processed")
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
