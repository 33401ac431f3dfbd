package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/forkline/forkline-backend/api/responses"
	deliverywebhook "github.com/forkline/forkline-backend/internal/webhooks/delivery"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/logger"
	"github.com/forkline/forkline-backend/pkg/metrics"
)

type deliveryWebhookService interface {
	Apply(ctx context.Context, update *deliverywebhook.Update) error
}

// SwiftdropWebhook handles courier status callbacks from Swiftdrop.
func SwiftdropWebhook(svc deliveryWebhookService, wm *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return deliveryWebhook(svc, wm, logg, "swiftdrop", deliverywebhook.ParseSwiftdropEvent)
}

// FleetbirdWebhook handles courier status callbacks from Fleetbird.
func FleetbirdWebhook(svc deliveryWebhookService, wm *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return deliveryWebhook(svc, wm, logg, "fleetbird", deliverywebhook.ParseFleetbirdEvent)
}

func deliveryWebhook(svc deliveryWebhookService, wm *metrics.WebhookMetrics, logg *logger.Logger, source string, parse func([]byte) (*deliverywebhook.Update, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		update, err := parse(payload)
		if err != nil {
			wm.Inc(source, "rejected")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Apply(ctx, update); err != nil {
			wm.Inc(source, "failed")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("%s delivery %s reported %s", source, update.DeliveryID, update.Status))
		}
		wm.Inc(source, "processed")
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
