package controllers

import (
	"net/http"

	"github.com/forkline/forkline-backend/api/responses"
	"github.com/forkline/forkline-backend/internal/dispatch"
	pkgerrors "github.com/forkline/forkline-backend/pkg/errors"
	"github.com/forkline/forkline-backend/pkg/logger"
)

// TriggerDispatchSweep runs one dispatch sweep on demand. The cron worker
// runs the same sweep on a schedule; this endpoint exists for operators.
// Partial failures come back in the per-order results, not as an error
// status, so a single bad order does not mask the rest of the run.
func TriggerDispatchSweep(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}

		result, err := svc.Sweep(r.Context())
		if err != nil && result == nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err != nil && logg != nil {
			logg.Error(r.Context(), "dispatch sweep finished with failures", err)
		}
		responses.WriteSuccess(w, result)
	}
}
