package cron

import (
	"context"
	"fmt"

	"github.com/forkline/forkline-backend/internal/dispatch"
	"github.com/forkline/forkline-backend/pkg/logger"
)

type dispatchSweepJob struct {
	logg    *logger.Logger
	sweeper dispatch.Service
}

// NewDispatchSweepJob wraps the delivery dispatch sweep as a cron job. Sweep
// failures are logged, not returned, since failed orders stay eligible for
// the next run.
func NewDispatchSweepJob(sweeper dispatch.Service, logg *logger.Logger) (Job, error) {
	if sweeper == nil {
		return nil, fmt.Errorf("dispatch service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &dispatchSweepJob{logg: logg, sweeper: sweeper}, nil
}

func (j *dispatchSweepJob) Name() string { return "delivery-dispatch-sweep" }

func (j *dispatchSweepJob) Run(ctx context.Context) error {
	result, err := j.sweeper.Sweep(ctx)
	if result != nil {
		dispatched := 0
		for _, r := range result.Results {
			if r.Dispatched {
				dispatched++
			}
		}
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"processed":  result.Processed,
			"dispatched": dispatched,
		})
		j.logg.Info(logCtx, "dispatch sweep complete")
	}
	if err != nil {
		j.logg.Error(ctx, "dispatch sweep finished with failures", err)
	}
	return nil
}
