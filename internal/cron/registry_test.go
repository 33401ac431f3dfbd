package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs int
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func TestRegistryPreservesOrderAndSkipsNil(t *testing.T) {
	first := &countingJob{name: "first"}
	second := &countingJob{name: "second"}

	registry := NewRegistry(first, nil, second)
	registry.Register(nil)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "first", jobs[0].Name())
	assert.Equal(t, "second", jobs[1].Name())
}

func TestThrottleRunsAtMostOncePerInterval(t *testing.T) {
	inner := &countingJob{name: "cleanup"}
	throttled := Throttle(inner, time.Hour)

	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	throttled.(*throttledJob).now = func() time.Time { return clock }

	ctx := context.Background()
	require.NoError(t, throttled.Run(ctx))
	require.NoError(t, throttled.Run(ctx))
	assert.Equal(t, 1, inner.runs, "ticks inside the interval are absorbed")

	clock = clock.Add(time.Hour)
	require.NoError(t, throttled.Run(ctx))
	assert.Equal(t, 2, inner.runs)
}

func TestThrottleKeepsJobName(t *testing.T) {
	inner := &countingJob{name: "cleanup"}
	assert.Equal(t, "cleanup", Throttle(inner, time.Minute).Name())
}

func TestThrottleWithoutIntervalIsPassthrough(t *testing.T) {
	inner := &countingJob{name: "cleanup"}
	assert.Same(t, Job(inner), Throttle(inner, 0))
}
