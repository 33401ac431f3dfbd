package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkline/forkline-backend/internal/dispatch"
)

type stubLock struct {
	held     bool
	acquires int
	releases int
}

func (l *stubLock) Acquire(ctx context.Context) (bool, error) {
	l.acquires++
	return !l.held, nil
}

func (l *stubLock) Release(ctx context.Context) error {
	l.releases++
	return nil
}

func TestRunCycleExecutesJobsInOrder(t *testing.T) {
	first := &countingJob{name: "first"}
	second := &countingJob{name: "second"}
	lock := &stubLock{}

	svc, err := NewService(ServiceParams{
		Logger:   cronTestLogger(),
		Registry: NewRegistry(first, second),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Equal(t, 1, first.runs)
	assert.Equal(t, 1, second.runs)
	assert.Equal(t, 1, lock.releases)
}

func TestRunCycleSkipsWhenLockIsHeld(t *testing.T) {
	job := &countingJob{name: "sweep"}
	lock := &stubLock{held: true}

	svc, err := NewService(ServiceParams{
		Logger:   cronTestLogger(),
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Equal(t, 0, job.runs, "only the lock holder runs the cycle")
	assert.Equal(t, 0, lock.releases)
}

func TestRunCycleContinuesPastFailingJob(t *testing.T) {
	failing := &countingJob{name: "flaky", err: assert.AnError}
	healthy := &countingJob{name: "healthy"}

	svc, err := NewService(ServiceParams{
		Logger:   cronTestLogger(),
		Registry: NewRegistry(failing, healthy),
		Lock:     &stubLock{},
	})
	require.NoError(t, err)

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, healthy.runs)
}

type stubSweeper struct {
	result *dispatch.SweepResult
	err    error
	calls  int
}

func (s *stubSweeper) Sweep(ctx context.Context) (*dispatch.SweepResult, error) {
	s.calls++
	return s.result, s.err
}

func TestDispatchSweepJobSwallowsSweepErrors(t *testing.T) {
	sweeper := &stubSweeper{
		result: &dispatch.SweepResult{Processed: 2, Results: []dispatch.OrderResult{
			{Dispatched: true},
			{Error: "provider timeout"},
		}},
		err: assert.AnError,
	}
	job, err := NewDispatchSweepJob(sweeper, cronTestLogger())
	require.NoError(t, err)

	assert.NoError(t, job.Run(context.Background()), "failed orders retry next run, the job itself is healthy")
	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, "delivery-dispatch-sweep", job.Name())
}
