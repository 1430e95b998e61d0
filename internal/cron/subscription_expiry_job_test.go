package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/botmarket-labs/botmarket-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type fakeExpirer struct {
	batches []int64
	calls   int
	limits  []int
	err     error
}

func (f *fakeExpirer) ExpireElapsed(ctx context.Context, limit int) (int64, error) {
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return 0, f.err
	}
	if f.calls >= len(f.batches) {
		return 0, nil
	}
	flipped := f.batches[f.calls]
	f.calls++
	return flipped, nil
}

func newExpiryJob(t *testing.T, expirer *fakeExpirer, batchLimit int) Job {
	t.Helper()
	job, err := NewSubscriptionExpiryJob(SubscriptionExpiryJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "cron-test"}),
		Subscriptions: expirer,
		BatchLimit:    batchLimit,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	return job
}

func TestSubscriptionExpiryJobDrainsBacklogInBatches(t *testing.T) {
	expirer := &fakeExpirer{batches: []int64{5, 5, 2}}
	job := newExpiryJob(t, expirer, 5)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	// The short third batch ends the sweep.
	if expirer.calls != 3 {
		t.Fatalf("expected 3 batches, got %d", expirer.calls)
	}
	for _, limit := range expirer.limits {
		if limit != 5 {
			t.Fatalf("expected batch limit 5, got %d", limit)
		}
	}
}

func TestSubscriptionExpiryJobStopsOnError(t *testing.T) {
	expirer := &fakeExpirer{err: errors.New("db down")}
	job := newExpiryJob(t, expirer, 5)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(expirer.limits) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(expirer.limits))
	}
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})

	failing := &fakeExpirer{err: errors.New("boom")}
	draining := &fakeExpirer{batches: []int64{1}}
	failJob := newExpiryJob(t, failing, 5)
	okJob := newExpiryJob(t, draining, 5)

	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(failJob, okJob),
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if len(failing.limits) != 1 {
		t.Fatal("failing job did not run")
	}
	if draining.calls != 1 {
		t.Fatal("second job should still run after a failure")
	}
}

func TestServiceSkipsCycleWhenLockHeld(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	expirer := &fakeExpirer{batches: []int64{1}}
	job := newExpiryJob(t, expirer, 5)

	lock := &fakeLock{acquired: true}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: NewRegistry(job),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if len(expirer.limits) != 0 {
		t.Fatal("job must not run while the lock is held elsewhere")
	}
}
