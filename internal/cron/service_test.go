package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
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

type testJob struct {
	mu   sync.Mutex
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs++
	return t.err
}

func (t *testJob) runCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runs
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	registry := NewRegistry(&testJob{name: "success"}, &testJob{name: "fail", err: errors.New("boom")})
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx := context.Background()
	err = service.runCycle(ctx)
	if err == nil || !strings.Contains(err.Error(), "fail: boom") {
		t.Fatalf("expected the failing job in the cycle error, got %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if success, ok := jobs[0].(*testJob); ok {
		if success.runs != 1 {
			t.Fatalf("expected success job to run once, ran %d", success.runs)
		}
	} else {
		t.Fatalf("first job type mismatch")
	}
	if failure, ok := jobs[1].(*testJob); ok {
		if failure.runs != 1 {
			t.Fatalf("expected failure job to run once, ran %d", failure.runs)
		}
	} else {
		t.Fatalf("second job type mismatch")
	}
}

type heldLock struct{}

func (heldLock) Acquire(context.Context) (bool, error) { return false, nil }
func (heldLock) Release(context.Context) error         { return nil }

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "auction-finalization"}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: NewRegistry(job),
		Lock:     heldLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job to be skipped while another instance holds the lock, ran %d", job.runs)
	}
}

func TestServiceRunCycleRespectsJobIntervals(t *testing.T) {
	sweep := &testJob{name: "auction-finalization"}
	cleanup := &testJob{name: "notification-cleanup"}
	registry := NewRegistry()
	registry.Register(sweep)
	registry.RegisterEvery(cleanup, time.Hour)

	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: registry,
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	now := time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := service.runCycle(ctx); err != nil {
			t.Fatalf("run cycle: %v", err)
		}
		now = now.Add(20 * time.Second)
	}
	if sweep.runs != 3 {
		t.Fatalf("expected sweep to run every cycle, ran %d", sweep.runs)
	}
	if cleanup.runs != 1 {
		t.Fatalf("expected hourly cleanup to run once, ran %d", cleanup.runs)
	}

	now = now.Add(time.Hour)
	if err := service.runCycle(ctx); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if cleanup.runs != 2 {
		t.Fatalf("expected cleanup to run again after an hour, ran %d", cleanup.runs)
	}
}

func TestRedisLockReleaseOnlyByOwner(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(store, "lock:cron", time.Minute)
	ctx := context.Background()

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected first acquire to succeed, ok=%v err=%v", ok, err)
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("expected second acquire to fail while held")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release by non-owner: %v", err)
	}
	if _, held := store.values["lock:cron"]; !held {
		t.Fatal("non-owner release must not free the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("expected acquire to succeed after owner released")
	}
}

func TestRedisLockReportsExpiredLease(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	lock, _ := NewRedisLock(store, "lock:cron", time.Minute)
	ctx := context.Background()

	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatal("expected acquire to succeed")
	}
	// the lease expires and another replica takes it
	store.values["lock:cron"] = "someone-else"

	if err := lock.Release(ctx); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", err)
	}
	if store.values["lock:cron"] != "someone-else" {
		t.Fatal("release must not delete a lease it no longer owns")
	}
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("second release should be a no-op, got %v", err)
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "auction-finalization"}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{},
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- service.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for job.runCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected the first cycle to run immediately")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type memoryLockStore struct {
	values map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) DelIfValue(_ context.Context, key, expected string) (bool, error) {
	if m.values[key] != expected {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}
