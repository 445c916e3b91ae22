package cron

import (
	"context"
	"testing"
	"time"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry.Register(jobA)
	registry.Register(jobB)
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	// ensure caller cannot mutate internal slice
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryDueEntriesHonorsInterval(t *testing.T) {
	registry := NewRegistry()
	every := &stubJob{name: "every-cycle"}
	hourly := &stubJob{name: "hourly"}
	registry.Register(every)
	registry.RegisterEvery(hourly, time.Hour)
	registry.Register(nil)

	start := time.Date(2026, 5, 4, 18, 0, 0, 0, time.UTC)
	due := registry.dueEntries(start)
	if len(due) != 2 {
		t.Fatalf("expected both jobs due on first cycle, got %d", len(due))
	}
	for _, e := range due {
		e.lastRun = start
	}

	due = registry.dueEntries(start.Add(20 * time.Second))
	if len(due) != 1 || due[0].job != every {
		t.Fatalf("expected only the every-cycle job due, got %d", len(due))
	}

	due = registry.dueEntries(start.Add(time.Hour))
	if len(due) != 2 {
		t.Fatalf("expected hourly job due after an hour, got %d", len(due))
	}
}
