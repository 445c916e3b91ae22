package cron

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type entry struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// due reports whether the entry should run at now. Zero every means every cycle.
func (e *entry) due(now time.Time) bool {
	if e.lastRun.IsZero() || e.every <= 0 {
		return true
	}
	return !now.Before(e.lastRun.Add(e.every))
}

// Registry tracks registered cron jobs and how often each one runs.
type Registry struct {
	entries []*entry
}

// NewRegistry builds a registry preloaded with jobs that run on every cycle.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job that runs on every cycle.
func (r *Registry) Register(job Job) {
	r.RegisterEvery(job, 0)
}

// RegisterEvery adds a job that runs at most once per every.
func (r *Registry) RegisterEvery(job Job, every time.Duration) {
	if job == nil {
		return
	}
	r.entries = append(r.entries, &entry{job: job, every: every})
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.entries))
	for _, e := range r.entries {
		jobs = append(jobs, e.job)
	}
	return jobs
}

func (r *Registry) dueEntries(now time.Time) []*entry {
	var due []*entry
	for _, e := range r.entries {
		if e.due(now) {
			due = append(due, e)
		}
	}
	return due
}
