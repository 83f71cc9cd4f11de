package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Job is one maintenance task run by the cron worker: order expiry,
// subscription renewal, outbox retention or notification cleanup.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order, keyed by unique name.
type Registry struct {
	jobs   []Job
	byName map[string]Job
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("cron job required")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job name required")
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.byName[name] = job
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the jobs in registration order.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}

// Only narrows the registry to the named jobs, keeping registration order.
// It backs the cron worker's -job flag for manual reruns.
func (r *Registry) Only(names ...string) (*Registry, error) {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := r.byName[name]; !ok {
			known := r.Names()
			sort.Strings(known)
			return nil, fmt.Errorf("unknown cron job %q (known: %s)", name, strings.Join(known, ", "))
		}
		wanted[name] = true
	}

	subset := &Registry{byName: make(map[string]Job, len(wanted))}
	for _, job := range r.jobs {
		if wanted[job.Name()] {
			subset.byName[job.Name()] = job
			subset.jobs = append(subset.jobs, job)
		}
	}
	return subset, nil
}
