package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one maintenance pass. Run returns the number of rows it touched.
type Job interface {
	Name() string
	Run(ctx context.Context) (int64, error)
}

// Registry holds jobs keyed by name, kept in execution order.
type Registry struct {
	order  []string
	byName map[string]Job
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{byName: map[string]Job{}}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends job. Names must be unique and non-empty.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("cron job is nil")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job name is empty")
	}
	if r.byName == nil {
		r.byName = map[string]Job{}
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.byName[name] = job
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Jobs() []Job {
	out := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Only returns a registry restricted to names, preserving registration order.
// An empty list keeps every job.
func (r *Registry) Only(names ...string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}
	want := map[string]bool{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := r.byName[name]; !ok {
			return nil, fmt.Errorf("unknown cron job %q (have %s)", name, strings.Join(r.order, ", "))
		}
		want[name] = true
	}
	subset := &Registry{byName: map[string]Job{}}
	for _, name := range r.order {
		if want[name] {
			subset.byName[name] = r.byName[name]
			subset.order = append(subset.order, name)
		}
	}
	return subset, nil
}
