package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/aguasol/aguasol-backend/pkg/logger"
)

// DeleteBefore removes rows older than cutoff and reports how many went.
type DeleteBefore func(ctx context.Context, cutoff time.Time) (int64, error)

// Purge is one table pruned by age.
type Purge struct {
	Target string
	Retain time.Duration
	Delete DeleteBefore
}

// PurgeJob runs a fixed list of purges in order. A failing purge does not
// keep the later ones from running.
type PurgeJob struct {
	name   string
	logg   *logger.Logger
	purges []Purge
	now    func() time.Time
}

func NewPurgeJob(name string, logg *logger.Logger, purges ...Purge) (*PurgeJob, error) {
	if name == "" {
		return nil, errors.New("purge job name required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if len(purges) == 0 {
		return nil, fmt.Errorf("%s: no purges", name)
	}
	for _, p := range purges {
		if p.Target == "" || p.Delete == nil || p.Retain <= 0 {
			return nil, fmt.Errorf("%s: purge %q needs a target, a delete func and a positive retention", name, p.Target)
		}
	}
	return &PurgeJob{name: name, logg: logg, purges: purges, now: time.Now}, nil
}

func (j *PurgeJob) Name() string { return j.name }

func (j *PurgeJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error
	for _, p := range j.purges {
		cutoff := now.Add(-p.Retain)
		n, err := p.Delete(ctx, cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("purge %s: %w", p.Target, err))
			continue
		}
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"target":  p.Target,
			"cutoff":  cutoff,
			"deleted": n,
		}), "purged rows")
	}
	return errs
}
