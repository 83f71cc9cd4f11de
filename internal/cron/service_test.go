package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguasol/aguasol-backend/pkg/logger"
	"github.com/aguasol/aguasol-backend/pkg/metrics"
)

type fakeLock struct {
	held    bool
	lost    bool
	extends int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Extend(context.Context) (bool, error) {
	f.extends++
	return f.held && !f.lost, nil
}

func (f *fakeLock) Release(context.Context) error { f.held = false; return nil }

type jobFunc struct {
	name string
	runs int
	fn   func(context.Context) error
}

func (j *jobFunc) Name() string { return j.name }

func (j *jobFunc) Run(ctx context.Context) error {
	j.runs++
	if j.fn == nil {
		return nil
	}
	return j.fn(ctx)
}

func failing(name string, err error) *jobFunc {
	return &jobFunc{name: name, fn: func(context.Context) error { return err }}
}

func newCron(t *testing.T, lock Lock, params ServiceParams, jobs ...Job) *Service {
	t.Helper()
	reg, err := NewRegistry(jobs...)
	require.NoError(t, err)
	params.Logger = logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	params.Registry = reg
	params.Lock = lock
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func TestRunOnceRunsEveryJobDespiteFailures(t *testing.T) {
	ok, broken, after := &jobFunc{name: "order-expiry"}, failing("subscription-renewal", errors.New("boom")), &jobFunc{name: "outbox-retention"}
	lock := &fakeLock{}

	err := newCron(t, lock, ServiceParams{}, ok, broken, after).RunOnce(context.Background())
	require.EqualError(t, err, "job subscription-renewal: boom")
	assert.Equal(t, []int{1, 1, 1}, []int{ok.runs, broken.runs, after.runs})
	assert.Equal(t, 2, lock.extends, "extended between jobs only")
	assert.False(t, lock.held, "released after the cycle")
}

func TestRunOnceSkipsWhenLockIsHeldElsewhere(t *testing.T) {
	job := &jobFunc{name: "order-expiry"}
	require.NoError(t, newCron(t, &fakeLock{held: true}, ServiceParams{}, job).RunOnce(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunOnceStopsWhenLockIsLost(t *testing.T) {
	first, second := &jobFunc{name: "order-expiry"}, &jobFunc{name: "subscription-renewal"}

	err := newCron(t, &fakeLock{lost: true}, ServiceParams{}, first, second).RunOnce(context.Background())
	require.ErrorIs(t, err, errLockLost)
	assert.Equal(t, 1, first.runs)
	assert.Zero(t, second.runs)
}

func TestRunOnceTurnsPanicsIntoErrors(t *testing.T) {
	bad := &jobFunc{name: "notification-cleanup", fn: func(context.Context) error { panic("nil map") }}
	next := &jobFunc{name: "outbox-retention"}

	err := newCron(t, &fakeLock{}, ServiceParams{}, bad, next).RunOnce(context.Background())
	require.ErrorContains(t, err, "job notification-cleanup: panic: nil map")
	assert.Equal(t, 1, next.runs)
}

func TestJobTimeoutBoundsEachJob(t *testing.T) {
	slow := &jobFunc{name: "order-expiry", fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	err := newCron(t, &fakeLock{}, ServiceParams{JobTimeout: 10 * time.Millisecond}, slow).RunOnce(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunOnceRecordsJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := newCron(t, &fakeLock{}, ServiceParams{Metrics: metrics.NewCronJobMetrics(reg)},
		&jobFunc{name: "ok"}, failing("broken", errors.New("boom")))
	require.Error(t, svc.RunOnce(context.Background()))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Subset(t, names, []string{
		"aguasol_cron_job_runs_total",
		"aguasol_cron_job_last_success_timestamp_seconds",
		"aguasol_cron_job_duration_seconds",
	})
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: logger.New(logger.Options{Output: io.Discard})})
	assert.Error(t, err)
}

func TestRunReturnsOnCancel(t *testing.T) {
	job := &jobFunc{name: "order-expiry"}
	svc := newCron(t, &fakeLock{}, ServiceParams{Interval: time.Hour}, job)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Run(ctx), context.Canceled)
	assert.Equal(t, 1, job.runs, "the first cycle starts immediately")
}
