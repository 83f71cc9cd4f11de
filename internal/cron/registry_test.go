package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	expiry := &stubJob{name: "order-expiry"}
	renewal := &stubJob{name: "subscription-renewal"}
	registry, err := NewRegistry(expiry, renewal)
	require.NoError(t, err)

	jobs := registry.Jobs()
	require.Equal(t, []Job{expiry, renewal}, jobs)

	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsDuplicatesAndBlankNames(t *testing.T) {
	_, err := NewRegistry(&stubJob{name: "outbox-retention"}, &stubJob{name: "outbox-retention"})
	require.ErrorContains(t, err, "registered twice")

	registry, err := NewRegistry()
	require.NoError(t, err)
	require.Error(t, registry.Register(&stubJob{name: "  "}))
	require.Error(t, registry.Register(nil))
}

func TestRegistryOnlySelectsNamedJobs(t *testing.T) {
	registry, err := NewRegistry(
		&stubJob{name: "order-expiry"},
		&stubJob{name: "subscription-renewal"},
		&stubJob{name: "notification-cleanup"},
	)
	require.NoError(t, err)

	subset, err := registry.Only("notification-cleanup", "order-expiry", "")
	require.NoError(t, err)
	require.Equal(t, []string{"order-expiry", "notification-cleanup"}, subset.Names())

	_, err = registry.Only("voucher-reminder")
	require.ErrorContains(t, err, "unknown cron job")
	require.ErrorContains(t, err, "subscription-renewal")
}
