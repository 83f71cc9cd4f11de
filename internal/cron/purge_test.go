package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguasol/aguasol-backend/internal/notifications"
	"github.com/aguasol/aguasol-backend/internal/testdb"
	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/logger"
)

type recordingDelete struct {
	cutoffs []time.Time
	err     error
}

func (r *recordingDelete) delete(_ context.Context, cutoff time.Time) (int64, error) {
	r.cutoffs = append(r.cutoffs, cutoff)
	return 3, r.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test"})
}

func TestPurgeJobAppliesEachWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	published, dead := &recordingDelete{}, &recordingDelete{}
	job, err := NewPurgeJob("outbox-retention", testLogger(),
		Purge{Target: "outbox_events", Retain: 14 * 24 * time.Hour, Delete: published.delete},
		Purge{Target: "outbox_dlq", Retain: 90 * 24 * time.Hour, Delete: dead.delete},
	)
	require.NoError(t, err)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []time.Time{now.AddDate(0, 0, -14)}, published.cutoffs)
	assert.Equal(t, []time.Time{now.AddDate(0, 0, -90)}, dead.cutoffs)
	assert.Equal(t, "outbox-retention", job.Name())
}

func TestPurgeJobKeepsGoingAfterAFailure(t *testing.T) {
	broken := &recordingDelete{err: errors.New("relation does not exist")}
	later := &recordingDelete{}
	job, err := NewPurgeJob("outbox-retention", testLogger(),
		Purge{Target: "outbox_events", Retain: time.Hour, Delete: broken.delete},
		Purge{Target: "outbox_dlq", Retain: time.Hour, Delete: later.delete},
	)
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.ErrorContains(t, err, "purge outbox_events: relation does not exist")
	assert.Len(t, later.cutoffs, 1)
}

func TestNewPurgeJobValidates(t *testing.T) {
	ok := (&recordingDelete{}).delete
	cases := map[string]struct {
		name   string
		logg   *logger.Logger
		purges []Purge
	}{
		"no name":      {"", testLogger(), []Purge{{Target: "t", Retain: time.Hour, Delete: ok}}},
		"no logger":    {"j", nil, []Purge{{Target: "t", Retain: time.Hour, Delete: ok}}},
		"no purges":    {"j", testLogger(), nil},
		"no delete":    {"j", testLogger(), []Purge{{Target: "t", Retain: time.Hour}}},
		"no retention": {"j", testLogger(), []Purge{{Target: "t", Delete: ok}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPurgeJob(tc.name, tc.logg, tc.purges...)
			assert.Error(t, err)
		})
	}
}

func TestNotificationPurgeKeepsUnreadRows(t *testing.T) {
	conn := testdb.Open(t)
	repo := notifications.NewRepository(conn)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-45 * 24 * time.Hour)

	rows := []*models.Notification{
		{Audience: enums.AudienceAdmin, Type: enums.NotificationTypeOrderCreated, Title: "a", Message: "a", ReadAt: &old, CreatedAt: old},
		{Audience: enums.AudienceAdmin, Type: enums.NotificationTypeOrderCreated, Title: "b", Message: "b", CreatedAt: old},
		{Audience: enums.AudienceAdmin, Type: enums.NotificationTypeOrderCreated, Title: "c", Message: "c", ReadAt: &now, CreatedAt: now},
	}
	for _, n := range rows {
		require.NoError(t, repo.Create(ctx, n))
	}

	job, err := NewPurgeJob("notification-cleanup", testLogger(),
		Purge{Target: "notifications", Retain: 30 * 24 * time.Hour, Delete: repo.DeleteReadBefore})
	require.NoError(t, err)
	job.now = func() time.Time { return now }
	require.NoError(t, job.Run(ctx))

	var remaining []models.Notification
	require.NoError(t, conn.Order("title ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, "b", remaining[0].Title)
	assert.Equal(t, "c", remaining[1].Title)
}
