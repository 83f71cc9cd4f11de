package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/pagination"
)

type memoryInbox struct {
	rows      []models.Notification
	lastQuery Filter
	failWith  error
}

func (m *memoryInbox) List(_ context.Context, _ Inbox, f Filter) ([]models.Notification, error) {
	m.lastQuery = f
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.rows[:min(len(m.rows), pagination.LimitWithBuffer(f.Limit))], nil
}

func (m *memoryInbox) CountUnread(context.Context, Inbox) (int64, error) {
	var n int64
	for _, r := range m.rows {
		if r.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *memoryInbox) MarkRead(_ context.Context, _ Inbox, id uuid.UUID, at time.Time) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].ReadAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryInbox) MarkAllRead(_ context.Context, _ Inbox, at time.Time) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	var n int64
	for i := range m.rows {
		if m.rows[i].ReadAt == nil {
			m.rows[i].ReadAt = &at
			n++
		}
	}
	return n, nil
}

func newsfeed(n int) *memoryInbox {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	m := &memoryInbox{}
	for i := range n {
		m.rows = append(m.rows, models.Notification{ID: uuid.New(), Title: "Pedido", CreatedAt: base.Add(-time.Duration(i) * time.Minute)})
	}
	return m
}

func codeOf(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	var typed *pkgerrors.Error
	require.True(t, errors.As(err, &typed), "expected a typed error, got %v", err)
	return typed.Code()
}

func TestListPagesAndCountsUnread(t *testing.T) {
	repo := newsfeed(3)
	svc, err := NewService(repo)
	require.NoError(t, err)

	res, err := svc.List(context.Background(), ListParams{Inbox: AdminInbox(), Limit: 2, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.EqualValues(t, 3, res.Unread)
	assert.True(t, repo.lastQuery.UnreadOnly)
	assert.False(t, res.Items[0].Read)

	next, err := pagination.ParseCursor(res.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, repo.rows[1].ID, next.ID)

	_, err = svc.List(context.Background(), ListParams{Inbox: AdminInbox(), Cursor: res.NextCursor})
	require.NoError(t, err)
	require.NotNil(t, repo.lastQuery.Cursor)
	assert.Equal(t, next.ID, repo.lastQuery.Cursor.ID)
}

func TestListRendersEmptyInboxAsList(t *testing.T) {
	svc, _ := NewService(&memoryInbox{})
	res, err := svc.List(context.Background(), ListParams{Inbox: CustomerInbox(uuid.New())})
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"unread":0}`, string(raw))
}

func TestListRejectsBadInput(t *testing.T) {
	svc, _ := NewService(&memoryInbox{})

	_, err := svc.List(context.Background(), ListParams{Inbox: AdminInbox(), Cursor: "%%%"})
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))

	for _, inbox := range []Inbox{{}, {Audience: "customer"}, CustomerInbox(uuid.Nil)} {
		_, err = svc.List(context.Background(), ListParams{Inbox: inbox})
		assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))
		_, err = svc.MarkAllRead(context.Background(), inbox)
		assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))
	}
}

func TestMarkRead(t *testing.T) {
	repo := newsfeed(1)
	svc, _ := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.MarkRead(ctx, AdminInbox(), repo.rows[0].ID))
	require.NotNil(t, repo.rows[0].ReadAt)

	err := svc.MarkRead(ctx, AdminInbox(), uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, codeOf(t, err))

	err = svc.MarkRead(ctx, AdminInbox(), uuid.Nil)
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(t, err))

	repo.failWith = errors.New("connection reset")
	err = svc.MarkRead(ctx, AdminInbox(), repo.rows[0].ID)
	assert.Equal(t, pkgerrors.CodeDependency, codeOf(t, err))
}

func TestMarkAllRead(t *testing.T) {
	repo := newsfeed(3)
	svc, _ := NewService(repo)

	n, err := svc.MarkAllRead(context.Background(), AdminInbox())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = svc.MarkAllRead(context.Background(), AdminInbox())
	require.NoError(t, err)
	assert.Zero(t, n)
}
