package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	"github.com/aguasol/aguasol-backend/pkg/pagination"
)

// Inbox selects whose notifications an operation touches: one customer, or
// the admin inbox shared by every operator.
type Inbox struct {
	Audience   enums.NotificationAudience
	CustomerID *uuid.UUID
}

func AdminInbox() Inbox {
	return Inbox{Audience: enums.AudienceAdmin}
}

func CustomerInbox(customerID uuid.UUID) Inbox {
	return Inbox{Audience: enums.AudienceCustomer, CustomerID: &customerID}
}

func (i Inbox) valid() bool {
	switch i.Audience {
	case enums.AudienceAdmin:
		return i.CustomerID == nil
	case enums.AudienceCustomer:
		return i.CustomerID != nil && *i.CustomerID != uuid.Nil
	}
	return false
}

// rows is a gorm scope limiting a query to the inbox.
func (i Inbox) rows(db *gorm.DB) *gorm.DB {
	db = db.Where("audience = ?", i.Audience)
	if i.CustomerID != nil {
		db = db.Where("customer_id = ?", *i.CustomerID)
	}
	return db
}

// Filter narrows a listing.
type Filter struct {
	UnreadOnly bool
	Limit      int
	Cursor     *pagination.Cursor
}

// Repository persists notifications.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) inbox(ctx context.Context, inbox Inbox) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Scopes(inbox.rows)
}

func (r *Repository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// List returns up to Limit+1 rows newest first; the extra row signals a
// further page.
func (r *Repository) List(ctx context.Context, inbox Inbox, f Filter) ([]models.Notification, error) {
	q := r.inbox(ctx, inbox)
	if f.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var out []models.Notification
	err := q.Scopes(pagination.NewestFirst(f.Cursor, f.Limit)).Find(&out).Error
	return out, err
}

func (r *Repository) CountUnread(ctx context.Context, inbox Inbox) (int64, error) {
	var n int64
	err := r.inbox(ctx, inbox).Where("read_at IS NULL").Count(&n).Error
	return n, err
}

// MarkRead stamps read_at once. It reports false when the notification is
// not in the inbox; marking an already read row again is a no-op.
func (r *Repository) MarkRead(ctx context.Context, inbox Inbox, id uuid.UUID, at time.Time) (bool, error) {
	var row models.Notification
	err := r.inbox(ctx, inbox).Select("id", "read_at").Where("id = ?", id).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	case err != nil:
		return false, err
	case row.ReadAt != nil:
		return true, nil
	}
	err = r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", at).Error
	return err == nil, err
}

func (r *Repository) MarkAllRead(ctx context.Context, inbox Inbox, at time.Time) (int64, error) {
	res := r.inbox(ctx, inbox).Where("read_at IS NULL").UpdateColumn("read_at", at)
	return res.RowsAffected, res.Error
}

// DeleteReadBefore purges read notifications created before cutoff. Unread
// rows are kept regardless of age.
func (r *Repository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
