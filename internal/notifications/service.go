package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aguasol/aguasol-backend/pkg/db/models"
	"github.com/aguasol/aguasol-backend/pkg/enums"
	pkgerrors "github.com/aguasol/aguasol-backend/pkg/errors"
	"github.com/aguasol/aguasol-backend/pkg/pagination"
)

// Service is the inbox surface used by the API.
type Service interface {
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, inbox Inbox, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, inbox Inbox) (int64, error)
}

type store interface {
	List(ctx context.Context, inbox Inbox, f Filter) ([]models.Notification, error)
	CountUnread(ctx context.Context, inbox Inbox) (int64, error)
	MarkRead(ctx context.Context, inbox Inbox, id uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, inbox Inbox, at time.Time) (int64, error)
}

type ListParams struct {
	Inbox      Inbox
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// NotificationDTO is the API view of a notification.
type NotificationDTO struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	OrderID   *uuid.UUID             `json:"order_id,omitempty"`
	Link      *string                `json:"link,omitempty"`
	Read      bool                   `json:"read"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func toDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		OrderID:   n.OrderID,
		Link:      n.Link,
		Read:      n.ReadAt != nil,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

// ListResult is one page of an inbox plus its unread badge count.
type ListResult struct {
	pagination.Page[NotificationDTO]
	Unread int64 `json:"unread"`
}

type service struct {
	repo store
	now  func() time.Time
}

func NewService(repo store) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

func errInboxRequired() error {
	return pkgerrors.New(pkgerrors.CodeValidation, "notification inbox required")
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if !params.Inbox.valid() {
		return nil, errInboxRequired()
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, params.Inbox, Filter{UnreadOnly: params.UnreadOnly, Limit: params.Limit, Cursor: cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, params.Inbox)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	page := pagination.Paginate(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	})
	dtos := make([]NotificationDTO, len(page.Items))
	for i, n := range page.Items {
		dtos[i] = toDTO(n)
	}
	return &ListResult{
		Page:   pagination.Page[NotificationDTO]{Items: dtos, NextCursor: page.NextCursor},
		Unread: unread,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, inbox Inbox, notificationID uuid.UUID) error {
	if !inbox.valid() {
		return errInboxRequired()
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	found, err := s.repo.MarkRead(ctx, inbox, notificationID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, inbox Inbox) (int64, error) {
	if !inbox.valid() {
		return 0, errInboxRequired()
	}
	n, err := s.repo.MarkAllRead(ctx, inbox, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return n, nil
}
