package controllers

import (
	"net/http"

	"github.com/aguasol/aguasol-backend/api/validators"
	"github.com/aguasol/aguasol-backend/internal/notifications"
	"github.com/aguasol/aguasol-backend/pkg/logger"
)

const notificationsName = "notifications service"

// inboxFor resolves the caller's inbox: admins share one, customers own theirs.
func inboxFor(r *http.Request) (notifications.Inbox, error) {
	if isAdmin(r) {
		return notifications.AdminInbox(), nil
	}
	customerID, err := callerID(r)
	if err != nil {
		return notifications.Inbox{}, err
	}
	return notifications.CustomerInbox(customerID), nil
}

// ListNotifications pages through the caller's inbox, newest first.
// ?unreadOnly=true narrows it to unread rows.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(logg, http.StatusOK, notificationsName, svc, func(_ http.ResponseWriter, r *http.Request) (*notifications.ListResult, error) {
		inbox, err := inboxFor(r)
		if err != nil {
			return nil, err
		}
		params := notifications.ListParams{Inbox: inbox}
		if params.Limit, params.Cursor, err = pageQuery(r); err != nil {
			return nil, err
		}
		if params.UnreadOnly, err = validators.ParseQueryBool(r, "unreadOnly", false); err != nil {
			return nil, err
		}
		return svc.List(r.Context(), params)
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(logg, http.StatusOK, notificationsName, svc, func(_ http.ResponseWriter, r *http.Request) (map[string]bool, error) {
		inbox, err := inboxFor(r)
		if err != nil {
			return nil, err
		}
		id, err := validators.ParseUUIDParam(r, "notificationId")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), inbox, id); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(logg, http.StatusOK, notificationsName, svc, func(_ http.ResponseWriter, r *http.Request) (map[string]int64, error) {
		inbox, err := inboxFor(r)
		if err != nil {
			return nil, err
		}
		n, err := svc.MarkAllRead(r.Context(), inbox)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": n}, nil
	})
}
