package controllers

import (
	"net/http"

	"github.com/angelmondragon/giftops-backend/api/validators"
	"github.com/angelmondragon/giftops-backend/internal/notifications"
	"github.com/angelmondragon/giftops-backend/pkg/logger"
	"github.com/angelmondragon/giftops-backend/pkg/types"
)

// ListNotifications returns the caller's notifications, newest first. ?unread_only=true filters.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return withActor(logg, http.StatusOK, func(r *http.Request, actor types.Actor) (any, error) {
		page, err := validators.Page(r)
		if err != nil {
			return nil, err
		}
		unread, err := validators.QueryBool(r, "unread_only")
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), actor, notifications.ListParams{
			Limit:      page.Limit,
			Cursor:     page.Cursor,
			UnreadOnly: unread != nil && *unread,
		})
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return withActor(logg, http.StatusOK, func(r *http.Request, actor types.Actor) (any, error) {
		id, err := validators.PathUUID(r, "notificationId")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), actor, id); err != nil {
			return nil, err
		}
		return map[string]any{"id": id, "read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return withActor(logg, http.StatusOK, func(r *http.Request, actor types.Actor) (any, error) {
		updated, err := svc.MarkAllRead(r.Context(), actor)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": updated}, nil
	})
}
