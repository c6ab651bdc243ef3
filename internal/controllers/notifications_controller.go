package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pulseopti/hrflow/internal/config"
	"github.com/pulseopti/hrflow/internal/util"
	"github.com/pulseopti/hrflow/pkg/hrflow/domain"
	"github.com/pulseopti/hrflow/pkg/hrflow/models"
)

// NotificationReader exposes the outbox read path. The dispatcher only
// ever appends; this controller lets clients poll what was queued for
// their company.
type NotificationReader interface {
	FindRecentByCompany(companyID string, limit int) ([]*domain.Notification, error)
}

type NotificationsController struct {
	AuthController
	Notifications NotificationReader
}

func NewNotificationsController(notifications NotificationReader, auth AuthController) *NotificationsController {
	return &NotificationsController{AuthController: auth, Notifications: notifications}
}

func (c *NotificationsController) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			util.WriteJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > config.GetSystemSettingInteger(config.SEARCH_MAX_LIMIT) {
			util.WriteJSONError(w, http.StatusBadRequest, "limit exceeds the maximum allowed")
			return
		}
		limit = parsed
	}

	notifications, err := c.Notifications.FindRecentByCompany(companyFromContext(r), limit)
	if err != nil {
		slog.Error("Failed to list notifications", "error", err)
		util.WriteJSONError(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}
	out := make([]models.NotificationApiResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, models.NotificationApiResponse{
			ID:          n.ID,
			InstanceID:  n.InstanceID,
			RecipientID: n.RecipientID,
			Kind:        string(n.Kind),
			Message:     n.Message,
			Created:     n.Created,
		})
	}
	util.WriteJSONResponse(w, http.StatusOK, out)
}
