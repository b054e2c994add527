package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wattrewards/wattrewards/internal/models"
	"github.com/wattrewards/wattrewards/internal/realtime"
	"github.com/wattrewards/wattrewards/internal/services"
	"github.com/wattrewards/wattrewards/pkg/errors"
	"github.com/wattrewards/wattrewards/pkg/logger"
	"github.com/wattrewards/wattrewards/pkg/response"
)

// NotificationHandler exposes HTTP endpoints for a recipient's notifications.
type NotificationHandler struct {
	service  *services.NotificationService
	notifier *services.Notifier
	hub      *realtime.Hub
	log      *zap.Logger
}

// NewNotificationHandler constructs a notification handler. hub may be nil when realtime is disabled.
func NewNotificationHandler(service *services.NotificationService, notifier *services.Notifier, hub *realtime.Hub) (*NotificationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("notification handler: service is required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notification handler: notifier is required")
	}
	return &NotificationHandler{
		service:  service,
		notifier: notifier,
		hub:      hub,
		log:      logger.WithModule("notifications"),
	}, nil
}

// List returns a page of the caller's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	page, err := h.service.List(requestContext(c), services.ListNotificationsInput{
		RecipientID:    userID,
		Page:           parseIntQuery(c, "page", 1),
		Limit:          parseIntQuery(c, "limit", 0),
		Status:         models.NotificationStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Type:           models.NotificationType(strings.ToLower(strings.TrimSpace(c.Query("type")))),
		IncludeExpired: parseBoolQuery(c, "includeExpired"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, page.Items, &response.Pagination{
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

// UnreadCount returns the caller's unread badge count. Store failures degrade to zero.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(requestContext(c), userID)
	if err != nil {
		h.log.Warn("unread count unavailable", zap.String("user_id", userID), zap.Error(err))
		count = 0
	}
	response.Count(c, count)
}

// Get returns one of the caller's notifications.
func (h *NotificationHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	dto, err := h.service.GetForRecipient(requestContext(c), strings.TrimSpace(c.Param("id")), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

// MarkRead marks one notification read. Repeating the call is a no-op.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if _, err := h.service.MarkAsRead(requestContext(c), strings.TrimSpace(c.Param("id")), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Notification marked as read")
}

// MarkAllRead marks every unread notification of the caller read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	updated, err := h.service.MarkAllAsRead(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, fmt.Sprintf("%d notifications marked as read", updated))
}

// Delete removes one of the caller's notifications.
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(requestContext(c), strings.TrimSpace(c.Param("id")), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Notification deleted")
}

type createNotificationRequest struct {
	UserID    string         `json:"userId" validate:"required,max=64"`
	Title     string         `json:"title" validate:"required,max=100"`
	Message   string         `json:"message" validate:"required,max=500"`
	Type      string         `json:"type" validate:"omitempty,oneof=info warning success error promotion system"`
	Priority  string         `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Data      map[string]any `json:"data"`
	ActionURL string         `json:"actionUrl" validate:"omitempty,max=2048"`
	ImageURL  string         `json:"imageUrl" validate:"omitempty,url,max=2048"`
	ExpiresAt *time.Time     `json:"expiresAt"`
	SendPush  *bool          `json:"sendPush"`
}

// Create persists a notification for any user and pushes it unless sendPush is false.
// Routed behind middleware.RequireAdmin.
func (h *NotificationHandler) Create(c *gin.Context) {
	var payload createNotificationRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	sendPush := true
	if payload.SendPush != nil {
		sendPush = *payload.SendPush
	}

	dto, _, err := h.notifier.Notify(requestContext(c), services.NotifyInput{
		CreateNotificationInput: services.CreateNotificationInput{
			RecipientID: payload.UserID,
			Title:       payload.Title,
			Message:     payload.Message,
			Type:        models.NotificationType(payload.Type),
			Priority:    models.NotificationPriority(payload.Priority),
			Data:        payload.Data,
			ActionURL:   payload.ActionURL,
			ImageURL:    payload.ImageURL,
			ExpiresAt:   payload.ExpiresAt,
		},
		SendPush: sendPush,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, dto)
}

// Stream upgrades the connection to a WebSocket carrying the caller's notification events.
func (h *NotificationHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	h.hub.Serve(userID, []string{realtime.StreamNotifications}, c.Writer, c.Request)
}
