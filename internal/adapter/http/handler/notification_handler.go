package handler

import (
	"strconv"
	"strings"

	"club-operations-core/internal/adapter/http/dto"
	"club-operations-core/internal/adapter/http/middleware"
	"club-operations-core/internal/core/ports"
	"club-operations-core/pkg/apperror"
	"club-operations-core/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// NotificationHandler serves the notification query API.
type NotificationHandler struct {
	notifRepo ports.NotificationRepository
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifRepo ports.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifRepo: notifRepo}
}

// List handles GET /api/notifications.
// Staff may query any member with ?user_email=; everyone else is
// silently scoped to their own notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	email := h.resolveEmail(c)

	unreadOnly := c.Query("unread_only") == "true"

	limit := defaultNotificationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.Error(c, apperror.Validation("limit must be a positive integer"))
			return
		}
		if n > maxNotificationLimit {
			n = maxNotificationLimit
		}
		limit = n
	}

	items, err := h.notifRepo.ListByEmail(c.Request.Context(), email, unreadOnly, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.NotificationListResponse{
		Items: make([]dto.NotificationResponse, 0, len(items)),
		Total: len(items),
	}
	for _, n := range items {
		resp.Items = append(resp.Items, dto.ToNotificationResponse(n))
	}

	response.OK(c, resp)
}

// CountUnread handles GET /api/notifications/count.
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	email := h.resolveEmail(c)

	count, err := h.notifRepo.CountUnread(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.UnreadCountResponse{Count: count})
}

// MarkRead handles POST /api/notifications/:id/read. The owning email
// is part of the UPDATE predicate, so a member cannot mark another
// member's notification read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.Error(c, apperror.Validation("invalid notification id"))
		return
	}

	email := c.GetString(middleware.CtxUserEmail)
	ok, err := h.notifRepo.MarkRead(c.Request.Context(), id, email)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Error(c, apperror.ErrNotificationNotFound())
		return
	}

	response.OK(c, gin.H{"read": true})
}

// resolveEmail returns the email the request is scoped to.
func (h *NotificationHandler) resolveEmail(c *gin.Context) string {
	email := c.GetString(middleware.CtxUserEmail)
	if c.GetBool(middleware.CtxStaff) {
		if q := strings.TrimSpace(c.Query("user_email")); q != "" {
			email = q
		}
	}
	return strings.ToLower(email)
}
