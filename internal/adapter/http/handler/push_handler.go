package handler

import (
	"club-operations-core/internal/adapter/http/dto"
	"club-operations-core/internal/adapter/http/middleware"
	"club-operations-core/internal/core/domain"
	"club-operations-core/internal/core/ports"
	"club-operations-core/pkg/apperror"
	"club-operations-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// PushHandler manages web-push subscription registration.
type PushHandler struct {
	subRepo ports.PushSubscriptionRepository
	encSvc  ports.EncryptionService
}

// NewPushHandler creates a new PushHandler.
func NewPushHandler(subRepo ports.PushSubscriptionRepository, encSvc ports.EncryptionService) *PushHandler {
	return &PushHandler{subRepo: subRepo, encSvc: encSvc}
}

// Subscribe handles POST /api/push/subscriptions. The client keys are
// encrypted before they touch the database.
func (h *PushHandler) Subscribe(c *gin.Context) {
	var req dto.PushSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)
	dto.SanitizeStruct(&req.Keys)

	p256dhEnc, err := h.encSvc.Encrypt(req.Keys.P256dh)
	if err != nil {
		response.Error(c, apperror.ErrEncryptionFailure(err))
		return
	}
	authEnc, err := h.encSvc.Encrypt(req.Keys.Auth)
	if err != nil {
		response.Error(c, apperror.ErrEncryptionFailure(err))
		return
	}

	sub := &domain.PushSubscription{
		UserEmail: c.GetString(middleware.CtxUserEmail),
		Endpoint:  req.Endpoint,
		P256dhEnc: p256dhEnc,
		AuthEnc:   authEnc,
	}
	if err := h.subRepo.Save(c.Request.Context(), sub); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"subscribed": true})
}

// Unsubscribe handles DELETE /api/push/subscriptions.
func (h *PushHandler) Unsubscribe(c *gin.Context) {
	var req dto.PushUnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	email := c.GetString(middleware.CtxUserEmail)
	ok, err := h.subRepo.DeleteByEndpoint(c.Request.Context(), email, req.Endpoint)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Error(c, apperror.ErrSubscriptionNotFound())
		return
	}

	response.OK(c, gin.H{"unsubscribed": true})
}
