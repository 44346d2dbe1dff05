package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"club-operations-core/internal/core/domain"
	"club-operations-core/internal/core/ports"
	"club-operations-core/pkg/timeutil"

	"github.com/rs/zerolog"
)

// PushOptions tunes the dispatcher's push channel.
type PushOptions struct {
	QuietHours timeutil.Window
	Location   *time.Location // zone the quiet-hours window is expressed in; nil means UTC
	Icon       string         // notification icon URL sent in every push payload
	Badge      string         // monochrome badge URL sent in every push payload
}

// DispatcherImpl implements ports.NotificationDispatcher. Every dispatch
// attempts all three channels concurrently; a channel failing never
// prevents the others from delivering.
type DispatcherImpl struct {
	notifRepo  ports.NotificationRepository
	subRepo    ports.PushSubscriptionRepository
	hub        ports.SocketHub
	pushSender ports.PushSender
	push       PushOptions
	log        zerolog.Logger
}

// NewDispatcher creates a new DispatcherImpl.
func NewDispatcher(
	notifRepo ports.NotificationRepository,
	subRepo ports.PushSubscriptionRepository,
	hub ports.SocketHub,
	pushSender ports.PushSender,
	push PushOptions,
	log zerolog.Logger,
) *DispatcherImpl {
	return &DispatcherImpl{
		notifRepo:  notifRepo,
		subRepo:    subRepo,
		hub:        hub,
		pushSender: pushSender,
		push:       push,
		log:        log,
	}
}

// Dispatch fans the payload out to the database, websocket, and push
// channels and aggregates the per-channel outcomes. Results come back
// in fixed order (database, websocket, push) regardless of which
// goroutine finished first.
func (s *DispatcherImpl) Dispatch(ctx context.Context, payload domain.NotificationPayload) domain.NotificationResult {
	payload.UserEmail = domain.NormalizeEmail(payload.UserEmail)

	var (
		wg      sync.WaitGroup
		results [3]domain.DeliveryResult
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		results[0] = s.deliverDatabase(ctx, payload)
	}()
	go func() {
		defer wg.Done()
		results[1] = s.deliverWebSocket(payload)
	}()
	go func() {
		defer wg.Done()
		results[2] = s.deliverPush(ctx, payload)
	}()
	wg.Wait()

	result := domain.NotificationResult{
		DeliveryResults: results[:],
		AllSucceeded:    results[0].Success && results[1].Success && results[2].Success,
	}
	if results[0].Success {
		if id, ok := results[0].Details["notification_id"].(int64); ok {
			result.NotificationID = &id
		}
	}

	s.log.Info().
		Str("user", payload.UserEmail).
		Str("type", string(payload.Type)).
		Bool("all_succeeded", result.AllSucceeded).
		Msg("notification dispatched")

	return result
}

func (s *DispatcherImpl) deliverDatabase(ctx context.Context, payload domain.NotificationPayload) domain.DeliveryResult {
	n := &domain.Notification{
		UserEmail: payload.UserEmail,
		Title:     payload.Title,
		Message:   payload.Message,
		Type:      payload.Type,
		RelatedID: payload.RelatedID,
		CreatedAt: time.Now().UTC(),
	}
	if payload.RelatedType != "" {
		n.RelatedType = &payload.RelatedType
	}
	if payload.URL != "" {
		n.URL = &payload.URL
	}

	id, err := s.notifRepo.Create(ctx, n)
	if err != nil {
		s.log.Error().Err(err).Str("user", payload.UserEmail).Msg("database channel failed")
		return domain.DeliveryResult{Channel: domain.ChannelDatabase, Success: false, Error: err.Error()}
	}
	return domain.DeliveryResult{
		Channel: domain.ChannelDatabase,
		Success: true,
		Details: map[string]interface{}{"notification_id": id},
	}
}

func (s *DispatcherImpl) deliverWebSocket(payload domain.NotificationPayload) domain.DeliveryResult {
	sent := s.hub.SendToUser(payload.UserEmail, map[string]interface{}{
		"type":    "notification",
		"title":   payload.Title,
		"message": payload.Message,
		"data": map[string]interface{}{
			"notification_type": string(payload.Type),
			"related_id":        payload.RelatedID,
			"related_type":      payload.RelatedType,
			"url":               payload.URL,
		},
	})

	result := domain.DeliveryResult{
		Channel: domain.ChannelWebSocket,
		Success: sent > 0,
		Details: map[string]interface{}{"connections_sent": sent},
	}
	if sent == 0 {
		result.Error = "no active connections"
	}
	return result
}

func (s *DispatcherImpl) deliverPush(ctx context.Context, payload domain.NotificationPayload) domain.DeliveryResult {
	if !s.pushSender.Configured() {
		return domain.DeliveryResult{
			Channel: domain.ChannelPush,
			Success: false,
			Error:   "push not configured",
		}
	}

	if !s.push.QuietHours.IsZero() {
		loc := s.push.Location
		if loc == nil {
			loc = time.UTC
		}
		now := time.Now().In(loc)
		if s.push.QuietHours.Contains(now.Hour()*60 + now.Minute()) {
			return domain.DeliveryResult{
				Channel: domain.ChannelPush,
				Success: true,
				Details: map[string]interface{}{"reason": "quiet_hours"},
			}
		}
	}

	subs, err := s.subRepo.ListByEmail(ctx, payload.UserEmail)
	if err != nil {
		s.log.Error().Err(err).Str("user", payload.UserEmail).Msg("push channel failed listing subscriptions")
		return domain.DeliveryResult{Channel: domain.ChannelPush, Success: false, Error: err.Error()}
	}
	if len(subs) == 0 {
		return domain.DeliveryResult{
			Channel: domain.ChannelPush,
			Success: true,
			Details: map[string]interface{}{"reason": "no_subscriptions", "count": 0},
		}
	}

	// Standard web-push payload shape consumed by the service worker.
	message, err := json.Marshal(map[string]interface{}{
		"title": payload.Title,
		"body":  payload.Message,
		"icon":  s.push.Icon,
		"badge": s.push.Badge,
		"data": map[string]interface{}{
			"url": payload.URL,
		},
	})
	if err != nil {
		return domain.DeliveryResult{Channel: domain.ChannelPush, Success: false, Error: err.Error()}
	}

	successCount, failCount := 0, 0
	for _, sub := range subs {
		if err := s.pushSender.Send(ctx, sub, message); err != nil {
			if errors.Is(err, ports.ErrSubscriptionGone) {
				// The push service retired the endpoint; keeping the row
				// would fail every future dispatch.
				if _, delErr := s.subRepo.DeleteByEndpoint(ctx, payload.UserEmail, sub.Endpoint); delErr != nil {
					s.log.Warn().Err(delErr).Str("endpoint", sub.Endpoint).Msg("failed to prune gone subscription")
				}
			}
			failCount++
			s.log.Warn().Err(err).
				Str("user", payload.UserEmail).
				Str("endpoint", sub.Endpoint).
				Msg("push delivery failed")
			continue
		}
		successCount++
	}

	result := domain.DeliveryResult{
		Channel: domain.ChannelPush,
		Success: successCount > 0,
		Details: map[string]interface{}{
			"success_count":       successCount,
			"fail_count":          failCount,
			"total_subscriptions": len(subs),
		},
	}
	if successCount == 0 {
		result.Error = "all push deliveries failed"
	}
	return result
}
