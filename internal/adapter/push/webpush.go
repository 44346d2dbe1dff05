package push

import (
	"context"
	"fmt"

	"club-operations-core/config"
	"club-operations-core/internal/core/domain"
	"club-operations-core/internal/core/ports"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
)

// Sender implements ports.PushSender over the Web Push protocol with
// VAPID authentication. Stored client keys are decrypted just before
// sending.
type Sender struct {
	cfg    config.PushConfig
	crypto ports.EncryptionService
	log    zerolog.Logger
}

// NewSender creates a web-push sender. Missing VAPID keys leave the
// sender unconfigured rather than erroring: push is an optional channel.
func NewSender(cfg config.PushConfig, crypto ports.EncryptionService, log zerolog.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		crypto: crypto,
		log:    log.With().Str("component", "push_sender").Logger(),
	}
}

// Configured reports whether VAPID credentials are present.
func (s *Sender) Configured() bool {
	return s.cfg.VAPIDPublicKey != "" && s.cfg.VAPIDPrivateKey != ""
}

// Send delivers one message to one subscription.
func (s *Sender) Send(ctx context.Context, sub domain.PushSubscription, message []byte) error {
	p256dh, err := s.crypto.Decrypt(sub.P256dhEnc)
	if err != nil {
		return fmt.Errorf("decrypt p256dh key: %w", err)
	}
	auth, err := s.crypto.Decrypt(sub.AuthEnc)
	if err != nil {
		return fmt.Errorf("decrypt auth key: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, message, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: p256dh,
			Auth:   auth,
		},
	}, &webpush.Options{
		Subscriber:      s.cfg.Subscriber,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             60,
	})
	if err != nil {
		return fmt.Errorf("send web push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == 404 || resp.StatusCode == 410:
		return ports.ErrSubscriptionGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service rejected delivery: status %d", resp.StatusCode)
	}
	return nil
}
