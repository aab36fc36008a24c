package services

import (
	"context"
	"fmt"

	"photo-exchange-backend/internal/config"
	"photo-exchange-backend/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

type pushItem struct {
	token string
	alert string
}

// PushNotifier delivers push notifications through APNs. Delivery runs on a
// single worker goroutine draining a bounded queue, so the TLS client is
// never used concurrently and a slow push service cannot stall an upload
// request. When the queue is full notifications are dropped, not queued
// unboundedly.
type PushNotifier struct {
	client *apns2.Client
	topic  string
	queue  chan pushItem
	done   chan struct{}
}

// NewPushNotifier creates a push notifier. With push disabled in config it
// returns a notifier whose Notify is a no-op.
func NewPushNotifier(cfg config.PushConfig) (*PushNotifier, error) {
	n := &PushNotifier{
		topic: cfg.Topic,
		queue: make(chan pushItem, cfg.QueueSize),
		done:  make(chan struct{}),
	}
	if !cfg.Enabled {
		return n, nil
	}

	cert, err := certificate.FromP12File(cfg.CertPath, cfg.CertPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}
	client := apns2.NewClient(cert)
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}
	n.client = client
	return n, nil
}

// Start launches the delivery worker.
func (n *PushNotifier) Start() {
	go n.run()
}

// Stop drains the queue and waits for the worker to exit.
func (n *PushNotifier) Stop() {
	close(n.queue)
	<-n.done
}

// Notify enqueues a push for the device token. Never blocks.
func (n *PushNotifier) Notify(token, alert string) {
	if n.client == nil || token == "" {
		return
	}
	select {
	case n.queue <- pushItem{token: token, alert: alert}:
	default:
		log.Warn().Msg("Push queue full, notification dropped")
	}
}

func (n *PushNotifier) run() {
	defer close(n.done)

	for item := range n.queue {
		if n.client == nil {
			continue
		}
		notification := &apns2.Notification{
			DeviceToken: item.token,
			Topic:       n.topic,
			Payload:     payload.NewPayload().Alert(item.alert).Sound("default"),
		}
		res, err := n.client.Push(notification)
		if err != nil {
			log.Error().Err(err).Msg("Failed to deliver push notification")
			continue
		}
		if !res.Sent() {
			log.Warn().
				Int("status", res.StatusCode).
				Str("reason", res.Reason).
				Msg("Push notification rejected")
		}
	}
}

// ExchangeNotifier fans completed exchanges out to the websocket hub and the
// push queue.
type ExchangeNotifier struct {
	hub  *WSHub
	push *PushNotifier
}

// NewExchangeNotifier creates a new exchange notifier
func NewExchangeNotifier(hub *WSHub, push *PushNotifier) *ExchangeNotifier {
	return &ExchangeNotifier{
		hub:  hub,
		push: push,
	}
}

// PhotoExchanged notifies the owner of a waiting photo that it was matched.
func (n *ExchangeNotifier) PhotoExchanged(ctx context.Context, owner *models.User, waiting, arrived *models.Photo) {
	if n.hub != nil && n.hub.IsOnline(owner.ID) {
		if err := n.hub.NotifyPhotoExchanged(owner.ID, waiting, arrived); err != nil {
			log.Error().Err(err).
				Int64("user_id", owner.ID).
				Msg("Failed to send exchange event over websocket")
		}
	}

	if n.push != nil && owner.PushToken != nil {
		n.push.Notify(*owner.PushToken, "Your photo has been exchanged! Come see what you got.")
	}
}
