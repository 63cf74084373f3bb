// Package consumer routes inbound broker messages to the component that owns
// their event kind.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"jobmate/profile-service/internal/envelope"
	"jobmate/profile-service/internal/messaging"
	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/observability"
)

// Lifecycle applies account, subscription and avatar events.
type Lifecycle interface {
	AccountCreated(ctx context.Context, evt *envelope.AccountCreated) error
	AccountDeleted(ctx context.Context, evt *envelope.AccountDeleted) error
	PaymentCompleted(ctx context.Context, evt *envelope.PaymentCompleted) error
	SubscriptionCancelled(ctx context.Context, evt *envelope.SubscriptionCancelled) error
	SubscriptionNotification(ctx context.Context, evt *envelope.SubscriptionNotification) error
	AvatarCompleted(ctx context.Context, evt *envelope.AvatarUploadCompleted) error
}

// Uploads finishes the media step of a post.
type Uploads interface {
	Complete(ctx context.Context, evt *envelope.MediaUploadCompleted) error
}

// Responder answers correlated lookups.
type Responder interface {
	PremiumStatus(ctx context.Context, req *envelope.PremiumStatusRequest) error
	CompanyName(ctx context.Context, req *envelope.CompanyNameRequest) error
}

// Source runs a blocking read loop over one channel.
type Source interface {
	Consume(ctx context.Context, channel string, h messaging.Handler) error
}

// Router decodes a message by the channel it arrived on and dispatches it.
type Router struct {
	codec     *envelope.Codec
	channels  []string
	lifecycle Lifecycle
	uploads   Uploads
	responder Responder
	metrics   observability.Recorder
	log       *slog.Logger
}

// NewRouter binds the inbound channels of ch to their handlers.
func NewRouter(ch envelope.Channels, lifecycle Lifecycle, uploads Uploads, responder Responder, metrics observability.Recorder, log *slog.Logger) *Router {
	inbound := ch.Inbound()
	channels := make([]string, 0, len(inbound))
	for name := range inbound {
		channels = append(channels, name)
	}
	sort.Strings(channels)

	if metrics == nil {
		metrics = observability.Noop{}
	}
	return &Router{
		codec:     envelope.NewCodec(ch),
		channels:  channels,
		lifecycle: lifecycle,
		uploads:   uploads,
		responder: responder,
		metrics:   metrics,
		log:       log,
	}
}

// Channels lists every channel the router handles, sorted.
func (r *Router) Channels() []string {
	return append([]string(nil), r.channels...)
}

// Handle is a messaging.Handler. Undecodable messages come back Permanent.
func (r *Router) Handle(ctx context.Context, channel string, body []byte) error {
	started := time.Now()
	err := r.dispatch(ctx, channel, body)

	outcome := observability.OutcomeOK
	switch {
	case err == nil:
	case messaging.IsPermanent(err):
		outcome = observability.OutcomePermanent
		r.log.Warn("message rejected", "channel", channel, "err", err)
	default:
		outcome = observability.OutcomeRetry
		var rerr *model.ReconcileError
		if errors.As(err, &rerr) {
			r.log.Error("reconciliation failed", "channel", channel, "event", rerr.Event, "key", rerr.Key, "err", rerr.Err)
		} else {
			r.log.Warn("message handling failed", "channel", channel, "err", err)
		}
	}
	r.metrics.RecordMessage(ctx, channel, outcome, time.Since(started))
	return err
}

func (r *Router) dispatch(ctx context.Context, channel string, body []byte) error {
	kind, payload, err := r.codec.Decode(channel, body)
	if err != nil {
		return messaging.Permanent(err)
	}

	switch kind {
	case envelope.KindAccountCreated:
		return on(ctx, payload, r.lifecycle.AccountCreated)
	case envelope.KindAccountDeleted:
		return on(ctx, payload, r.lifecycle.AccountDeleted)
	case envelope.KindPaymentCompleted:
		return on(ctx, payload, r.lifecycle.PaymentCompleted)
	case envelope.KindSubscriptionCancelled:
		return on(ctx, payload, r.lifecycle.SubscriptionCancelled)
	case envelope.KindSubscriptionNotification:
		return on(ctx, payload, r.lifecycle.SubscriptionNotification)
	case envelope.KindMediaUploadCompleted:
		return on(ctx, payload, r.uploads.Complete)
	case envelope.KindAvatarUploadCompleted:
		return on(ctx, payload, r.lifecycle.AvatarCompleted)
	case envelope.KindPremiumStatusRequest:
		return on(ctx, payload, r.responder.PremiumStatus)
	case envelope.KindCompanyNameRequest:
		return on(ctx, payload, r.responder.CompanyName)
	}
	return messaging.Permanent(fmt.Errorf("no handler for kind %s", kind))
}

func on[T any](ctx context.Context, payload any, fn func(context.Context, *T) error) error {
	evt, ok := payload.(*T)
	if !ok {
		return messaging.Permanent(fmt.Errorf("unexpected payload %T", payload))
	}
	return fn(ctx, evt)
}

// Run consumes every channel on its own goroutine until ctx is cancelled or
// one read loop fails.
func (r *Router) Run(ctx context.Context, src Source) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, channel := range r.channels {
		g.Go(func() error {
			r.log.Info("consumer started", "channel", channel)
			if err := src.Consume(ctx, channel, r.Handle); err != nil {
				return fmt.Errorf("consume %s: %w", channel, err)
			}
			return nil
		})
	}
	return g.Wait()
}
