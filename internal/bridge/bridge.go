// Package bridge answers request/response lookups carried over one-way
// channels. Every accepted request produces exactly one response on the
// paired channel, carrying the caller's requestId unchanged.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jobmate/profile-service/internal/envelope"
	"jobmate/profile-service/internal/messaging"
	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/store"
)

// Bridge is safe for concurrent use.
type Bridge struct {
	profiles store.Profiles
	pub      messaging.Publisher
	ch       envelope.Channels
	log      *slog.Logger
	now      func() time.Time
}

// New returns a Bridge that answers on the response channels of ch.
func New(profiles store.Profiles, pub messaging.Publisher, ch envelope.Channels, log *slog.Logger) *Bridge {
	return &Bridge{
		profiles: profiles,
		pub:      pub,
		ch:       ch,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time used to judge subscription activity.
func (b *Bridge) WithClock(now func() time.Time) *Bridge {
	b.now = now
	return b
}

// PremiumStatus answers whether companyId is an active PREMIUM subscriber.
// Unknown companies answer false.
func (b *Bridge) PremiumStatus(ctx context.Context, req *envelope.PremiumStatusRequest) error {
	return answer(ctx, b, req.RequestID, req.CompanyID, b.ch.PremiumStatusResponse,
		func(p *model.Profile) envelope.PremiumStatusResponse {
			resp := envelope.PremiumStatusResponse{RequestID: req.RequestID, CompanyID: req.CompanyID}
			if p != nil {
				resp.IsPremium = p.IsPremiumSubscriber(b.now())
			}
			return resp
		})
}

// CompanyName answers the display name of companyId, or null when unknown.
func (b *Bridge) CompanyName(ctx context.Context, req *envelope.CompanyNameRequest) error {
	return answer(ctx, b, req.RequestID, req.CompanyID, b.ch.CompanyNameResponse,
		func(p *model.Profile) envelope.CompanyNameResponse {
			resp := envelope.CompanyNameResponse{RequestID: req.RequestID, CompanyID: req.CompanyID}
			if p != nil {
				resp.CompanyName = p.CompanyName
			}
			return resp
		})
}

// answer looks up companyID, derives the response and publishes it. A lookup
// that finds nothing still answers; a storage or publish failure is returned
// so the request is redelivered.
func answer[R any](ctx context.Context, b *Bridge, requestID json.RawMessage, companyID, channel string, derive func(*model.Profile) R) error {
	if len(requestID) == 0 || string(requestID) == "null" {
		return messaging.Permanent(model.Invalid("requestId", "required", "request carries no correlation id"))
	}

	var p *model.Profile
	if companyID != "" {
		found, err := b.profiles.FindByUserID(ctx, companyID)
		switch {
		case err == nil:
			p = found
		case errors.Is(err, model.ErrNotFound):
		default:
			return fmt.Errorf("lookup %s: %w", companyID, err)
		}
	}

	resp := derive(p)
	if err := b.pub.Publish(ctx, channel, companyID, resp); err != nil {
		return fmt.Errorf("respond on %s: %w", channel, err)
	}
	b.log.Debug("correlated response sent", "channel", channel, "company_id", companyID, "found", p != nil)
	return nil
}
