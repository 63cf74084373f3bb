// Package reconcile applies account lifecycle and subscription events to the
// profile of record. Every operation recomputes from the stored state, so a
// redelivered or reordered event converges instead of compounding.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jobmate/profile-service/internal/envelope"
	"jobmate/profile-service/internal/messaging"
	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/store"
)

const maxAttempts = 3

// Reconciler is safe for concurrent use.
type Reconciler struct {
	store store.Store
	pub   messaging.Publisher
	ch    envelope.Channels
	log   *slog.Logger
	now   func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New returns a Reconciler that emits derived events on ch.
func New(st store.Store, pub messaging.Publisher, ch envelope.Channels, log *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		store: st,
		pub:   pub,
		ch:    ch,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func missingKey(event string) error {
	return messaging.Permanent(model.Invalid("userId", "required", event+" carries no account id"))
}

// ─── Account lifecycle ───────────────────────────────────────────────────────

// AccountCreated creates the FREE profile for a new account. A profile that
// already exists is left untouched.
func (r *Reconciler) AccountCreated(ctx context.Context, evt *envelope.AccountCreated) error {
	if evt.UserID == "" {
		return missingKey("account-created")
	}

	avatar := evt.AvatarURL
	if avatar == "" {
		avatar = model.DefaultAvatarURL
	}
	p := &model.Profile{
		UserID:           evt.UserID,
		Email:            model.StringPtr(evt.Email),
		CompanyName:      model.StringPtr(evt.CompanyName),
		AvatarURL:        &avatar,
		Country:          model.StringPtr(evt.Country),
		City:             model.StringPtr(evt.City),
		StreetAddress:    model.StringPtr(evt.StreetAddress),
		PhoneNumber:      model.StringPtr(evt.PhoneNumber),
		AuthProvider:     model.StringPtr(evt.AuthProvider),
		SubscriptionType: model.SubscriptionFree,
	}

	created, err := r.store.Profiles().Insert(ctx, p)
	if err != nil {
		return fmt.Errorf("account created %s: %w", evt.UserID, err)
	}
	if !created {
		r.log.Info("profile already exists, account-created ignored", "user_id", evt.UserID)
		return nil
	}

	r.log.Info("profile created", "user_id", evt.UserID, "profile_id", p.ID)
	r.emitSummary(ctx, p)
	return nil
}

// AccountDeleted removes the account's posts and then its profile in one
// transaction. Either being absent already is fine.
func (r *Reconciler) AccountDeleted(ctx context.Context, evt *envelope.AccountDeleted) error {
	if evt.UserID == "" {
		return missingKey("account-deleted")
	}

	var (
		posts   int64
		removed bool
	)
	err := r.store.WithinTx(ctx, func(tx store.Store) error {
		n, err := tx.Posts().DeleteAllByCompany(ctx, evt.UserID)
		if err != nil {
			return fmt.Errorf("delete posts: %w", err)
		}
		ok, err := tx.Profiles().DeleteByUserID(ctx, evt.UserID)
		if err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		posts, removed = n, ok
		return nil
	})
	if err != nil {
		return fmt.Errorf("account deleted %s: %w", evt.UserID, err)
	}

	r.log.Info("account deleted",
		"user_id", evt.UserID, "profile_removed", removed, "posts_removed", posts, "reason", evt.Reason)
	return nil
}

// ─── Subscription lifecycle ──────────────────────────────────────────────────

// PaymentCompleted starts, or extends, a PREMIUM period of SubscriptionPeriod
// beginning at paidAt. The profile must exist.
func (r *Reconciler) PaymentCompleted(ctx context.Context, evt *envelope.PaymentCompleted) error {
	if evt.UserID == "" {
		return missingKey("payment-completed")
	}

	p, changed, err := r.mutate(ctx, evt.UserID, func(p *model.Profile) bool {
		if IsStale(p, evt) {
			r.log.Warn("stale payment ignored", "user_id", p.UserID, "paid_at", evt.PaidAt.Time)
			return false
		}
		start := evt.PaidAt.OrNow(r.now())
		end := start.Add(model.SubscriptionPeriod)
		p.SubscriptionType = model.SubscriptionPremium
		p.SubscriptionStartDate = &start
		p.SubscriptionEndDate = &end
		p.ExpiryNotificationSent = false
		p.ExpiredNotificationSent = false
		return true
	})
	if errors.Is(err, model.ErrNotFound) {
		return &model.ReconcileError{Event: "payment-completed", Key: evt.UserID, Err: err}
	}
	if err != nil {
		return fmt.Errorf("payment completed %s: %w", evt.UserID, err)
	}
	if !changed {
		return nil
	}

	r.log.Info("subscription upgraded", "user_id", p.UserID, "plan", evt.PlanType, "ends", *p.SubscriptionEndDate)
	r.emitChanged(ctx, p)
	return nil
}

// SubscriptionCancelled downgrades to FREE and clears the end date. A missing
// profile is logged and skipped.
func (r *Reconciler) SubscriptionCancelled(ctx context.Context, evt *envelope.SubscriptionCancelled) error {
	key := evt.AccountKey()
	if key == "" {
		return missingKey("subscription-cancelled")
	}

	p, changed, err := r.mutate(ctx, key, func(p *model.Profile) bool {
		if IsStale(p, evt) {
			r.log.Warn("stale cancellation ignored",
				"user_id", p.UserID, "cancelled_at", evt.CancelledAt.Time, "started", *p.SubscriptionStartDate)
			return false
		}
		if AlreadyApplied(p, evt) {
			return false
		}
		p.SubscriptionType = model.SubscriptionFree
		p.SubscriptionEndDate = nil
		return true
	})
	if errors.Is(err, model.ErrNotFound) {
		r.log.Warn("subscription-cancelled for unknown profile", "user_id", key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("subscription cancelled %s: %w", key, err)
	}
	if !changed {
		return nil
	}

	r.log.Info("subscription cancelled", "user_id", p.UserID, "previous_plan", evt.PreviousPlanType)
	r.emitChanged(ctx, p)
	return nil
}

// SubscriptionNotification records ENDING_SOON and ENDED notices. ENDED also
// downgrades to FREE and always announces the change.
func (r *Reconciler) SubscriptionNotification(ctx context.Context, evt *envelope.SubscriptionNotification) error {
	if evt.UserID == "" {
		return missingKey("subscription-notification")
	}
	if evt.EventType != envelope.NotificationEndingSoon && evt.EventType != envelope.NotificationEnded {
		r.log.Warn("unknown subscription notification ignored", "user_id", evt.UserID, "event_type", evt.EventType)
		return nil
	}

	stale := false
	p, _, err := r.mutate(ctx, evt.UserID, func(p *model.Profile) bool {
		stale = IsStale(p, evt)
		if stale || AlreadyApplied(p, evt) {
			return false
		}
		switch evt.EventType {
		case envelope.NotificationEndingSoon:
			p.ExpiryNotificationSent = true
		case envelope.NotificationEnded:
			p.ExpiredNotificationSent = true
			p.SubscriptionType = model.SubscriptionFree
		}
		return true
	})
	if errors.Is(err, model.ErrNotFound) {
		r.log.Warn("subscription notification for unknown profile", "user_id", evt.UserID, "event_type", evt.EventType)
		return nil
	}
	if err != nil {
		return fmt.Errorf("subscription notification %s: %w", evt.UserID, err)
	}
	if stale {
		r.log.Warn("stale subscription notification ignored", "user_id", evt.UserID, "event_type", evt.EventType)
		return nil
	}

	if evt.EventType == envelope.NotificationEnded {
		r.log.Info("subscription ended", "user_id", p.UserID)
		r.emitChanged(ctx, p)
	}
	return nil
}

// ─── Media ───────────────────────────────────────────────────────────────────

// AvatarCompleted sets the avatar uploaded by the media collaborator. A failed
// upload or a missing profile is logged and skipped.
func (r *Reconciler) AvatarCompleted(ctx context.Context, evt *envelope.AvatarUploadCompleted) error {
	if evt.UserID == "" {
		return missingKey("avatar-file-completed")
	}
	if !evt.Success {
		r.log.Error("avatar upload failed", "user_id", evt.UserID, "error", evt.ErrorMessage)
		return nil
	}
	if evt.AvatarURL == "" {
		return messaging.Permanent(model.Invalid("avatarUrl", "required", "successful avatar upload carries no url"))
	}

	p, changed, err := r.mutate(ctx, evt.UserID, func(p *model.Profile) bool {
		if model.Deref(p.AvatarURL) == evt.AvatarURL {
			return false
		}
		p.AvatarURL = model.StringPtr(evt.AvatarURL)
		return true
	})
	if errors.Is(err, model.ErrNotFound) {
		r.log.Warn("avatar completion for unknown profile", "user_id", evt.UserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("avatar completed %s: %w", evt.UserID, err)
	}
	if !changed {
		return nil
	}

	r.log.Info("profile avatar updated", "user_id", p.UserID, "avatar_key", evt.AvatarKey)
	r.emitSummary(ctx, p)
	return nil
}

// mutate loads the profile, applies fn and writes it back when fn reports a
// change. A version conflict reloads and reapplies fn against fresh state.
func (r *Reconciler) mutate(ctx context.Context, userID string, fn func(*model.Profile) bool) (*model.Profile, bool, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		p, err := r.store.Profiles().FindByUserID(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		if !fn(p) {
			return p, false, nil
		}
		err = r.store.Profiles().Update(ctx, p)
		if errors.Is(err, model.ErrVersionConflict) {
			r.log.Debug("profile version conflict, retrying", "user_id", userID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return p, true, nil
	}
	return nil, false, model.ErrVersionConflict
}

// ─── Derived events (best-effort) ────────────────────────────────────────────

func (r *Reconciler) emitChanged(ctx context.Context, p *model.Profile) {
	evt := envelope.SubscriptionChanged{
		CompanyID:        p.UserID,
		IsPremium:        p.IsPremiumSubscriber(r.now()),
		SubscriptionType: string(p.SubscriptionType),
		ChangedAt:        envelope.NewTime(r.now()),
	}
	if err := r.pub.Publish(ctx, r.ch.SubscriptionChanged, p.UserID, evt); err != nil {
		r.log.Warn("publish subscription changed failed", "user_id", p.UserID, "err", err)
	}
}

func (r *Reconciler) emitSummary(ctx context.Context, p *model.Profile) {
	if err := r.pub.Publish(ctx, r.ch.ProfileSummary, p.UserID, envelope.NewProfileSummary(p)); err != nil {
		r.log.Warn("publish profile summary failed", "user_id", p.UserID, "err", err)
	}
}
