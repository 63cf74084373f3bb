package reconcile_test

import (
	"testing"
	"time"

	"jobmate/profile-service/internal/envelope"
	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/reconcile"
)

func ts(t time.Time) *time.Time { return &t }

// ── AlreadyApplied ─────────────────────────────────────────────────────────

func TestAlreadyApplied(t *testing.T) {
	free := &model.Profile{SubscriptionType: model.SubscriptionFree}
	premium := &model.Profile{SubscriptionType: model.SubscriptionPremium, SubscriptionEndDate: ts(now)}
	ended := &model.Profile{SubscriptionType: model.SubscriptionFree, ExpiredNotificationSent: true}
	warned := &model.Profile{SubscriptionType: model.SubscriptionPremium, ExpiryNotificationSent: true}

	cases := []struct {
		name string
		p    *model.Profile
		evt  any
		want bool
	}{
		{"create on existing", free, &envelope.AccountCreated{}, true},
		{"create on absent", nil, &envelope.AccountCreated{}, false},
		{"delete on absent", nil, &envelope.AccountDeleted{}, true},
		{"cancel on free", free, &envelope.SubscriptionCancelled{}, true},
		{"cancel on premium", premium, &envelope.SubscriptionCancelled{}, false},
		{"payment never applied", premium, &envelope.PaymentCompleted{}, false},
		{"ending soon once", warned, &envelope.SubscriptionNotification{EventType: envelope.NotificationEndingSoon}, true},
		{"ending soon first", premium, &envelope.SubscriptionNotification{EventType: envelope.NotificationEndingSoon}, false},
		{"ended once", ended, &envelope.SubscriptionNotification{EventType: envelope.NotificationEnded}, true},
		{"ended first", premium, &envelope.SubscriptionNotification{EventType: envelope.NotificationEnded}, false},
	}
	for _, tc := range cases {
		if got := reconcile.AlreadyApplied(tc.p, tc.evt); got != tc.want {
			t.Errorf("%s: AlreadyApplied = %v, want %v", tc.name, got, tc.want)
		}
	}
}

// ── IsStale ────────────────────────────────────────────────────────────────

func TestIsStale(t *testing.T) {
	started := &model.Profile{
		SubscriptionType:      model.SubscriptionPremium,
		SubscriptionStartDate: ts(now),
		SubscriptionEndDate:   ts(now.Add(30 * 24 * time.Hour)),
	}
	before := envelope.NewTime(now.Add(-time.Hour))
	after := envelope.NewTime(now.Add(time.Hour))

	cases := []struct {
		name string
		evt  any
		want bool
	}{
		{"older payment", &envelope.PaymentCompleted{PaidAt: before}, true},
		{"newer payment", &envelope.PaymentCompleted{PaidAt: after}, false},
		{"payment without time", &envelope.PaymentCompleted{}, false},
		{"cancel before start", &envelope.SubscriptionCancelled{CancelledAt: before}, true},
		{"cancel after start", &envelope.SubscriptionCancelled{CancelledAt: after}, false},
		{"cancel without time", &envelope.SubscriptionCancelled{}, false},
		{"notice for earlier period", &envelope.SubscriptionNotification{EndDate: envelope.NewTime(now)}, true},
		{"notice for current period", &envelope.SubscriptionNotification{EndDate: envelope.NewTime(now.Add(30 * 24 * time.Hour))}, false},
		{"notice same day bare date", &envelope.SubscriptionNotification{EndDate: envelope.NewTime(now.Add(30 * 24 * time.Hour).Truncate(24 * time.Hour))}, false},
		{"notice without date", &envelope.SubscriptionNotification{}, false},
	}
	for _, tc := range cases {
		if got := reconcile.IsStale(started, tc.evt); got != tc.want {
			t.Errorf("%s: IsStale = %v, want %v", tc.name, got, tc.want)
		}
	}
}
