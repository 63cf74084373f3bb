package reconcile

import (
	"time"

	"jobmate/profile-service/internal/envelope"
	"jobmate/profile-service/internal/model"
)

// AlreadyApplied reports whether the state change evt would make is already
// reflected in p. Idempotency comes from comparing against current state, so
// no delivery ids are remembered.
//
// Payments never count as applied: a repeat recomputes the period from the
// same paidAt and converges on the same end date.
func AlreadyApplied(p *model.Profile, evt any) bool {
	switch e := evt.(type) {
	case *envelope.AccountCreated:
		return p != nil
	case *envelope.AccountDeleted:
		return p == nil
	case *envelope.SubscriptionCancelled:
		return p.SubscriptionType == model.SubscriptionFree && p.SubscriptionEndDate == nil
	case *envelope.SubscriptionNotification:
		switch e.EventType {
		case envelope.NotificationEndingSoon:
			return p.ExpiryNotificationSent
		case envelope.NotificationEnded:
			return p.ExpiredNotificationSent && p.SubscriptionType == model.SubscriptionFree
		}
	}
	return false
}

// IsStale reports whether evt was overtaken by a newer event from another
// producer that p already reflects.
func IsStale(p *model.Profile, evt any) bool {
	switch e := evt.(type) {
	case *envelope.PaymentCompleted:
		// An older payment must not shorten a newer period.
		return !e.PaidAt.IsZero() &&
			p.SubscriptionType == model.SubscriptionPremium &&
			p.SubscriptionStartDate != nil &&
			e.PaidAt.Before(*p.SubscriptionStartDate)
	case *envelope.SubscriptionCancelled:
		return !e.CancelledAt.IsZero() &&
			p.SubscriptionStartDate != nil &&
			e.CancelledAt.Before(*p.SubscriptionStartDate)
	case *envelope.SubscriptionNotification:
		// The subscription was renewed past the period the notice is about.
		// Producers may send a bare date, so compare whole days.
		return !e.EndDate.IsZero() &&
			p.SubscriptionEndDate != nil &&
			day(*p.SubscriptionEndDate).After(day(e.EndDate.Time))
	}
	return false
}

func day(t time.Time) time.Time { return t.UTC().Truncate(24 * time.Hour) }
