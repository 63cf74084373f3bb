// Package envelope is the wire codec for every message the service consumes
// or produces. The event kind of an inbound message is decided by the
// channel it arrived on; payloads carry no type tag.
package envelope

import (
	"fmt"
	"sort"
)

// Kind identifies an inbound event.
type Kind string

const (
	KindAccountCreated           Kind = "ACCOUNT_CREATED"
	KindAccountDeleted           Kind = "ACCOUNT_DELETED"
	KindPaymentCompleted         Kind = "PAYMENT_COMPLETED"
	KindSubscriptionCancelled    Kind = "SUBSCRIPTION_CANCELLED"
	KindSubscriptionNotification Kind = "SUBSCRIPTION_NOTIFICATION"
	KindMediaUploadCompleted     Kind = "MEDIA_UPLOAD_COMPLETED"
	KindAvatarUploadCompleted    Kind = "AVATAR_UPLOAD_COMPLETED"
	KindPremiumStatusRequest     Kind = "PREMIUM_STATUS_REQUEST"
	KindCompanyNameRequest       Kind = "COMPANY_NAME_REQUEST"
)

// Channels names every topic the service touches. Field tags match the keys
// accepted by the CHANNELS_FILE overlay.
type Channels struct {
	AccountCreated           string `yaml:"account_created"`
	AccountDeleted           string `yaml:"account_deleted"`
	PaymentCompleted         string `yaml:"payment_completed"`
	SubscriptionCancelled    string `yaml:"subscription_cancelled"`
	SubscriptionNotification string `yaml:"subscription_notification"`
	MediaUploadCompleted     string `yaml:"media_upload_completed"`
	AvatarUploadCompleted    string `yaml:"avatar_upload_completed"`
	PremiumStatusRequest     string `yaml:"premium_status_request"`
	CompanyNameRequest       string `yaml:"company_name_request"`

	MediaUploadRequest    string `yaml:"media_upload_request"`
	SubscriptionChanged   string `yaml:"subscription_changed"`
	ShardMigration        string `yaml:"shard_migration"`
	PremiumStatusResponse string `yaml:"premium_status_response"`
	CompanyNameResponse   string `yaml:"company_name_response"`
	ProfileSummary        string `yaml:"profile_summary"`
}

// DefaultChannels returns the production topic names.
func DefaultChannels() Channels {
	return Channels{
		AccountCreated:           "user-created",
		AccountDeleted:           "user-deleted",
		PaymentCompleted:         "payment-completed",
		SubscriptionCancelled:    "subscription-cancelled",
		SubscriptionNotification: "subscription-notifications",
		MediaUploadCompleted:     "event-file-completed",
		AvatarUploadCompleted:    "avatar-file-completed",
		PremiumStatusRequest:     "premium-status.requests",
		CompanyNameRequest:       "company-name.requests",

		MediaUploadRequest:    "event-file-upload",
		SubscriptionChanged:   "subscription.changed",
		ShardMigration:        "profile.shard.migration",
		PremiumStatusResponse: "premium-status.responses",
		CompanyNameResponse:   "company-name.responses",
		ProfileSummary:        "company-profile.updates",
	}
}

// Merge returns c with every non-empty field of o applied on top.
func (c Channels) Merge(o Channels) Channels {
	pick := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	pick(&c.AccountCreated, o.AccountCreated)
	pick(&c.AccountDeleted, o.AccountDeleted)
	pick(&c.PaymentCompleted, o.PaymentCompleted)
	pick(&c.SubscriptionCancelled, o.SubscriptionCancelled)
	pick(&c.SubscriptionNotification, o.SubscriptionNotification)
	pick(&c.MediaUploadCompleted, o.MediaUploadCompleted)
	pick(&c.AvatarUploadCompleted, o.AvatarUploadCompleted)
	pick(&c.PremiumStatusRequest, o.PremiumStatusRequest)
	pick(&c.CompanyNameRequest, o.CompanyNameRequest)
	pick(&c.MediaUploadRequest, o.MediaUploadRequest)
	pick(&c.SubscriptionChanged, o.SubscriptionChanged)
	pick(&c.ShardMigration, o.ShardMigration)
	pick(&c.PremiumStatusResponse, o.PremiumStatusResponse)
	pick(&c.CompanyNameResponse, o.CompanyNameResponse)
	pick(&c.ProfileSummary, o.ProfileSummary)
	return c
}

// Inbound maps each consumed channel to the event kind it carries. A name
// shared by two kinds keeps only the last one; Validate rejects that.
func (c Channels) Inbound() map[string]Kind {
	out := make(map[string]Kind)
	for _, in := range c.inbound() {
		out[in.name] = in.kind
	}
	return out
}

type binding struct {
	kind Kind
	name string
}

func (c Channels) inbound() []binding {
	return []binding{
		{KindAccountCreated, c.AccountCreated},
		{KindAccountDeleted, c.AccountDeleted},
		{KindPaymentCompleted, c.PaymentCompleted},
		{KindSubscriptionCancelled, c.SubscriptionCancelled},
		{KindSubscriptionNotification, c.SubscriptionNotification},
		{KindMediaUploadCompleted, c.MediaUploadCompleted},
		{KindAvatarUploadCompleted, c.AvatarUploadCompleted},
		{KindPremiumStatusRequest, c.PremiumStatusRequest},
		{KindCompanyNameRequest, c.CompanyNameRequest},
	}
}

// Validate rejects an empty inbound channel name and any name bound to more
// than one inbound kind.
func (c Channels) Validate() error {
	seen := make(map[string][]string)
	for _, in := range c.inbound() {
		if in.name == "" {
			return fmt.Errorf("channel for %s is empty", in.kind)
		}
		seen[in.name] = append(seen[in.name], string(in.kind))
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if kinds := seen[name]; len(kinds) > 1 {
			return fmt.Errorf("channel %q is bound to %d inbound kinds: %v", name, len(kinds), kinds)
		}
	}
	return nil
}
