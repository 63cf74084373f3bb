// Package profile serves reads and owner updates of the profile of record.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"jobmate/profile-service/internal/envelope"
	"jobmate/profile-service/internal/messaging"
	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/shard"
	"jobmate/profile-service/internal/store"
)

const (
	maxAttempts   = 3
	defaultSearch = 20
)

// Patch is a partial update. A nil field is left untouched and an empty
// string clears the field.
type Patch struct {
	CompanyName        *string `json:"companyName"`
	AvatarURL          *string `json:"avatarUrl"`
	LogoURL            *string `json:"logoUrl"`
	AboutUs            *string `json:"aboutUs"`
	WhoWeAreLookingFor *string `json:"whoWeAreLookingFor"`
	Country            *string `json:"country"`
	City               *string `json:"city"`
	StreetAddress      *string `json:"streetAddress"`
	PhoneNumber        *string `json:"phoneNumber"`

	ApplicantSearchProfile      *model.ApplicantSearchProfile `json:"applicantSearchProfile"`
	ClearApplicantSearchProfile bool                          `json:"clearApplicantSearchProfile"`
}

// CreateInput registers a profile directly. The avatar always starts as the
// default and the subscription as FREE.
type CreateInput struct {
	UserID        string `json:"userId"`
	Email         string `json:"email"`
	CompanyName   string `json:"companyName"`
	Country       string `json:"country"`
	City          string `json:"city"`
	StreetAddress string `json:"streetAddress"`
	PhoneNumber   string `json:"phoneNumber"`
	AuthProvider  string `json:"authProvider"`
}

// View is the read model: the stored profile plus derived subscription
// fields. The applicant search profile is only shown to active premium
// subscribers.
type View struct {
	model.Profile
	IsSubscriptionActive bool   `json:"isSubscriptionActive"`
	DaysRemaining        *int64 `json:"daysRemaining"`
}

// Service is safe for concurrent use.
type Service struct {
	store   store.Store
	shards  *shard.Orchestrator
	pub     messaging.Publisher
	channel string
	log     *slog.Logger
	now     func() time.Time
}

// NewService emits profile summaries on summaryChannel.
func NewService(st store.Store, shards *shard.Orchestrator, pub messaging.Publisher, summaryChannel string, log *slog.Logger) *Service {
	return &Service{
		store:   st,
		shards:  shards,
		pub:     pub,
		channel: summaryChannel,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) view(p *model.Profile) *View {
	now := s.now()
	v := &View{
		Profile:              *p,
		IsSubscriptionActive: p.IsSubscriptionActive(now),
		DaysRemaining:        p.DaysRemaining(now),
	}
	if !p.IsPremiumSubscriber(now) {
		v.ApplicantSearchProfile = nil
	}
	return v
}

// Get returns the profile of userID.
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	p, err := s.store.Profiles().FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(p), nil
}

// GetByEmail looks a profile up by email, ignoring case.
func (s *Service) GetByEmail(ctx context.Context, email string) (*View, error) {
	if strings.TrimSpace(email) == "" {
		return nil, model.Invalid("email", "required", "email is required")
	}
	p, err := s.store.Profiles().FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	return s.view(p), nil
}

// Search finds profiles whose email or company name contains term.
func (s *Service) Search(ctx context.Context, term string, limit int) ([]View, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, model.Invalid("term", "required", "search term is required")
	}
	if limit <= 0 {
		limit = defaultSearch
	}
	found, err := s.store.Profiles().Search(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(found))
	for i := range found {
		out = append(out, *s.view(&found[i]))
	}
	return out, nil
}

// Update applies patch to the profile of userID. A change of country is
// audited as one shard migration, however many attempts the write takes.
func (s *Service) Update(ctx context.Context, userID string, patch Patch) (*View, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var (
		p   *model.Profile
		mig *shard.Migration
		err error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		p, err = s.apply(ctx, userID, patch, &mig)
		if !errors.Is(err, model.ErrVersionConflict) {
			break
		}
		s.log.Debug("profile update conflict, retrying", "user_id", userID, "attempt", attempt)
	}
	if mig != nil {
		mig.Finish(ctx, err)
	}
	if err != nil {
		return nil, err
	}

	s.emitSummary(ctx, p)
	return s.view(p), nil
}

func (s *Service) apply(ctx context.Context, userID string, patch Patch, mig **shard.Migration) (*model.Profile, error) {
	p, err := s.store.Profiles().FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := func(dst **string, v *string) {
		if v == nil {
			return
		}
		*dst = model.StringPtr(strings.TrimSpace(*v))
	}
	set(&p.CompanyName, patch.CompanyName)
	set(&p.AvatarURL, patch.AvatarURL)
	set(&p.LogoURL, patch.LogoURL)
	set(&p.AboutUs, patch.AboutUs)
	set(&p.WhoWeAreLookingFor, patch.WhoWeAreLookingFor)
	set(&p.City, patch.City)
	set(&p.StreetAddress, patch.StreetAddress)
	set(&p.PhoneNumber, patch.PhoneNumber)

	switch {
	case patch.ClearApplicantSearchProfile:
		p.ApplicantSearchProfile = nil
	case patch.ApplicantSearchProfile != nil:
		if !p.IsPremiumSubscriber(s.now()) {
			return nil, model.ErrPremiumRequired
		}
		sp := patch.ApplicantSearchProfile.Clone()
		if sp.SalaryCurrency == "" {
			sp.SalaryCurrency = model.DefaultSalaryCurrency
		}
		p.ApplicantSearchProfile = sp
	}

	prev := p.Country
	next := prev
	if patch.Country != nil {
		next = model.StringPtr(strings.TrimSpace(*patch.Country))
	}
	if *mig == nil && shard.RequiresMigration(prev, next) {
		*mig = s.shards.Begin(ctx, p, prev, next)
	}

	p.Country = next
	if err := s.store.Profiles().Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

// Create registers a FREE profile outside the account-created flow. It fails
// with ErrAlreadyExists when the user already has one.
func (s *Service) Create(ctx context.Context, in CreateInput) (*View, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p := &model.Profile{
		UserID:           strings.TrimSpace(in.UserID),
		Email:            model.StringPtr(strings.TrimSpace(in.Email)),
		CompanyName:      optional(in.CompanyName),
		AvatarURL:        model.StringPtr(model.DefaultAvatarURL),
		Country:          optional(in.Country),
		City:             optional(in.City),
		StreetAddress:    optional(in.StreetAddress),
		PhoneNumber:      optional(in.PhoneNumber),
		AuthProvider:     optional(in.AuthProvider),
		SubscriptionType: model.SubscriptionFree,
	}
	created, err := s.store.Profiles().Insert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	if !created {
		return nil, fmt.Errorf("profile %s: %w", p.UserID, model.ErrAlreadyExists)
	}

	s.log.Info("profile created", "user_id", p.UserID, "profile_id", p.ID)
	s.emitSummary(ctx, p)
	return s.view(p), nil
}

// optional trims v and returns nil when nothing is left.
func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func (s *Service) emitSummary(ctx context.Context, p *model.Profile) {
	if err := s.pub.Publish(ctx, s.channel, p.UserID, envelope.NewProfileSummary(p)); err != nil {
		s.log.Warn("publish profile summary failed", "user_id", p.UserID, "err", err)
	}
}
