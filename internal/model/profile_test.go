package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/profile-service/internal/model"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

// ── Derived subscription fields ──────────────────────────────────────────────

func TestIsSubscriptionActive(t *testing.T) {
	cases := []struct {
		name string
		typ  model.SubscriptionType
		end  *time.Time
		want bool
	}{
		{"free never active", model.SubscriptionFree, nil, false},
		{"free with future end", model.SubscriptionFree, at(now.Add(time.Hour)), false},
		{"premium without end", model.SubscriptionPremium, nil, true},
		{"premium future end", model.SubscriptionPremium, at(now.Add(time.Hour)), true},
		{"premium past end", model.SubscriptionPremium, at(now.Add(-time.Hour)), false},
		{"premium end equals now", model.SubscriptionPremium, at(now), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &model.Profile{SubscriptionType: tc.typ, SubscriptionEndDate: tc.end}
			assert.Equal(t, tc.want, p.IsSubscriptionActive(now))
		})
	}
}

func TestActiveImpliesPremium(t *testing.T) {
	types := []model.SubscriptionType{model.SubscriptionFree, model.SubscriptionPremium, ""}
	ends := []*time.Time{nil, at(now.Add(-48 * time.Hour)), at(now), at(now.Add(48 * time.Hour))}
	for _, typ := range types {
		for _, end := range ends {
			p := &model.Profile{SubscriptionType: typ, SubscriptionEndDate: end}
			if p.IsSubscriptionActive(now) && p.SubscriptionType != model.SubscriptionPremium {
				t.Errorf("active subscription with type %q", typ)
			}
		}
	}
}

func TestDaysRemaining(t *testing.T) {
	free := &model.Profile{SubscriptionType: model.SubscriptionFree, SubscriptionEndDate: at(now.Add(72 * time.Hour))}
	assert.Nil(t, free.DaysRemaining(now))

	open := &model.Profile{SubscriptionType: model.SubscriptionPremium}
	assert.Nil(t, open.DaysRemaining(now))

	future := &model.Profile{SubscriptionType: model.SubscriptionPremium, SubscriptionEndDate: at(now.Add(10*24*time.Hour + time.Hour))}
	require.NotNil(t, future.DaysRemaining(now))
	assert.EqualValues(t, 10, *future.DaysRemaining(now))

	past := &model.Profile{SubscriptionType: model.SubscriptionPremium, SubscriptionEndDate: at(now.Add(-5 * 24 * time.Hour))}
	require.NotNil(t, past.DaysRemaining(now))
	assert.EqualValues(t, 0, *past.DaysRemaining(now))
}

// ── Clone ────────────────────────────────────────────────────────────────────

func TestCloneDoesNotAlias(t *testing.T) {
	skills := []string{"go"}
	p := &model.Profile{
		UserID:      "u1",
		CompanyName: model.StringPtr("Acme"),
		ApplicantSearchProfile: &model.ApplicantSearchProfile{
			DesiredTechnicalSkills: skills,
		},
	}
	c := p.Clone()
	*c.CompanyName = "Other"
	c.ApplicantSearchProfile.DesiredTechnicalSkills[0] = "rust"

	assert.Equal(t, "Acme", *p.CompanyName)
	assert.Equal(t, "go", p.ApplicantSearchProfile.DesiredTechnicalSkills[0])
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, model.StringPtr(""))
	assert.Equal(t, "x", model.Deref(model.StringPtr("x")))
	assert.Equal(t, "", model.Deref(nil))
}
