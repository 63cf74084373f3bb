// Package storetest is a behavioural suite every store.Store implementation
// must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/store"
)

// Run executes the suite. newStore must return an empty store each call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("ProfileInsertIsIdempotent", func(t *testing.T) { profileInsertIsIdempotent(t, newStore(t)) })
	t.Run("ProfileVersionedUpdate", func(t *testing.T) { profileVersionedUpdate(t, newStore(t)) })
	t.Run("ProfileLookups", func(t *testing.T) { profileLookups(t, newStore(t)) })
	t.Run("PostLifecycle", func(t *testing.T) { postLifecycle(t, newStore(t)) })
	t.Run("PendingBefore", func(t *testing.T) { pendingBefore(t, newStore(t)) })
	t.Run("TxRollsBack", func(t *testing.T) { txRollsBack(t, newStore(t)) })
	t.Run("TxCommits", func(t *testing.T) { txCommits(t, newStore(t)) })
}

func newProfile(userID string) *model.Profile {
	return &model.Profile{
		UserID:           userID,
		Email:            model.StringPtr(userID + "@example.com"),
		CompanyName:      model.StringPtr("Company " + userID),
		AvatarURL:        model.StringPtr(model.DefaultAvatarURL),
		SubscriptionType: model.SubscriptionFree,
	}
}

func newPost(companyID string) *model.Post {
	return &model.Post{
		PostID:    model.PostIDPrefix + uuid.NewString(),
		CompanyID: companyID,
		Status:    model.PostPending,
		Title:     "Launch",
		Caption:   "We are hiring",
	}
}

func profileInsertIsIdempotent(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := uuid.NewString()

	created, err := s.Profiles().Insert(ctx, newProfile(uid))
	require.NoError(t, err)
	assert.True(t, created)

	again := newProfile(uid)
	again.CompanyName = model.StringPtr("Changed")
	created, err = s.Profiles().Insert(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.Profiles().FindByUserID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "Company "+uid, *got.CompanyName)
	assert.EqualValues(t, 1, got.Version)
	assert.NotEmpty(t, got.ID)
}

func profileVersionedUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := uuid.NewString()
	_, err := s.Profiles().Insert(ctx, newProfile(uid))
	require.NoError(t, err)

	a, err := s.Profiles().FindByUserID(ctx, uid)
	require.NoError(t, err)
	b, err := s.Profiles().FindByUserID(ctx, uid)
	require.NoError(t, err)

	end := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	a.SubscriptionType = model.SubscriptionPremium
	a.SubscriptionEndDate = &end
	a.ApplicantSearchProfile = &model.ApplicantSearchProfile{DesiredTechnicalSkills: []string{"go"}, SalaryCurrency: "USD"}
	require.NoError(t, s.Profiles().Update(ctx, a))
	assert.EqualValues(t, 2, a.Version)

	b.CompanyName = model.StringPtr("stale")
	assert.ErrorIs(t, s.Profiles().Update(ctx, b), model.ErrVersionConflict)

	got, err := s.Profiles().FindByUserID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionPremium, got.SubscriptionType)
	require.NotNil(t, got.SubscriptionEndDate)
	assert.True(t, end.Equal(*got.SubscriptionEndDate))
	require.NotNil(t, got.ApplicantSearchProfile)
	assert.Equal(t, []string{"go"}, got.ApplicantSearchProfile.DesiredTechnicalSkills)

	missing := newProfile(uuid.NewString())
	missing.Version = 1
	assert.ErrorIs(t, s.Profiles().Update(ctx, missing), model.ErrNotFound)
}

func profileLookups(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := uuid.NewString()
	p := newProfile(uid)
	p.Email = model.StringPtr("Hiring@Acme-" + uid + ".io")
	p.CompanyName = model.StringPtr("Acme 100% Rockets")
	_, err := s.Profiles().Insert(ctx, p)
	require.NoError(t, err)

	got, err := s.Profiles().FindByEmail(ctx, "hiring@acme-"+uid+".io")
	require.NoError(t, err)
	assert.Equal(t, uid, got.UserID)

	_, err = s.Profiles().FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, model.ErrNotFound)

	hits, err := s.Profiles().Search(ctx, "100%", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uid, hits[0].UserID)

	hits, err = s.Profiles().Search(ctx, "ACME-"+uid, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	ok, err := s.Profiles().ExistsByUserID(ctx, uid)
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := s.Profiles().DeleteByUserID(ctx, uid)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Profiles().DeleteByUserID(ctx, uid)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.Profiles().FindByUserID(ctx, uid)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func postLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	company := uuid.NewString()

	p := newPost(company)
	require.NoError(t, s.Posts().Insert(ctx, p))

	got, err := s.Posts().FindByPostID(ctx, p.PostID)
	require.NoError(t, err)
	assert.Equal(t, model.PostPending, got.Status)
	assert.Nil(t, got.CoverImageURL)
	assert.Empty(t, got.ImageURLs)

	got.Status = model.PostActive
	got.CoverImageURL = model.StringPtr("https://cdn/cover.png")
	got.CoverImageKey = model.StringPtr("cover.png")
	got.ImageURLs = []string{"https://cdn/1.png", "https://cdn/2.png"}
	got.ImageKeys = []string{"1.png", "2.png"}
	require.NoError(t, s.Posts().Update(ctx, got))

	stale := *p
	assert.ErrorIs(t, s.Posts().Update(ctx, &stale), model.ErrVersionConflict)

	active := model.PostActive
	list, err := s.Posts().ListByCompany(ctx, company, &active)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"https://cdn/1.png", "https://cdn/2.png"}, list[0].ImageURLs)

	require.NoError(t, s.Posts().Insert(ctx, newPost(company)))
	all, err := s.Posts().ListByCompany(ctx, company, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	removed, err := s.Posts().DeleteByPostID(ctx, p.PostID)
	require.NoError(t, err)
	assert.True(t, removed)

	n, err := s.Posts().DeleteAllByCompany(ctx, company)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = s.Posts().DeleteAllByCompany(ctx, company)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func pendingBefore(t *testing.T, s store.Store) {
	ctx := context.Background()
	company := uuid.NewString()
	t.Cleanup(func() { _, _ = s.Posts().DeleteAllByCompany(ctx, company) })

	pending := newPost(company)
	require.NoError(t, s.Posts().Insert(ctx, pending))
	done := newPost(company)
	done.Status = model.PostActive
	require.NoError(t, s.Posts().Insert(ctx, done))

	future := time.Now().Add(time.Hour)
	got, err := s.Posts().ListPendingBefore(ctx, future, 100)
	require.NoError(t, err)

	var ids []string
	for _, p := range got {
		ids = append(ids, p.PostID)
	}
	assert.Contains(t, ids, pending.PostID)
	assert.NotContains(t, ids, done.PostID)

	past := time.Now().Add(-24 * time.Hour)
	got, err = s.Posts().ListPendingBefore(ctx, past, 100)
	require.NoError(t, err)
	for _, p := range got {
		assert.NotEqual(t, pending.PostID, p.PostID)
	}
}

var errBoom = errors.New("boom")

func txRollsBack(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := uuid.NewString()
	t.Cleanup(func() {
		_, _ = s.Posts().DeleteAllByCompany(ctx, uid)
		_, _ = s.Profiles().DeleteByUserID(ctx, uid)
	})
	_, err := s.Profiles().Insert(ctx, newProfile(uid))
	require.NoError(t, err)
	post := newPost(uid)
	require.NoError(t, s.Posts().Insert(ctx, post))

	err = s.WithinTx(ctx, func(tx store.Store) error {
		if _, err := tx.Posts().DeleteAllByCompany(ctx, uid); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	_, err = s.Posts().FindByPostID(ctx, post.PostID)
	assert.NoError(t, err)
}

func txCommits(t *testing.T, s store.Store) {
	ctx := context.Background()
	uid := uuid.NewString()
	_, err := s.Profiles().Insert(ctx, newProfile(uid))
	require.NoError(t, err)
	require.NoError(t, s.Posts().Insert(ctx, newPost(uid)))

	err = s.WithinTx(ctx, func(tx store.Store) error {
		if _, err := tx.Posts().DeleteAllByCompany(ctx, uid); err != nil {
			return err
		}
		_, err := tx.Profiles().DeleteByUserID(ctx, uid)
		return err
	})
	require.NoError(t, err)

	ok, err := s.Profiles().ExistsByUserID(ctx, uid)
	require.NoError(t, err)
	assert.False(t, ok)
	list, err := s.Posts().ListByCompany(ctx, uid, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}
