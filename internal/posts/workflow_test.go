package posts_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/profile-service/internal/envelope"
	"jobmate/profile-service/internal/messaging"
	"jobmate/profile-service/internal/messaging/messagingtest"
	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/posts"
	"jobmate/profile-service/internal/store/memstore"
)

const uploadChannel = "event-file-upload"

// "hello" in base64.
const pixel = "aGVsbG8="

type fixture struct {
	st  *memstore.Store
	rec *messagingtest.Recorder
	wf  *posts.Workflow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	rec := &messagingtest.Recorder{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{st: st, rec: rec, wf: posts.NewWorkflow(st, rec, uploadChannel, log)}
}

func coverOnly() posts.CreateInput {
	return posts.CreateInput{
		Title:   "We are hiring",
		Caption: "Backend engineers wanted",
		Cover:   &posts.Media{Base64: pixel, Filename: "cover.png", ContentType: "image/png"},
	}
}

func successFor(postID string) *envelope.MediaUploadCompleted {
	return &envelope.MediaUploadCompleted{
		PostID:        postID,
		Success:       true,
		CoverImageURL: "https://cdn/cover.png",
		CoverImageKey: "posts/cover.png",
		ImageURLs:     []string{"https://cdn/1.png"},
		ImageKeys:     []string{"posts/1.png"},
	}
}

// ── Create ───────────────────────────────────────────────────────────────────

func TestCreateStartsPendingAndDispatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := coverOnly()
	in.Images = []posts.Media{{Base64: pixel, Filename: "1.png", ContentType: "image/png"}}
	post, err := f.wf.Create(ctx, "c1", in)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(post.PostID, model.PostIDPrefix))
	assert.Equal(t, model.PostPending, post.Status)
	assert.Nil(t, post.CoverImageURL)
	assert.Empty(t, post.ImageURLs)

	msgs := f.rec.On(uploadChannel)
	require.Len(t, msgs, 1)
	assert.Equal(t, post.PostID, msgs[0].Key)

	var req envelope.MediaUploadRequest
	require.NoError(t, messagingtest.Decode(msgs[0], &req))
	assert.Equal(t, post.PostID, req.PostID)
	assert.Equal(t, "c1", req.CompanyID)
	assert.Equal(t, pixel, req.CoverImageBase64)
	require.Len(t, req.AdditionalImages, 1)
	assert.Equal(t, "1.png", req.AdditionalImages[0].Filename)
}

func TestCreateWithoutCoverIsRejectedBeforePersistence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := coverOnly()
	in.Cover = nil
	_, err := f.wf.Create(ctx, "c1", in)

	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "coverImage", ve.Field)

	list, err := f.wf.List(ctx, "c1", "c1", "")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, f.rec.Messages())
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*posts.CreateInput)
		field string
	}{
		{"missing title", func(in *posts.CreateInput) { in.Title = "" }, "title"},
		{"long title", func(in *posts.CreateInput) { in.Title = strings.Repeat("x", 151) }, "title"},
		{"missing caption", func(in *posts.CreateInput) { in.Caption = "" }, "caption"},
		{"long caption", func(in *posts.CreateInput) { in.Caption = strings.Repeat("x", 1001) }, "caption"},
		{"cover not base64", func(in *posts.CreateInput) { in.Cover.Base64 = "%%%" }, "coverImage"},
		{"too many images", func(in *posts.CreateInput) {
			for i := 0; i < 11; i++ {
				in.Images = append(in.Images, posts.Media{Base64: pixel})
			}
		}, "additionalImages"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			in := coverOnly()
			tc.edit(&in)
			_, err := f.wf.Create(context.Background(), "c1", in)
			var ve *model.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestCreateDispatchFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.rec.Err = errors.New("broker unreachable")

	post, err := f.wf.Create(context.Background(), "c1", coverOnly())
	var de *model.DispatchError
	require.ErrorAs(t, err, &de)
	require.NotNil(t, post)
	assert.Equal(t, model.PostFailed, post.Status)

	stored, err := f.wf.Get(context.Background(), post.PostID)
	require.NoError(t, err)
	assert.Equal(t, model.PostFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "broker unreachable")
}

// ── Complete ─────────────────────────────────────────────────────────────────

func TestCompleteSuccessThenDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post, err := f.wf.Create(ctx, "c1", coverOnly())
	require.NoError(t, err)

	require.NoError(t, f.wf.Complete(ctx, successFor(post.PostID)))
	got, err := f.wf.Get(ctx, post.PostID)
	require.NoError(t, err)
	assert.Equal(t, model.PostActive, got.Status)
	assert.Equal(t, "https://cdn/cover.png", *got.CoverImageURL)
	assert.Equal(t, "posts/cover.png", *got.CoverImageKey)
	assert.Equal(t, []string{"https://cdn/1.png"}, got.ImageURLs)
	assert.Equal(t, []string{"posts/1.png"}, got.ImageKeys)
	assert.Nil(t, got.VideoURL)

	dup := successFor(post.PostID)
	dup.CoverImageURL = "https://cdn/other.png"
	require.NoError(t, f.wf.Complete(ctx, dup))
	again, err := f.wf.Get(ctx, post.PostID)
	require.NoError(t, err)
	assert.Equal(t, got, again)

	failure := &envelope.MediaUploadCompleted{PostID: post.PostID, Success: false, ErrorMessage: "late"}
	require.NoError(t, f.wf.Complete(ctx, failure))
	again, err = f.wf.Get(ctx, post.PostID)
	require.NoError(t, err)
	assert.Equal(t, model.PostActive, again.Status)
}

func TestCompleteFailureRecordsError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post, err := f.wf.Create(ctx, "c1", coverOnly())
	require.NoError(t, err)

	evt := &envelope.MediaUploadCompleted{EventID: post.PostID, Success: false, ErrorMessage: "virus detected", CoverImageURL: "ignored"}
	require.NoError(t, f.wf.Complete(ctx, evt))

	got, err := f.wf.Get(ctx, post.PostID)
	require.NoError(t, err)
	assert.Equal(t, model.PostFailed, got.Status)
	assert.Equal(t, "virus detected", *got.ErrorMessage)
	assert.Nil(t, got.CoverImageURL)
}

func TestCompleteUnknownPostIsDropped(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.wf.Complete(context.Background(), successFor("EVT-missing")))
}

func TestCompleteWithoutIDIsPermanent(t *testing.T) {
	f := newFixture(t)
	err := f.wf.Complete(context.Background(), &envelope.MediaUploadCompleted{Success: true})
	assert.True(t, messaging.IsPermanent(err))
}

// ── Reaper ───────────────────────────────────────────────────────────────────

func TestReapStaleFailsOldPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old, err := f.wf.Create(ctx, "c1", coverOnly())
	require.NoError(t, err)
	done, err := f.wf.Create(ctx, "c1", coverOnly())
	require.NoError(t, err)
	require.NoError(t, f.wf.Complete(ctx, successFor(done.PostID)))

	f.wf.WithClock(func() time.Time { return time.Now().Add(time.Hour) })
	n, err := f.wf.ReapStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.wf.Get(ctx, old.PostID)
	require.NoError(t, err)
	assert.Equal(t, model.PostFailed, got.Status)
	assert.Equal(t, posts.MsgUploadTimedOut, *got.ErrorMessage)

	n, err = f.wf.ReapStale(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// ── Ownership ────────────────────────────────────────────────────────────────

func TestUpdateAndDeleteRequireOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post, err := f.wf.Create(ctx, "c1", coverOnly())
	require.NoError(t, err)

	title := "Renamed"
	_, err = f.wf.Update(ctx, "intruder", post.PostID, posts.UpdateInput{Title: &title})
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.NotErrorIs(t, err, model.ErrNotFound)

	assert.ErrorIs(t, f.wf.Delete(ctx, "intruder", post.PostID), model.ErrForbidden)

	_, err = f.wf.Update(ctx, "c1", "EVT-missing", posts.UpdateInput{Title: &title})
	assert.ErrorIs(t, err, model.ErrNotFound)

	updated, err := f.wf.Update(ctx, "c1", post.PostID, posts.UpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Backend engineers wanted", updated.Caption)

	empty := ""
	_, err = f.wf.Update(ctx, "c1", post.PostID, posts.UpdateInput{Caption: &empty})
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)

	require.NoError(t, f.wf.Delete(ctx, "c1", post.PostID))
	_, err = f.wf.Get(ctx, post.PostID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUpdateDoesNotClobberCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post, err := f.wf.Create(ctx, "c1", coverOnly())
	require.NoError(t, err)
	require.NoError(t, f.wf.Complete(ctx, successFor(post.PostID)))

	caption := "Updated caption"
	_, err = f.wf.Update(ctx, "c1", post.PostID, posts.UpdateInput{Caption: &caption})
	require.NoError(t, err)

	got, err := f.wf.Get(ctx, post.PostID)
	require.NoError(t, err)
	assert.Equal(t, model.PostActive, got.Status)
	assert.Equal(t, "https://cdn/cover.png", *got.CoverImageURL)
	assert.Equal(t, caption, got.Caption)
}

func TestListFiltersByStatusAndCaller(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.wf.Create(ctx, "c1", coverOnly())
	require.NoError(t, err)
	b, err := f.wf.Create(ctx, "c1", coverOnly())
	require.NoError(t, err)
	require.NoError(t, f.wf.Complete(ctx, successFor(a.PostID)))

	cases := []struct {
		name    string
		caller  string
		status  string
		wantIDs []string
	}{
		{"owner all", "c1", "", []string{a.PostID, b.PostID}},
		{"owner active", "c1", "ACTIVE", []string{a.PostID}},
		{"owner pending", "c1", "PENDING", []string{b.PostID}},
		{"other all", "c2", "", []string{a.PostID}},
		{"other pending", "c2", "PENDING", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			list, err := f.wf.List(ctx, tc.caller, "c1", tc.status)
			require.NoError(t, err)
			require.NotNil(t, list)
			var ids []string
			for _, p := range list {
				ids = append(ids, p.PostID)
			}
			assert.ElementsMatch(t, tc.wantIDs, ids)
		})
	}

	_, err = f.wf.List(ctx, "c1", "c1", "pending")
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "status", ve.Field)
}

func TestGetForHidesUnfinishedPostsFromOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	post, err := f.wf.Create(ctx, "c1", coverOnly())
	require.NoError(t, err)

	own, err := f.wf.GetFor(ctx, "c1", post.PostID)
	require.NoError(t, err)
	assert.Equal(t, model.PostPending, own.Status)

	_, err = f.wf.GetFor(ctx, "c2", post.PostID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, f.wf.Complete(ctx, successFor(post.PostID)))
	public, err := f.wf.GetFor(ctx, "c2", post.PostID)
	require.NoError(t, err)
	assert.Equal(t, model.PostActive, public.Status)
}
