package posts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"jobmate/profile-service/internal/envelope"
	"jobmate/profile-service/internal/messaging"
	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/store"
)

const (
	maxTitleLen   = 150
	maxCaptionLen = 1000
	maxImages     = 10

	// maxAttempts bounds re-reads after a version conflict.
	maxAttempts = 3
	reapBatch   = 100
)

// Error messages recorded on FAILED posts.
const (
	MsgUploadFailed   = "media upload failed"
	MsgUploadTimedOut = "media upload timed out"
	msgDispatchPrefix = "media upload dispatch failed: "
)

// Media is one base64-encoded file.
type Media struct {
	Base64      string `json:"base64"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// CreateInput is the content of a new post. Cover is required.
type CreateInput struct {
	Title   string  `json:"title"`
	Caption string  `json:"caption"`
	Cover   *Media  `json:"coverImage"`
	Images  []Media `json:"additionalImages"`
	Video   *Media  `json:"video"`
}

// UpdateInput patches the text fields of a post. Nil fields are untouched.
type UpdateInput struct {
	Title   *string `json:"title"`
	Caption *string `json:"caption"`
}

// Workflow owns the post lifecycle. Create returns as soon as the upload
// request is dispatched; the media collaborator's callback arrives later
// through Complete.
type Workflow struct {
	store   store.Store
	pub     messaging.Publisher
	channel string
	log     *slog.Logger
	now     func() time.Time
}

// NewWorkflow dispatches upload requests on channel.
func NewWorkflow(st store.Store, pub messaging.Publisher, channel string, log *slog.Logger) *Workflow {
	return &Workflow{
		store:   st,
		pub:     pub,
		channel: channel,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source used by ReapStale.
func (w *Workflow) WithClock(now func() time.Time) *Workflow {
	w.now = now
	return w
}

// ─── Create ──────────────────────────────────────────────────────────────────

// Create validates in, stores a PENDING post and dispatches the upload
// request. When the dispatch fails the post is marked FAILED and returned
// together with a *model.DispatchError.
func (w *Workflow) Create(ctx context.Context, companyID string, in CreateInput) (*model.Post, error) {
	if companyID == "" {
		return nil, model.Invalid("companyId", "required", "company id is required")
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	post := &model.Post{
		PostID:    model.PostIDPrefix + uuid.NewString(),
		CompanyID: companyID,
		Status:    model.PostPending,
		Title:     in.Title,
		Caption:   in.Caption,
	}
	if err := w.store.Posts().Insert(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	req := envelope.MediaUploadRequest{
		PostID:                post.PostID,
		CompanyID:             companyID,
		CoverImageBase64:      in.Cover.Base64,
		CoverImageFilename:    in.Cover.Filename,
		CoverImageContentType: in.Cover.ContentType,
	}
	for _, img := range in.Images {
		req.AdditionalImages = append(req.AdditionalImages, envelope.MediaFile(img))
	}
	if in.Video != nil {
		req.VideoBase64 = in.Video.Base64
		req.VideoFilename = in.Video.Filename
		req.VideoContentType = in.Video.ContentType
	}

	if err := w.pub.Publish(ctx, w.channel, post.PostID, req); err != nil {
		w.log.Error("dispatch media upload failed", "post_id", post.PostID, "err", err)
		msg := msgDispatchPrefix + err.Error()
		failed, _, terr := w.transition(ctx, post.PostID, model.PostFailed, func(p *model.Post) {
			p.ErrorMessage = &msg
		})
		if terr != nil {
			w.log.Error("mark post failed", "post_id", post.PostID, "err", terr)
		}
		if failed != nil {
			post = failed
		}
		return post, &model.DispatchError{Target: w.channel, Err: err}
	}

	w.log.Info("post created", "post_id", post.PostID, "company_id", companyID, "images", len(in.Images))
	return post, nil
}

func validateCreate(in CreateInput) error {
	if err := validateText("title", in.Title, maxTitleLen, true); err != nil {
		return err
	}
	if err := validateText("caption", in.Caption, maxCaptionLen, true); err != nil {
		return err
	}
	if in.Cover == nil || in.Cover.Base64 == "" {
		return model.Invalid("coverImage", "required", "a cover image is required")
	}
	if err := validateMedia("coverImage", *in.Cover); err != nil {
		return err
	}
	if len(in.Images) > maxImages {
		return model.Invalid("additionalImages", "max_items", fmt.Sprintf("at most %d additional images", maxImages))
	}
	for i, img := range in.Images {
		if err := validateMedia(fmt.Sprintf("additionalImages[%d]", i), img); err != nil {
			return err
		}
	}
	if in.Video != nil && in.Video.Base64 != "" {
		if err := validateMedia("video", *in.Video); err != nil {
			return err
		}
	}
	return nil
}

func validateText(field, v string, max int, required bool) error {
	if required && v == "" {
		return model.Invalid(field, "required", field+" is required")
	}
	if utf8.RuneCountInString(v) > max {
		return model.Invalid(field, "max_length", fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return nil
}

func validateMedia(field string, m Media) error {
	if m.Base64 == "" {
		return model.Invalid(field, "required", field+" content is required")
	}
	if _, err := base64.StdEncoding.DecodeString(m.Base64); err != nil {
		return model.Invalid(field, "base64", field+" must be base64 encoded")
	}
	return nil
}

// ─── Completion ──────────────────────────────────────────────────────────────

// Complete applies the media collaborator's callback. Unknown posts and posts
// already in a terminal state are left alone.
func (w *Workflow) Complete(ctx context.Context, evt *envelope.MediaUploadCompleted) error {
	postID := evt.Key()
	if postID == "" {
		return messaging.Permanent(model.Invalid("postId", "required", "completion carries no post id"))
	}

	to := model.PostActive
	if !evt.Success {
		to = model.PostFailed
	}
	post, applied, err := w.transition(ctx, postID, to, func(p *model.Post) {
		if !evt.Success {
			msg := evt.ErrorMessage
			if msg == "" {
				msg = MsgUploadFailed
			}
			p.ErrorMessage = &msg
			return
		}
		p.CoverImageURL = model.StringPtr(evt.CoverImageURL)
		p.CoverImageKey = model.StringPtr(evt.CoverImageKey)
		p.ImageURLs = append([]string(nil), evt.ImageURLs...)
		p.ImageKeys = append([]string(nil), evt.ImageKeys...)
		p.VideoURL = model.StringPtr(evt.VideoURL)
		p.VideoKey = model.StringPtr(evt.VideoKey)
		p.ErrorMessage = nil
	})
	if err != nil {
		return fmt.Errorf("complete post %s: %w", postID, err)
	}

	switch {
	case post == nil:
		w.log.Warn("media completion for unknown post dropped", "post_id", postID)
	case !applied:
		w.log.Info("duplicate media completion ignored", "post_id", postID, "status", post.Status)
	default:
		w.log.Info("post media completed", "post_id", postID, "status", post.Status)
	}
	return nil
}

// transition moves postID to `to` and applies mutate, re-reading on version
// conflicts. It returns a nil post when the post does not exist and
// applied=false when the current status does not allow the move.
func (w *Workflow) transition(ctx context.Context, postID string, to model.PostStatus, mutate func(*model.Post)) (*model.Post, bool, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		p, err := w.store.Posts().FindByPostID(ctx, postID)
		if errors.Is(err, model.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		if !IsTransitionAllowed(p.Status, to) {
			return p, false, nil
		}

		p.Status = to
		mutate(p)
		err = w.store.Posts().Update(ctx, p)
		switch {
		case err == nil:
			return p, true, nil
		case errors.Is(err, model.ErrNotFound):
			return nil, false, nil
		case errors.Is(err, model.ErrVersionConflict):
			continue
		default:
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("transition %s to %s: %w", postID, to, model.ErrVersionConflict)
}

// ReapStale fails posts still PENDING after olderThan. It returns how many
// posts it moved.
func (w *Workflow) ReapStale(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := w.store.Posts().ListPendingBefore(ctx, w.now().Add(-olderThan), reapBatch)
	if err != nil {
		return 0, fmt.Errorf("list stale posts: %w", err)
	}

	reaped := 0
	msg := MsgUploadTimedOut
	for _, p := range stale {
		_, applied, err := w.transition(ctx, p.PostID, model.PostFailed, func(p *model.Post) {
			p.ErrorMessage = &msg
		})
		if err != nil {
			w.log.Warn("reap stale post failed", "post_id", p.PostID, "err", err)
			continue
		}
		if applied {
			reaped++
		}
	}
	if reaped > 0 {
		w.log.Info("stale pending posts failed", "count", reaped)
	}
	return reaped, nil
}

// ─── Owner operations ────────────────────────────────────────────────────────

// Get returns one post by its business id.
func (w *Workflow) Get(ctx context.Context, postID string) (*model.Post, error) {
	return w.store.Posts().FindByPostID(ctx, postID)
}

// GetFor returns a post as callerID may see it. Another company's post is
// only visible once ACTIVE; before that it is reported as not found.
func (w *Workflow) GetFor(ctx context.Context, callerID, postID string) (*model.Post, error) {
	p, err := w.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.CompanyID != callerID && p.Status != model.PostActive {
		return nil, fmt.Errorf("post %s: %w", postID, model.ErrNotFound)
	}
	return p, nil
}

// List returns companyID's posts as callerID may see them, newest first.
// status, when set, narrows the result and must name a known status.
// Another company's posts are always narrowed to ACTIVE.
func (w *Workflow) List(ctx context.Context, callerID, companyID, status string) ([]model.Post, error) {
	var filter *model.PostStatus
	if status != "" {
		st, err := ParseStatus(status)
		if err != nil {
			return nil, model.Invalid("status", "enum", err.Error())
		}
		filter = &st
	}
	if companyID != callerID {
		if filter != nil && *filter != model.PostActive {
			return []model.Post{}, nil
		}
		active := model.PostActive
		filter = &active
	}

	list, err := w.store.Posts().ListByCompany(ctx, companyID, filter)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []model.Post{}
	}
	return list, nil
}

// Update patches title and caption. companyID must own the post.
func (w *Workflow) Update(ctx context.Context, companyID, postID string, in UpdateInput) (*model.Post, error) {
	if in.Title != nil {
		if err := validateText("title", *in.Title, maxTitleLen, true); err != nil {
			return nil, err
		}
	}
	if in.Caption != nil {
		if err := validateText("caption", *in.Caption, maxCaptionLen, true); err != nil {
			return nil, err
		}
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		p, err := w.owned(ctx, companyID, postID)
		if err != nil {
			return nil, err
		}
		if in.Title != nil {
			p.Title = *in.Title
		}
		if in.Caption != nil {
			p.Caption = *in.Caption
		}
		err = w.store.Posts().Update(ctx, p)
		if errors.Is(err, model.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update post: %w", err)
		}
		return p, nil
	}
	return nil, fmt.Errorf("update post %s: %w", postID, model.ErrVersionConflict)
}

// Delete removes the post. companyID must own it.
func (w *Workflow) Delete(ctx context.Context, companyID, postID string) error {
	if _, err := w.owned(ctx, companyID, postID); err != nil {
		return err
	}
	if _, err := w.store.Posts().DeleteByPostID(ctx, postID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	w.log.Info("post deleted", "post_id", postID, "company_id", companyID)
	return nil
}

func (w *Workflow) owned(ctx context.Context, companyID, postID string) (*model.Post, error) {
	p, err := w.store.Posts().FindByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.CompanyID != companyID {
		return nil, model.ErrForbidden
	}
	return p, nil
}
