package grpcserver

import (
	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/posts"
	"jobmate/profile-service/internal/profile"
)

// GetProfileRequest reads the caller's profile when CompanyID is empty.
type GetProfileRequest struct {
	CompanyID string `json:"companyId"`
}

type GetProfileByEmailRequest struct {
	Email string `json:"email"`
}

type SearchProfilesRequest struct {
	Term  string `json:"term"`
	Limit int    `json:"limit"`
}

type SearchProfilesReply struct {
	Profiles []profile.View `json:"profiles"`
}

// UpdateProfileRequest is a patch of the caller's own profile.
type UpdateProfileRequest struct {
	profile.Patch
}

// CreateProfileRequest registers the caller's profile. UserID defaults to
// the caller.
type CreateProfileRequest struct {
	profile.CreateInput
}

// CreatePostRequest creates a post owned by the caller.
type CreatePostRequest struct {
	posts.CreateInput
}

type GetPostRequest struct {
	PostID string `json:"postId"`
}

// ListPostsRequest lists the caller's posts when CompanyID is empty. Status
// narrows the list; ActiveOnly is shorthand for Status ACTIVE. Posts of
// another company are always filtered to ACTIVE.
type ListPostsRequest struct {
	CompanyID  string `json:"companyId"`
	Status     string `json:"status"`
	ActiveOnly bool   `json:"activeOnly"`
}

type ListPostsReply struct {
	Posts []model.Post `json:"posts"`
}

type UpdatePostRequest struct {
	PostID string `json:"postId"`
	posts.UpdateInput
}

type DeletePostRequest struct {
	PostID string `json:"postId"`
}

type DeletePostReply struct {
	PostID  string `json:"postId"`
	Deleted bool   `json:"deleted"`
}
