// Package store declares the persistence ports for profiles and posts. The
// postgres and memstore subpackages implement them with identical semantics.
package store

import (
	"context"
	"time"

	"jobmate/profile-service/internal/model"
)

// Profiles is keyed by the external account id.
type Profiles interface {
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)
	// Search matches term, case-insensitively, inside email or company name.
	Search(ctx context.Context, term string, limit int) ([]model.Profile, error)
	ExistsByUserID(ctx context.Context, userID string) (bool, error)
	// Insert stores p unless a profile with the same userId exists, in which
	// case created is false and nothing changes.
	Insert(ctx context.Context, p *model.Profile) (created bool, err error)
	// Update writes p when its Version matches the stored one, then bumps
	// p.Version and p.UpdatedAt.
	Update(ctx context.Context, p *model.Profile) error
	// DeleteByUserID reports whether a row was removed.
	DeleteByUserID(ctx context.Context, userID string) (bool, error)
}

// Posts is keyed by the business-facing postId.
type Posts interface {
	Insert(ctx context.Context, p *model.Post) error
	FindByPostID(ctx context.Context, postID string) (*model.Post, error)
	// ListByCompany returns newest first. A nil status returns every status.
	ListByCompany(ctx context.Context, companyID string, status *model.PostStatus) ([]model.Post, error)
	Update(ctx context.Context, p *model.Post) error
	DeleteByPostID(ctx context.Context, postID string) (bool, error)
	DeleteAllByCompany(ctx context.Context, companyID string) (int64, error)
	// ListPendingBefore returns PENDING posts created before the cutoff,
	// oldest first.
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]model.Post, error)
}

// Store groups both repositories. Every write inside WithinTx commits or
// rolls back together.
type Store interface {
	Profiles() Profiles
	Posts() Posts
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
