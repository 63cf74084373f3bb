package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"jobmate/profile-service/internal/model"
)

const postColumns = `id, post_id, company_id, status, title, caption,
	cover_image_url, cover_image_key, image_urls, image_keys, video_url, video_key,
	error_message, version, created_at, updated_at`

type postRepo struct {
	q   querier
	now func() time.Time
}

func scanPost(row pgx.Row) (*model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID, &p.PostID, &p.CompanyID, &p.Status, &p.Title, &p.Caption,
		&p.CoverImageURL, &p.CoverImageKey, &p.ImageURLs, &p.ImageKeys, &p.VideoURL, &p.VideoKey,
		&p.ErrorMessage, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPosts(rows pgx.Rows) ([]model.Post, error) {
	defer rows.Close()
	var out []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *postRepo) Insert(ctx context.Context, p *model.Post) error {
	id := p.ID
	if id == "" {
		id = newID()
	}
	now := r.now()

	_, err := r.q.Exec(ctx, `
		INSERT INTO company_posts (`+postColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,1,$14,$14)`,
		id, p.PostID, p.CompanyID, string(p.Status), p.Title, p.Caption,
		p.CoverImageURL, p.CoverImageKey, nonNil(p.ImageURLs), nonNil(p.ImageKeys), p.VideoURL, p.VideoKey,
		p.ErrorMessage, now,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	p.ID, p.Version, p.CreatedAt, p.UpdatedAt = id, 1, now, now
	return nil
}

func (r *postRepo) FindByPostID(ctx context.Context, postID string) (*model.Post, error) {
	row := r.q.QueryRow(ctx, `SELECT `+postColumns+` FROM company_posts WHERE post_id = $1`, postID)
	p, err := scanPost(row)
	if isNoRows(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select post: %w", err)
	}
	return p, nil
}

func (r *postRepo) ListByCompany(ctx context.Context, companyID string, status *model.PostStatus) ([]model.Post, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status == nil {
		rows, err = r.q.Query(ctx, `
			SELECT `+postColumns+` FROM company_posts
			WHERE company_id = $1
			ORDER BY created_at DESC, post_id DESC`, companyID)
	} else {
		rows, err = r.q.Query(ctx, `
			SELECT `+postColumns+` FROM company_posts
			WHERE company_id = $1 AND status = $2
			ORDER BY created_at DESC, post_id DESC`, companyID, string(*status))
	}
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return collectPosts(rows)
}

func (r *postRepo) Update(ctx context.Context, p *model.Post) error {
	now := r.now()
	tag, err := r.q.Exec(ctx, `
		UPDATE company_posts SET
			status = $3, title = $4, caption = $5,
			cover_image_url = $6, cover_image_key = $7, image_urls = $8, image_keys = $9,
			video_url = $10, video_key = $11, error_message = $12,
			version = version + 1, updated_at = $13
		WHERE post_id = $1 AND version = $2`,
		p.PostID, p.Version, string(p.Status), p.Title, p.Caption,
		p.CoverImageURL, p.CoverImageKey, nonNil(p.ImageURLs), nonNil(p.ImageKeys),
		p.VideoURL, p.VideoKey, p.ErrorMessage, now,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM company_posts WHERE post_id = $1)`, p.PostID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("exists post: %w", err)
		}
		if !exists {
			return model.ErrNotFound
		}
		return model.ErrVersionConflict
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

func (r *postRepo) DeleteByPostID(ctx context.Context, postID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM company_posts WHERE post_id = $1`, postID)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postRepo) DeleteAllByCompany(ctx context.Context, companyID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM company_posts WHERE company_id = $1`, companyID)
	if err != nil {
		return 0, fmt.Errorf("delete company posts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *postRepo) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]model.Post, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+postColumns+` FROM company_posts
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending posts: %w", err)
	}
	return collectPosts(rows)
}
