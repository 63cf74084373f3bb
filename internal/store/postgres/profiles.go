package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"jobmate/profile-service/internal/model"
)

const profileColumns = `id, user_id, email, company_name, avatar_url, logo_url, about_us,
	who_we_are_looking_for, country, city, street_address, phone_number, auth_provider,
	subscription_type, subscription_start_date, subscription_end_date,
	expiry_notification_sent, expired_notification_sent, applicant_search_profile,
	version, created_at, updated_at`

type profileRepo struct {
	q   querier
	now func() time.Time
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var (
		p      model.Profile
		search []byte
	)
	err := row.Scan(
		&p.ID, &p.UserID, &p.Email, &p.CompanyName, &p.AvatarURL, &p.LogoURL, &p.AboutUs,
		&p.WhoWeAreLookingFor, &p.Country, &p.City, &p.StreetAddress, &p.PhoneNumber, &p.AuthProvider,
		&p.SubscriptionType, &p.SubscriptionStartDate, &p.SubscriptionEndDate,
		&p.ExpiryNotificationSent, &p.ExpiredNotificationSent, &search,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(search) > 0 {
		p.ApplicantSearchProfile = &model.ApplicantSearchProfile{}
		if err := json.Unmarshal(search, p.ApplicantSearchProfile); err != nil {
			return nil, fmt.Errorf("decode applicant_search_profile: %w", err)
		}
	}
	return &p, nil
}

// searchProfileArg returns the JSONB argument, nil for SQL NULL.
func searchProfileArg(a *model.ApplicantSearchProfile) (any, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode applicant_search_profile: %w", err)
	}
	return b, nil
}

func (r *profileRepo) findOne(ctx context.Context, where string, arg any) (*model.Profile, error) {
	row := r.q.QueryRow(ctx, `SELECT `+profileColumns+` FROM company_profiles WHERE `+where+` LIMIT 1`, arg)
	p, err := scanProfile(row)
	if isNoRows(err) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select profile: %w", err)
	}
	return p, nil
}

func (r *profileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	return r.findOne(ctx, `user_id = $1`, userID)
}

func (r *profileRepo) FindByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.findOne(ctx, `lower(email) = lower($1)`, email)
}

func (r *profileRepo) Search(ctx context.Context, term string, limit int) ([]model.Profile, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+profileColumns+`
		FROM company_profiles
		WHERE email ILIKE $1 ESCAPE '\' OR company_name ILIKE $1 ESCAPE '\'
		ORDER BY user_id
		LIMIT $2`, likePattern(term), limit)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *profileRepo) ExistsByUserID(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM company_profiles WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists profile: %w", err)
	}
	return exists, nil
}

func (r *profileRepo) Insert(ctx context.Context, p *model.Profile) (bool, error) {
	search, err := searchProfileArg(p.ApplicantSearchProfile)
	if err != nil {
		return false, err
	}
	id := p.ID
	if id == "" {
		id = newID()
	}
	now := r.now()

	tag, err := r.q.Exec(ctx, `
		INSERT INTO company_profiles (`+profileColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,1,$20,$20)
		ON CONFLICT (user_id) DO NOTHING`,
		id, p.UserID, p.Email, p.CompanyName, p.AvatarURL, p.LogoURL, p.AboutUs,
		p.WhoWeAreLookingFor, p.Country, p.City, p.StreetAddress, p.PhoneNumber, p.AuthProvider,
		string(p.SubscriptionType), p.SubscriptionStartDate, p.SubscriptionEndDate,
		p.ExpiryNotificationSent, p.ExpiredNotificationSent, search, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	p.ID, p.Version, p.CreatedAt, p.UpdatedAt = id, 1, now, now
	return true, nil
}

func (r *profileRepo) Update(ctx context.Context, p *model.Profile) error {
	search, err := searchProfileArg(p.ApplicantSearchProfile)
	if err != nil {
		return err
	}
	now := r.now()

	tag, err := r.q.Exec(ctx, `
		UPDATE company_profiles SET
			email = $3, company_name = $4, avatar_url = $5, logo_url = $6, about_us = $7,
			who_we_are_looking_for = $8, country = $9, city = $10, street_address = $11,
			phone_number = $12, auth_provider = $13, subscription_type = $14,
			subscription_start_date = $15, subscription_end_date = $16,
			expiry_notification_sent = $17, expired_notification_sent = $18,
			applicant_search_profile = $19,
			version = version + 1, updated_at = $20
		WHERE user_id = $1 AND version = $2`,
		p.UserID, p.Version, p.Email, p.CompanyName, p.AvatarURL, p.LogoURL, p.AboutUs,
		p.WhoWeAreLookingFor, p.Country, p.City, p.StreetAddress, p.PhoneNumber, p.AuthProvider,
		string(p.SubscriptionType), p.SubscriptionStartDate, p.SubscriptionEndDate,
		p.ExpiryNotificationSent, p.ExpiredNotificationSent, search, now,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		exists, err := r.ExistsByUserID(ctx, p.UserID)
		if err != nil {
			return err
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

func (r *profileRepo) DeleteByUserID(ctx context.Context, userID string) (bool, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM company_profiles WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete profile: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
