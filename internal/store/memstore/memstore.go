// Package memstore is an in-process store.Store used by tests and by the
// STORAGE_BACKEND=memory mode.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/store"
)

type state struct {
	profiles map[string]*model.Profile // by userId
	posts    map[string]*model.Post    // by postId
}

func (s *state) clone() *state {
	c := &state{
		profiles: make(map[string]*model.Profile, len(s.profiles)),
		posts:    make(map[string]*model.Post, len(s.posts)),
	}
	for k, v := range s.profiles {
		c.profiles[k] = v.Clone()
	}
	for k, v := range s.posts {
		c.posts[k] = v.Clone()
	}
	return c
}

// Store is safe for concurrent use. Transactions take the write lock for
// their whole duration.
type Store struct {
	mu  *sync.Mutex
	st  *state
	now func() time.Time
	// inTx is set on the view handed to a WithinTx callback.
	inTx bool
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		mu:  &sync.Mutex{},
		st:  &state{profiles: map[string]*model.Profile{}, posts: map[string]*model.Post{}},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the timestamp source for CreatedAt and UpdatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Profiles() store.Profiles { return profiles{s} }
func (s *Store) Posts() store.Posts       { return posts{s} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, st: s.st.clone(), now: s.now, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

// lock guards a single call outside a transaction.
func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// ─── Profiles ────────────────────────────────────────────────────────────────

type profiles struct{ s *Store }

func (r profiles) FindByUserID(_ context.Context, userID string) (*model.Profile, error) {
	defer r.s.lock()()
	p, ok := r.s.st.profiles[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return p.Clone(), nil
}

func (r profiles) FindByEmail(_ context.Context, email string) (*model.Profile, error) {
	defer r.s.lock()()
	for _, p := range r.s.st.profiles {
		if p.Email != nil && strings.EqualFold(*p.Email, email) {
			return p.Clone(), nil
		}
	}
	return nil, model.ErrNotFound
}

func (r profiles) Search(_ context.Context, term string, limit int) ([]model.Profile, error) {
	defer r.s.lock()()
	needle := strings.ToLower(term)
	var out []model.Profile
	for _, p := range r.s.st.profiles {
		if strings.Contains(strings.ToLower(model.Deref(p.Email)), needle) ||
			strings.Contains(strings.ToLower(model.Deref(p.CompanyName)), needle) {
			out = append(out, *p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r profiles) ExistsByUserID(_ context.Context, userID string) (bool, error) {
	defer r.s.lock()()
	_, ok := r.s.st.profiles[userID]
	return ok, nil
}

func (r profiles) Insert(_ context.Context, p *model.Profile) (bool, error) {
	defer r.s.lock()()
	if _, ok := r.s.st.profiles[p.UserID]; ok {
		return false, nil
	}
	now := r.s.now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt, p.UpdatedAt, p.Version = now, now, 1
	r.s.st.profiles[p.UserID] = p.Clone()
	return true, nil
}

func (r profiles) Update(_ context.Context, p *model.Profile) error {
	defer r.s.lock()()
	cur, ok := r.s.st.profiles[p.UserID]
	if !ok {
		return model.ErrNotFound
	}
	if cur.Version != p.Version {
		return model.ErrVersionConflict
	}
	p.Version++
	p.UpdatedAt = r.s.now()
	r.s.st.profiles[p.UserID] = p.Clone()
	return nil
}

func (r profiles) DeleteByUserID(_ context.Context, userID string) (bool, error) {
	defer r.s.lock()()
	if _, ok := r.s.st.profiles[userID]; !ok {
		return false, nil
	}
	delete(r.s.st.profiles, userID)
	return true, nil
}

// ─── Posts ───────────────────────────────────────────────────────────────────

type posts struct{ s *Store }

func (r posts) Insert(_ context.Context, p *model.Post) error {
	defer r.s.lock()()
	now := r.s.now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt, p.UpdatedAt, p.Version = now, now, 1
	r.s.st.posts[p.PostID] = p.Clone()
	return nil
}

func (r posts) FindByPostID(_ context.Context, postID string) (*model.Post, error) {
	defer r.s.lock()()
	p, ok := r.s.st.posts[postID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return p.Clone(), nil
}

func (r posts) ListByCompany(_ context.Context, companyID string, status *model.PostStatus) ([]model.Post, error) {
	defer r.s.lock()()
	var out []model.Post
	for _, p := range r.s.st.posts {
		if p.CompanyID != companyID {
			continue
		}
		if status != nil && p.Status != *status {
			continue
		}
		out = append(out, *p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].PostID > out[j].PostID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r posts) Update(_ context.Context, p *model.Post) error {
	defer r.s.lock()()
	cur, ok := r.s.st.posts[p.PostID]
	if !ok {
		return model.ErrNotFound
	}
	if cur.Version != p.Version {
		return model.ErrVersionConflict
	}
	p.Version++
	p.UpdatedAt = r.s.now()
	r.s.st.posts[p.PostID] = p.Clone()
	return nil
}

func (r posts) DeleteByPostID(_ context.Context, postID string) (bool, error) {
	defer r.s.lock()()
	if _, ok := r.s.st.posts[postID]; !ok {
		return false, nil
	}
	delete(r.s.st.posts, postID)
	return true, nil
}

func (r posts) DeleteAllByCompany(_ context.Context, companyID string) (int64, error) {
	defer r.s.lock()()
	var n int64
	for id, p := range r.s.st.posts {
		if p.CompanyID == companyID {
			delete(r.s.st.posts, id)
			n++
		}
	}
	return n, nil
}

func (r posts) ListPendingBefore(_ context.Context, before time.Time, limit int) ([]model.Post, error) {
	defer r.s.lock()()
	var out []model.Post
	for _, p := range r.s.st.posts {
		if p.Status == model.PostPending && p.CreatedAt.Before(before) {
			out = append(out, *p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
