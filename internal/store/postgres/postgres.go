// Package postgres implements store.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/profile-service/internal/store"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables and indexes when they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool // nil inside a transaction
	q    querier
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns a Store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Profiles() store.Profiles { return &profileRepo{q: s.q, now: s.now} }
func (s *Store) Posts() store.Posts       { return &postRepo{q: s.q, now: s.now} }

// WithinTx runs fn inside one transaction. Nested calls join the outer one.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&Store{q: tx, now: s.now})
	})
}

func newID() string { return uuid.NewString() }

// likePattern wraps term for ILIKE ... ESCAPE '\', neutralising wildcards.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

// nonNil keeps TEXT[] NOT NULL columns from receiving NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
