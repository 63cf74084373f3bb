package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"jobmate/profile-service/internal/db"
	"jobmate/profile-service/internal/store"
	"jobmate/profile-service/internal/store/postgres"
	"jobmate/profile-service/internal/store/storetest"
)

// Runs only against a disposable database named by DATABASE_TEST_URL.
func TestPostgresSuite(t *testing.T) {
	url := os.Getenv("DATABASE_TEST_URL")
	if url == "" {
		t.Skip("DATABASE_TEST_URL not set")
	}
	ctx := context.Background()
	pool, err := db.NewPostgresPool(ctx, url, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.Migrate(ctx, pool))

	// Every suite case uses fresh uuids, so sharing one database is fine.
	storetest.Run(t, func(t *testing.T) store.Store { return postgres.New(pool) })
}
