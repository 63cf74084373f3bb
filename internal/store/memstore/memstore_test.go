package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/store"
	"jobmate/profile-service/internal/store/memstore"
	"jobmate/profile-service/internal/store/storetest"
)

func TestMemstoreSuite(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return memstore.New() })
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	_, err := s.Profiles().Insert(ctx, &model.Profile{UserID: "u1", CompanyName: model.StringPtr("Acme")})
	require.NoError(t, err)

	got, err := s.Profiles().FindByUserID(ctx, "u1")
	require.NoError(t, err)
	*got.CompanyName = "mutated"

	again, err := s.Profiles().FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", *again.CompanyName)
}
