package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/casamarket/casa-backend/pkg/db/dbtest"
)

func TestFindByIDsWithSellerPreloadsSeller(t *testing.T) {
	client := dbtest.New(t)
	conn := client.DB()
	seller := dbtest.Seller(t, conn, nil)
	first := dbtest.Product(t, conn, seller.ID, 500)
	second := dbtest.Product(t, conn, seller.ID, 700)

	repo := NewRepository(conn)
	got, err := repo.FindByIDsWithSeller(context.Background(), []uuid.UUID{first.ID, second.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[first.ID].Seller)
	require.Equal(t, seller.ID, got[first.ID].Seller.ID)
	require.EqualValues(t, 700, got[second.ID].PriceCents)
}

func TestFindByIDsWithSellerEmpty(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	got, err := repo.FindByIDsWithSeller(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestFindByIDNotFound(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB())
	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
}
