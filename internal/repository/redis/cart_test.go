package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fblink88/appburguer-backend/internal/domain"
	"github.com/Fblink88/appburguer-backend/internal/repository"
	apperrors "github.com/Fblink88/appburguer-backend/pkg/errors"
)

func setupTestRedis(t *testing.T) (*CartRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := NewCartRepository(client, 72*time.Hour)
	return repo, mr
}

func sampleCart() *domain.Cart {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Cart{
		CustomerRef: "customer-001",
		Lines: []domain.CartLine{
			{
				ProductID:   1,
				Name:        "Double Cheeseburger",
				UnitPrice:   7990,
				ImageRef:    "burgers/double-cheese.jpg",
				Description: "Two smashed patties, cheddar, pickles",
				Quantity:    2,
			},
		},
		UpdatedAt: now,
	}
}

func TestCartRepository_SaveAndGet(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	cart := sampleCart()
	require.NoError(t, repo.Save(ctx, cart))

	got, err := repo.Get(ctx, "customer-001")
	require.NoError(t, err)
	assert.Equal(t, cart.CustomerRef, got.CustomerRef)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(1), got.Lines[0].ProductID)
	assert.Equal(t, int64(7990), got.Lines[0].UnitPrice)
	assert.Equal(t, 2, got.Lines[0].Quantity)
}

func TestCartRepository_Get_NotFound(t *testing.T) {
	repo, _ := setupTestRedis(t)

	_, err := repo.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_Get_CorruptPayload(t *testing.T) {
	repo, mr := setupTestRedis(t)

	require.NoError(t, mr.Set("cart:customer-001", "{not json"))

	_, err := repo.Get(context.Background(), "customer-001")
	assert.ErrorIs(t, err, repository.ErrCorrupt)
}

func TestCartRepository_Save_EmptyCartDeletesKey(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	cart := sampleCart()
	require.NoError(t, repo.Save(ctx, cart))
	assert.True(t, mr.Exists("cart:customer-001"))

	cart.Lines = nil
	require.NoError(t, repo.Save(ctx, cart))
	assert.False(t, mr.Exists("cart:customer-001"))
}

func TestCartRepository_Save_ReplacesWhole(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	cart := sampleCart()
	require.NoError(t, repo.Save(ctx, cart))

	cart.Lines = []domain.CartLine{{ProductID: 9, Name: "Fries", UnitPrice: 2500, Quantity: 1}}
	require.NoError(t, repo.Save(ctx, cart))

	got, err := repo.Get(ctx, "customer-001")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(9), got.Lines[0].ProductID)
}

func TestCartRepository_Save_SetsTTL(t *testing.T) {
	repo, mr := setupTestRedis(t)

	require.NoError(t, repo.Save(context.Background(), sampleCart()))
	assert.Greater(t, mr.TTL("cart:customer-001"), time.Duration(0))
}

func TestCartRepository_Delete(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleCart()))
	require.NoError(t, repo.Delete(ctx, "customer-001"))
	assert.False(t, mr.Exists("cart:customer-001"))

	// Deleting again is a no-op.
	assert.NoError(t, repo.Delete(ctx, "customer-001"))
}

func TestCartRepository_StoredFormIsJSON(t *testing.T) {
	repo, mr := setupTestRedis(t)

	require.NoError(t, repo.Save(context.Background(), sampleCart()))

	raw, err := mr.Get("cart:customer-001")
	require.NoError(t, err)

	var decoded domain.Cart
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "customer-001", decoded.CustomerRef)
}
