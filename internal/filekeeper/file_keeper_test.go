package filekeeper

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drstein77/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newKeeper(t *testing.T) (*FileKeeper, string) {
	t.Helper()
	dir := t.TempDir()
	k, err := NewFileKeeper(dir, zap.NewNop())
	require.NoError(t, err)
	return k, dir
}

func TestCartLifecycle(t *testing.T) {
	ctx := context.Background()
	k, _ := newKeeper(t)
	id := uuid.NewString()

	_, found, err := k.LoadCart(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)

	view := models.CartView{
		ID: id,
		Lines: []models.CartLine{
			{Product: models.Product{ID: 3, Name: "Pen", Price: decimal.RequireFromString("1.25")}, Quantity: 2},
		},
		UpdatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, k.SaveCart(ctx, view))

	got, found, err := k.LoadCart(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 2, got.Lines[0].Quantity)
	assert.True(t, view.Lines[0].Product.Price.Equal(got.Lines[0].Product.Price))
	assert.True(t, view.UpdatedAt.Equal(got.UpdatedAt))

	require.NoError(t, k.DeleteCart(ctx, id))
	require.NoError(t, k.DeleteCart(ctx, id), "deleting twice is fine")

	_, found, err = k.LoadCart(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRejectsNonUUIDCartIDs(t *testing.T) {
	k, _ := newKeeper(t)
	err := k.SaveCart(context.Background(), models.CartView{ID: "../../etc/passwd"})
	assert.ErrorContains(t, err, "invalid cart id")
}

func TestProductsSnapshot(t *testing.T) {
	ctx := context.Background()
	k, dir := newKeeper(t)

	products, at, err := k.LoadProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.True(t, at.IsZero())

	stamp := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, k.SaveProducts(ctx, []models.Product{{ID: 1, Stock: 5}}, stamp))

	products, at, err = k.LoadProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 5, products[0].Stock)
	assert.True(t, stamp.Equal(at))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-", "temp files are cleaned up")
	}
}

func TestCorruptSnapshot(t *testing.T) {
	k, dir := newKeeper(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, productsFile), []byte("{"), 0o644))

	_, _, err := k.LoadProducts(context.Background())
	assert.ErrorContains(t, err, "failed to decode")
}

func TestPing(t *testing.T) {
	k, dir := newKeeper(t)
	assert.True(t, k.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(dir))
	assert.False(t, k.Ping(context.Background()))
}
