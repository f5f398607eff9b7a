package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:stock_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.StockEntry{}))
	return conn
}

func newTestLedger(t *testing.T, conn *gorm.DB) Ledger {
	t.Helper()
	ledger, err := NewLedger(NewRepository(conn), nil)
	require.NoError(t, err)
	return ledger
}

func TestGetOrCreateSeedsAtZero(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ledger := newTestLedger(t, conn)
	ctx := context.Background()
	productID := uuid.New()

	entry, err := ledger.GetOrCreate(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, 0, entry.QuantityOnHand)

	// Idempotent: second call returns the same row.
	again, err := ledger.GetOrCreate(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, entry.ProductID, again.ProductID)

	var count int64
	require.NoError(t, conn.Model(&models.StockEntry{}).Where("product_id = ?", productID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAdjustAppliesDelta(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ledger := newTestLedger(t, conn)
	ctx := context.Background()
	productID := uuid.New()

	_, err := ledger.GetOrCreate(ctx, productID)
	require.NoError(t, err)

	entry, err := ledger.Adjust(ctx, productID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, entry.QuantityOnHand)

	entry, err = ledger.Adjust(ctx, productID, -3)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.QuantityOnHand)

	// Write-through: the persisted row matches the returned value.
	var persisted models.StockEntry
	require.NoError(t, conn.First(&persisted, "product_id = ?", productID).Error)
	assert.Equal(t, 2, persisted.QuantityOnHand)
}

func TestAdjustRejectsNegativeResult(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ledger := newTestLedger(t, conn)
	ctx := context.Background()
	productID := uuid.New()

	_, err := ledger.GetOrCreate(ctx, productID)
	require.NoError(t, err)
	_, err = ledger.Adjust(ctx, productID, 2)
	require.NoError(t, err)

	_, err = ledger.Adjust(ctx, productID, -3)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	var persisted models.StockEntry
	require.NoError(t, conn.First(&persisted, "product_id = ?", productID).Error)
	assert.Equal(t, 2, persisted.QuantityOnHand, "rejected adjustment must leave the entry untouched")
}

func TestAdjustMissingEntry(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ledger := newTestLedger(t, conn)

	_, err := ledger.Adjust(context.Background(), uuid.New(), -1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeLedgerMissing))
}

func TestGetMissingEntry(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ledger := newTestLedger(t, conn)

	_, err := ledger.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeLedgerMissing))
}

func TestAdjustZeroDeltaReadsThrough(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	ledger := newTestLedger(t, conn)
	ctx := context.Background()
	productID := uuid.New()

	_, err := ledger.GetOrCreate(ctx, productID)
	require.NoError(t, err)

	entry, err := ledger.Adjust(ctx, productID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, entry.QuantityOnHand)
}
