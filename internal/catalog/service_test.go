package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/consistency"
	"github.com/stockflowhq/stockflow-backend/internal/stock"
	"github.com/stockflowhq/stockflow-backend/pkg/config"
	"github.com/stockflowhq/stockflow-backend/pkg/db"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Unit{}, &models.Product{}, &models.StockEntry{},
		&models.Supplier{}, &models.Customer{},
		&models.PurchaseEvent{}, &models.SaleEvent{},
	))

	ledger, err := stock.NewLedger(stock.NewRepository(conn), nil)
	require.NoError(t, err)
	engine, err := consistency.NewEngine(ledger)
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Client:  db.FromConn(conn),
		Repo:    NewRepository(conn),
		Engine:  engine,
		Barcode: config.BarcodeConfig{CountryCode: "604", ManufacturerCode: "32450"},
	})
	require.NoError(t, err)
	return svc, conn
}

func TestUnitCRUD(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	unit, err := svc.CreateUnit(ctx, CreateUnitInput{Title: "  kg "})
	require.NoError(t, err)
	assert.Equal(t, "kg", unit.Title)

	_, err = svc.CreateUnit(ctx, CreateUnitInput{Title: "  "})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	updated, err := svc.UpdateUnit(ctx, unit.ID, CreateUnitInput{Title: "kilogram"})
	require.NoError(t, err)
	assert.Equal(t, "kilogram", updated.Title)

	units, err := svc.ListUnits(ctx)
	require.NoError(t, err)
	assert.Len(t, units, 1)

	require.NoError(t, svc.DeleteUnit(ctx, unit.ID))
	_, err = svc.GetUnit(ctx, unit.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteUnitInUse(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	unit, err := svc.CreateUnit(ctx, CreateUnitInput{Title: "litre"})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductInput{
		Name:   "Orange juice 1L",
		Price:  decimal.NewFromInt(2),
		UnitID: &unit.ID,
	})
	require.NoError(t, err)

	err = svc.DeleteUnit(ctx, unit.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestCreateProductAssignsCodesAndSeedsStock(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:  "Couscous 1kg",
		Price: decimal.NewFromFloat(3.50),
	})
	require.NoError(t, err)

	assert.Len(t, product.ProductCode, 4)
	assert.Len(t, product.Barcode, 13)
	assert.True(t, strings.HasPrefix(product.Barcode, "60432450"))
	assert.True(t, strings.Contains(product.Barcode, product.ProductCode))

	require.NotNil(t, product.StockEntry)
	assert.Equal(t, 0, product.StockEntry.QuantityOnHand)

	var entry models.StockEntry
	require.NoError(t, conn.First(&entry, "product_id = ?", product.ID).Error)
	assert.Equal(t, 0, entry.QuantityOnHand)
}

func TestCreateProductValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Price: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "x", Price: decimal.NewFromInt(-1)})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	missing := uuid.New()
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "x", Price: decimal.NewFromInt(1), UnitID: &missing})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateProductKeepsCodes(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:  "Green tea",
		Price: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	newName := "Green tea 200g"
	newPrice := decimal.NewFromInt(6)
	updated, err := svc.UpdateProduct(ctx, product.ID, UpdateProductInput{
		Name:  &newName,
		Price: &newPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, newName, updated.Name)
	assert.True(t, updated.Price.Equal(newPrice))
	assert.Equal(t, product.ProductCode, updated.ProductCode)
	assert.Equal(t, product.Barcode, updated.Barcode)
}

func TestDeleteProductRemovesLedgerAndHistory(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:  "Sardines tin",
		Price: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	supplier := models.Supplier{ID: uuid.New(), Name: "Port Supply"}
	require.NoError(t, conn.Create(&supplier).Error)
	require.NoError(t, conn.Create(&models.PurchaseEvent{
		ID:          uuid.New(),
		SupplierID:  supplier.ID,
		ProductID:   product.ID,
		Quantity:    3,
		TotalAmount: decimal.NewFromInt(3),
	}).Error)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))

	_, err = svc.GetProduct(ctx, product.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	var entries, events int64
	require.NoError(t, conn.Model(&models.StockEntry{}).Where("product_id = ?", product.ID).Count(&entries).Error)
	require.NoError(t, conn.Model(&models.PurchaseEvent{}).Where("product_id = ?", product.ID).Count(&events).Error)
	assert.Zero(t, entries)
	assert.Zero(t, events)
}

func TestListProductsSearchAndPagination(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	names := []string{"Argan oil", "Olive oil", "Table salt"}
	for _, name := range names {
		_, err := svc.CreateProduct(ctx, CreateProductInput{Name: name, Price: decimal.NewFromInt(1)})
		require.NoError(t, err)
	}

	oils, _, err := svc.ListProducts(ctx, "oil", pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, oils, 2)

	page, next, err := svc.ListProducts(ctx, "", pagination.Params{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	require.NotEmpty(t, next)

	rest, _, err := svc.ListProducts(ctx, "", pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
