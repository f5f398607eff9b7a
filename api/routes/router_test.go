package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/internal/catalog"
	"github.com/stockflowhq/stockflow-backend/internal/consistency"
	"github.com/stockflowhq/stockflow-backend/internal/partners"
	"github.com/stockflowhq/stockflow-backend/internal/purchases"
	"github.com/stockflowhq/stockflow-backend/internal/sales"
	"github.com/stockflowhq/stockflow-backend/internal/stock"
	"github.com/stockflowhq/stockflow-backend/pkg/config"
	"github.com/stockflowhq/stockflow-backend/pkg/db"
	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/types"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Unit{}, &models.Product{}, &models.StockEntry{},
		&models.Supplier{}, &models.Customer{},
		&models.PurchaseEvent{}, &models.SaleEvent{},
	))

	client := db.FromConn(conn)
	ledger, err := stock.NewLedger(stock.NewRepository(conn), nil)
	require.NoError(t, err)
	engine, err := consistency.NewEngine(ledger)
	require.NoError(t, err)

	catalogSvc, err := catalog.NewService(catalog.ServiceParams{
		Client:  client,
		Repo:    catalog.NewRepository(conn),
		Engine:  engine,
		Barcode: config.BarcodeConfig{CountryCode: "604", ManufacturerCode: "32450"},
	})
	require.NoError(t, err)
	partnersSvc, err := partners.NewService(partners.NewRepository(conn))
	require.NoError(t, err)
	purchaseSvc, err := purchases.NewService(purchases.ServiceParams{
		Client: client,
		Repo:   purchases.NewRepository(conn),
		Engine: engine,
	})
	require.NoError(t, err)
	saleSvc, err := sales.NewService(sales.ServiceParams{
		Client: client,
		Repo:   sales.NewRepository(conn),
		Engine: engine,
	})
	require.NoError(t, err)

	return NewRouter(RouterParams{
		Config:    &config.Config{App: config.AppConfig{Env: "test"}},
		DB:        client,
		Catalog:   catalogSvc,
		Partners:  partnersSvc,
		Purchases: purchaseSvc,
		Sales:     saleSvc,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	raw := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	require.NoError(t, json.Unmarshal(raw.Data, dest))
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	live := do(t, router, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, live.Code)
	assert.Equal(t, "test", live.Header().Get("X-Stockflow-Env"))

	ready := do(t, router, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, ready.Code)
}

func TestEventRecordingFlow(t *testing.T) {
	router := newTestRouter(t)

	// Catalog and counterparties.
	var product models.Product
	resp := do(t, router, http.MethodPost, "/api/v1/products", `{"name":"Olive oil 1L","price":"10"}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	decodeData(t, resp, &product)
	require.NotNil(t, product.StockEntry)
	assert.Equal(t, 0, product.StockEntry.QuantityOnHand)
	assert.Len(t, product.Barcode, 13)

	var supplier models.Supplier
	resp = do(t, router, http.MethodPost, "/api/v1/suppliers", `{"name":"Atlas Distribution"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	decodeData(t, resp, &supplier)

	var customer models.Customer
	resp = do(t, router, http.MethodPost, "/api/v1/customers", `{"name":"Corner Grocery"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	decodeData(t, resp, &customer)

	stockOf := func() int {
		var got models.Product
		r := do(t, router, http.MethodGet, "/api/v1/products/"+product.ID.String(), "")
		require.Equal(t, http.StatusOK, r.Code)
		decodeData(t, r, &got)
		require.NotNil(t, got.StockEntry)
		return got.StockEntry.QuantityOnHand
	}

	// Receive 5 at price 10.
	var purchase models.PurchaseEvent
	resp = do(t, router, http.MethodPost, "/api/v1/purchases",
		fmt.Sprintf(`{"supplier_id":%q,"product_id":%q,"quantity":5}`, supplier.ID, product.ID))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	decodeData(t, resp, &purchase)
	assert.True(t, purchase.TotalAmount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 5, stockOf())

	// Sell 3.
	var sale models.SaleEvent
	resp = do(t, router, http.MethodPost, "/api/v1/sales",
		fmt.Sprintf(`{"customer_id":%q,"product_id":%q,"quantity":3}`, customer.ID, product.ID))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	decodeData(t, resp, &sale)
	assert.True(t, sale.TotalAmount.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, 2, stockOf())

	// Overselling is rejected and changes nothing.
	resp = do(t, router, http.MethodPost, "/api/v1/sales",
		fmt.Sprintf(`{"customer_id":%q,"product_id":%q,"quantity":5}`, customer.ID, product.ID))
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeInsufficientStock), decodeError(t, resp).Code)
	assert.Equal(t, 2, stockOf())

	// Recorded events cannot be edited.
	resp = do(t, router, http.MethodPut, "/api/v1/purchases/"+purchase.ID.String(), `{"quantity":9}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeModificationNotAllowed), decodeError(t, resp).Code)

	// The purchase cannot be unwound while its stock is partly sold.
	resp = do(t, router, http.MethodDelete, "/api/v1/purchases/"+purchase.ID.String(), "")
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeInsufficientStock), decodeError(t, resp).Code)
	assert.Equal(t, 2, stockOf())

	// Unwinding the sale restores stock, then the purchase can go too.
	resp = do(t, router, http.MethodDelete, "/api/v1/sales/"+sale.ID.String(), "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 5, stockOf())

	resp = do(t, router, http.MethodDelete, "/api/v1/purchases/"+purchase.ID.String(), "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 0, stockOf())
}

func TestUnknownProductReturns404(t *testing.T) {
	router := newTestRouter(t)

	resp := do(t, router, http.MethodGet, "/api/v1/products/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeNotFound), decodeError(t, resp).Code)
}
