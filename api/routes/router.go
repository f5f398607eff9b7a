package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stockflowhq/stockflow-backend/api/controllers"
	"github.com/stockflowhq/stockflow-backend/api/middleware"
	"github.com/stockflowhq/stockflow-backend/internal/catalog"
	"github.com/stockflowhq/stockflow-backend/internal/partners"
	"github.com/stockflowhq/stockflow-backend/internal/purchases"
	"github.com/stockflowhq/stockflow-backend/internal/sales"
	"github.com/stockflowhq/stockflow-backend/pkg/config"
	"github.com/stockflowhq/stockflow-backend/pkg/db"
	"github.com/stockflowhq/stockflow-backend/pkg/logger"
	"github.com/stockflowhq/stockflow-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry

	Catalog   catalog.Service
	Partners  partners.Service
	Purchases purchases.Service
	Sales     sales.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	var redisPinger redis.Pinger
	if p.Redis != nil {
		redisPinger = p.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, redisPinger))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	var idemStore redis.IdempotencyStore
	if p.Redis != nil {
		idemStore = p.Redis
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/units", func(r chi.Router) {
			r.Get("/", controllers.UnitList(p.Catalog, logg))
			r.Post("/", controllers.UnitCreate(p.Catalog, logg))
			r.Get("/{unitId}", controllers.UnitDetail(p.Catalog, logg))
			r.Put("/{unitId}", controllers.UnitUpdate(p.Catalog, logg))
			r.Delete("/{unitId}", controllers.UnitDelete(p.Catalog, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(p.Catalog, logg))
			r.Post("/", controllers.ProductCreate(p.Catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(p.Catalog, logg))
			r.Patch("/{productId}", controllers.ProductUpdate(p.Catalog, logg))
			r.Delete("/{productId}", controllers.ProductDelete(p.Catalog, logg))
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", controllers.SupplierList(p.Partners, logg))
			r.Post("/", controllers.SupplierCreate(p.Partners, logg))
			r.Get("/{supplierId}", controllers.SupplierDetail(p.Partners, logg))
			r.Put("/{supplierId}", controllers.SupplierUpdate(p.Partners, logg))
			r.Delete("/{supplierId}", controllers.SupplierDelete(p.Partners, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.CustomerList(p.Partners, logg))
			r.Post("/", controllers.CustomerCreate(p.Partners, logg))
			r.Get("/{customerId}", controllers.CustomerDetail(p.Partners, logg))
			r.Put("/{customerId}", controllers.CustomerUpdate(p.Partners, logg))
			r.Delete("/{customerId}", controllers.CustomerDelete(p.Partners, logg))
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", controllers.PurchaseList(p.Purchases, logg))
			r.Post("/", controllers.PurchaseCreate(p.Purchases, logg))
			r.Get("/{purchaseId}", controllers.PurchaseDetail(p.Purchases, logg))
			r.Put("/{purchaseId}", controllers.PurchaseModify(p.Purchases, logg))
			r.Patch("/{purchaseId}", controllers.PurchaseModify(p.Purchases, logg))
			r.Delete("/{purchaseId}", controllers.PurchaseDelete(p.Purchases, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.SaleList(p.Sales, logg))
			r.Post("/", controllers.SaleCreate(p.Sales, logg))
			r.Get("/{saleId}", controllers.SaleDetail(p.Sales, logg))
			r.Put("/{saleId}", controllers.SaleModify(p.Sales, logg))
			r.Patch("/{saleId}", controllers.SaleModify(p.Sales, logg))
			r.Delete("/{saleId}", controllers.SaleDelete(p.Sales, logg))
		})
	})

	return r
}
