package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stockflowhq/stockflow-backend/api/routes"
	"github.com/stockflowhq/stockflow-backend/internal/catalog"
	"github.com/stockflowhq/stockflow-backend/internal/consistency"
	"github.com/stockflowhq/stockflow-backend/internal/partners"
	"github.com/stockflowhq/stockflow-backend/internal/purchases"
	"github.com/stockflowhq/stockflow-backend/internal/sales"
	"github.com/stockflowhq/stockflow-backend/internal/stock"
	"github.com/stockflowhq/stockflow-backend/pkg/config"
	"github.com/stockflowhq/stockflow-backend/pkg/db"
	"github.com/stockflowhq/stockflow-backend/pkg/logger"
	"github.com/stockflowhq/stockflow-backend/pkg/metrics"
	"github.com/stockflowhq/stockflow-backend/pkg/migrate"
	"github.com/stockflowhq/stockflow-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	ledger, err := stock.NewLedger(stock.NewRepository(dbClient.DB()), ledgerMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock ledger", err)
		os.Exit(1)
	}
	engine, err := consistency.NewEngine(ledger)
	if err != nil {
		logg.Error(context.Background(), "failed to create consistency engine", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Client:  dbClient,
		Repo:    catalog.NewRepository(dbClient.DB()),
		Engine:  engine,
		Barcode: cfg.Barcode,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	partnersService, err := partners.NewService(partners.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create partners service", err)
		os.Exit(1)
	}

	purchaseService, err := purchases.NewService(purchases.ServiceParams{
		Client: dbClient,
		Repo:   purchases.NewRepository(dbClient.DB()),
		Engine: engine,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create purchases service", err)
		os.Exit(1)
	}

	saleService, err := sales.NewService(sales.ServiceParams{
		Client: dbClient,
		Repo:   sales.NewRepository(dbClient.DB()),
		Engine: engine,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Registry:  registry,
			Catalog:   catalogService,
			Partners:  partnersService,
			Purchases: purchaseService,
			Sales:     saleService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
