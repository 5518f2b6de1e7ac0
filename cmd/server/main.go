package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rxforecaster/backend-go/internal/anomaly"
	"github.com/rxforecaster/backend-go/internal/api"
	"github.com/rxforecaster/backend-go/internal/cache"
	"github.com/rxforecaster/backend-go/internal/config"
	"github.com/rxforecaster/backend-go/internal/forecast"
	"github.com/rxforecaster/backend-go/internal/repository/sqldb"
	"github.com/rxforecaster/backend-go/internal/scheduler"
	"github.com/rxforecaster/backend-go/internal/service"
	"github.com/rxforecaster/backend-go/internal/storage"
	"github.com/rxforecaster/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := sqldb.Open(cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.InitSchema(initCtx); err != nil {
		initCancel()
		logger.Log.Fatal().Err(err).Msg("Failed to initialize schema")
	}
	initCancel()

	store := sqldb.NewStore(db)

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Cache unavailable, continuing without it")
		forecastCache = cache.NewNoopForecastCache()
	}

	var archive storage.ObjectStorage
	if cfg.Archive.Enabled {
		archive, err = storage.NewS3Client(cfg.Archive)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Report archive unavailable, continuing without it")
			archive = nil
		}
	}

	forecastEngine := forecast.NewEngine(store, cfg.Forecast)
	anomalyEngine := anomaly.NewEngine(store, cfg.Anomaly, forecast.NewSeasonal())

	forecastService := service.NewForecastService(forecastEngine, store, forecastCache, true)
	anomalyService := service.NewAnomalyService(anomalyEngine, store)
	inventoryService := service.NewInventoryService(store, forecastCache)
	reportService := service.NewReportService(forecastService, store, archive)

	sweeper := scheduler.NewSweeper(anomalyService, cfg.Sweep)
	if err := sweeper.Start(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to start anomaly sweep")
	}

	router := api.NewRouter(&api.Services{
		Inventory: inventoryService,
		Forecasts: forecastService,
		Anomalies: anomalyService,
		Reports:   reportService,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
