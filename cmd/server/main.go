package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/bdiallo/farmtrack/internal/config"
	"github.com/bdiallo/farmtrack/internal/remote"
	"github.com/bdiallo/farmtrack/internal/repository/mongodb"
	"github.com/bdiallo/farmtrack/internal/repository/sheets"
	"github.com/bdiallo/farmtrack/internal/scheduler"
	"github.com/bdiallo/farmtrack/internal/server/handlers"
	"github.com/bdiallo/farmtrack/internal/server/router"
	reportingsvc "github.com/bdiallo/farmtrack/internal/service/reporting"
	"github.com/bdiallo/farmtrack/internal/store"
	"github.com/bdiallo/farmtrack/pkg/clients/openweather"
	"github.com/bdiallo/farmtrack/pkg/clients/supabase"
	"github.com/bdiallo/farmtrack/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	supabaseClient := supabase.NewClient(cfg.Supabase, baseLogger.Named("clients.supabase"))

	var dataStore remote.DataStore = supabaseClient
	if cfg.Store.Backend == config.BackendMongoDB {
		mongoRepo, err := mongodb.NewRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		dataStore = mongoRepo
		baseLogger.Info("records backend: mongodb")
	} else {
		baseLogger.Info("records backend: supabase")
	}

	sessionStore := store.NewSessionStore(supabaseClient, dataStore, baseLogger.Named("store.session"))
	recordStore := store.NewRecordStore(dataStore, baseLogger.Named("store.records"))

	initCtx, cancelInit := context.WithTimeout(context.Background(), 15*time.Second)
	sessionChanges := sessionStore.Initialize(initCtx)
	cancelInit()
	if sessionChanges != nil {
		defer sessionChanges.Close()
	}

	weatherClient := openweather.NewClient(cfg.Weather.APIKey)
	if cfg.Weather.APIKey == "" {
		baseLogger.Warn("openweather api key missing, serving mock weather data")
	}

	var sheetsRepo sheets.Repository
	if cfg.SheetsEnabled() {
		sheetsRepo, err = sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
	} else {
		baseLogger.Info("sheets export disabled")
	}

	reportingSvc := reportingsvc.NewService(recordStore, sheetsRepo, baseLogger.Named("svc.reporting"))

	authHandler := handlers.NewAuthHandler(sessionStore, baseLogger.Named("handlers.auth"))
	recordsHandler := handlers.NewRecordsHandler(sessionStore, recordStore, baseLogger.Named("handlers.records"))
	weatherHandler := handlers.NewWeatherHandler(sessionStore, recordStore, weatherClient, cfg.Weather, baseLogger.Named("handlers.weather"))
	engine := router.New(authHandler, recordsHandler, weatherHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(*cfg, sessionStore, recordStore, weatherClient, reportingSvc, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
