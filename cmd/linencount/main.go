package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotelhub-linencount/internal/config"
	"hotelhub-linencount/internal/database"
	httpapi "hotelhub-linencount/internal/http"
	"hotelhub-linencount/internal/hub"
	"hotelhub-linencount/internal/logger"
	"hotelhub-linencount/internal/repository"
	"hotelhub-linencount/internal/service"
	"hotelhub-linencount/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "linencount")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	presence := store.NewPresenceStore(redisClient, cfg.Presence.StaleAfter, cfg.Presence.KeyTTL)

	hubClient := hub.NewClient(cfg.Hub.BaseURL, cfg.Hub.APIKey, cfg.Hub.Timeout, log)
	authorizer := service.NewHubAuthorizer(hubClient, service.NewRoleAuthorizer(), log)

	// Optional DB; memory repos keep the service usable for local dev.
	var db *sql.DB
	var countsRepo repository.CountsRepository
	var settingsRepo repository.SettingsRepository
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for linencount")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	if db != nil {
		countsRepo = repository.NewPostgresCountsRepository(db)
		settingsRepo = repository.NewPostgresSettingsRepository(db)
	} else {
		countsRepo = repository.NewMemoryCountsRepository()
		settingsRepo = repository.NewMemorySettingsRepository()
	}

	countService := service.NewCountService(countsRepo, settingsRepo, authorizer, hubClient, log)
	feedService := service.NewChangeFeedService(countsRepo, presence, authorizer, hubClient, log)
	reportService := service.NewReportService(countsRepo, settingsRepo, hubClient, authorizer, hubClient, log)
	settingsService := service.NewSettingsService(settingsRepo, authorizer, log)

	router := httpapi.NewRouter(log)
	router.RegisterCountRoutes(httpapi.NewCountHandler(countService, log))
	router.RegisterChangeRoutes(httpapi.NewChangesHandler(feedService, log))
	router.RegisterReportRoutes(httpapi.NewReportHandler(reportService, log))
	router.RegisterSettingsRoutes(httpapi.NewSettingsHandler(settingsService, hubClient, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
