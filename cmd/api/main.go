package main

import (
	"context"
	"os"

	"github.com/explorebd/explorebd-api/internal/auth"
	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/explorebd/explorebd-api/internal/database"
	"github.com/explorebd/explorebd-api/internal/elasticsearch"
	"github.com/explorebd/explorebd-api/internal/logger"
	"github.com/explorebd/explorebd-api/internal/models"
	"github.com/explorebd/explorebd-api/internal/payment"
	"github.com/explorebd/explorebd-api/internal/redis"
	"github.com/explorebd/explorebd-api/internal/server"
	"github.com/explorebd/explorebd-api/internal/services/admin"
	authsvc "github.com/explorebd/explorebd-api/internal/services/auth"
	"github.com/explorebd/explorebd-api/internal/services/blog"
	bookingsvc "github.com/explorebd/explorebd-api/internal/services/booking"
	"github.com/explorebd/explorebd-api/internal/services/catalog"
	"github.com/explorebd/explorebd-api/internal/services/settings"
	"github.com/explorebd/explorebd-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(&config.Config{}, "api")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg, "api")
	ctx := context.Background()

	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get database handle")
	}
	defer sqlDB.Close()

	redisClient := redis.NewClient(cfg)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to create upload directory")
	}

	stores := store.New(db)

	// Search is optional; the catalog falls back to database queries without it.
	var searcher catalog.Searcher
	if cfg.ElasticsearchURL != "" {
		es, err := elasticsearch.NewClient(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("search index unavailable, using database search")
		} else {
			searcher = es
		}
	}

	bookingService, err := bookingsvc.NewService(cfg, stores, redisClient, payment.NewMockBkashClient(cfg), logger.Component(log, "booking"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create booking service")
	}

	r := server.NewRouter(log)
	r.GET("/health", server.Health("api", map[string]server.Check{
		"database": sqlDB.PingContext,
		"redis":    redisClient.Ping,
	}))
	r.Group("/admin", auth.Middleware(cfg), auth.RequireRole(stores.Users, models.RoleAdmin)).Static("/uploads", cfg.UploadDir)

	authsvc.NewService(cfg, stores, logger.Component(log, "auth")).SetupRoutes(r)
	catalog.NewService(cfg, stores, searcher, logger.Component(log, "catalog")).SetupRoutes(r)
	bookingService.SetupRoutes(r)
	blog.NewService(cfg, stores, logger.Component(log, "blog")).SetupRoutes(r)
	settings.NewService(cfg, stores, logger.Component(log, "settings")).SetupRoutes(r)
	admin.NewService(cfg, stores, logger.Component(log, "admin")).SetupRoutes(r)

	if err := server.Run(ctx, ":"+cfg.APIPort, r, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
