package main

import (
	"context"

	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/explorebd/explorebd-api/internal/database"
	"github.com/explorebd/explorebd-api/internal/elasticsearch"
	"github.com/explorebd/explorebd-api/internal/logger"
	"github.com/explorebd/explorebd-api/internal/server"
	"github.com/explorebd/explorebd-api/internal/services/indexer"
	"github.com/explorebd/explorebd-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(&config.Config{}, "indexer")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg, "indexer")

	if cfg.ElasticsearchURL == "" {
		log.Fatal().Msg("ELASTICSEARCH_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	esClient, err := elasticsearch.NewClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to elasticsearch")
	}

	svc := indexer.NewService(store.New(db), esClient, log)

	r := server.NewRouter(log)
	svc.SetupRoutes(r)

	go svc.StartWorker(ctx, cfg.IndexSyncInterval)

	if err := server.Run(ctx, ":"+cfg.IndexerPort, r, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
