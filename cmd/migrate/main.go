package main

import (
	"context"
	"flag"

	"github.com/explorebd/explorebd-api/internal/config"
	"github.com/explorebd/explorebd-api/internal/database"
	"github.com/explorebd/explorebd-api/internal/logger"
)

func main() {
	seed := flag.Bool("seed", true, "load demo tours, bookings, blog posts and accounts")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(&config.Config{}, "migrate")
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(cfg, "migrate")

	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if *seed {
		if err := database.SeedData(context.Background(), db, cfg, log); err != nil {
			log.Fatal().Err(err).Msg("failed to seed data")
		}
	}

	log.Info().Bool("seeded", *seed).Msg("database migration completed")
}
