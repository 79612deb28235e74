package main

import (
	"database/sql"
	"log"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/joho/godotenv"

	"fitness-subscription-platform/internal/config"
	"fitness-subscription-platform/internal/infra/db/migrations"
	"fitness-subscription-platform/internal/infra/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database failed")
	}
	defer db.Close()

	if err := migrations.Up(db, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
}
