package main

import (
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"vpcstats/adapters/api"
	"vpcstats/adapters/postgres"
	"vpcstats/app"
	"vpcstats/internal"
	"vpcstats/internal/config"
	"vpcstats/ports"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	var runs ports.RunRepository
	if cfg.Database.URL != "" {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("database: %v", err)
		}
		runs = postgres.NewRunRepository(db)
		logger.Info("run persistence enabled")
	} else {
		logger.Info("DATABASE_URL not set, run persistence disabled")
	}

	svc := app.NewVPCService(logger)
	svc.SetDefaultWorkers(cfg.Runtime.Workers)
	server := api.NewServer(svc, runs, nil, nil, logger)

	logger.Info("listening on :%s", cfg.Server.Port)
	if err := http.ListenAndServe(":"+cfg.Server.Port, server.Router()); err != nil {
		log.Fatalf("server: %v", err)
	}
}
