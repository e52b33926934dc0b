package main

import (
	"context"
	"net/http"

	"github.com/joho/godotenv"

	"pharmadesk/m/internal/api"
	"pharmadesk/m/internal/config"
	"pharmadesk/m/internal/database"
	"pharmadesk/m/internal/migrations"
	"pharmadesk/m/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(cfg)

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("unable to open database")
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	allocator := store.NewSerialAllocator(db, logger)
	catalog := store.NewProductCatalog(db, logger)
	ledger := store.NewSalesLedger(db, logger)
	billing := store.NewBillingEngine(db, ledger, logger)
	settings := store.NewSettings(db, logger)

	if err := allocator.Sync(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("serial counter sync failed")
	}

	handler := api.New(allocator, catalog, ledger, billing, settings, cfg.Secret, logger)

	logger.Info().Str("port", cfg.HTTPPort).Str("database", cfg.DatabasePath).Msg("pharmacy server starting")
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
