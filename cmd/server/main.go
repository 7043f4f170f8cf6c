package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"binance-backtest-go/internal/binance"
	"binance-backtest-go/internal/config"
	"binance-backtest-go/internal/database"
	"binance-backtest-go/internal/logger"
	"binance-backtest-go/internal/server"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	var store *database.Store
	if cfg.Database.DSN != "" {
		db, err := database.NewDatabase(cfg.Database.DSN)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		store = database.NewStore(db, log)
		log.Info("Database connection successful and schema migrated.")
	} else {
		log.Warn("No database DSN configured, results will not be persisted")
	}

	restClient := binance.NewRestClient(&cfg.Binance, log)
	if _, err := restClient.GetServerTime(); err != nil {
		log.Fatal("Failed to connect to Binance API", zap.Error(err))
	}
	log.Info("Successfully connected to Binance API.")

	apiServer := server.NewServer(&cfg, restClient, store, log)
	apiServer.Start()

	// Block until a shutdown signal arrives.
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Stop(ctx); err != nil {
		log.Error("Failed to stop API server cleanly", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
