package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront-service/internal/config"
	"github.com/vasiliy-maslov/storefront-service/internal/customer"
	"github.com/vasiliy-maslov/storefront-service/internal/db"
	"github.com/vasiliy-maslov/storefront-service/internal/metrics"
	"github.com/vasiliy-maslov/storefront-service/internal/payment"
	"github.com/vasiliy-maslov/storefront-service/internal/transport"
	"github.com/vasiliy-maslov/storefront-service/internal/worker"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "storefront-service").Logger()

	log.Info().Msg("Storefront service starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	dbConn, err := db.New(cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbConn.Close()

	m := metrics.New(prometheus.DefaultRegisterer)

	gateway := payment.NewClient(cfg.Gateway)

	accumulator := worker.NewAccumulator(dbConn.Pool, customer.NewRepository(), cfg.Worker.QueueSize, m.AccumulatorDropped)
	accumulator.Start(cfg.Worker.Workers)

	router := transport.NewRouter(dbConn, gateway, accumulator, m)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}

	// Drain the purchase queue after the server stops accepting requests.
	accumulator.Stop()

	log.Info().Msg("Server stopped")
}
