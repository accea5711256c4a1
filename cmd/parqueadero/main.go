package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"parqueadero/internal/config"
	"parqueadero/internal/fleet"
	"parqueadero/internal/logging"
	"parqueadero/internal/parking"
	"parqueadero/internal/scan"
	"parqueadero/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(cfg.IsDevelopment())
	log := logging.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetry, err := parking.NewTelemetryProvider(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}

	accounts := parking.NewAccountLedger()
	sessions := parking.NewSessionLedger()
	slots := parking.NewSlotRegistry([]parking.SlotSpec{
		{Class: parking.ClassCar, Count: cfg.CarSlots},
		{Class: parking.ClassMotorcycle, Count: cfg.MotorcycleSlots},
	})

	registry := fleet.NewRegistry(accounts, map[parking.VehicleClass]float64{
		parking.ClassCar:        cfg.CarRate,
		parking.ClassMotorcycle: cfg.MotorcycleRate,
	}, cfg.MinInitialBalance)

	coordinator := parking.NewCoordinator(slots, sessions, accounts, registry)
	occupancy, err := parking.NewInstrumentedCoordinator(coordinator, telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to instrument coordinator")
	}

	correlator := scan.NewCorrelator(cfg.ScanTTL)

	handler := server.NewHandler(cfg.OTelServiceName, registry, occupancy, sessions, correlator)
	srv := server.NewServer(cfg.Port, handler)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}

		cancel()
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down telemetry")
	}
}
