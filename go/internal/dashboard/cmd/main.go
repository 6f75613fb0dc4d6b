package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/soubeek/epn-solutions/go/internal/appconfig"
	"github.com/soubeek/epn-solutions/go/internal/dashboard"
	"github.com/soubeek/epn-solutions/go/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, logLevel, addr string

	flagSet := pflag.NewFlagSet("epn-dashboard", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML configuration file")
	flagSet.StringVar(&logLevel, "log-level", "", "log level (overrides the configuration)")
	flagSet.StringVar(&addr, "addr", "", "HTTP listen address (overrides the configuration)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// Load .env file if it exists
	envErr := godotenv.Load()

	config, err := appconfig.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if addr != "" {
		config.Dashboard.ListenAddr = addr
	}
	if err := logging.SetupDefault(config.LogLevel); err != nil {
		return err
	}
	if envErr != nil {
		log.Debug().Err(envErr).Msg("could not load .env file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service, err := dashboard.NewService(ctx, config.DashboardConfig())
	if err != nil {
		return fmt.Errorf("create dashboard service: %w", err)
	}

	server := &http.Server{
		Addr:              config.Dashboard.ListenAddr,
		Handler:           service.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().
		Str("addr", server.Addr).
		Str("sessions", service.Sessions.Connection().Endpoint).
		Bool("publish", config.Dashboard.NATS.Enabled).
		Msg("starting EPN dashboard")

	serviceDone := make(chan error, 1)
	go func() {
		serviceDone <- service.Start(ctx)
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancel()
	if err := <-serviceDone; err != nil {
		log.Error().Err(err).Msg("dashboard service failed")
	}

	log.Info().Msg("EPN dashboard shutdown complete")
	return nil
}
