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
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/soubeek/epn-solutions/go/internal/appconfig"
	"github.com/soubeek/epn-solutions/go/internal/kiosk"
	"github.com/soubeek/epn-solutions/go/internal/kiosk/hostshell"
	"github.com/soubeek/epn-solutions/go/internal/logging"
	"github.com/soubeek/epn-solutions/go/internal/realtime/channel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, logLevel, controlAddr string
	var withChannel bool

	flagSet := pflag.NewFlagSet("epn-kiosk", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML configuration file")
	flagSet.StringVar(&logLevel, "log-level", "", "log level (overrides the configuration)")
	flagSet.StringVar(&controlAddr, "control-addr", "127.0.0.1:7421", "listen address of the local control API")
	flagSet.BoolVar(&withChannel, "channel", true, "keep a session channel to the server for remote commands")
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
	if err := logging.SetupDefault(config.LogLevel); err != nil {
		return err
	}
	if envErr != nil {
		log.Debug().Err(envErr).Msg("could not load .env file")
	}

	client := hostshell.NewClient(http.DefaultClient, config.Kiosk.HostShellURL)

	var opts []kiosk.Option
	if withChannel {
		chConfig, err := config.KioskChannelConfig()
		if err != nil {
			log.Warn().Err(err).Msg("no session channel endpoint, running without remote commands")
		} else {
			opts = append(opts, kiosk.WithChannel(channel.New(chConfig)))
		}
	}
	agent := kiosk.New(client, client, config.KioskConfig(), opts...)

	mux := http.NewServeMux()
	kiosk.NewControlHandler(agent).RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	server := &http.Server{
		Addr:              controlAddr,
		Handler:           c.Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info().
		Str("host_shell", config.Kiosk.HostShellURL).
		Str("control_addr", controlAddr).
		Msg("starting EPN kiosk agent")

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("control server failed")
			cancel()
		}
	}()

	agentDone := make(chan error, 1)
	go func() {
		agentDone <- agent.Run(ctx)
	}()

	var agentErr error
	agentStopped := false
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-ctx.Done():
	case agentErr = <-agentDone:
		agentStopped = true
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("control server shutdown failed")
	}

	cancel()
	if !agentStopped {
		agentErr = <-agentDone
	}
	if agentErr != nil {
		return fmt.Errorf("kiosk agent: %w", agentErr)
	}
	log.Info().Msg("EPN kiosk agent stopped")
	return nil
}
