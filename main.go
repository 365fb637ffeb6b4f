package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lab1702/gunnery/config"
	"github.com/lab1702/gunnery/logging"
	"github.com/lab1702/gunnery/recorder"
	"github.com/lab1702/gunnery/server"
	"github.com/rs/zerolog/log"
)

func main() {
	configDir := flag.String("config", ".", "Directory containing "+config.FileName)
	port := flag.String("port", "", "Server port (overrides config)")
	noColor := flag.Bool("no-color", false, "Disable colored console logs")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *port != "" {
		cfg.Port = *port
	}

	logger, err := logging.New(logging.Options{
		Level:          cfg.LogLevel,
		NoColor:        *noColor,
		GraylogEnabled: cfg.Graylog.Enabled,
		GraylogAddress: cfg.Graylog.Address,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	policy, err := cfg.Policy()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid targeting config")
	}

	var shots server.ShotStore
	var store *recorder.Store
	if cfg.Recorder.Enabled {
		store, err = recorder.Open(recorder.Options{
			Driver: cfg.Recorder.Driver,
			Path:   cfg.Recorder.Path,
			DSN:    cfg.PostgresDSN(),
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("driver", cfg.Recorder.Driver).Msg("Failed to open shot recorder")
		}
		shots = store
	}

	gunnery, err := server.NewServer(server.Options{
		Policy:         policy,
		TrackMaxAge:    cfg.Targeting.TrackMaxAge,
		RadarOvershoot: cfg.Radar.Overshoot,
		AllowedOrigins: cfg.Websocket.AllowedOrigins,
		Shots:          shots,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create server")
	}
	go gunnery.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gunnery.HandleWebSocket)
	mux.HandleFunc("/api/stats", gunnery.HandleStats)
	mux.HandleFunc("/api/shots", gunnery.HandleShots)
	mux.HandleFunc("/api/shots/summary", gunnery.HandleShotSummary)
	mux.HandleFunc("/health", server.HandleHealth)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info().
		Str("port", cfg.Port).
		Str("policy", policy.Power.String()).
		Bool("lead", policy.Lead).
		Bool("recorder", cfg.Recorder.Enabled).
		Msg("Gunnery server running")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
	}

	// Returns once every queued shot has reached the store
	gunnery.Shutdown()

	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close shot recorder")
		}
	}

	logger.Info().Msg("Server stopped")
}
