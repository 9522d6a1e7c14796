package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/metisguard/metis/internal/auth"
	"github.com/metisguard/metis/internal/config"
	"github.com/metisguard/metis/internal/domain"
	"github.com/metisguard/metis/internal/governance"
	"github.com/metisguard/metis/internal/hub"
	"github.com/metisguard/metis/internal/notify"
	"github.com/metisguard/metis/internal/proxy"
	"github.com/metisguard/metis/internal/server"
	"github.com/metisguard/metis/internal/store/postgres"
	redisstore "github.com/metisguard/metis/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("METIS_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("METIS_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL and ensure the schema exists.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if err = store.Migrate(ctx); err != nil {
		return err
	}

	// Connect to Redis.
	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer pubsub.Close()

	// Observer hub over the Redis event bus.
	violationHub := hub.New(pubsub, store.Violations(), cfg.Governance.Backlog)

	// Optional Slack alerting for severe violations.
	sinks := governance.Fanout{violationHub}
	if cfg.Slack.BotToken != "" {
		alerter := notify.NewSlackAlerter(
			slacklib.New(cfg.Slack.BotToken),
			cfg.Slack.Channel,
			domain.Severity(cfg.Slack.MinSeverity),
		)
		sinks = append(sinks, alerter)
		log.Info().Str("channel", cfg.Slack.Channel).Msg("Slack alerting enabled")
	}

	// The governance engine: evaluation, anomaly detection, fan-out.
	detector := governance.NewDetector(store.Actions(), governance.BehaviorConfig{
		RapidThreshold:    cfg.Governance.RapidThreshold,
		RapidWindow:       cfg.Governance.RapidWindow,
		BusinessStartHour: cfg.Governance.BusinessStartHour,
		BusinessEndHour:   cfg.Governance.BusinessEndHour,
	}, nil)

	engine := governance.NewEngine(
		store.Agents(),
		store.Actions(),
		store.Violations(),
		detector,
		sinks,
		cfg.Governance.Backlog,
	)

	// Traffic classifier for intercepted outbound calls.
	classifier := proxy.New(proxy.Endpoints{
		Authorized:   cfg.Proxy.AuthorizedEndpoints,
		Unauthorized: cfg.Proxy.UnauthorizedEndpoints,
	}, engine, &http.Client{Timeout: cfg.Proxy.RelayTimeout})

	// Admin token service.
	authSvc := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.AdminPasswordHash, cfg.Auth.TokenTTL)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, engine, violationHub, authSvc, classifier)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
