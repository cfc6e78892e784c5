/**
 * @description
 * This is the main entry point for the scheduling-service. It runs the
 * appointment HTTP API, the match/user event consumers, and the cron
 * scheduler that sweeps stale pending matches (through matchmaking's
 * internal API) and completes past appointments.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: Database connection pooling.
 * - github.com/robfig/cron/v3: Scheduled sweeps.
 * - github.com/redis/go-redis/v9: Processed-event markers for consumers.
 * - internal/scheduling/*: Service internals.
 * - pkg/matchmakingclient: Internal API client for the expiry sweep.
 * - pkg/rabbitmq: Event bus consumer.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/skillswap/skillswap-backend/internal/scheduling/api"
	"github.com/skillswap/skillswap-backend/internal/scheduling/app"
	"github.com/skillswap/skillswap-backend/internal/scheduling/config"
	"github.com/skillswap/skillswap-backend/internal/scheduling/store"
	"github.com/skillswap/skillswap-backend/pkg/dedupe"
	"github.com/skillswap/skillswap-backend/pkg/events"
	"github.com/skillswap/skillswap-backend/pkg/matchmakingclient"
	rmq "github.com/skillswap/skillswap-backend/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found; using environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting scheduling-service", "port", cfg.ServerPort)

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	repository := store.NewPostgresRepository(dbpool)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()
	if err := repository.EnsureSchema(bootCtx); err != nil {
		logger.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			logger.Warn("redis url parse failed; event dedupe disabled", "error", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				logger.Warn("redis ping failed; event dedupe disabled", "error", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				logger.Info("redis connected")
			}
			cancelPing()
		}
	}
	marker := dedupe.NewMarker(redisClient, cfg.RedisDedupePrefix)

	cascade := app.NewCascadeHandler(repository, marker)
	consumer, err := rmq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("rabbitmq consumer connection failed", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()
	if err := consumer.ConsumeWithBindings(events.MatchEventsExchange, cfg.MatchEventQueue, cascade.MatchBindings()); err != nil {
		logger.Error("match consumer setup failed", "error", err)
		os.Exit(1)
	}
	if err := consumer.ConsumeWithBindings(events.UserEventsExchange, cfg.UserEventQueue, cascade.UserBindings()); err != nil {
		logger.Error("user consumer setup failed", "error", err)
		os.Exit(1)
	}
	logger.Info("consuming events", "match_queue", cfg.MatchEventQueue, "user_queue", cfg.UserEventQueue)

	matchClient := matchmakingclient.NewClient(cfg.MatchmakingServiceURL, cfg.InternalAPIKey)
	jobs := app.NewJobs(repository, matchClient, logger, cfg)
	scheduler := app.NewScheduler(jobs, logger, cfg)
	scheduler.Start()
	logger.Info("scheduler started")

	service := app.NewService(repository)
	handlers := api.NewAppointmentHandlers(service)
	router := api.AppointmentRoutes(handlers)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("http server listening", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received, stopping scheduler")

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", "error", err)
	}
	logger.Info("scheduling-service stopped gracefully")
}
