/**
 * @description
 * This is the main entry point for the users-service. It wires the
 * configuration, database pool, outbox dispatcher, replay producer, and
 * HTTP server together and runs them until shutdown. The users-service
 * publishes profile events but consumes nothing.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: Database connection pooling.
 * - internal/users/*: Service internals.
 * - internal/eventlog, internal/outbox: Event log and outbox plumbing.
 * - pkg/rabbitmq: Event bus producer.
 */
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/skillswap/skillswap-backend/internal/eventlog"
	"github.com/skillswap/skillswap-backend/internal/outbox"
	"github.com/skillswap/skillswap-backend/internal/users/api"
	"github.com/skillswap/skillswap-backend/internal/users/app"
	"github.com/skillswap/skillswap-backend/internal/users/config"
	"github.com/skillswap/skillswap-backend/internal/users/store"
	"github.com/skillswap/skillswap-backend/pkg/events"
	rmq "github.com/skillswap/skillswap-backend/pkg/rabbitmq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found; using environment variables\"")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting users-service\" port=%s", cfg.ServerPort)

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	repository := store.NewPostgresRepository(dbpool)
	eventLog := eventlog.NewPostgresLog(dbpool)
	outboxStore := outbox.NewPostgresStore(dbpool)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()
	if err := repository.EnsureSchema(bootCtx); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"schema setup failed\" err=%v", err)
	}
	if err := eventLog.EnsureSchema(bootCtx); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"event log schema setup failed\" err=%v", err)
	}
	if err := outboxStore.EnsureSchema(bootCtx); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"outbox schema setup failed\" err=%v", err)
	}

	// Outbox dispatcher pushes user events onto the bus.
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	dispatcher := outbox.NewDispatcher(outboxStore, cfg.RabbitMQURL)
	go dispatcher.Run(dispatcherCtx)

	// Replay producer is separate from the dispatcher's connection.
	var replayProducer rmq.Publisher
	if producer, prodErr := rmq.NewEventProducer(cfg.RabbitMQURL); prodErr != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; replay degraded\" err=%v", prodErr)
		replayProducer = &rmq.FallbackProducer{}
	} else {
		defer producer.Close()
		replayProducer = producer
	}
	replayer := eventlog.NewReplayer(eventLog, replayProducer, events.UserEventsExchange)

	userService := app.NewService(repository)
	handlers := api.NewUserHandlers(userService, replayer)
	router := api.UserRoutes(handlers, cfg.InternalAPIKey)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		log.Printf("level=info component=bootstrap msg=\"http server listening\" port=%s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=bootstrap msg=\"http server failed\" err=%v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("level=info component=bootstrap msg=\"shutting down users-service\"")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"http shutdown failed\" err=%v", err)
	}
}
