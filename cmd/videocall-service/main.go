/**
 * @description
 * This is the main entry point for the videocall-service. It wires the
 * configuration, database pool, Redis dedupe marker, the match and user
 * event consumers, and the HTTP server together and runs them until
 * shutdown. The service publishes nothing; it reacts to events.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: Database connection pooling.
 * - github.com/redis/go-redis/v9: Processed-event markers for consumers.
 * - internal/videocall/*: Service internals.
 * - pkg/rabbitmq: Event bus consumer.
 */
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/skillswap/skillswap-backend/internal/videocall/api"
	"github.com/skillswap/skillswap-backend/internal/videocall/app"
	"github.com/skillswap/skillswap-backend/internal/videocall/config"
	"github.com/skillswap/skillswap-backend/internal/videocall/store"
	"github.com/skillswap/skillswap-backend/pkg/dedupe"
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

	log.Printf("level=info component=bootstrap msg=\"starting videocall-service\" port=%s", cfg.ServerPort)

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

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBoot()
	if err := repository.EnsureSchema(bootCtx); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"schema setup failed\" err=%v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
		if parseErr != nil {
			log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; event dedupe disabled\" err=%v", parseErr)
		} else {
			redisClient = redis.NewClient(redisOptions)
			pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
			if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis ping failed; event dedupe disabled\" err=%v", pingErr)
				redisClient.Close()
				redisClient = nil
			} else {
				defer redisClient.Close()
				log.Println("level=info component=bootstrap msg=\"redis connected\"")
			}
			cancelPing()
		}
	}
	marker := dedupe.NewMarker(redisClient, cfg.RedisDedupePrefix)

	cascade := app.NewCascadeHandler(repository, marker)
	consumer, err := rmq.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"rabbitmq consumer connection failed\" err=%v", err)
	}
	defer consumer.Close()
	if err := consumer.ConsumeWithBindings(events.MatchEventsExchange, cfg.MatchEventQueue, cascade.MatchBindings()); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"match consumer setup failed\" err=%v", err)
	}
	if err := consumer.ConsumeWithBindings(events.UserEventsExchange, cfg.UserEventQueue, cascade.UserBindings()); err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"user consumer setup failed\" err=%v", err)
	}
	log.Printf("level=info component=bootstrap msg=\"consuming events\" match_queue=%s user_queue=%s", cfg.MatchEventQueue, cfg.UserEventQueue)

	handlers := api.NewSessionHandlers(repository)
	router := api.SessionRoutes(handlers)

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
	log.Println("level=info component=bootstrap msg=\"shutting down videocall-service\"")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("level=warn component=bootstrap msg=\"http shutdown failed\" err=%v", err)
	}
}
