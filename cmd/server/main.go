package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/api"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/audit"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/config"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/events"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/events/kafka"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/events/rabbitmq"
	interfaces "github.com/sheikh-saqib/webhook-transaction-processor/internal/interfaces"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/intake"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/queue"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/status"
	memorystore "github.com/sheikh-saqib/webhook-transaction-processor/internal/storage/memory"
	postgresstore "github.com/sheikh-saqib/webhook-transaction-processor/internal/storage/postgres"
	redisstore "github.com/sheikh-saqib/webhook-transaction-processor/internal/storage/redis"
	sqlitestore "github.com/sheikh-saqib/webhook-transaction-processor/internal/storage/sqlite"
	"github.com/sheikh-saqib/webhook-transaction-processor/internal/worker"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()
	ctx := context.Background()

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open transaction store")
	}
	defer cleanup()
	log.Info().Str("driver", cfg.StoreDriver).Msg("transaction store ready")

	publisher, pubCleanup, err := openPublisher(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.PublisherDriver).Msg("failed to open event publisher")
	}
	defer pubCleanup()

	var auditLog interfaces.AuditLog
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to MongoDB")
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				log.Warn().Err(err).Msg("failed to disconnect from MongoDB")
			}
		}()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("MongoDB is not responding")
		}
		cancel()
		auditLog = audit.NewMongoAuditLog(mongoClient, cfg.MongoDBName)
		log.Info().Msg("intake audit trail enabled")
	}

	q := queue.New()
	gateway := intake.NewGateway(store, q, auditLog, log.With().Str("component", "intake").Logger())
	statusSvc := status.NewService(store)

	processor := worker.NewProcessor(store, q, publisher, cfg.ProcessingDelay,
		log.With().Str("component", "worker").Logger())
	processor.Start()

	handler := api.NewHandler(gateway, statusSvc, log.With().Str("component", "api").Logger())
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt, syscall.SIGTERM)
	<-stopChan

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown failed")
	}
	q.Close()
	if err := processor.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("processor shutdown timed out")
	}
}

// openStore builds the configured TransactionStore and a cleanup for its
// underlying connection.
func openStore(ctx context.Context, cfg config.Config) (interfaces.TransactionStore, func(), error) {
	noop := func() {}

	switch cfg.StoreDriver {
	case config.StoreMemory:
		return memorystore.NewMemoryTransactionStore(), noop, nil

	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		store := postgresstore.NewPostgresTransactionStore(db)
		if err := store.Init(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		return store, func() { db.Close() }, nil

	case config.StoreSQLite:
		db, err := sql.Open("sqlite3", cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		store := sqlitestore.NewSQLiteTransactionStore(db)
		if err := store.Init(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		return store, func() { db.Close() }, nil

	case config.StoreRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, err
		}
		return redisstore.NewRedisTransactionStore(client), func() { client.Close() }, nil
	}

	return nil, noop, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openPublisher builds the configured EventPublisher and a cleanup for its
// connection.
func openPublisher(cfg config.Config) (interfaces.EventPublisher, func(), error) {
	noop := func() {}

	switch cfg.PublisherDriver {
	case config.PublisherNone:
		return events.NoopPublisher{}, noop, nil

	case config.PublisherKafka:
		publisher := kafka.NewPublisher(cfg.KafkaBrokers)
		return publisher, func() {
			if err := publisher.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close kafka writer")
			}
		}, nil

	case config.PublisherRabbitMQ:
		conn, err := amqp.Dial(cfg.RabbitMQURL)
		if err != nil {
			return nil, noop, err
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, noop, err
		}
		publisher, err := rabbitmq.NewPublisher(ch)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, noop, err
		}
		return publisher, func() {
			ch.Close()
			conn.Close()
		}, nil
	}

	return nil, noop, fmt.Errorf("unknown publisher driver %q", cfg.PublisherDriver)
}
