/**
 * @description
 * This is the main entry point for the backoffice-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, external API clients, message brokers, repositories, the core
 * application service, and the HTTP server. It wires everything together and
 * starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/identityclient: Client for the identity service.
 * - pkg/rabbitmq: Client for RabbitMQ.
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

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/investa/backoffice-service/internal/api"
	"github.com/investa/backoffice-service/internal/app"
	"github.com/investa/backoffice-service/internal/config"
	"github.com/investa/backoffice-service/internal/feed"
	"github.com/investa/backoffice-service/internal/store"
	"github.com/investa/backoffice-service/pkg/identityclient"
	"github.com/investa/backoffice-service/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.InternalAPIKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"internal api key must be configured\" env=INTERNAL_API_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting backoffice-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	// Tune the pool for a shared back-office workload.
	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer for change notifications and domain
	// events. A missing broker degrades live feeds, never writes.
	var producer rabbitmq.Publisher
	eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		producer = eventProducer
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
	}

	// The notifier backs live feed subscriptions. Without it one-shot reads
	// still work; subscriptions fail at open time.
	var notifier feed.Notifier
	changeNotifier, err := rabbitmq.NewChangeNotifier(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq notifier unavailable; live feeds disabled\" err=%v", err)
	} else {
		defer changeNotifier.Close()
		notifier = changeNotifier
		log.Println("level=info component=bootstrap msg=\"rabbitmq notifier connected\"")
	}

	// Initialize the client for the identity service. Missing identity config
	// should not prevent boot; profile enrichment will degrade.
	var identityClient *identityclient.Client
	if strings.TrimSpace(cfg.IdentityAPIBaseURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"identity client not configured; profile enrichment disabled\" env=IDENTITY_API_BASE_URL")
	} else {
		identityClient = identityclient.NewClient(cfg.IdentityAPIBaseURL, cfg.IdentityAPIKey)
	}

	var redisClient *redis.Client
	rateLimitingEnabled := cfg.WithdrawalSubmitRateLimitPerMinute > 0 || cfg.MessageSendRateLimitPerMinute > 0
	if rateLimitingEnabled {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	backofficeService := app.NewService(
		repository,
		producer,
		notifier,
		cfg.FallbackAdminID,
		cfg.FallbackAdminName,
	)
	if redisClient != nil {
		backofficeService.ConfigureRateLimiting(
			app.NewRedisRateLimiter(redisClient, cfg.RedisRateLimitPrefix),
			app.Limits{
				WithdrawalSubmitsPerMinute: cfg.WithdrawalSubmitRateLimitPerMinute,
				MessageSendsPerMinute:      cfg.MessageSendRateLimitPerMinute,
			},
		)
	}

	// Initialize the API handlers.
	var profileLookup api.ProfileLookup
	if identityClient != nil {
		profileLookup = identityClient
	}
	backofficeHandlers := api.NewBackofficeHandlers(backofficeService, profileLookup)
	streamHandlers := api.NewStreamHandlers(backofficeService)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/backoffice", api.BackofficeRoutes(backofficeHandlers, streamHandlers, cfg.IdentityJWKSURL, cfg.InternalAPIKey))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
