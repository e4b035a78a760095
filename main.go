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

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-events/internal/auth"
	"ms-events/internal/cache"
	"ms-events/internal/config"
	"ms-events/internal/database/migrations"
	event_db "ms-events/internal/events/db"
	"ms-events/internal/events/event_api"
	events "ms-events/internal/events/service"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/sse"
	"ms-events/internal/stats"
	stats_api "ms-events/internal/stats/api"
	ticket_db "ms-events/internal/tickets/db"
	tickets "ms-events/internal/tickets/service"
	"ms-events/internal/tickets/ticket_api"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient, err := cache.InitializeViewCache(cfg.Redis.Addr, logger)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}

	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s", cfg.Redis.Addr))
	return bunDB, redisClient
}

func main() {
	logger := logger.NewLogger("events-service")
	defer logger.Close()

	logger.Info("APP", "Starting Events Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if os.Getenv("AUTO_MIGRATE") == "true" {
		runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
		if err := runner.RunMigrations(); err != nil {
			logger.Warn("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
		} else {
			logger.Info("DATABASE", "Schema migrations applied")
		}
	}

	var producer *kafka.Producer
	var ticketKafka tickets.KafkaPublisher
	var eventKafka events.KafkaPublisher
	if cfg.Kafka.Enabled {
		logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
		ticketKafka = producer
		eventKafka = producer
		defer producer.Close()

		requiredTopics := []string{
			cfg.Kafka.Topics.TicketIssued,
			cfg.Kafka.Topics.TicketCanceled,
			cfg.Kafka.Topics.TicketCheckedIn,
			cfg.Kafka.Topics.EventPublished,
			cfg.Kafka.Topics.EventCanceled,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		logger.Warn("KAFKA", "Kafka disabled, lifecycle events will not be published")
	}

	views := cache.NewViews(redisClient, cfg.Redis.ViewTTL)
	checkinFeed := sse.NewCheckinEventEmitter()

	ticketService := tickets.NewTicketService(&ticket_db.DB{Bun: bunDB}, ticketKafka, views, cfg.Tickets.EnforceCapacity)
	eventService := events.NewEventService(&event_db.DB{Bun: bunDB}, eventKafka, views)
	statsService := stats.NewService(bunDB)

	eventHandler := &event_api.Handler{
		EventService: eventService,
		Views:        views,
		Logger:       logger,
	}

	ticketHandler := &ticket_api.Handler{
		TicketService: ticketService,
		Logger:        logger,
		CheckinFeed:   checkinFeed,
	}

	statsHandler := &stats_api.Handler{
		Stats:       statsService,
		CheckinFeed: checkinFeed,
		Logger:      logger,
	}

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// --- Public Routes ---
		r.Get("/events", eventHandler.ListEvents)
		r.Get("/events/{eventID}", eventHandler.GetEvent)
		logger.Info("ROUTER", "Public event browsing registered under /api/events")

		// SSE streams authenticate from the token in the request itself;
		// EventSource clients can't pass the Authorization header the OIDC
		// middleware expects.
		r.Get("/stats/events/{eventID}/checkins/stream", statsHandler.StreamEventCheckins)
		r.Get("/stats/checkins/stream", statsHandler.StreamAllCheckins)
		logger.Info("ROUTER", "Check-in stream routes registered under /api/stats")

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware())
			logger.Info("AUTH", "OIDC middleware applied to protected API routes")

			r.Post("/events", eventHandler.CreateEvent)
			r.Get("/events/mine", eventHandler.ListMyEvents)
			r.Put("/events/{eventID}", eventHandler.UpdateEvent)
			r.Delete("/events/{eventID}", eventHandler.DeleteEvent)
			r.Post("/events/{eventID}/publish", eventHandler.PublishEvent)
			r.Post("/events/{eventID}/unpublish", eventHandler.UnpublishEvent)
			logger.Info("ROUTER", "Event management routes registered under /api/events")

			r.Post("/events/{eventID}/register", ticketHandler.RegisterForEvent)
			r.Get("/events/{eventID}/ticket", ticketHandler.ViewTicketForEvent)
			r.Get("/tickets", ticketHandler.ListMyTickets)
			r.Delete("/tickets/{ticketID}", ticketHandler.CancelTicket)
			r.Post("/checkin", ticketHandler.CheckinTicket)
			logger.Info("ROUTER", "Ticket lifecycle routes registered under /api")

			r.Get("/stats/dashboard", statsHandler.OrganizerDashboard)
			r.Get("/stats/events/{eventID}/attendees", statsHandler.EventAttendees)
			logger.Info("ROUTER", "Stats routes registered under /api/stats")
		})
	})

	// No WriteTimeout: the check-in SSE streams are long-lived responses.
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Events Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Events Service shutdown complete")
	}
}
