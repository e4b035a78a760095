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
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-events/internal/auth"
	"ms-events/internal/cache"
	"ms-events/internal/config"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	ticket_db "ms-events/internal/tickets/db"
	tickets "ms-events/internal/tickets/service"
	"ms-events/internal/tickets/ticket_api"
)

// Standalone gate scanner service. Runs only the check-in endpoint so venue
// terminals can keep scanning even when the main API is being redeployed.
func main() {
	logger := logger.NewLogger("checkin-service")
	defer logger.Close()

	logger.Info("APP", "Starting Check-in Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}

	cfg := config.Load()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	// View cache is optional here: without Redis the scanner still works,
	// stale event pages just live out their TTL on the main service.
	var views *cache.Views
	if redisClient, err := cache.InitializeViewCache(cfg.Redis.Addr, logger); err == nil {
		views = cache.NewViews(redisClient, cfg.Redis.ViewTTL)
		defer redisClient.Close()
	} else {
		logger.Warn("CACHE", fmt.Sprintf("Redis unavailable, running without view invalidation: %v", err))
	}

	var ticketKafka tickets.KafkaPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics)
		ticketKafka = producer
		defer producer.Close()
	}

	ticketService := tickets.NewTicketService(&ticket_db.DB{Bun: bunDB}, ticketKafka, views, cfg.Tickets.EnforceCapacity)

	ticketHandler := &ticket_api.Handler{
		TicketService: ticketService,
		Logger:        logger,
	}

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		r.Post("/api/checkin", ticketHandler.CheckinTicket)
	})
	logger.Info("ROUTER", "Check-in endpoint registered at /api/checkin")

	port := os.Getenv("CHECKIN_PORT")
	if port == "" {
		port = ":8085"
	}

	server := &http.Server{
		Addr:    port,
		Handler: r,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Check-in Service running on %s", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Check-in Service shutdown complete")
	}
}
