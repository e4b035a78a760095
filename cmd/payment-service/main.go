package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"ms-events/internal/config"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	handlers "ms-events/internal/payment/handler"
	"ms-events/internal/payment/services"
	"ms-events/internal/payment/storage"
)

func main() {
	logger := logger.NewLogger("payment-service")
	defer logger.Close()

	logger.Info("APP", "Starting Payment Service initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}

	cfg := config.Load()

	store, err := storage.NewPostgreSQLStore(cfg.Database.DSN, logger)
	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to initialize charge storage: %v", err))
	}
	defer store.Close()

	gateway := services.NewMockGateway(os.Getenv("CHARGE_CURRENCY"), logger)
	chargeHandler := handlers.NewChargeHandler(gateway, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.TicketIssued, cfg.Kafka.GroupID)
		defer consumer.Close()

		logger.Info("KAFKA", fmt.Sprintf("Consuming %s as group %s", cfg.Kafka.Topics.TicketIssued, cfg.Kafka.GroupID))
		go consumer.StartTicketIssued(ctx, chargeHandler.HandleTicketIssued)
	} else {
		logger.Warn("KAFKA", "Kafka disabled, charges must be created via HTTP")
	}

	router := gin.Default()
	chargeHandler.RegisterRoutes(router)

	port := os.Getenv("PAYMENT_PORT")
	if port == "" {
		port = ":8086"
	}

	server := &http.Server{
		Addr:    port,
		Handler: router,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Payment Service running on %s", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Payment Service shutdown complete")
	}
}
