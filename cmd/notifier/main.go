package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/example/refurnish/internal/email"
	"github.com/example/refurnish/internal/infrastructure/kafka"
	"github.com/example/refurnish/internal/notification"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Configuration from environment variables
	kafkaBrokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	ordersTopic := getEnv("KAFKA_ORDERS_TOPIC", "refurnish-orders")
	consumerGroup := "refurnish-email-notifier"

	smtpHost := getEnv("SMTP_HOST", "localhost")
	smtpPort := getEnv("SMTP_PORT", "1025")
	smtpFrom := getEnv("SMTP_FROM", "noreply@refurnish.example.com")

	logger.Info("starting refurnish email notifier",
		"kafka", kafkaBrokers, "topic", ordersTopic, "group", consumerGroup,
		"smtp", smtpHost+":"+smtpPort, "from", smtpFrom)

	emailSvc := email.NewService(smtpHost, smtpPort, smtpFrom)
	handler := notification.NewHandler(emailSvc, logger)

	consumer := kafka.NewConsumer(kafkaBrokers, ordersTopic, consumerGroup, logger)
	defer consumer.Close()

	go func() {
		logger.Info("consuming order events")
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
			logger.Error("consumer error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	cancel()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
