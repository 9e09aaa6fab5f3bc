package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fidcomex/sacbox/config"
	"github.com/fidcomex/sacbox/internal/broker/kafka"
	"github.com/fidcomex/sacbox/internal/services/audit"
	"github.com/fidcomex/sacbox/internal/storage/pgorders"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("config parse failed: %v", err))
	}

	topic := cfg.Kafka.ConversationHandledTopicName
	if topic == "" {
		topic = "conversation.handled"
	}
	group := cfg.SAC.KafkaConsumerGroup
	if group == "" {
		group = "sac-worker"
	}
	httpAddr := cfg.SAC.WorkerHTTPAddr
	if httpAddr == "" {
		httpAddr = ":8082"
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)
	defer st.Close()

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, topic, group)
	defer func() { _ = consumer.Close() }()

	worker := audit.New(st, consumer)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: httpAddr,
			worker:   worker,
		})
	}()

	workerErr := make(chan error, 1)
	go func() {
		workerErr <- worker.Run(ctx)
	}()

	var runErr error
	select {
	case runErr = <-httpErr:
	case runErr = <-workerErr:
	case <-ctx.Done():
		runErr = ctx.Err()
	}
	if runErr != nil && runErr != context.Canceled {
		panic(runErr)
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pgorders.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgorders.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}
