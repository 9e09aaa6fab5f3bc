package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fidcomex/sacbox/config"
	"github.com/fidcomex/sacbox/internal/api/sacapi"
	"github.com/fidcomex/sacbox/internal/broker/kafka"
	"github.com/fidcomex/sacbox/internal/cache/rediscache"
	"github.com/fidcomex/sacbox/internal/flow"
	"github.com/fidcomex/sacbox/internal/integrations/carrier"
	"github.com/fidcomex/sacbox/internal/integrations/carrier/fake"
	"github.com/fidcomex/sacbox/internal/integrations/carrier/intelipost"
	"github.com/fidcomex/sacbox/internal/integrations/chatapi"
	"github.com/fidcomex/sacbox/internal/services/orders"
	"github.com/fidcomex/sacbox/internal/storage/pgorders"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("config parse failed: %v", err))
	}

	httpAddr := cfg.SAC.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	topic := cfg.Kafka.ConversationHandledTopicName
	if topic == "" {
		topic = "conversation.handled"
	}
	cacheTTL := time.Duration(cfg.SAC.TrackingCacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	rlPerMin := int64(cfg.SAC.CarrierRateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 60
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st := mustOpenPostgresWithRetry(connString, 60*time.Second)
	defer st.Close()

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)
	rl := rediscache.NewRateLimiter(redisAddr)

	var carrierClient carrier.Client
	if cfg.SAC.CarrierBaseURL != "" && cfg.SAC.CarrierMode != "fake" {
		carrierClient = intelipost.New(cfg.SAC.CarrierBaseURL, cfg.SAC.CarrierAPIKey)
	} else {
		carrierClient = fake.New()
	}

	svc := orders.New(st, carrierClient, rc, cacheTTL).WithRateLimiter(rl, rlPerMin)

	hours, err := flow.NewBusinessHours(cfg.SAC.Timezone, cfg.SAC.BusinessOpen, cfg.SAC.BusinessClose, cfg.SAC.Holidays)
	if err != nil {
		panic(fmt.Sprintf("business hours config: %v", err))
	}

	chat := chatapi.New(cfg.SAC.MessagingBaseURL, cfg.SAC.MessagingToken, cfg.SAC.MessagingUserID,
		cfg.SAC.BotBaseURL, cfg.SAC.BotToken)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	producer := kafka.NewProducer(brokers)
	defer func() { _ = producer.Close() }()

	dispatcher := flow.NewDispatcher(svc, chat, chat, hours).
		WithProducer(producer, topic)

	api := sacapi.New(svc, dispatcher, st)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runSACAPI(ctx, sacAPIOpts{
		httpAddr:    httpAddr,
		swaggerPath: os.Getenv("swaggerPath"),
	}, api); err != nil && err != context.Canceled {
		panic(err)
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
