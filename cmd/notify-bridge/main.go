package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spark-fund/backend/internal/config"
	"github.com/spark-fund/backend/internal/db"
	"github.com/spark-fund/backend/internal/events"
	"github.com/spark-fund/backend/internal/metrics"
	"github.com/spark-fund/backend/internal/services"
	"go.uber.org/zap"
)

// Notify bridge: subscribes to campaign events in Redis and forwards each
// one to NOTIFY_WEBHOOK_URL.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := services.NewNotifyClient(cfg.NotifyWebhookURL, log)
	if !client.Enabled() {
		log.Fatal("NOTIFY_WEBHOOK_URL is not set")
	}

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	subscriber := events.NewRedisSubscriber(rdb, log)
	m := metrics.Crowdfund()

	log.Info("notify-bridge started")

	if err := subscriber.Subscribe(ctx, events.StreamCampaign, func(event events.Event) {
		sendCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()
		if err := client.Send(sendCtx, event); err != nil {
			m.ObserveWebhookFailure()
			log.Warn("failed to forward event", zap.String("type", event.Type), zap.Error(err))
			return
		}
		log.Debug("event forwarded", zap.String("type", event.Type))
	}); err != nil {
		log.Fatal("subscribe failed", zap.Error(err))
	}

	<-ctx.Done()
	log.Info("shutting down notify-bridge")
}
