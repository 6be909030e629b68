package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spark-fund/backend/internal/config"
	"github.com/spark-fund/backend/internal/db"
	"github.com/spark-fund/backend/internal/events"
	"github.com/spark-fund/backend/internal/jobs"
	"github.com/spark-fund/backend/internal/metrics"
	"github.com/spark-fund/backend/internal/pageparser"
	"github.com/spark-fund/backend/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	campaignRepo := repositories.NewCampaignRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)
	m := metrics.Crowdfund()

	sweeper := jobs.NewDeadlineSweeper(campaignRepo, jobs.NewRedisMarker(rdb), publisher, m, unixNow, log)
	parser := pageparser.NewParser(cfg.PageFetchTimeoutMS, cfg.PageFetchMaxRetries, cfg.PageFetchRPS, log)
	refresher := jobs.NewPageRefresher(campaignRepo, parser, int(cfg.PageRefreshInterval.Seconds()), m, log)

	// health + metrics
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	log.Info("worker started",
		zap.Duration("deadline_sweep", cfg.DeadlineSweepInterval),
		zap.Duration("page_refresh", cfg.PageRefreshInterval),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return jobs.Every(gctx, "deadline_sweep", cfg.DeadlineSweepInterval, log, func(ctx context.Context) error {
			_, err := sweeper.Run(ctx)
			return err
		})
	})
	g.Go(func() error {
		return jobs.Every(gctx, "page_refresh", cfg.PageRefreshInterval, log, func(ctx context.Context) error {
			n, err := refresher.Run(ctx)
			if n > 0 {
				log.Info("landing pages refreshed", zap.Int("count", n))
			}
			return err
		})
	})
	g.Go(func() error {
		return app.Listen(fmt.Sprintf(":%s", cfg.WorkerPort))
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error("worker stopped", zap.Error(err))
	}
	log.Info("shutting down worker")
}

func unixNow() int64 { return time.Now().Unix() }
