package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spark-fund/backend/internal/config"
	"github.com/spark-fund/backend/internal/crowdfund"
	"github.com/spark-fund/backend/internal/db"
	"github.com/spark-fund/backend/internal/events"
	apphttp "github.com/spark-fund/backend/internal/http"
	"github.com/spark-fund/backend/internal/http/handlers"
	"github.com/spark-fund/backend/internal/metrics"
	"github.com/spark-fund/backend/internal/repositories"
	"github.com/spark-fund/backend/internal/services"
	"github.com/spark-fund/backend/internal/ton"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool); err != nil {
		log.Warn("pool metrics not registered", zap.Error(err))
	}

	if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	campaignRepo := repositories.NewCampaignRepo(pool)
	accountRepo := repositories.NewAccountRepo(pool)
	proofRepo := repositories.NewProofRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	engine := crowdfund.NewEngine(repositories.NewStore(pool))
	m := metrics.Crowdfund()
	campaignService := services.NewCampaignService(engine, campaignRepo, auditRepo, publisher, m, log)
	accountService := services.NewAccountService(engine, accountRepo, auditRepo, publisher, m, log)
	authService := services.NewAuthService(proofRepo, accountRepo, auditRepo, ton.NewVerifier(cfg.TONProofAllowedDomains), services.AuthConfig{
		JWTSecret:     cfg.JWTSecret,
		JWTExpiration: cfg.JWTExpiration,
		ProofTTL:      cfg.TONProofTTL,
		Network:       cfg.TONNetwork,
	}, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, log)
	accountHandler := handlers.NewAccountHandler(accountService, cfg.TONHotWalletAddress, log)
	campaignHandler := handlers.NewCampaignHandler(campaignService, log)
	wsHub := handlers.NewWSHub(cfg.JWTSecret, subscriber, log)

	wsHub.Start(ctx)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, accountHandler, campaignHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
