package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spark-fund/backend/internal/config"
	"github.com/spark-fund/backend/internal/http/handlers"
	"github.com/spark-fund/backend/internal/middleware"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	accountHandler *handlers.AccountHandler,
	campaignHandler *handlers.CampaignHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")
	limiter := middleware.RateLimitMiddleware(rdb, cfg.RateLimitRPM, time.Minute)

	// Auth (public, limited per IP)
	api.Post("/auth/payload", limiter, authHandler.GeneratePayload)
	api.Post("/auth/ton", limiter, authHandler.TonLogin)

	// limited per account, so the limiter runs after auth
	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret, log), limiter)

	protected.Get("/me", accountHandler.GetMe)
	protected.Get("/me/ledger", accountHandler.GetLedger)

	// Campaigns
	protected.Post("/campaigns", campaignHandler.CreateCampaign)
	protected.Get("/campaigns", campaignHandler.ListCampaigns)
	protected.Get("/campaigns/:id", campaignHandler.GetCampaign)
	protected.Post("/campaigns/:id/pledges", campaignHandler.Pledge)
	protected.Post("/campaigns/:id/withdraw", campaignHandler.Withdraw)
	protected.Get("/campaigns/:id/backers", campaignHandler.ListBackers)
	protected.Get("/campaigns/:id/backers/:backer", campaignHandler.GetBacker)
	protected.Put("/campaigns/:id/page", campaignHandler.SetPage)
	protected.Get("/campaigns/:id/events", campaignHandler.GetEvents)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
