package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spark-fund/backend/internal/http/dto"
)

// RateLimitMiddleware is a fixed window counter in Redis keyed by route and
// caller. Mounted after AuthMiddleware it counts per account, otherwise per
// IP.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := rateLimitKey(c)

		ctx := c.UserContext()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			return c.Next() // fail open
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error:     "rate limit exceeded",
				Code:      "RateLimited",
				RequestID: GetRequestID(c),
			})
		}

		return c.Next()
	}
}

func rateLimitKey(c *fiber.Ctx) string {
	caller := "ip:" + c.IP()
	if id := GetAccountID(c); id != uuid.Nil {
		caller = "acct:" + id.String()
	}
	return fmt.Sprintf("rl:%s:%s", c.Path(), caller)
}
