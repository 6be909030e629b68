package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/spark-fund/backend/internal/http/dto"
	"github.com/spark-fund/backend/internal/services"
	"github.com/spark-fund/backend/internal/ton"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
	log         *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// GeneratePayload выдаёт одноразовый nonce для ton_proof.
func (h *AuthHandler) GeneratePayload(c *fiber.Ctx) error {
	payload, err := h.authService.GeneratePayload(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PayloadResponse{Payload: payload})
}

func (h *AuthHandler) TonLogin(c *fiber.Ctx) error {
	var req ton.ProofData
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Address == "" || req.Proof.Payload == "" {
		return badRequest(c, "address and proof are required")
	}

	res, err := h.authService.Login(c.UserContext(), req)
	if err != nil {
		h.log.Debug("ton login failed", zap.String("address", req.Address), zap.Error(err))
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.AuthResponse{
		Token:   res.Token,
		Account: res.Account,
	})
}
