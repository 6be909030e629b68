package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/spark-fund/backend/internal/crowdfund"
	"github.com/spark-fund/backend/internal/http/dto"
	"github.com/spark-fund/backend/internal/middleware"
	"github.com/spark-fund/backend/internal/services"
	"go.uber.org/zap"
)

var codeStatus = map[string]int{
	crowdfund.ErrPledgeAmountZero.Code:   fiber.StatusBadRequest,
	crowdfund.ErrInvalidFundingGoal.Code: fiber.StatusBadRequest,
	crowdfund.ErrInvalidDeadline.Code:    fiber.StatusBadRequest,
	crowdfund.ErrInvalidAmount.Code:      fiber.StatusBadRequest,

	crowdfund.ErrUnauthorizedCreator.Code: fiber.StatusForbidden,

	crowdfund.ErrCampaignNotFound.Code: fiber.StatusNotFound,
	crowdfund.ErrAccountNotFound.Code:  fiber.StatusNotFound,

	crowdfund.ErrCampaignExists.Code:           fiber.StatusConflict,
	crowdfund.ErrCampaignAlreadyWithdrawn.Code: fiber.StatusConflict,
	crowdfund.ErrAccountExists.Code:            fiber.StatusConflict,
	crowdfund.ErrDuplicateExternalRef.Code:     fiber.StatusConflict,

	crowdfund.ErrCampaignHasFinished.Code:          fiber.StatusUnprocessableEntity,
	crowdfund.ErrCampaignStillRunning.Code:         fiber.StatusUnprocessableEntity,
	crowdfund.ErrCampaignFailedNotEnoughFunds.Code: fiber.StatusUnprocessableEntity,
	crowdfund.ErrInsufficientFunds.Code:            fiber.StatusUnprocessableEntity,
	crowdfund.ErrAmountOverflow.Code:               fiber.StatusUnprocessableEntity,
	crowdfund.ErrInvalidDepositTarget.Code:         fiber.StatusUnprocessableEntity,
}

// writeError renders err as {error, code, request_id}. Errors without a
// known kind become a 500 with a generic message.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	reqID := middleware.GetRequestID(c)

	if code := crowdfund.Code(err); code != "" {
		status, ok := codeStatus[code]
		if !ok {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(dto.ErrorResponse{Error: err.Error(), Code: code, RequestID: reqID})
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "not found", Code: "NotFound", RequestID: reqID})
	case errors.Is(err, services.ErrInvalidProof):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error(), Code: "InvalidProof", RequestID: reqID})
	case errors.Is(err, services.ErrInvalidPageURL):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error(), Code: "InvalidPageURL", RequestID: reqID})
	case errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error(), Code: "InvalidStatus", RequestID: reqID})
	}

	log.Error("request failed", zap.String("request_id", reqID), zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal error", Code: "Internal", RequestID: reqID})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error:     msg,
		Code:      "BadRequest",
		RequestID: middleware.GetRequestID(c),
	})
}
