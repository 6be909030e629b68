package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/crowdfund"
	"github.com/spark-fund/backend/internal/http/dto"
	"github.com/spark-fund/backend/internal/middleware"
	"github.com/spark-fund/backend/internal/repositories"
	"github.com/spark-fund/backend/internal/services"
	"github.com/spark-fund/backend/internal/ton"
	"go.uber.org/zap"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
	log             *zap.Logger
}

func NewCampaignHandler(campaignService *services.CampaignService, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService, log: log}
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	goal := req.FundingGoal
	if goal == 0 && req.FundingGoalTON != "" {
		n, err := ton.ParseTONToNano(req.FundingGoalTON)
		if err != nil {
			return badRequest(c, err.Error())
		}
		goal = n
	}

	creatorID := middleware.GetAccountID(c)
	campaign, err := h.campaignService.Create(c.UserContext(), creatorID, crowdfund.CreateCampaignParams{
		Seed:        req.Seed,
		EndingAt:    req.EndingAt,
		FundingGoal: goal,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	campaign, err := h.campaignService.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: campaign})
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	limit, offset := paging(c)
	filter := repositories.CampaignFilter{Limit: limit, Offset: offset}

	if v := c.Query("creator"); v != "" {
		if v == "me" {
			id := middleware.GetAccountID(c)
			filter.CreatorID = &id
		} else {
			id, err := uuid.Parse(v)
			if err != nil {
				return badRequest(c, "invalid creator id")
			}
			filter.CreatorID = &id
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}

	campaigns, err := h.campaignService.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: campaigns})
}

func (h *CampaignHandler) Pledge(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	var req dto.PledgeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	amount := req.Amount
	if amount == 0 && req.AmountTON != "" {
		n, err := ton.ParseTONToNano(req.AmountTON)
		if err != nil {
			return badRequest(c, err.Error())
		}
		amount = n
	}

	backerID := middleware.GetAccountID(c)
	res, err := h.campaignService.Pledge(c.UserContext(), id, backerID, amount)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

func (h *CampaignHandler) Withdraw(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	callerID := middleware.GetAccountID(c)
	res, err := h.campaignService.Withdraw(c.UserContext(), id, callerID)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: res})
}

func (h *CampaignHandler) ListBackers(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	limit, offset := paging(c)
	backers, err := h.campaignService.ListBackers(c.UserContext(), id, limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: backers})
}

func (h *CampaignHandler) GetBacker(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}
	backerID, err := uuid.Parse(c.Params("backer"))
	if err != nil {
		return badRequest(c, "invalid backer id")
	}

	bd, err := h.campaignService.GetBacker(c.UserContext(), id, backerID)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: bd})
}

func (h *CampaignHandler) SetPage(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	var req dto.SetPageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	page, err := h.campaignService.SetPage(c.UserContext(), id, middleware.GetAccountID(c), req.URL)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: page})
}

func (h *CampaignHandler) GetEvents(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid campaign id")
	}

	limit, offset := paging(c)
	logs, err := h.campaignService.Events(c.UserContext(), id, limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: logs})
}

func paging(c *fiber.Ctx) (limit, offset int) {
	limit = 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
