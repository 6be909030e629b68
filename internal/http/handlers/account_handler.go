package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/spark-fund/backend/internal/http/dto"
	"github.com/spark-fund/backend/internal/middleware"
	"github.com/spark-fund/backend/internal/services"
	"github.com/spark-fund/backend/internal/ton"
	"go.uber.org/zap"
)

type AccountHandler struct {
	accountService *services.AccountService
	hotWallet      string
	log            *zap.Logger
}

func NewAccountHandler(accountService *services.AccountService, hotWallet string, log *zap.Logger) *AccountHandler {
	return &AccountHandler{accountService: accountService, hotWallet: hotWallet, log: log}
}

// GetMe returns the caller's account together with deposit instructions.
func (h *AccountHandler) GetMe(c *fiber.Ctx) error {
	id := middleware.GetAccountID(c)
	acc, err := h.accountService.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(dto.AccountResponse{
		Account:    acc,
		BalanceTON: ton.FormatNano(acc.Balance),
		Deposit: dto.DepositInfoResponse{
			WalletAddress: h.hotWallet,
			Memo:          services.DepositMemo(acc.ID),
		},
	})
}

func (h *AccountHandler) GetLedger(c *fiber.Ctx) error {
	limit, offset := paging(c)
	entries, err := h.accountService.Ledger(c.UserContext(), middleware.GetAccountID(c), limit, offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}
