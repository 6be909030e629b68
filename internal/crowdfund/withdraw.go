package crowdfund

import (
	"context"

	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/models"
)

type WithdrawResult struct {
	Campaign *models.Campaign `json:"campaign"`
	Amount   int64            `json:"amount"`
}

// Withdraw pays the whole escrow balance to the creator once the deadline
// has passed and the goal was met, then marks the campaign finished.
//
// Checks run in this order: caller is creator, not yet withdrawn, deadline
// passed, goal met.
func (e *Engine) Withdraw(ctx context.Context, campaignID, callerID uuid.UUID) (*WithdrawResult, error) {
	var res WithdrawResult
	err := e.withTx(ctx, func(tx Tx) error {
		c, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if c.CreatorID != callerID {
			return ErrUnauthorizedCreator
		}
		if err := checkWithdrawable(c, e.Now()); err != nil {
			return err
		}

		balance, err := tx.GetBalance(ctx, c.VaultID)
		if err != nil {
			return err
		}
		if balance < c.FundingGoal {
			return ErrCampaignFailedNotEnoughFunds
		}

		authority, err := escrowAuthorityFor(c)
		if err != nil {
			return err
		}
		amount, err := authority.Release(ctx, tx)
		if err != nil {
			return err
		}

		if err := tx.SetCampaignFinished(ctx, c.ID); err != nil {
			return err
		}
		c.IsFinished = true

		res = WithdrawResult{Campaign: c, Amount: amount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// checkWithdrawable applies the status transition table. The deadline itself
// still belongs to the running campaign, so withdrawal needs it strictly
// passed.
func checkWithdrawable(c *models.Campaign, now int64) error {
	from := c.Status(now)
	if models.IsValidCampaignTransition(from, models.CampaignStatusWithdrawn) && c.DeadlinePassed(now) {
		return nil
	}
	if from == models.CampaignStatusWithdrawn {
		return ErrCampaignAlreadyWithdrawn
	}
	return ErrCampaignStillRunning
}
