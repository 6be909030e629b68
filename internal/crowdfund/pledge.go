package crowdfund

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/models"
)

type PledgeResult struct {
	BackerData    *models.BackerData `json:"backer_data"`
	EscrowBalance int64              `json:"escrow_balance"`
}

// Pledge moves amount from the backer into the campaign vault and adds it to
// the backer's running total.
func (e *Engine) Pledge(ctx context.Context, campaignID, backerID uuid.UUID, amount int64) (*PledgeResult, error) {
	if amount <= 0 {
		return nil, ErrPledgeAmountZero
	}

	var res PledgeResult
	err := e.withTx(ctx, func(tx Tx) error {
		c, err := tx.LockCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if !c.AcceptsPledges(e.Now()) {
			return ErrCampaignHasFinished
		}

		if err := transfer(ctx, tx, models.LedgerKindPledge, backerID, c.VaultID, amount, c.ID); err != nil {
			return err
		}

		bd, err := tx.GetBackerData(ctx, c.ID, backerID)
		if err != nil {
			return err
		}
		if bd == nil {
			bd = &models.BackerData{
				ID:           BackerDataAddress(backerID, c.ID),
				CampaignID:   c.ID,
				BackerID:     backerID,
				TotalPledged: amount,
			}
			if err := tx.InsertBackerData(ctx, bd); err != nil {
				return err
			}
		} else {
			if bd.TotalPledged > math.MaxInt64-amount {
				return ErrAmountOverflow
			}
			bd.TotalPledged += amount
			if err := tx.UpdateBackerData(ctx, bd); err != nil {
				return err
			}
		}

		balance, err := tx.GetBalance(ctx, c.VaultID)
		if err != nil {
			return err
		}
		res = PledgeResult{BackerData: bd, EscrowBalance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}
