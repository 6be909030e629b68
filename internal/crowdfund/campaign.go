package crowdfund

import (
	"context"

	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/models"
)

type CreateCampaignParams struct {
	Seed        int64
	EndingAt    int64
	FundingGoal int64
}

// CreateCampaign opens a campaign for creator together with its empty escrow
// vault. A second call with the same seed and creator fails with
// ErrCampaignExists.
func (e *Engine) CreateCampaign(ctx context.Context, creatorID uuid.UUID, p CreateCampaignParams) (*models.Campaign, error) {
	if p.FundingGoal <= 0 {
		return nil, ErrInvalidFundingGoal
	}

	now := e.Now()
	if p.EndingAt <= now {
		return nil, ErrInvalidDeadline
	}

	id := CampaignAddress(p.Seed, creatorID)
	c := &models.Campaign{
		ID:          id,
		Seed:        p.Seed,
		CreatorID:   creatorID,
		VaultID:     VaultAddress(id),
		StartedAt:   now,
		EndingAt:    p.EndingAt,
		FundingGoal: p.FundingGoal,
	}

	err := e.withTx(ctx, func(tx Tx) error {
		if err := tx.InsertCampaign(ctx, c); err != nil {
			return err
		}
		return tx.CreateAccount(ctx, &models.Account{
			ID:   c.VaultID,
			Kind: models.AccountKindEscrow,
		})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
