package crowdfund

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/models"
)

// EscrowAuthority is the right to move value out of one campaign vault.
// It can only pay the campaign creator, and only the whole balance.
// Values are created by the withdrawal processor for a locked campaign.
type EscrowAuthority struct {
	campaignID uuid.UUID
	vaultID    uuid.UUID
	creatorID  uuid.UUID
}

func escrowAuthorityFor(c *models.Campaign) (*EscrowAuthority, error) {
	if c.VaultID != VaultAddress(c.ID) {
		return nil, fmt.Errorf("campaign %s: vault %s is not derived from campaign id", c.ID, c.VaultID)
	}
	return &EscrowAuthority{
		campaignID: c.ID,
		vaultID:    c.VaultID,
		creatorID:  c.CreatorID,
	}, nil
}

// Release empties the vault into the creator's account and returns the
// amount moved.
func (a *EscrowAuthority) Release(ctx context.Context, tx Tx) (int64, error) {
	balance, err := tx.GetBalance(ctx, a.vaultID)
	if err != nil {
		return 0, err
	}
	if err := transfer(ctx, tx, models.LedgerKindWithdrawal, a.vaultID, a.creatorID, balance, a.campaignID); err != nil {
		return 0, err
	}
	return balance, nil
}
