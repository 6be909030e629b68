package crowdfund

import (
	"context"

	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/models"
)

// Store runs fn inside one all-or-nothing transaction. If fn returns an
// error nothing it did is visible afterwards.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the record and balance surface available inside a transaction.
type Tx interface {
	// InsertCampaign fails with ErrCampaignExists if the id is taken.
	InsertCampaign(ctx context.Context, c *models.Campaign) error
	// LockCampaign loads a campaign and holds it until the transaction ends.
	LockCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	SetCampaignFinished(ctx context.Context, id uuid.UUID) error

	// GetBackerData returns nil, nil when the backer never pledged.
	GetBackerData(ctx context.Context, campaignID, backerID uuid.UUID) (*models.BackerData, error)
	InsertBackerData(ctx context.Context, bd *models.BackerData) error
	UpdateBackerData(ctx context.Context, bd *models.BackerData) error

	// CreateAccount fails with ErrAccountExists if the id is taken.
	CreateAccount(ctx context.Context, a *models.Account) error
	// GetAccountKind fails with ErrAccountNotFound for unknown ids.
	GetAccountKind(ctx context.Context, accountID uuid.UUID) (string, error)
	GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error)
	// Debit fails with ErrInsufficientFunds and leaves the balance unchanged
	// when the account holds less than amount.
	Debit(ctx context.Context, accountID uuid.UUID, amount int64) error
	Credit(ctx context.Context, accountID uuid.UUID, amount int64) error
	// InsertLedgerEntry fails with ErrDuplicateExternalRef when a non-nil
	// ExternalRef was already recorded.
	InsertLedgerEntry(ctx context.Context, e *models.LedgerEntry) error
}
