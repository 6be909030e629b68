package crowdfund

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/models"
)

var errNilStore = errors.New("crowdfund engine: store not configured")

// Engine executes the campaign state transitions: create, pledge and
// withdraw. Each call is one transaction on the configured Store.
type Engine struct {
	store Store
	nowFn func() int64
}

func NewEngine(store Store) *Engine {
	return &Engine{
		store: store,
		nowFn: func() int64 { return time.Now().Unix() },
	}
}

// SetNowFunc overrides the clock. Passing nil restores wall-clock time.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// Now returns the engine's clock reading in unix seconds.
func (e *Engine) Now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) withTx(ctx context.Context, fn func(tx Tx) error) error {
	if e == nil || e.store == nil {
		return errNilStore
	}
	return e.store.WithTx(ctx, fn)
}

// transfer moves amount between two accounts and journals it.
func transfer(ctx context.Context, tx Tx, kind string, from, to uuid.UUID, amount int64, campaignID uuid.UUID) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	if err := tx.Debit(ctx, from, amount); err != nil {
		return err
	}
	if err := tx.Credit(ctx, to, amount); err != nil {
		return err
	}
	return tx.InsertLedgerEntry(ctx, &models.LedgerEntry{
		ID:          uuid.New(),
		Kind:        kind,
		FromAccount: &from,
		ToAccount:   to,
		Amount:      amount,
		CampaignID:  &campaignID,
	})
}

// Deposit credits a user account with value that arrived from outside the
// ledger. externalRef makes the deposit idempotent. Escrow vaults only
// receive value through Pledge.
func (e *Engine) Deposit(ctx context.Context, accountID uuid.UUID, amount int64, externalRef string) (*models.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	entry := &models.LedgerEntry{
		ID:        uuid.New(),
		Kind:      models.LedgerKindDeposit,
		ToAccount: accountID,
		Amount:    amount,
	}
	if externalRef != "" {
		entry.ExternalRef = &externalRef
	}

	err := e.withTx(ctx, func(tx Tx) error {
		kind, err := tx.GetAccountKind(ctx, accountID)
		if err != nil {
			return err
		}
		if kind != models.AccountKindUser {
			return ErrInvalidDepositTarget
		}
		if err := tx.InsertLedgerEntry(ctx, entry); err != nil {
			return err
		}
		return tx.Credit(ctx, accountID, amount)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
