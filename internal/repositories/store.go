package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spark-fund/backend/internal/crowdfund"
	"github.com/spark-fund/backend/internal/models"
)

// Store is the PostgreSQL implementation of crowdfund.Store. Every WithTx
// call is one database transaction at read committed isolation; campaign
// rows are serialized with SELECT ... FOR UPDATE.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx crowdfund.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", mapPgError(err))
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) InsertCampaign(ctx context.Context, c *models.Campaign) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO campaigns (id, seed, creator_id, vault_id, started_at, ending_at, funding_goal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, c.ID, c.Seed, c.CreatorID, c.VaultID, c.StartedAt, c.EndingAt, c.FundingGoal).Scan(&c.CreatedAt)
	return mapPgError(err)
}

func (t *pgTx) LockCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var c models.Campaign
	err := t.tx.QueryRow(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns WHERE id = $1
		FOR UPDATE
	`, id).Scan(campaignDest(&c)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, crowdfund.ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) SetCampaignFinished(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `UPDATE campaigns SET is_finished = true WHERE id = $1 AND is_finished = false`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return crowdfund.ErrCampaignAlreadyWithdrawn
	}
	return nil
}

func (t *pgTx) GetBackerData(ctx context.Context, campaignID, backerID uuid.UUID) (*models.BackerData, error) {
	var bd models.BackerData
	err := t.tx.QueryRow(ctx, `
		SELECT id, campaign_id, backer_id, total_pledged, created_at, updated_at
		FROM backer_data WHERE campaign_id = $1 AND backer_id = $2
	`, campaignID, backerID).Scan(&bd.ID, &bd.CampaignID, &bd.BackerID, &bd.TotalPledged, &bd.CreatedAt, &bd.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bd, nil
}

func (t *pgTx) InsertBackerData(ctx context.Context, bd *models.BackerData) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO backer_data (id, campaign_id, backer_id, total_pledged)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, bd.ID, bd.CampaignID, bd.BackerID, bd.TotalPledged).Scan(&bd.CreatedAt, &bd.UpdatedAt)
	return mapPgError(err)
}

func (t *pgTx) UpdateBackerData(ctx context.Context, bd *models.BackerData) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE backer_data SET total_pledged = $1, updated_at = now()
		WHERE id = $2
		RETURNING updated_at
	`, bd.TotalPledged, bd.ID).Scan(&bd.UpdatedAt)
	return mapPgError(err)
}

func (t *pgTx) CreateAccount(ctx context.Context, a *models.Account) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO accounts (id, kind, address, public_key, balance)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
		RETURNING created_at, updated_at
	`, a.ID, a.Kind, a.Address, a.PublicKey, a.Balance).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapPgError(err)
}

func (t *pgTx) GetAccountKind(ctx context.Context, accountID uuid.UUID) (string, error) {
	var kind string
	err := t.tx.QueryRow(ctx, `SELECT kind FROM accounts WHERE id = $1`, accountID).Scan(&kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", crowdfund.ErrAccountNotFound
	}
	return kind, err
}

func (t *pgTx) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var balance int64
	err := t.tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, crowdfund.ErrAccountNotFound
	}
	return balance, err
}

func (t *pgTx) Debit(ctx context.Context, accountID uuid.UUID, amount int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE accounts SET balance = balance - $2, updated_at = now()
		WHERE id = $1 AND balance >= $2
	`, accountID, amount)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	// tell a missing account apart from a short balance
	if _, err := t.GetBalance(ctx, accountID); err != nil {
		return err
	}
	return crowdfund.ErrInsufficientFunds
}

func (t *pgTx) Credit(ctx context.Context, accountID uuid.UUID, amount int64) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE accounts SET balance = balance + $2, updated_at = now()
		WHERE id = $1
	`, accountID, amount)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return crowdfund.ErrAccountNotFound
	}
	return nil
}

func (t *pgTx) InsertLedgerEntry(ctx context.Context, e *models.LedgerEntry) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO ledger_entries (id, kind, from_account, to_account, amount, campaign_id, external_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, e.ID, e.Kind, e.FromAccount, e.ToAccount, e.Amount, e.CampaignID, e.ExternalRef).Scan(&e.CreatedAt)
	return mapPgError(err)
}

const campaignColumns = `id, seed, creator_id, vault_id, started_at, ending_at, funding_goal, is_finished, created_at`

func campaignDest(c *models.Campaign) []any {
	return []any{&c.ID, &c.Seed, &c.CreatorID, &c.VaultID, &c.StartedAt, &c.EndingAt, &c.FundingGoal, &c.IsFinished, &c.CreatedAt}
}

// mapPgError turns constraint violations into engine error kinds. Other
// errors are returned as they are.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		switch {
		case strings.HasPrefix(pgErr.ConstraintName, "campaigns_"):
			return crowdfund.ErrCampaignExists
		case strings.HasPrefix(pgErr.ConstraintName, "ledger_entries_external_ref"):
			return crowdfund.ErrDuplicateExternalRef
		case strings.HasPrefix(pgErr.ConstraintName, "accounts_"):
			return crowdfund.ErrAccountExists
		}
	case "22003": // numeric_value_out_of_range
		return crowdfund.ErrAmountOverflow
	case "23514": // check_violation
		if pgErr.ConstraintName == "accounts_balance_check" {
			return crowdfund.ErrInsufficientFunds
		}
	case "23503": // foreign_key_violation
		return crowdfund.ErrAccountNotFound
	}
	return err
}
