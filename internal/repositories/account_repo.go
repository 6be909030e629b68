package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spark-fund/backend/internal/crowdfund"
	"github.com/spark-fund/backend/internal/models"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// UpsertByAddress returns the user account bound to a wallet address,
// creating it with a zero balance on first login.
func (r *AccountRepo) UpsertByAddress(ctx context.Context, address, publicKey string) (*models.Account, error) {
	var a models.Account
	var pk *string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, kind, address, public_key)
		VALUES ($1, 'user', $2, NULLIF($3, ''))
		ON CONFLICT (address) WHERE address IS NOT NULL DO UPDATE SET
			public_key = COALESCE(EXCLUDED.public_key, accounts.public_key),
			updated_at = now()
		RETURNING id, kind, address, public_key, balance, created_at, updated_at
	`, uuid.New(), address, publicKey).Scan(&a.ID, &a.Kind, &a.Address, &pk, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if pk != nil {
		a.PublicKey = *pk
	}
	return &a, nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	var addr, pk *string
	err := r.pool.QueryRow(ctx, `
		SELECT id, kind, address, public_key, balance, created_at, updated_at
		FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Kind, &addr, &pk, &a.Balance, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, crowdfund.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	if addr != nil {
		a.Address = *addr
	}
	if pk != nil {
		a.PublicKey = *pk
	}
	return &a, nil
}

// ---- Ledger ----

func (r *AccountRepo) ListLedger(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, from_account, to_account, amount, campaign_id, external_ref, created_at
		FROM ledger_entries
		WHERE from_account = $1 OR to_account = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.FromAccount, &e.ToAccount, &e.Amount, &e.CampaignID, &e.ExternalRef, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
