package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spark-fund/backend/internal/crowdfund"
)

func TestMapPgError(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		constraint string
		want       error
	}{
		{"campaign pkey", "23505", "campaigns_pkey", crowdfund.ErrCampaignExists},
		{"campaign seed", "23505", "campaigns_seed_creator_id_key", crowdfund.ErrCampaignExists},
		{"external ref", "23505", "ledger_entries_external_ref_key", crowdfund.ErrDuplicateExternalRef},
		{"account pkey", "23505", "accounts_pkey", crowdfund.ErrAccountExists},
		{"bigint overflow", "22003", "", crowdfund.ErrAmountOverflow},
		{"negative balance", "23514", "accounts_balance_check", crowdfund.ErrInsufficientFunds},
		{"missing account", "23503", "backer_data_backer_id_fkey", crowdfund.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fmt.Errorf("exec: %w", &pgconn.PgError{Code: tt.code, ConstraintName: tt.constraint})
			if got := mapPgError(err); !errors.Is(got, tt.want) {
				t.Errorf("mapPgError = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapPgError_PassThrough(t *testing.T) {
	if mapPgError(nil) != nil {
		t.Fatal("nil must stay nil")
	}
	plain := errors.New("connection reset")
	if got := mapPgError(plain); got != plain {
		t.Errorf("mapPgError = %v, want original error", got)
	}
	other := &pgconn.PgError{Code: "40001"}
	if got := mapPgError(other); got != error(other) {
		t.Errorf("mapPgError = %v, want original pg error", got)
	}
}
