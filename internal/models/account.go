package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AccountKindUser   = "user"
	AccountKindEscrow = "escrow"
)

type Account struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Address   string    `json:"address,omitempty"`    // raw: 0:<hex>
	PublicKey string    `json:"public_key,omitempty"` // hex
	Balance   int64     `json:"balance"`              // nanoTON
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ledger entry kinds
const (
	LedgerKindDeposit    = "deposit"
	LedgerKindPledge     = "pledge"
	LedgerKindWithdrawal = "withdrawal"
)

type LedgerEntry struct {
	ID          uuid.UUID  `json:"id"`
	Kind        string     `json:"kind"`
	FromAccount *uuid.UUID `json:"from_account,omitempty"`
	ToAccount   uuid.UUID  `json:"to_account"`
	Amount      int64      `json:"amount"`
	CampaignID  *uuid.UUID `json:"campaign_id,omitempty"`
	ExternalRef *string    `json:"external_ref,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ProofPayload struct {
	ID        uuid.UUID `json:"id"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"-"`
	ExpiresAt time.Time `json:"-"`
	Used      bool      `json:"-"`
}
