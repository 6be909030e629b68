package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/crowdfund"
	"github.com/spark-fund/backend/internal/events"
	"github.com/spark-fund/backend/internal/metrics"
	"github.com/spark-fund/backend/internal/models"
	"go.uber.org/zap"
)

const depositMemoPrefix = "deposit:"

// DepositMemo is the transfer comment that routes an on-chain deposit to id.
func DepositMemo(id uuid.UUID) string {
	return depositMemoPrefix + id.String()
}

// ParseDepositMemo extracts the account id from a transfer comment.
func ParseDepositMemo(comment string) (uuid.UUID, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(comment), depositMemoPrefix)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimSpace(rest))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

type AccountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ListLedger(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error)
}

type AccountService struct {
	engine    *crowdfund.Engine
	accounts  AccountReader
	audit     AuditLogger
	publisher events.Publisher
	metrics   *metrics.CrowdfundMetrics
	log       *zap.Logger
}

func NewAccountService(
	engine *crowdfund.Engine,
	accounts AccountReader,
	audit AuditLogger,
	publisher events.Publisher,
	m *metrics.CrowdfundMetrics,
	log *zap.Logger,
) *AccountService {
	return &AccountService{
		engine:    engine,
		accounts:  accounts,
		audit:     audit,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

func (s *AccountService) Ledger(ctx context.Context, id uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	return s.accounts.ListLedger(ctx, id, limit, offset)
}

// Deposit credits an on-chain transfer. A repeated externalRef returns
// crowdfund.ErrDuplicateExternalRef and changes nothing.
func (s *AccountService) Deposit(ctx context.Context, accountID uuid.UUID, amount int64, externalRef, fromAddress string) (*models.LedgerEntry, error) {
	entry, err := s.engine.Deposit(ctx, accountID, amount, externalRef)
	if err != nil {
		if crowdfund.Code(err) != "" {
			s.metrics.ObserveOperation("deposit", metrics.ResultRejected, crowdfund.Code(err))
		} else {
			s.metrics.ObserveOperation("deposit", metrics.ResultError, "")
		}
		return nil, err
	}
	s.metrics.ObserveOperation("deposit", metrics.ResultOK, "")
	s.metrics.AddDeposited(amount)

	if err := s.audit.Log(ctx, models.AuditLog{
		ActorType:  "indexer",
		Action:     "deposit_received",
		EntityType: "account",
		EntityID:   &accountID,
		Meta:       map[string]any{"amount": amount, "external_ref": externalRef, "from": fromAddress},
	}); err != nil {
		s.log.Warn("audit log failed", zap.Error(err))
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.StreamCampaign, events.Event{
			Type: events.EventDepositReceived,
			Payload: map[string]any{
				"account_id":   accountID.String(),
				"amount":       amount,
				"external_ref": externalRef,
			},
		}); err != nil {
			s.log.Warn("publish event failed", zap.Error(err))
		}
	}
	return entry, nil
}
