package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spark-fund/backend/internal/auth"
	"github.com/spark-fund/backend/internal/models"
	"github.com/spark-fund/backend/internal/ton"
	"go.uber.org/zap"
)

var ErrInvalidProof = errors.New("invalid ton proof")

type ProofStore interface {
	CreateProofPayload(ctx context.Context, ttl time.Duration) (*models.ProofPayload, error)
	ConsumeProofPayload(ctx context.Context, payload string) (*models.ProofPayload, error)
}

type AccountStore interface {
	UpsertByAddress(ctx context.Context, address, publicKey string) (*models.Account, error)
}

type AuthConfig struct {
	JWTSecret     string
	JWTExpiration time.Duration
	ProofTTL      time.Duration
	Network       string // mainnet/testnet
}

// AuthService logs wallets in with TON Connect proofs and issues JWTs.
type AuthService struct {
	proofs   ProofStore
	accounts AccountStore
	audit    AuditLogger
	verifier *ton.Verifier
	cfg      AuthConfig
	log      *zap.Logger
}

func NewAuthService(
	proofs ProofStore,
	accounts AccountStore,
	audit AuditLogger,
	verifier *ton.Verifier,
	cfg AuthConfig,
	log *zap.Logger,
) *AuthService {
	if cfg.ProofTTL <= 0 {
		cfg.ProofTTL = ton.MaxProofAge
	}
	return &AuthService{
		proofs:   proofs,
		accounts: accounts,
		audit:    audit,
		verifier: verifier,
		cfg:      cfg,
		log:      log,
	}
}

// GeneratePayload создаёт nonce для TON Proof.
// Клиент передаёт его в tonconnect при подключении кошелька.
func (s *AuthService) GeneratePayload(ctx context.Context) (string, error) {
	p, err := s.proofs.CreateProofPayload(ctx, s.cfg.ProofTTL)
	if err != nil {
		return "", fmt.Errorf("failed to create proof payload: %w", err)
	}
	return p.Payload, nil
}

type LoginResult struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"account"`
}

func (s *AuthService) Login(ctx context.Context, pd ton.ProofData) (*LoginResult, error) {
	// 1. Проверяем network
	if want := networkID(s.cfg.Network); pd.Network != "" && pd.Network != want {
		return nil, fmt.Errorf("%w: network mismatch: expected %s, got %s", ErrInvalidProof, want, pd.Network)
	}

	// 2. Верифицируем подпись до того, как тратить nonce
	addr, err := s.verifier.Verify(pd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}

	// 3. Consume payload (nonce): защита от replay
	if _, err := s.proofs.ConsumeProofPayload(ctx, pd.Proof.Payload); err != nil {
		return nil, fmt.Errorf("%w: invalid or expired proof payload", ErrInvalidProof)
	}

	raw := ton.RawString(addr)
	account, err := s.accounts.UpsertByAddress(ctx, raw, pd.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	token, err := auth.GenerateJWT(s.cfg.JWTSecret, account.ID, raw, s.cfg.JWTExpiration)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Log(ctx, models.AuditLog{
		ActorAccountID: &account.ID,
		ActorType:      "user",
		Action:         "wallet_login",
		EntityType:     "account",
		EntityID:       &account.ID,
		Meta:           map[string]any{"address": raw, "domain": pd.Proof.Domain.Value},
	}); err != nil {
		s.log.Warn("audit log failed", zap.Error(err))
	}

	s.log.Info("wallet login",
		zap.String("account_id", account.ID.String()),
		zap.String("address", raw),
	)
	return &LoginResult{Token: token, Account: account}, nil
}

// networkID maps a network name to the TON Connect chain id.
func networkID(network string) string {
	if network == "mainnet" {
		return "-239"
	}
	return "-3"
}
