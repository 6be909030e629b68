package services

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/auth"
	"github.com/spark-fund/backend/internal/models"
	"github.com/spark-fund/backend/internal/ton"
	"go.uber.org/zap"
)

type memProofs struct {
	issued map[string]bool
}

func (p *memProofs) CreateProofPayload(_ context.Context, ttl time.Duration) (*models.ProofPayload, error) {
	payload := uuid.NewString()
	p.issued[payload] = false
	return &models.ProofPayload{ID: uuid.New(), Payload: payload, ExpiresAt: time.Now().Add(ttl)}, nil
}

func (p *memProofs) ConsumeProofPayload(_ context.Context, payload string) (*models.ProofPayload, error) {
	used, ok := p.issued[payload]
	if !ok || used {
		return nil, errors.New("no rows in result set")
	}
	p.issued[payload] = true
	return &models.ProofPayload{Payload: payload, Used: true}, nil
}

type memAccounts struct {
	byAddr map[string]*models.Account
}

func (a *memAccounts) UpsertByAddress(_ context.Context, address, publicKey string) (*models.Account, error) {
	if acc, ok := a.byAddr[address]; ok {
		return acc, nil
	}
	acc := &models.Account{ID: uuid.New(), Kind: models.AccountKindUser, Address: address, PublicKey: publicKey}
	a.byAddr[address] = acc
	return acc, nil
}

const walletAddr = "0:1111111111111111111111111111111111111111111111111111111111111111"

func signedLogin(t *testing.T, payload string) ton.ProofData {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	addr, err := ton.ParseRawAddress(walletAddr)
	if err != nil {
		t.Fatal(err)
	}
	pd := ton.ProofData{
		Address:   walletAddr,
		Network:   "-3",
		PublicKey: hex.EncodeToString(pub),
		Proof: ton.Proof{
			Timestamp: time.Now().Unix(),
			Domain:    ton.ProofDomain{LengthBytes: len("spark.fund"), Value: "spark.fund"},
			Payload:   payload,
		},
	}
	sig := ed25519.Sign(priv, ton.SignatureDigest(addr.Workchain(), addr.Data(), pd.Proof))
	pd.Proof.Signature = base64.StdEncoding.EncodeToString(sig)
	return pd
}

func newAuthService() *AuthService {
	return NewAuthService(
		&memProofs{issued: map[string]bool{}},
		&memAccounts{byAddr: map[string]*models.Account{}},
		&memAudit{},
		ton.NewVerifier([]string{"spark.fund"}),
		AuthConfig{JWTSecret: "secret", JWTExpiration: time.Hour, Network: "testnet"},
		zap.NewNop(),
	)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	s := newAuthService()

	payload, err := s.GeneratePayload(ctx)
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Login(ctx, signedLogin(t, payload))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Account.Address != walletAddr {
		t.Errorf("address = %s, want %s", res.Account.Address, walletAddr)
	}

	claims, err := auth.ParseJWT("secret", res.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.AccountID != res.Account.ID {
		t.Errorf("token account = %s, want %s", claims.AccountID, res.Account.ID)
	}
}

func TestAuthService_PayloadIsSingleUse(t *testing.T) {
	ctx := context.Background()
	s := newAuthService()
	payload, _ := s.GeneratePayload(ctx)
	pd := signedLogin(t, payload)

	if _, err := s.Login(ctx, pd); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := s.Login(ctx, pd); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("replay error = %v, want %v", err, ErrInvalidProof)
	}
}

func TestAuthService_RejectsUnknownPayloadAndNetwork(t *testing.T) {
	ctx := context.Background()
	s := newAuthService()

	if _, err := s.Login(ctx, signedLogin(t, "never-issued")); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("unknown payload error = %v, want %v", err, ErrInvalidProof)
	}

	payload, _ := s.GeneratePayload(ctx)
	pd := signedLogin(t, payload)
	pd.Network = "-239"
	if _, err := s.Login(ctx, pd); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("network error = %v, want %v", err, ErrInvalidProof)
	}
}
