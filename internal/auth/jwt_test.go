package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestJWT_RoundTrip(t *testing.T) {
	id := uuid.New()
	tok, err := GenerateJWT("secret", id, "0:abcd", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseJWT("secret", tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.AccountID != id {
		t.Errorf("account id = %s, want %s", claims.AccountID, id)
	}
	if claims.Address != "0:abcd" {
		t.Errorf("address = %q, want 0:abcd", claims.Address)
	}
	if claims.Subject != id.String() {
		t.Errorf("subject = %q, want %s", claims.Subject, id)
	}
}

func TestJWT_WrongSecret(t *testing.T) {
	tok, _ := GenerateJWT("secret", uuid.New(), "0:abcd", time.Hour)
	if _, err := ParseJWT("other", tok); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestJWT_Expired(t *testing.T) {
	claims := Claims{
		AccountID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			Issuer:    issuer,
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseJWT("secret", tok); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWT_RejectsNoneAlg(t *testing.T) {
	claims := Claims{AccountID: uuid.New(), RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseJWT("secret", tok); err == nil {
		t.Fatal("expected error for unsigned token")
	}
}
