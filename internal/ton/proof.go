package ton

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

const (
	// TonProofPrefix: фиксированный префикс для TON Proof по спецификации TON Connect.
	// https://docs.ton.org/develop/dapps/ton-connect/sign#checking-ton_proof-on-server-side
	TonProofPrefix = "ton-proof-item-v2/"

	// TonConnectPrefix: префикс перед SHA256 хешем сообщения.
	TonConnectPrefix = "ton-connect"

	// MaxProofAge: максимальный возраст proof (защита от replay).
	MaxProofAge = 5 * time.Minute
)

// ProofData is the ton_proof item a wallet returns on connect.
type ProofData struct {
	Address   string `json:"address"`    // raw: "0:<hex>"
	Network   string `json:"network"`    // "-239" = mainnet, "-3" = testnet
	PublicKey string `json:"public_key"` // hex
	Proof     Proof  `json:"proof"`
	StateInit string `json:"state_init,omitempty"` // base64 BOC
}

type Proof struct {
	Timestamp int64       `json:"timestamp"`
	Domain    ProofDomain `json:"domain"`
	Payload   string      `json:"payload"`   // наш nonce
	Signature string      `json:"signature"` // base64
}

type ProofDomain struct {
	LengthBytes int    `json:"lengthBytes"`
	Value       string `json:"value"`
}

// Verifier checks TON Connect proofs against a domain allow-list.
type Verifier struct {
	allowedDomains []string
	maxAge         time.Duration
	nowFn          func() time.Time
}

func NewVerifier(allowedDomains []string) *Verifier {
	return &Verifier{
		allowedDomains: allowedDomains,
		maxAge:         MaxProofAge,
		nowFn:          time.Now,
	}
}

// Verify проверяет TON Proof и возвращает адрес кошелька.
//
// Алгоритм (по спецификации TON Connect):
//  1. message = "ton-proof-item-v2/" ++ workchain(4 bytes LE) ++ address_hash(32 bytes)
//     ++ domain_len(4 bytes LE) ++ domain ++ timestamp(8 bytes LE) ++ payload
//  2. signature_message = 0xffff ++ "ton-connect" ++ sha256(message)
//  3. Ed25519.Verify(public_key, sha256(signature_message), signature)
//
// If state_init is present its hash must equal the address hash.
func (v *Verifier) Verify(pd ProofData) (*address.Address, error) {
	addr, err := ParseRawAddress(pd.Address)
	if err != nil {
		return nil, err
	}

	now := v.nowFn()
	proofTime := time.Unix(pd.Proof.Timestamp, 0)
	if now.Sub(proofTime) > v.maxAge {
		return nil, fmt.Errorf("proof expired: %s old", now.Sub(proofTime).Round(time.Second))
	}
	if proofTime.After(now.Add(1 * time.Minute)) {
		return nil, fmt.Errorf("proof timestamp is in the future")
	}

	if pd.Proof.Domain.LengthBytes != len(pd.Proof.Domain.Value) {
		return nil, fmt.Errorf("domain length mismatch: %d != %d", pd.Proof.Domain.LengthBytes, len(pd.Proof.Domain.Value))
	}
	if !isDomainAllowed(pd.Proof.Domain.Value, v.allowedDomains) {
		return nil, fmt.Errorf("domain %q not in allowed list", pd.Proof.Domain.Value)
	}

	if pd.StateInit != "" {
		if err := checkStateInit(pd.StateInit, addr); err != nil {
			return nil, err
		}
	}

	pubKey, err := hex.DecodeString(pd.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(pubKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key size: %d", len(pubKey))
	}

	sig, err := decodeSignature(pd.Proof.Signature)
	if err != nil {
		return nil, err
	}

	digest := SignatureDigest(addr.Workchain(), addr.Data(), pd.Proof)
	if !ed25519.Verify(pubKey, digest, sig) {
		return nil, fmt.Errorf("invalid signature")
	}
	return addr, nil
}

// SignatureDigest returns sha256(0xffff ++ "ton-connect" ++ sha256(message)),
// the bytes a wallet signs for a ton_proof.
func SignatureDigest(workchain int32, addrHash []byte, proof Proof) []byte {
	message := []byte(TonProofPrefix)
	message = binary.LittleEndian.AppendUint32(message, uint32(workchain))
	message = append(message, addrHash...)
	message = binary.LittleEndian.AppendUint32(message, uint32(proof.Domain.LengthBytes))
	message = append(message, proof.Domain.Value...)
	message = binary.LittleEndian.AppendUint64(message, uint64(proof.Timestamp))
	message = append(message, proof.Payload...)

	msgHash := sha256.Sum256(message)

	signatureMessage := []byte{0xff, 0xff}
	signatureMessage = append(signatureMessage, TonConnectPrefix...)
	signatureMessage = append(signatureMessage, msgHash[:]...)

	finalHash := sha256.Sum256(signatureMessage)
	return finalHash[:]
}

// ParseRawAddress парсит строку вида "0:abcdef..." в адрес.
func ParseRawAddress(raw string) (*address.Address, error) {
	addr, err := address.ParseRawAddr(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid raw address %q: %w", raw, err)
	}
	return addr, nil
}

// RawString formats an address as "<workchain>:<hex hash>".
func RawString(addr *address.Address) string {
	return fmt.Sprintf("%d:%s", addr.Workchain(), hex.EncodeToString(addr.Data()))
}

func checkStateInit(stateInitB64 string, addr *address.Address) error {
	boc, err := base64.StdEncoding.DecodeString(stateInitB64)
	if err != nil {
		return fmt.Errorf("invalid state_init base64: %w", err)
	}
	c, err := cell.FromBOC(boc)
	if err != nil {
		return fmt.Errorf("invalid state_init boc: %w", err)
	}
	if !bytes.Equal(c.Hash(), addr.Data()) {
		return fmt.Errorf("state_init does not match address")
	}
	return nil
}

// Wallets send base64; older clients send hex.
func decodeSignature(s string) ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(sig) != ed25519.SignatureSize {
		sig, err = hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid signature encoding")
		}
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, fmt.Errorf("invalid signature size: %d", len(sig))
	}
	return sig, nil
}

func isDomainAllowed(domain string, allowed []string) bool {
	if len(allowed) == 0 {
		return true // если список пуст, разрешаем всё (dev mode)
	}
	for _, d := range allowed {
		if d == domain {
			return true
		}
	}
	return false
}
