package near

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"

	"github.com/mr-tron/base58"
)

const (
	submitMethod = "submit"
	// submitGas is the prepaid gas attached to every submit call.
	submitGas = 300_000_000_000_000
)

// KeyPair is a NEAR ed25519 signing key.
type KeyPair struct {
	priv ed25519.PrivateKey
}

// ParseSecretKey reads a key in the "ed25519:<base58>" form used by NEAR wallets.
func ParseSecretKey(s string) (*KeyPair, error) {
	encoded, ok := strings.CutPrefix(s, "ed25519:")
	if !ok {
		return nil, fmt.Errorf("unsupported key type in %q", truncate(s))
	}
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode secret key: %v", err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return &KeyPair{priv: ed25519.PrivateKey(raw)}, nil
	case ed25519.SeedSize:
		return &KeyPair{priv: ed25519.NewKeyFromSeed(raw)}, nil
	default:
		return nil, fmt.Errorf("secret key has %d bytes", len(raw))
	}
}

func truncate(s string) string {
	if len(s) > 12 {
		return s[:12] + "..."
	}
	return s
}

// PublicKey returns the raw 32 byte public key.
func (k *KeyPair) PublicKey() ed25519.PublicKey {
	return k.priv.Public().(ed25519.PublicKey)
}

// PublicKeyString formats the public key the way NEAR RPC expects it.
func (k *KeyPair) PublicKeyString() string {
	return "ed25519:" + base58.Encode(k.PublicKey())
}

// FunctionCall is the only action the dispatcher sends.
type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    *big.Int
}

// Transaction is an unsigned NEAR transaction with a single function call.
type Transaction struct {
	SignerID   string
	PublicKey  ed25519.PublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  CryptoHash
	Action     FunctionCall
}

// functionCallAction is the Borsh tag of FunctionCall in the Action enum.
const functionCallAction = 2

func (tx *Transaction) borsh() []byte {
	var w borshWriter
	w.string(tx.SignerID)
	w.u8(0)
	w.fixed(tx.PublicKey)
	w.u64(tx.Nonce)
	w.string(tx.ReceiverID)
	w.fixed(tx.BlockHash[:])
	w.u32(1)
	w.u8(functionCallAction)
	w.string(tx.Action.MethodName)
	w.bytes(tx.Action.Args)
	w.u64(tx.Action.Gas)
	w.u128(tx.Action.Deposit)
	return w.buf
}

// Hash is the transaction hash, which is also what gets signed.
func (tx *Transaction) Hash() CryptoHash {
	return sha256.Sum256(tx.borsh())
}

// Sign returns the Borsh encoded signed transaction and its hash.
func (tx *Transaction) Sign(key *KeyPair) ([]byte, CryptoHash) {
	body := tx.borsh()
	hash := CryptoHash(sha256.Sum256(body))
	sig := ed25519.Sign(key.priv, hash[:])

	w := borshWriter{buf: body}
	w.u8(0)
	w.fixed(sig)
	return w.buf, hash
}

func newSubmitTransaction(signer string, key *KeyPair, nonce uint64, contract string, blockHash CryptoHash, data []byte) *Transaction {
	return &Transaction{
		SignerID:   signer,
		PublicKey:  key.PublicKey(),
		Nonce:      nonce,
		ReceiverID: contract,
		BlockHash:  blockHash,
		Action: FunctionCall{
			MethodName: submitMethod,
			Args:       data,
			Gas:        submitGas,
			Deposit:    new(big.Int),
		},
	}
}
