package near

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/airchains-network/da-dispatcher/dispatch"
	"github.com/sirupsen/logrus"
)

const (
	// Name identifies the backend.
	Name = "near"
	// MaxBlobSize is the largest blob the blob store contract accepts.
	MaxBlobSize = 1572864
)

var networkRPC = map[string]string{
	"mainnet":  "https://rpc.mainnet.near.org",
	"testnet":  "https://rpc.testnet.near.org",
	"localnet": "http://127.0.0.1:3030",
}

// Config holds NEAR connection settings
type Config struct {
	Network        string `toml:"network"`
	RPCURL         string `toml:"rpc_url"`
	EVMProviderURL string `toml:"evm_provider_url"`
	BridgeContract string `toml:"bridge_contract"`
	Contract       string `toml:"contract"`
	AccountID      string `toml:"account_id"`
	SecretKey      string `toml:"secret_key"`
}

// Validate checks the required settings.
func (c Config) Validate() error {
	if c.Contract == "" || c.AccountID == "" || c.SecretKey == "" {
		return fmt.Errorf("%w: near.contract, near.account_id and near.secret_key are required", daerr.ErrInvalidConfig)
	}
	if c.EVMProviderURL == "" || c.BridgeContract == "" {
		return fmt.Errorf("%w: near.evm_provider_url and near.bridge_contract are required", daerr.ErrInvalidConfig)
	}
	if _, err := c.Endpoint(); err != nil {
		return err
	}
	return nil
}

// Endpoint returns the RPC URL, falling back to the public node of the network.
func (c Config) Endpoint() (string, error) {
	if c.RPCURL != "" {
		return c.RPCURL, nil
	}
	url, ok := networkRPC[c.Network]
	if !ok {
		return "", fmt.Errorf("%w: unknown near network %q", daerr.ErrInvalidConfig, c.Network)
	}
	return url, nil
}

// Adapter submits blobs to a NEAR blob store contract and proves them
// against the head verified by the NearX bridge.
type Adapter struct {
	cfg    Config
	key    *KeyPair
	rpc    RPC
	bridge Bridge
	log    *logrus.Logger

	nonceMu   sync.Mutex
	lastNonce uint64
}

var _ dispatch.Adapter[CryptoHash, *RawProof] = (*Adapter)(nil)

// NewAdapter creates a NEAR adapter.
func NewAdapter(cfg Config, rpc RPC, bridge Bridge, log *logrus.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	key, err := ParseSecretKey(cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: near.secret_key: %v", daerr.ErrInvalidConfig, err)
	}
	return &Adapter{cfg: cfg, key: key, rpc: rpc, bridge: bridge, log: log}, nil
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) MaxBlobSize() int { return MaxBlobSize }

// ParseBlobID decodes a base58 transaction hash.
func (a *Adapter) ParseBlobID(s string) (CryptoHash, error) { return ParseBlobID(s) }

// ParseBlobID decodes a base58 transaction hash.
func ParseBlobID(s string) (CryptoHash, error) {
	h, err := ParseCryptoHash(s)
	if err != nil {
		return h, fmt.Errorf("%w: %v", daerr.ErrInvalidBlobID, err)
	}
	return h, nil
}

// Submit calls submit on the blob store contract and waits for the transaction to execute.
func (a *Adapter) Submit(ctx context.Context, blob []byte) (dispatch.Submission[CryptoHash], error) {
	signed, hash, err := a.signSubmit(ctx, blob)
	if err != nil {
		return dispatch.Submission[CryptoHash]{}, err
	}

	a.log.Debugf("Broadcasting NEAR transaction %s to %s", hash, a.cfg.Contract)
	txHash, err := a.rpc.BroadcastTxCommit(ctx, signed)
	if err != nil {
		return dispatch.Submission[CryptoHash]{}, daerr.Wrap("near submit", err)
	}
	if txHash != hash {
		return dispatch.Submission[CryptoHash]{}, daerr.Terminalf("near submit", "node reported transaction %s, signed %s", txHash, hash)
	}
	return dispatch.Final(txHash), nil
}

// signSubmit reserves a nonce and signs the submit transaction. Concurrent
// submissions from the same key serialize here and nowhere else.
func (a *Adapter) signSubmit(ctx context.Context, blob []byte) ([]byte, CryptoHash, error) {
	a.nonceMu.Lock()
	defer a.nonceMu.Unlock()

	current, blockHash, err := a.rpc.AccessKey(ctx, a.cfg.AccountID, a.key.PublicKeyString())
	if err != nil {
		return nil, CryptoHash{}, daerr.Wrap("near access key", err)
	}
	nonce := current + 1
	if nonce <= a.lastNonce {
		nonce = a.lastNonce + 1
	}
	a.lastNonce = nonce

	tx := newSubmitTransaction(a.cfg.AccountID, a.key, nonce, a.cfg.Contract, blockHash, blob)
	signed, hash := tx.Sign(a.key)
	return signed, hash, nil
}

// FetchRawProof gets the outcome proof of the transaction relative to the
// head trusted by the bridge. ok is false while the head does not cover it.
func (a *Adapter) FetchRawProof(ctx context.Context, id CryptoHash) (*RawProof, bool, error) {
	latest, err := a.bridge.LatestHeader(ctx)
	if err != nil {
		return nil, false, daerr.Wrap("near bridge", err)
	}
	head := CryptoHash(latest)

	header, err := a.rpc.HeadHeader(ctx, head)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, daerr.Wrap("near head header", err)
	}
	if got := header.Hash(); got != head {
		return nil, false, daerr.Terminal("near head header", fmt.Errorf("%w: light client header mismatch: bridge trusts %s, node returned %s",
			daerr.ErrIntegrity, head, got))
	}

	p, err := a.rpc.LightClientProof(ctx, id, a.cfg.AccountID, head)
	if err != nil {
		if IsNotFound(err) {
			a.log.Debugf("NEAR transaction %s is not covered by head %s yet", id, head)
			return nil, false, nil
		}
		return nil, false, daerr.Wrap("near light client proof", err)
	}
	if p == nil {
		return nil, false, daerr.Terminal("near light client proof", errors.New("empty proof"))
	}
	return &RawProof{TxHash: id, Proof: p, Head: head, HeadHeader: *header}, true, nil
}
