package near

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/airchains-network/da-dispatcher/internal/jsonrpc"
)

// RPC is the subset of the NEAR JSON-RPC API the adapter uses.
type RPC interface {
	AccessKey(ctx context.Context, accountID, publicKey string) (nonce uint64, blockHash CryptoHash, err error)
	BroadcastTxCommit(ctx context.Context, signedTx []byte) (CryptoHash, error)
	LightClientProof(ctx context.Context, txHash CryptoHash, senderID string, head CryptoHash) (*LightClientProof, error)
	HeadHeader(ctx context.Context, head CryptoHash) (*BlockHeaderLite, error)
}

// Bridge reads the newest NEAR block verified by the on-chain light client.
type Bridge interface {
	LatestHeader(ctx context.Context) ([32]byte, error)
}

// RPCClient implements RPC over HTTP JSON-RPC.
type RPCClient struct {
	rpc *jsonrpc.Client
}

// NewRPCClient creates a client for a NEAR RPC node.
func NewRPCClient(url string, httpClient *http.Client) *RPCClient {
	return &RPCClient{rpc: jsonrpc.NewClient(url, httpClient)}
}

// AccessKey reads the current nonce of the key together with a recent final block hash.
func (c *RPCClient) AccessKey(ctx context.Context, accountID, publicKey string) (uint64, CryptoHash, error) {
	params := map[string]string{
		"request_type": "view_access_key",
		"finality":     "final",
		"account_id":   accountID,
		"public_key":   publicKey,
	}
	var res accessKeyView
	if err := c.rpc.Call(ctx, "query", params, &res); err != nil {
		return 0, CryptoHash{}, classify("near access key", err)
	}
	return res.Nonce, res.BlockHash, nil
}

// BroadcastTxCommit sends a signed transaction and waits for it to execute.
func (c *RPCClient) BroadcastTxCommit(ctx context.Context, signedTx []byte) (CryptoHash, error) {
	var res txOutcomeView
	params := []string{base64.StdEncoding.EncodeToString(signedTx)}
	if err := c.rpc.Call(ctx, "broadcast_tx_commit", params, &res); err != nil {
		return CryptoHash{}, classify("near broadcast", err)
	}
	if res.Status.Kind == StatusFailure {
		return CryptoHash{}, daerr.Terminalf("near broadcast", "transaction %s failed: %s", res.Transaction.Hash, res.Status.Failure)
	}
	return res.Transaction.Hash, nil
}

// LightClientProof requests the execution outcome proof of a transaction relative to head.
func (c *RPCClient) LightClientProof(ctx context.Context, txHash CryptoHash, senderID string, head CryptoHash) (*LightClientProof, error) {
	params := map[string]string{
		"type":              "transaction",
		"transaction_hash":  txHash.String(),
		"sender_id":         senderID,
		"light_client_head": head.String(),
	}
	var res LightClientProof
	if err := c.rpc.Call(ctx, "EXPERIMENTAL_light_client_proof", params, &res); err != nil {
		return nil, classify("near light client proof", err)
	}
	return &res, nil
}

// HeadHeader fetches the lite header of head.
func (c *RPCClient) HeadHeader(ctx context.Context, head CryptoHash) (*BlockHeaderLite, error) {
	params := map[string]string{
		"block_hash":        head.String(),
		"light_client_head": head.String(),
	}
	var res blockProofView
	if err := c.rpc.Call(ctx, "EXPERIMENTAL_light_client_block_proof", params, &res); err != nil {
		return nil, classify("near head header", err)
	}
	return &res.BlockHeaderLite, nil
}

// errNotFound is returned when the node does not know the transaction or block yet.
var errNotFound = errors.New("not found")

// classify maps NEAR RPC error causes onto the error taxonomy.
func classify(op string, err error) error {
	var rpcErr *jsonrpc.Error
	if !errors.As(err, &rpcErr) {
		return daerr.Wrap(op, err)
	}
	switch rpcErr.CauseName() {
	case "UNKNOWN_TRANSACTION", "UNKNOWN_BLOCK", "UNKNOWN_TRANSACTION_OR_RECEIPT", "NOT_CONFIRMED", "UNAVAILABLE_SHARD":
		return daerr.Retriable(op, fmt.Errorf("%w: %v", errNotFound, rpcErr))
	case "TIMEOUT_ERROR", "NO_SYNCED_BLOCKS", "INTERNAL_ERROR":
		return daerr.Retriable(op, rpcErr)
	default:
		return daerr.Terminal(op, rpcErr)
	}
}

// IsNotFound reports whether err means the queried object is not known to the node yet.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}
