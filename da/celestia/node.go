package celestia

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	client "github.com/celestiaorg/celestia-openrpc"
	"github.com/celestiaorg/celestia-openrpc/types/blob"
	"github.com/celestiaorg/celestia-openrpc/types/share"
	"github.com/celestiaorg/nmt"
	"github.com/sirupsen/logrus"
)

// ErrNotSynced is returned for heights the node has not caught up with.
var ErrNotSynced = errors.New("height not synced by node")

// Blob is the part of a stored blob the proof pipeline needs.
type Blob struct {
	// Index is the position of the blob's first share in the extended data square.
	Index int
	Data  []byte
}

// Header carries the data availability header of a block.
type Header struct {
	DataHash    []byte
	RowRoots    [][]byte
	ColumnRoots [][]byte
}

// Node is the subset of the celestia-node API used by the adapter.
type Node interface {
	Namespace() []byte
	Submit(ctx context.Context, data []byte) (height uint64, commitment []byte, err error)
	GetBlob(ctx context.Context, height uint64, commitment []byte) (*Blob, error)
	GetProof(ctx context.Context, height uint64, commitment []byte) ([]*nmt.Proof, error)
	GetHeader(ctx context.Context, height uint64) (*Header, error)
}

// RPCNode talks to a celestia-node over its JSON-RPC API
type RPCNode struct {
	Client *client.Client
	ns     share.Namespace
	log    *logrus.Logger
}

// NewRPCNode initializes a Celestia client
func NewRPCNode(ctx context.Context, nodeAddr, authToken, namespace string, log *logrus.Logger) (*RPCNode, error) {
	celestiaClient, err := client.NewClient(ctx, nodeAddr, authToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Celestia client: %v", err)
	}
	ns, err := share.NewBlobNamespaceV0([]byte(namespace))
	if err != nil {
		celestiaClient.Close()
		return nil, fmt.Errorf("failed to create namespace: %v", err)
	}

	log.Infof("Initialized Celestia client for node %s with namespace %s", nodeAddr, hex.EncodeToString(ns))

	return &RPCNode{Client: celestiaClient, ns: ns, log: log}, nil
}

// Close closes the Celestia client connection
func (n *RPCNode) Close() {
	n.Client.Close()
}

// Namespace returns the 29 byte namespace blobs are submitted under.
func (n *RPCNode) Namespace() []byte { return n.ns }

// Submit posts a single v0 blob under the configured namespace.
func (n *RPCNode) Submit(ctx context.Context, data []byte) (uint64, []byte, error) {
	b, err := blob.NewBlobV0(n.ns, data)
	if err != nil {
		return 0, nil, daerr.Terminal("celestia submit", fmt.Errorf("failed to create Celestia blob: %v", err))
	}
	height, err := n.Client.Blob.Submit(ctx, []*blob.Blob{b}, blob.NewSubmitOptions())
	if err != nil {
		return 0, nil, classify("celestia submit", err)
	}
	n.log.Infof("Successfully submitted to Celestia at height %d, commitment: %s", height, hex.EncodeToString(b.Commitment))
	return height, b.Commitment, nil
}

// GetProof returns the NMT share proofs of the blob, one per row it spans.
func (n *RPCNode) GetProof(ctx context.Context, height uint64, commitment []byte) ([]*nmt.Proof, error) {
	proof, err := n.Client.Blob.GetProof(ctx, height, n.ns, commitment)
	if err != nil {
		return nil, classify("celestia proof", err)
	}
	if proof == nil {
		return nil, nil
	}
	return *proof, nil
}

// GetBlob reads the blob back to learn its index in the extended square.
func (n *RPCNode) GetBlob(ctx context.Context, height uint64, commitment []byte) (*Blob, error) {
	b, err := n.Client.Blob.Get(ctx, height, n.ns, commitment)
	if err != nil {
		return nil, classify("celestia blob", err)
	}
	if b == nil || b.Index() < 0 {
		return nil, daerr.Terminalf("celestia blob", "node did not report the blob index at height %d", height)
	}
	return &Blob{Index: b.Index(), Data: b.Data}, nil
}

// GetHeader fetches the extended header at height.
func (n *RPCNode) GetHeader(ctx context.Context, height uint64) (*Header, error) {
	eh, err := n.Client.Header.GetByHeight(ctx, height)
	if err != nil {
		return nil, classify("celestia header", err)
	}
	if eh == nil || eh.DAH == nil {
		return nil, daerr.Terminal("celestia header", fmt.Errorf("%w: header at height %d has no data availability header", daerr.ErrMalformedProof, height))
	}
	if eh.RawHeader.Height != int64(height) {
		return nil, daerr.Terminal("celestia header", fmt.Errorf("%w: asked for height %d, node returned %d", daerr.ErrIntegrity, height, eh.RawHeader.Height))
	}
	return &Header{
		DataHash:    eh.RawHeader.DataHash,
		RowRoots:    eh.DAH.RowRoots,
		ColumnRoots: eh.DAH.ColumnRoots,
	}, nil
}

// classify tags node errors by their message, the only thing the JSON-RPC
// client preserves.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return daerr.Wrap(op, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "syncing", "from the future"):
		return daerr.Retriable(op, fmt.Errorf("%w: %v", ErrNotSynced, err))
	case containsAny(msg, "http status 5", "status code 5", "connection refused", "connection reset",
		"timeout", "timed out", "eof", "mempool is full", "account sequence"):
		return daerr.Retriable(op, err)
	case containsAny(msg, "insufficient", "too large", "exceeds", "not found", "invalid",
		"unauthorized", "missing permission", "permission denied"):
		return daerr.Terminal(op, err)
	}
	return daerr.Wrap(op, err)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
