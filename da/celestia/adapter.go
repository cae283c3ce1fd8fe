package celestia

import (
	"context"
	"errors"
	"fmt"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/airchains-network/da-dispatcher/dispatch"
	"github.com/celestiaorg/nmt"
	"github.com/sirupsen/logrus"
)

const (
	// Name identifies the backend.
	Name = "celestia"
	// MaxBlobSize is the largest blob a Celestia block accepts.
	MaxBlobSize = 1973786
)

// Config holds Celestia connection settings
type Config struct {
	NodeURL   string `toml:"node_url"`
	AuthToken string `toml:"auth_token"`
	Namespace string `toml:"namespace"`
}

// Validate checks the required settings.
func (c Config) Validate() error {
	if c.NodeURL == "" || c.Namespace == "" {
		return fmt.Errorf("%w: celestia.node_url and celestia.namespace are required", daerr.ErrInvalidConfig)
	}
	return nil
}

// RawProof bundles everything fetched from the node for one blob.
type RawProof struct {
	Height      uint64
	Namespace   []byte
	BlobIndex   int
	ShareProofs []*nmt.Proof
	DataHash    []byte
	RowRoots    [][]byte
	ColumnRoots [][]byte
}

// Adapter submits blobs to Celestia and gathers their inclusion proofs.
type Adapter struct {
	node Node
	log  *logrus.Logger
}

var _ dispatch.Adapter[BlobID, *RawProof] = (*Adapter)(nil)

// NewAdapter creates a Celestia adapter over node.
func NewAdapter(node Node, log *logrus.Logger) *Adapter {
	return &Adapter{node: node, log: log}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) MaxBlobSize() int { return MaxBlobSize }

func (a *Adapter) ParseBlobID(s string) (BlobID, error) { return ParseBlobID(s) }

// Submit posts the blob and returns its height and commitment.
func (a *Adapter) Submit(ctx context.Context, blob []byte) (dispatch.Submission[BlobID], error) {
	height, commitment, err := a.node.Submit(ctx, blob)
	if err != nil {
		return dispatch.Submission[BlobID]{}, daerr.Wrap("celestia submit", err)
	}
	if len(commitment) != CommitmentSize {
		return dispatch.Submission[BlobID]{}, daerr.Terminalf("celestia submit", "unexpected commitment length %d", len(commitment))
	}
	return dispatch.Final(BlobID{Height: height, Commitment: commitment}), nil
}

// FetchRawProof collects the blob index, share proofs and data availability header.
func (a *Adapter) FetchRawProof(ctx context.Context, id BlobID) (*RawProof, bool, error) {
	b, err := a.node.GetBlob(ctx, id.Height, id.Commitment)
	if err != nil {
		if notYetAvailable(err) {
			return nil, false, nil
		}
		return nil, false, daerr.Wrap("celestia blob", err)
	}

	proofs, err := a.node.GetProof(ctx, id.Height, id.Commitment)
	if err != nil {
		return nil, false, daerr.Wrap("celestia proof", err)
	}
	if len(proofs) == 0 {
		return nil, false, daerr.Terminalf("celestia proof", "node returned no share proofs for %s", id)
	}

	header, err := a.node.GetHeader(ctx, id.Height)
	if err != nil {
		if notYetAvailable(err) {
			return nil, false, nil
		}
		return nil, false, daerr.Wrap("celestia header", err)
	}

	a.log.Debugf("Fetched Celestia proof for %s: index %d, %d share proofs", id, b.Index, len(proofs))
	return &RawProof{
		Height:      id.Height,
		Namespace:   a.node.Namespace(),
		BlobIndex:   b.Index,
		ShareProofs: proofs,
		DataHash:    header.DataHash,
		RowRoots:    header.RowRoots,
		ColumnRoots: header.ColumnRoots,
	}, true, nil
}

// notYetAvailable matches node errors returned for heights the node has not synced.
func notYetAvailable(err error) bool {
	return errors.Is(err, ErrNotSynced)
}
