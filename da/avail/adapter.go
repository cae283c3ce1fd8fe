package avail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/airchains-network/da-dispatcher/dispatch"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

const (
	// Name identifies the backend.
	Name = "avail"
	// MaxBlobSize is the largest submit_data payload accepted by Avail.
	MaxBlobSize = 512 * 1024
)

// Config holds Avail connection settings
type Config struct {
	APINodeURL     string `toml:"api_node_url"`
	BridgeAPIURL   string `toml:"bridge_api_url"`
	Seed           string `toml:"seed"`
	AppID          uint32 `toml:"app_id"`
	GasRelayMode   bool   `toml:"gas_relay_mode"`
	GasRelayAPIURL string `toml:"gas_relay_api_url"`
	GasRelayAPIKey string `toml:"gas_relay_api_key"`
}

// Validate checks that the settings needed by the selected mode are present.
func (c Config) Validate() error {
	if c.BridgeAPIURL == "" {
		return fmt.Errorf("%w: avail.bridge_api_url is required", daerr.ErrInvalidConfig)
	}
	if c.GasRelayMode {
		if c.GasRelayAPIURL == "" || c.GasRelayAPIKey == "" {
			return fmt.Errorf("%w: avail gas relay mode needs gas_relay_api_url and gas_relay_api_key", daerr.ErrInvalidConfig)
		}
		return nil
	}
	if c.APINodeURL == "" || c.Seed == "" {
		return fmt.Errorf("%w: avail.api_node_url and avail.seed are required", daerr.ErrInvalidConfig)
	}
	return nil
}

// Adapter submits blobs to Avail and fetches bridge proofs.
type Adapter struct {
	cfg   Config
	chain Chain
	http  *http.Client
	log   *logrus.Logger
}

var _ dispatch.Adapter[BlobID, *BridgeProof] = (*Adapter)(nil)

// NewAdapter creates an Avail adapter. chain may be nil in gas relay mode.
func NewAdapter(cfg Config, chain Chain, httpClient *http.Client, log *logrus.Logger) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.GasRelayMode && chain == nil {
		return nil, errors.New("avail chain client is required unless gas relay mode is enabled")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Adapter{cfg: cfg, chain: chain, http: httpClient, log: log}, nil
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) MaxBlobSize() int { return MaxBlobSize }

func (a *Adapter) ParseBlobID(s string) (BlobID, error) { return ParseBlobID(s) }

// Submit sends the blob directly or through the gas relay. Either way the
// coordinator polls for the block that finalizes it.
func (a *Adapter) Submit(ctx context.Context, blob []byte) (dispatch.Submission[BlobID], error) {
	if a.cfg.GasRelayMode {
		submissionID, err := a.relaySubmit(ctx, blob)
		if err != nil {
			return dispatch.Submission[BlobID]{}, err
		}
		return dispatch.Awaiting[BlobID](&relayPoller{a: a, submissionID: submissionID}), nil
	}

	from, err := a.chain.FinalizedHeight(ctx)
	if err != nil {
		return dispatch.Submission[BlobID]{}, daerr.Wrap("avail submit", err)
	}
	txHash, err := a.chain.SubmitData(ctx, blob)
	if err != nil {
		return dispatch.Submission[BlobID]{}, daerr.Wrap("avail submit", err)
	}
	return dispatch.Awaiting[BlobID](&chainPoller{a: a, txHash: txHash, blob: blob, next: from + 1}), nil
}

// chainPoller scans newly finalized blocks for a submitted extrinsic.
type chainPoller struct {
	a      *Adapter
	txHash common.Hash
	blob   []byte
	next   uint32
}

func (p *chainPoller) Poll(ctx context.Context) (BlobID, bool, error) {
	head, err := p.a.chain.FinalizedHeight(ctx)
	if err != nil {
		return BlobID{}, false, daerr.Wrap("avail finalized head", err)
	}
	for ; p.next <= head; p.next++ {
		block, err := p.a.chain.BlockAt(ctx, p.next)
		if err != nil {
			return BlobID{}, false, daerr.Wrap("avail block", err)
		}
		subs, err := block.DataSubmissions(ctx)
		if err != nil {
			return BlobID{}, false, daerr.Wrap("avail block", err)
		}
		for _, s := range subs {
			if s.TxHash != p.txHash {
				continue
			}
			if !bytes.Equal(s.Data, p.blob) {
				return BlobID{}, false, daerr.Terminal("avail block", fmt.Errorf("%w: extrinsic %s in block %s carries different data",
					daerr.ErrIntegrity, p.txHash.Hex(), block.Hash().Hex()))
			}
			id := BlobID{BlockHash: block.Hash(), ExtrinsicIndex: s.Index}
			p.a.log.Infof("Avail extrinsic %s finalized as %s", p.txHash.Hex(), id)
			return id, true, nil
		}
	}
	return BlobID{}, false, nil
}

// FetchRawProof returns the bridge proof, or ok=false until it is bridged.
func (a *Adapter) FetchRawProof(ctx context.Context, id BlobID) (*BridgeProof, bool, error) {
	return a.fetchBridgeProof(ctx, id)
}
