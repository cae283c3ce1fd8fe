package avail

import (
	"context"
	"fmt"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	prim "github.com/availproject/avail-go-sdk/primitives"
	SDK "github.com/availproject/avail-go-sdk/sdk"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/vedhavyas/go-subkey/v2"
)

// DataSubmission is a submit_data extrinsic found in a block.
type DataSubmission struct {
	TxHash common.Hash
	Index  uint32
	Data   []byte
}

// Block is a finalized Avail block that can be scanned for data submissions.
type Block interface {
	Hash() common.Hash
	DataSubmissions(ctx context.Context) ([]DataSubmission, error)
}

// Chain is the part of an Avail node the adapter talks to.
type Chain interface {
	// SubmitData signs and sends a submit_data extrinsic under the configured
	// app id. It returns the extrinsic hash once the node accepted it.
	SubmitData(ctx context.Context, data []byte) (common.Hash, error)
	// FinalizedHeight returns the number of the latest finalized block.
	FinalizedHeight(ctx context.Context) (uint32, error)
	// BlockAt returns the block at height.
	BlockAt(ctx context.Context, height uint32) (Block, error)
}

// SDKChain is a Chain backed by the Avail Go SDK.
type SDKChain struct {
	Client  SDK.SDK
	Account subkey.KeyPair
	AppID   uint32
	log     *logrus.Logger
}

// NewSDKChain initializes an Avail SDK client and signing account
func NewSDKChain(nodeURL, seed string, appID uint32, log *logrus.Logger) (*SDKChain, error) {
	acc, err := SDK.Account.NewKeyPair(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %v", err)
	}
	sdk, err := SDK.NewSDK(nodeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create Avail SDK: %v", err)
	}
	log.Infof("Initialized Avail client for node %s with app id %d", nodeURL, appID)
	return &SDKChain{Client: sdk, Account: acc, AppID: appID, log: log}, nil
}

// SubmitData submits a DataAvailability.submit_data extrinsic without watching it.
func (c *SDKChain) SubmitData(ctx context.Context, data []byte) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	tx := c.Client.Tx.DataAvailability.SubmitData(data)
	txHash, err := tx.Execute(c.Account, SDK.NewTransactionOptions().WithAppId(c.AppID))
	if err != nil {
		return common.Hash{}, daerr.Retriable("avail submit", fmt.Errorf("failed to submit data: %v", err))
	}
	hash := common.HexToHash(txHash.ToHexWith0x())
	c.log.Infof("Submitted %d bytes to Avail, extrinsic %s", len(data), hash.Hex())
	return hash, nil
}

// FinalizedHeight returns the latest finalized block number.
func (c *SDKChain) FinalizedHeight(ctx context.Context) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.Client.Client.FinalizedBlockNumber()
	if err != nil {
		return 0, daerr.Retriable("avail finalized head", fmt.Errorf("failed to get finalized block number: %v", err))
	}
	return n, nil
}

// BlockAt returns the block at height.
func (c *SDKChain) BlockAt(ctx context.Context, height uint32) (Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := c.Client.Client.BlockHash(height)
	if err != nil {
		return nil, daerr.Retriable("avail block", fmt.Errorf("failed to get hash of block %d: %v", height, err))
	}
	return &sdkBlock{client: c.Client, raw: raw, hash: common.HexToHash(raw.ToHexWith0x())}, nil
}

type sdkBlock struct {
	client SDK.SDK
	raw    prim.H256
	hash   common.Hash
}

func (b *sdkBlock) Hash() common.Hash { return b.hash }

func (b *sdkBlock) DataSubmissions(ctx context.Context) ([]DataSubmission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	block, err := SDK.NewBlock(b.client.Client, b.raw)
	if err != nil {
		return nil, daerr.Retriable("avail block", fmt.Errorf("failed to fetch block %s: %v", b.hash.Hex(), err))
	}
	var out []DataSubmission
	for _, ds := range block.DataSubmissions(SDK.Filter{}) {
		out = append(out, DataSubmission{
			TxHash: common.HexToHash(ds.TxHash.ToHexWith0x()),
			Index:  ds.TxIndex,
			Data:   ds.Data,
		})
	}
	return out, nil
}
