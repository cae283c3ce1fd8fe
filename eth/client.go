package eth

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client wraps both rpc.Client and ethclient.Client for EVM provider access
type Client struct {
	Rpc *rpc.Client
	Eth *ethclient.Client
}

// NewClient dials url once and shares the connection between both clients
func NewClient(ctx context.Context, url string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial EVM provider: %v", err)
	}

	return &Client{
		Rpc: rpcClient,
		Eth: ethclient.NewClient(rpcClient),
	}, nil
}

// Close closes the underlying connection
func (c *Client) Close() {
	c.Rpc.Close()
}
