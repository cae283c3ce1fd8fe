package eth

import (
	"context"
	"fmt"
	"strings"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

const nearXABI = `[{"inputs":[],"name":"latestHeader","outputs":[{"internalType":"bytes32","name":"","type":"bytes32"}],"stateMutability":"view","type":"function"}]`

var parsedNearXABI = mustParseABI(nearXABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// NearX reads the NEAR light client bridge deployed on an EVM chain.
type NearX struct {
	Address  common.Address
	contract *bind.BoundContract
}

// NewNearX binds the bridge contract at address.
func NewNearX(client *Client, address string) (*NearX, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: invalid bridge contract address %q", daerr.ErrInvalidConfig, address)
	}
	addr := common.HexToAddress(address)
	return &NearX{
		Address:  addr,
		contract: bind.NewBoundContract(addr, parsedNearXABI, client.Eth, client.Eth, client.Eth),
	}, nil
}

// LatestHeader returns the hash of the newest NEAR block the bridge has verified.
func (n *NearX) LatestHeader(ctx context.Context) ([32]byte, error) {
	var out []interface{}
	if err := n.contract.Call(&bind.CallOpts{Context: ctx}, &out, "latestHeader"); err != nil {
		return [32]byte{}, daerr.Retriable("nearx latestHeader", err)
	}
	if len(out) != 1 {
		return [32]byte{}, daerr.Terminalf("nearx latestHeader", "unexpected output count %d", len(out))
	}
	header, ok := out[0].([32]byte)
	if !ok {
		return [32]byte{}, daerr.Terminalf("nearx latestHeader", "unexpected output type %T", out[0])
	}
	return header, nil
}
