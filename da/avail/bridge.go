package avail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/ethereum/go-ethereum/common"
)

// BridgeProof is the bridge API answer for one data submission. Missing
// fields stay nil.
type BridgeProof struct {
	BlobRoot      *common.Hash    `json:"blobRoot"`
	BridgeRoot    *common.Hash    `json:"bridgeRoot"`
	DataRootIndex *Uint256        `json:"dataRootIndex"`
	DataRootProof []common.Hash   `json:"dataRootProof"`
	Leaf          *common.Hash    `json:"leaf"`
	LeafIndex     *Uint256        `json:"leafIndex"`
	LeafProof     []common.Hash   `json:"leafProof"`
	RangeHash     *common.Hash    `json:"rangeHash"`
	Error         json.RawMessage `json:"error,omitempty"`
}

// Pending reports whether the bridge answered with an error instead of a proof,
// which happens until the block range has been bridged.
func (p *BridgeProof) Pending() bool {
	e := bytes.TrimSpace(p.Error)
	return len(e) > 0 && !bytes.Equal(e, []byte("null"))
}

// Uint256 accepts JSON numbers and decimal or 0x-prefixed hex strings.
type Uint256 struct {
	big.Int
}

// NewUint256 wraps v.
func NewUint256(v int64) *Uint256 {
	u := new(Uint256)
	u.SetInt64(v)
	return u
}

func (u *Uint256) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	if _, ok := u.SetString(s, base); !ok || u.Sign() < 0 || u.BitLen() > 256 {
		return fmt.Errorf("invalid uint256 %s", string(b))
	}
	return nil
}

func (u Uint256) MarshalJSON() ([]byte, error) {
	return []byte(u.String()), nil
}

// fetchBridgeProof queries <bridge>/eth/proof/<block hash>?index=<i>.
func (a *Adapter) fetchBridgeProof(ctx context.Context, id BlobID) (*BridgeProof, bool, error) {
	uri := fmt.Sprintf("%s/eth/proof/%s?index=%d", strings.TrimRight(a.cfg.BridgeAPIURL, "/"), id.BlockHash.Hex(), id.ExtrinsicIndex)
	body, status, err := httpRequest(ctx, a.http, http.MethodGet, uri, nil, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, false, err
	}

	var proof BridgeProof
	if err := json.Unmarshal(body, &proof); err != nil {
		if !isSuccess(status) {
			return nil, false, statusError("avail bridge", status, body)
		}
		return nil, false, daerr.Retriable("avail bridge", fmt.Errorf("failed to decode bridge response: %w", err))
	}
	if proof.Pending() {
		a.log.Debugf("Bridge has no proof for %s yet: %s", id, string(proof.Error))
		return nil, false, nil
	}
	if !isSuccess(status) {
		return nil, false, statusError("avail bridge", status, body)
	}
	return &proof, true, nil
}
