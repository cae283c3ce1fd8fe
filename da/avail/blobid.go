package avail

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/ethereum/go-ethereum/common"
)

// BlobID locates a data submission: the finalized block hash and the
// extrinsic index inside that block.
type BlobID struct {
	BlockHash      common.Hash
	ExtrinsicIndex uint32
}

func (id BlobID) String() string {
	return fmt.Sprintf("%s:%d", id.BlockHash.Hex(), id.ExtrinsicIndex)
}

// ParseBlobID parses "0x<block hash>:<extrinsic index>".
func ParseBlobID(s string) (BlobID, error) {
	hashPart, indexPart, ok := strings.Cut(s, ":")
	if !ok {
		return BlobID{}, fmt.Errorf("%w: avail id %q has no extrinsic index", daerr.ErrInvalidBlobID, s)
	}
	hexHash := strings.TrimPrefix(hashPart, "0x")
	if len(hexHash) != 2*common.HashLength {
		return BlobID{}, fmt.Errorf("%w: avail block hash %q must be 32 bytes", daerr.ErrInvalidBlobID, hashPart)
	}
	raw, err := hex.DecodeString(hexHash)
	if err != nil {
		return BlobID{}, fmt.Errorf("%w: avail block hash %q: %v", daerr.ErrInvalidBlobID, hashPart, err)
	}
	index, err := strconv.ParseUint(indexPart, 10, 32)
	if err != nil {
		return BlobID{}, fmt.Errorf("%w: avail extrinsic index %q: %v", daerr.ErrInvalidBlobID, indexPart, err)
	}
	return BlobID{BlockHash: common.BytesToHash(raw), ExtrinsicIndex: uint32(index)}, nil
}
