package celestia

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/airchains-network/da-dispatcher/da/daerr"
)

// CommitmentSize is the length of a share commitment.
const CommitmentSize = 32

// BlobID identifies a blob by the block height it landed in and its share commitment.
type BlobID struct {
	Height     uint64
	Commitment []byte
}

// Bytes serializes the id as height (8 bytes big endian) followed by the commitment.
func (id BlobID) Bytes() []byte {
	out := make([]byte, 8, 8+len(id.Commitment))
	binary.BigEndian.PutUint64(out, id.Height)
	return append(out, id.Commitment...)
}

func (id BlobID) String() string {
	return hex.EncodeToString(id.Bytes())
}

// Equal reports whether both ids point at the same blob.
func (id BlobID) Equal(other BlobID) bool {
	return id.Height == other.Height && bytes.Equal(id.Commitment, other.Commitment)
}

// ParseBlobID decodes the hex form produced by BlobID.String.
func ParseBlobID(s string) (BlobID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return BlobID{}, fmt.Errorf("%w: celestia id is not hex: %v", daerr.ErrInvalidBlobID, err)
	}
	if len(raw) != 8+CommitmentSize {
		return BlobID{}, fmt.Errorf("%w: celestia id must be %d bytes, got %d", daerr.ErrInvalidBlobID, 8+CommitmentSize, len(raw))
	}
	height := binary.BigEndian.Uint64(raw[:8])
	if height == 0 {
		return BlobID{}, fmt.Errorf("%w: celestia height must be positive", daerr.ErrInvalidBlobID)
	}
	return BlobID{Height: height, Commitment: raw[8:]}, nil
}
