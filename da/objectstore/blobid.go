package objectstore

import (
	"fmt"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// BlobID is the CIDv1 content address of a stored blob.
type BlobID struct {
	cid.Cid
}

// NewBlobID derives the content address of data.
func NewBlobID(data []byte) (BlobID, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return BlobID{}, fmt.Errorf("failed to hash blob: %v", err)
	}
	return BlobID{cid.NewCidV1(cid.Raw, mh)}, nil
}

// ParseBlobID accepts only raw sha2-256 CIDv1 strings.
func ParseBlobID(s string) (BlobID, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return BlobID{}, fmt.Errorf("%w: %v", daerr.ErrInvalidBlobID, err)
	}
	if c.Version() != 1 || c.Type() != cid.Raw {
		return BlobID{}, fmt.Errorf("%w: %s is not a raw CIDv1", daerr.ErrInvalidBlobID, s)
	}
	if c.Prefix().MhType != multihash.SHA2_256 {
		return BlobID{}, fmt.Errorf("%w: %s is not a sha2-256 CID", daerr.ErrInvalidBlobID, s)
	}
	return BlobID{c}, nil
}

// Digest returns the sha2-256 digest the id commits to.
func (id BlobID) Digest() ([]byte, error) {
	decoded, err := multihash.Decode(id.Hash())
	if err != nil {
		return nil, err
	}
	return decoded.Digest, nil
}

func (id BlobID) key() []byte {
	return append([]byte("blob_"), id.Bytes()...)
}
