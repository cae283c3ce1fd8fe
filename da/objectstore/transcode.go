package objectstore

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"golang.org/x/crypto/sha3"
)

// Transcode checks the stored bytes against the CID and returns their keccak-256 digest.
func Transcode(raw *RawProof) ([]byte, error) {
	const op = "objectstore transcode"
	if raw == nil {
		return nil, daerr.Terminal(op, fmt.Errorf("%w: no proof", daerr.ErrMalformedProof))
	}
	digest, err := raw.ID.Digest()
	if err != nil {
		return nil, daerr.Terminal(op, fmt.Errorf("%w: %v", daerr.ErrMalformedProof, err))
	}
	sum := sha256.Sum256(raw.Data)
	if !bytes.Equal(sum[:], digest) {
		return nil, daerr.Terminal(op, fmt.Errorf("%w: stored blob does not match %s", daerr.ErrIntegrity, raw.ID))
	}

	h := sha3.NewLegacyKeccak256()
	h.Write(raw.Data)
	return h.Sum(nil), nil
}
