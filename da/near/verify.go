package near

import (
	"crypto/sha256"
	"fmt"

	"github.com/airchains-network/da-dispatcher/da/daerr"
)

func combineHash(a, b CryptoHash) CryptoHash {
	return sha256.Sum256(append(a[:], b[:]...))
}

// ComputeRootFromPath folds a merkle path over item.
func ComputeRootFromPath(path []MerklePathItem, item CryptoHash) CryptoHash {
	res := item
	for _, p := range path {
		if p.Direction == Left {
			res = combineHash(p.Hash, res)
		} else {
			res = combineHash(res, p.Hash)
		}
	}
	return res
}

// partialOutcomeBytes is the Borsh form of an outcome without its logs.
func partialOutcomeBytes(o *ExecutionOutcome) []byte {
	var w borshWriter
	w.hashes(o.ReceiptIDs)
	w.u64(o.GasBurnt)
	w.u128(&o.TokensBurnt.Int)
	w.string(o.ExecutorID)
	w.u8(uint8(o.Status.Kind))
	switch o.Status.Kind {
	case StatusSuccessValue:
		w.bytes(o.Status.Value)
	case StatusSuccessReceiptID:
		w.fixed(o.Status.ReceiptID[:])
	}
	return w.buf
}

// OutcomeHash is the leaf committed to in the chunk outcome root.
func OutcomeHash(p *OutcomeProof) CryptoHash {
	hashes := make([]CryptoHash, 0, len(p.Outcome.Logs)+2)
	hashes = append(hashes, p.ID, sha256.Sum256(partialOutcomeBytes(&p.Outcome)))
	for _, l := range p.Outcome.Logs {
		hashes = append(hashes, sha256.Sum256([]byte(l)))
	}
	var w borshWriter
	w.hashes(hashes)
	return sha256.Sum256(w.buf)
}

func innerLiteBytes(l *InnerLite) []byte {
	var w borshWriter
	w.u64(l.Height)
	w.fixed(l.EpochID[:])
	w.fixed(l.NextEpochID[:])
	w.fixed(l.PrevStateRoot[:])
	w.fixed(l.OutcomeRoot[:])
	w.u64(uint64(l.Timestamp))
	w.fixed(l.NextBPHash[:])
	w.fixed(l.BlockMerkleRoot[:])
	return w.buf
}

// Hash recomputes the block hash from the lite header.
func (h *BlockHeaderLite) Hash() CryptoHash {
	inner := combineHash(sha256.Sum256(innerLiteBytes(&h.InnerLite)), h.InnerRestHash)
	return combineHash(inner, h.PrevBlockHash)
}

// VerifyProof checks an outcome proof against the block merkle root of the trusted head.
func VerifyProof(p *LightClientProof, headMerkleRoot CryptoHash) error {
	const op = "near verify"
	if p == nil {
		return daerr.Terminal(op, fmt.Errorf("%w: no proof", daerr.ErrMalformedProof))
	}

	shardRoot := ComputeRootFromPath(p.OutcomeProof.Proof, OutcomeHash(&p.OutcomeProof))
	outcomeRoot := ComputeRootFromPath(p.OutcomeRootProof, sha256.Sum256(shardRoot[:]))
	if outcomeRoot != p.BlockHeaderLite.InnerLite.OutcomeRoot {
		return daerr.Terminal(op, fmt.Errorf("%w: outcome root %s does not match block outcome root %s",
			daerr.ErrIntegrity, outcomeRoot, p.BlockHeaderLite.InnerLite.OutcomeRoot))
	}

	// The header is the first block after the outcome block that carries a chunk for its shard.
	root := ComputeRootFromPath(p.BlockProof, p.BlockHeaderLite.Hash())
	if root != headMerkleRoot {
		return daerr.Terminal(op, fmt.Errorf("%w: block proof root %s does not match head merkle root %s",
			daerr.ErrIntegrity, root, headMerkleRoot))
	}
	return nil
}
