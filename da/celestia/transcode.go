package celestia

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/airchains-network/da-dispatcher/proof"
	"github.com/celestiaorg/nmt"
	"github.com/cometbft/cometbft/crypto/merkle"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Attestation is the canonical Celestia inclusion proof.
type Attestation struct {
	Height      *big.Int                          `abi:"height"`
	DataRoot    [32]byte                          `abi:"dataRoot"`
	Namespace   proof.Namespace                   `abi:"namespace"`
	RowRoots    []proof.NamespaceNode             `abi:"rowRoots"`
	RowProof    proof.MerkleMultiproof            `abi:"rowProof"`
	ShareProofs []proof.NamespaceMerkleMultiproof `abi:"shareProofs"`
}

var attestationType = proof.MustTupleType([]abi.ArgumentMarshaling{
	{Name: "height", Type: "uint256"},
	{Name: "dataRoot", Type: "bytes32"},
	{Name: "namespace", Type: "tuple", Components: proof.NamespaceComponents},
	{Name: "rowRoots", Type: "tuple[]", Components: proof.NamespaceNodeComponents},
	{Name: "rowProof", Type: "tuple", Components: proof.MerkleMultiproofComponents},
	{Name: "shareProofs", Type: "tuple[]", Components: proof.NamespaceMerkleMultiproofComponents},
})

// RowRange returns the first and last row of the original data square that
// hold a blob starting at blobIndex and spanning numShares shares.
func RowRange(blobIndex, numShares, edsWidth int) (int, int) {
	ods := edsWidth / 2
	firstRow := ceilDiv(blobIndex, edsWidth) - 1
	lastRow := ceilDiv(blobIndex-firstRow*ods+numShares, ods) - 1
	return firstRow, lastRow
}

func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}

// Transcode verifies a raw Celestia proof and ABI-encodes the attestation.
func Transcode(raw *RawProof) ([]byte, error) {
	att, err := BuildAttestation(raw)
	if err != nil {
		return nil, err
	}
	out, err := proof.EncodeTuple(attestationType, att)
	if err != nil {
		return nil, daerr.Terminal("celestia transcode", err)
	}
	return out, nil
}

// BuildAttestation checks the data availability header and builds the
// row range proof.
func BuildAttestation(raw *RawProof) (*Attestation, error) {
	const op = "celestia transcode"
	malformed := func(format string, args ...any) error {
		return daerr.Terminal(op, fmt.Errorf("%w: %s", daerr.ErrMalformedProof, fmt.Sprintf(format, args...)))
	}
	if raw == nil {
		return nil, malformed("no proof")
	}

	eds := len(raw.RowRoots)
	switch {
	case eds == 0 || eds%2 != 0:
		return nil, malformed("invalid extended square width %d", eds)
	case len(raw.ColumnRoots) != eds:
		return nil, malformed("%d row roots but %d column roots", eds, len(raw.ColumnRoots))
	case len(raw.DataHash) != 32:
		return nil, malformed("data hash has %d bytes", len(raw.DataHash))
	case len(raw.ShareProofs) == 0:
		return nil, malformed("no share proofs")
	}

	leaves := make([][]byte, 0, 2*eds)
	leaves = append(leaves, raw.RowRoots...)
	leaves = append(leaves, raw.ColumnRoots...)
	for i, l := range leaves {
		if len(l) != proof.NamespaceNodeSize {
			return nil, malformed("axis root %d has %d bytes", i, len(l))
		}
	}
	if !bytes.Equal(merkle.HashFromByteSlices(leaves), raw.DataHash) {
		return nil, daerr.Terminal(op, fmt.Errorf("%w: data availability header does not hash to data root %x", daerr.ErrIntegrity, raw.DataHash))
	}

	shareProofs := make([]proof.NamespaceMerkleMultiproof, len(raw.ShareProofs))
	numShares := 0
	for i, p := range raw.ShareProofs {
		converted, err := convertShareProof(p)
		if err != nil {
			return nil, daerr.Terminal(op, fmt.Errorf("share proof %d: %w", i, err))
		}
		shareProofs[i] = converted
		numShares += p.End() - p.Start()
	}

	// blob shares only live in the original square, the top half of the rows
	firstRow, lastRow := RowRange(raw.BlobIndex, numShares, eds)
	if firstRow < 0 || lastRow < firstRow || lastRow >= eds/2 {
		return nil, daerr.Terminal(op, fmt.Errorf("%w: blob index %d with %d shares gives rows [%d, %d] in a square of width %d",
			daerr.ErrIntegrity, raw.BlobIndex, numShares, firstRow, lastRow, eds))
	}

	rowProof, root, err := proof.ProveRange(leaves, firstRow, lastRow+1)
	if err != nil {
		return nil, daerr.Terminal(op, err)
	}
	if !bytes.Equal(root[:], raw.DataHash) {
		return nil, daerr.Terminal(op, fmt.Errorf("%w: row proof root %x does not match data root", daerr.ErrIntegrity, root))
	}

	rowRoots := make([]proof.NamespaceNode, 0, lastRow-firstRow+1)
	for _, r := range raw.RowRoots[firstRow : lastRow+1] {
		node, err := proof.NamespaceNodeFromBytes(r)
		if err != nil {
			return nil, daerr.Terminal(op, err)
		}
		rowRoots = append(rowRoots, node)
	}

	ns, err := proof.NamespaceFromBytes(raw.Namespace)
	if err != nil {
		return nil, malformed("namespace: %v", err)
	}

	att := &Attestation{
		Height:      new(big.Int).SetUint64(raw.Height),
		Namespace:   ns,
		RowRoots:    rowRoots,
		RowProof:    rowProof,
		ShareProofs: shareProofs,
	}
	copy(att.DataRoot[:], raw.DataHash)
	return att, nil
}

func convertShareProof(p *nmt.Proof) (proof.NamespaceMerkleMultiproof, error) {
	if p == nil {
		return proof.NamespaceMerkleMultiproof{}, fmt.Errorf("%w: nil share proof", daerr.ErrMalformedProof)
	}
	if p.IsOfAbsence() {
		return proof.NamespaceMerkleMultiproof{}, fmt.Errorf("%w: namespace absence proof", daerr.ErrIntegrity)
	}
	if p.End() <= p.Start() {
		return proof.NamespaceMerkleMultiproof{}, fmt.Errorf("%w: empty share range [%d, %d)", daerr.ErrMalformedProof, p.Start(), p.End())
	}
	nodes := make([]proof.NamespaceNode, 0, len(p.Nodes()))
	for _, n := range p.Nodes() {
		node, err := proof.NamespaceNodeFromBytes(n)
		if err != nil {
			return proof.NamespaceMerkleMultiproof{}, fmt.Errorf("%w: %v", daerr.ErrMalformedProof, err)
		}
		nodes = append(nodes, node)
	}
	return proof.NamespaceMerkleMultiproof{
		BeginKey:  big.NewInt(int64(p.Start())),
		EndKey:    big.NewInt(int64(p.End())),
		SideNodes: nodes,
	}, nil
}
