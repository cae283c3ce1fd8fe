package proof

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	// NamespaceSize is the length of a serialized namespace: 1 version byte and a 28 byte id.
	NamespaceSize = 29
	// NamespaceNodeSize is min namespace, max namespace and a 32 byte digest.
	NamespaceNodeSize = 2*NamespaceSize + 32
)

// Namespace is a versioned namespace identifier.
type Namespace struct {
	Version [1]byte  `abi:"version"`
	ID      [28]byte `abi:"id"`
}

// NamespaceNode is a node of a namespaced Merkle tree.
type NamespaceNode struct {
	Min    Namespace `abi:"min"`
	Max    Namespace `abi:"max"`
	Digest [32]byte  `abi:"digest"`
}

// MerkleMultiproof proves the contiguous leaf range [BeginKey, EndKey) of a
// binary RFC-6962 Merkle tree.
type MerkleMultiproof struct {
	SideNodes [][32]byte `abi:"sideNodes"`
	BeginKey  *big.Int   `abi:"beginKey"`
	EndKey    *big.Int   `abi:"endKey"`
}

// NamespaceMerkleMultiproof proves the share range [BeginKey, EndKey) of one
// namespaced Merkle tree.
type NamespaceMerkleMultiproof struct {
	BeginKey  *big.Int        `abi:"beginKey"`
	EndKey    *big.Int        `abi:"endKey"`
	SideNodes []NamespaceNode `abi:"sideNodes"`
}

// NamespaceFromBytes parses a 29 byte namespace.
func NamespaceFromBytes(b []byte) (Namespace, error) {
	var ns Namespace
	if len(b) != NamespaceSize {
		return ns, fmt.Errorf("namespace must be %d bytes, got %d", NamespaceSize, len(b))
	}
	ns.Version[0] = b[0]
	copy(ns.ID[:], b[1:])
	return ns, nil
}

// Bytes returns the 29 byte form of the namespace.
func (n Namespace) Bytes() []byte {
	out := make([]byte, 0, NamespaceSize)
	out = append(out, n.Version[0])
	return append(out, n.ID[:]...)
}

// NamespaceNodeFromBytes splits a serialized NMT node into its parts.
func NamespaceNodeFromBytes(b []byte) (NamespaceNode, error) {
	var node NamespaceNode
	if len(b) != NamespaceNodeSize {
		return node, fmt.Errorf("namespace node must be %d bytes, got %d", NamespaceNodeSize, len(b))
	}
	minNs, err := NamespaceFromBytes(b[:NamespaceSize])
	if err != nil {
		return node, err
	}
	maxNs, err := NamespaceFromBytes(b[NamespaceSize : 2*NamespaceSize])
	if err != nil {
		return node, err
	}
	node.Min = minNs
	node.Max = maxNs
	copy(node.Digest[:], b[2*NamespaceSize:])
	return node, nil
}

// ABI component layouts shared by the attestation encoders.
var (
	NamespaceComponents = []abi.ArgumentMarshaling{
		{Name: "version", Type: "bytes1"},
		{Name: "id", Type: "bytes28"},
	}

	NamespaceNodeComponents = []abi.ArgumentMarshaling{
		{Name: "min", Type: "tuple", Components: NamespaceComponents},
		{Name: "max", Type: "tuple", Components: NamespaceComponents},
		{Name: "digest", Type: "bytes32"},
	}

	MerkleMultiproofComponents = []abi.ArgumentMarshaling{
		{Name: "sideNodes", Type: "bytes32[]"},
		{Name: "beginKey", Type: "uint256"},
		{Name: "endKey", Type: "uint256"},
	}

	NamespaceMerkleMultiproofComponents = []abi.ArgumentMarshaling{
		{Name: "beginKey", Type: "uint256"},
		{Name: "endKey", Type: "uint256"},
		{Name: "sideNodes", Type: "tuple[]", Components: NamespaceNodeComponents},
	}
)

// MustTupleType builds a tuple ABI type and panics on malformed component lists.
func MustTupleType(components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType("tuple", "", components)
	if err != nil {
		panic(fmt.Sprintf("invalid tuple definition: %v", err))
	}
	return typ
}

// EncodeTuple ABI-encodes v as a single tuple argument, the same bytes as
// Solidity's abi.encode(v).
func EncodeTuple(typ abi.Type, v any) ([]byte, error) {
	out, err := abi.Arguments{{Type: typ}}.Pack(v)
	if err != nil {
		return nil, fmt.Errorf("failed to abi encode %s: %w", typ.String(), err)
	}
	return out, nil
}
