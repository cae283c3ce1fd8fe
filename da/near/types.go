package near

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/mr-tron/base58"
)

// CryptoHash is a 32 byte NEAR hash, base58 encoded in JSON.
type CryptoHash [32]byte

func (h CryptoHash) String() string { return base58.Encode(h[:]) }

// ParseCryptoHash decodes a base58 hash.
func ParseCryptoHash(s string) (CryptoHash, error) {
	var h CryptoHash
	b, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("invalid base58 hash %q: %v", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hash %q has %d bytes, want %d", s, len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

func (h CryptoHash) MarshalJSON() ([]byte, error) { return json.Marshal(h.String()) }

func (h *CryptoHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCryptoHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Direction tells which side of the running hash a path item sits on.
type Direction uint8

const (
	Left Direction = iota
	Right
)

func (d Direction) String() string {
	if d == Left {
		return "Left"
	}
	return "Right"
}

func (d Direction) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Direction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Left":
		*d = Left
	case "Right":
		*d = Right
	default:
		return fmt.Errorf("unknown merkle direction %q", s)
	}
	return nil
}

// MerklePathItem is one step of a NEAR merkle path.
type MerklePathItem struct {
	Hash      CryptoHash `json:"hash"`
	Direction Direction  `json:"direction"`
}

// U128 is a NEAR balance, encoded as a decimal string in JSON.
type U128 struct {
	big.Int
}

func (u U128) MarshalJSON() ([]byte, error) { return json.Marshal(u.Int.String()) }

func (u *U128) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// nearcore versions before 1.x sent plain numbers
		s = string(data)
	}
	if _, ok := u.Int.SetString(s, 10); !ok {
		return fmt.Errorf("invalid u128 %q", s)
	}
	return nil
}

// U64String is a u64 that may be sent as a string.
type U64String uint64

func (u *U64String) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = string(data)
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid u64 %q: %v", s, err)
	}
	*u = U64String(v)
	return nil
}

// ExecutionStatusKind enumerates the outcome status variants in Borsh order.
type ExecutionStatusKind uint8

const (
	StatusUnknown ExecutionStatusKind = iota
	StatusFailure
	StatusSuccessValue
	StatusSuccessReceiptID
)

// ExecutionStatus is the status of an execution outcome.
type ExecutionStatus struct {
	Kind ExecutionStatusKind
	// Value holds the base64 decoded return value for SuccessValue.
	Value []byte
	// ReceiptID is set for SuccessReceiptId.
	ReceiptID CryptoHash
	// Failure keeps the raw failure description.
	Failure json.RawMessage
}

func (s *ExecutionStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		if name != "Unknown" {
			return fmt.Errorf("unknown execution status %q", name)
		}
		*s = ExecutionStatus{Kind: StatusUnknown}
		return nil
	}
	var obj struct {
		SuccessValue     *[]byte         `json:"SuccessValue"`
		SuccessReceiptID *CryptoHash     `json:"SuccessReceiptId"`
		Failure          json.RawMessage `json:"Failure"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid execution status: %v", err)
	}
	switch {
	case obj.SuccessValue != nil:
		*s = ExecutionStatus{Kind: StatusSuccessValue, Value: *obj.SuccessValue}
	case obj.SuccessReceiptID != nil:
		*s = ExecutionStatus{Kind: StatusSuccessReceiptID, ReceiptID: *obj.SuccessReceiptID}
	case obj.Failure != nil:
		*s = ExecutionStatus{Kind: StatusFailure, Failure: obj.Failure}
	default:
		return fmt.Errorf("invalid execution status %s", data)
	}
	return nil
}

func (s ExecutionStatus) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StatusSuccessValue:
		return json.Marshal(map[string][]byte{"SuccessValue": s.Value})
	case StatusSuccessReceiptID:
		return json.Marshal(map[string]CryptoHash{"SuccessReceiptId": s.ReceiptID})
	case StatusFailure:
		failure := s.Failure
		if failure == nil {
			failure = json.RawMessage("{}")
		}
		return json.Marshal(map[string]json.RawMessage{"Failure": failure})
	default:
		return json.Marshal("Unknown")
	}
}

// ExecutionOutcome is the part of a transaction outcome committed to in outcome_root.
type ExecutionOutcome struct {
	Logs        []string        `json:"logs"`
	ReceiptIDs  []CryptoHash    `json:"receipt_ids"`
	GasBurnt    uint64          `json:"gas_burnt"`
	TokensBurnt U128            `json:"tokens_burnt"`
	ExecutorID  string          `json:"executor_id"`
	Status      ExecutionStatus `json:"status"`
}

// OutcomeProof proves an outcome against its chunk outcome root.
type OutcomeProof struct {
	Proof     []MerklePathItem `json:"proof"`
	BlockHash CryptoHash       `json:"block_hash"`
	ID        CryptoHash       `json:"id"`
	Outcome   ExecutionOutcome `json:"outcome"`
}

// InnerLite is the light client part of a block header.
type InnerLite struct {
	Height          uint64     `json:"height"`
	EpochID         CryptoHash `json:"epoch_id"`
	NextEpochID     CryptoHash `json:"next_epoch_id"`
	PrevStateRoot   CryptoHash `json:"prev_state_root"`
	OutcomeRoot     CryptoHash `json:"outcome_root"`
	Timestamp       U64String  `json:"timestamp"`
	NextBPHash      CryptoHash `json:"next_bp_hash"`
	BlockMerkleRoot CryptoHash `json:"block_merkle_root"`
}

// BlockHeaderLite is the header view returned by the light client endpoints.
type BlockHeaderLite struct {
	PrevBlockHash CryptoHash `json:"prev_block_hash"`
	InnerRestHash CryptoHash `json:"inner_rest_hash"`
	InnerLite     InnerLite  `json:"inner_lite"`
}

// LightClientProof is the response of EXPERIMENTAL_light_client_proof.
type LightClientProof struct {
	OutcomeProof     OutcomeProof     `json:"outcome_proof"`
	OutcomeRootProof []MerklePathItem `json:"outcome_root_proof"`
	BlockHeaderLite  BlockHeaderLite  `json:"block_header_lite"`
	BlockProof       []MerklePathItem `json:"block_proof"`
}

// blockProofView is the response of EXPERIMENTAL_light_client_block_proof.
type blockProofView struct {
	BlockHeaderLite BlockHeaderLite  `json:"block_header_lite"`
	BlockProof      []MerklePathItem `json:"block_proof"`
}

// accessKeyView is the response of a view_access_key query.
type accessKeyView struct {
	Nonce     uint64     `json:"nonce"`
	BlockHash CryptoHash `json:"block_hash"`
}

// txOutcomeView is the subset of a broadcast_tx_commit result we read.
type txOutcomeView struct {
	Status      ExecutionStatus `json:"status"`
	Transaction struct {
		Hash     CryptoHash `json:"hash"`
		SignerID string     `json:"signer_id"`
	} `json:"transaction"`
	TransactionOutcome struct {
		ID        CryptoHash `json:"id"`
		BlockHash CryptoHash `json:"block_hash"`
	} `json:"transaction_outcome"`
}

// RawProof is the material fetched for one transaction before transcoding.
type RawProof struct {
	TxHash     CryptoHash
	Proof      *LightClientProof
	Head       CryptoHash
	HeadHeader BlockHeaderLite
}
