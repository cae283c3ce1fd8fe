package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/airchains-network/da-dispatcher/db"
)

const receiptPrefix = "receipt_"

// Receipt records one successful dispatch.
type Receipt struct {
	BlobID      string    `json:"blob_id"`
	Backend     string    `json:"backend"`
	BatchNumber uint64    `json:"batch_number"`
	Size        int       `json:"size"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Receipts persists dispatch receipts keyed by blob id.
type Receipts struct {
	db db.DB
}

// NewReceipts creates a receipt store over database.
func NewReceipts(database db.DB) *Receipts {
	return &Receipts{db: database}
}

func receiptKey(blobID string) []byte {
	return []byte(receiptPrefix + blobID)
}

// Save stores r, replacing any receipt for the same blob id.
func (s *Receipts) Save(r Receipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %v", err)
	}
	if err := s.db.Put(receiptKey(r.BlobID), data); err != nil {
		return fmt.Errorf("failed to save receipt: %v", err)
	}
	return nil
}

// Get returns the receipt of blobID, or nil if none was recorded.
func (s *Receipts) Get(blobID string) (*Receipt, error) {
	data, err := s.db.Get(receiptKey(blobID))
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %v", err)
	}
	if data == nil {
		return nil, nil
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal receipt: %v", err)
	}
	return &r, nil
}

// List returns up to limit receipts in blob id order. limit <= 0 means all.
func (s *Receipts) List(limit int) ([]Receipt, error) {
	receipts := []Receipt{}
	var decodeErr error
	err := s.db.Iterate([]byte(receiptPrefix), func(key, value []byte) bool {
		var r Receipt
		if err := json.Unmarshal(value, &r); err != nil {
			decodeErr = fmt.Errorf("failed to unmarshal receipt %s: %v", key, err)
			return false
		}
		receipts = append(receipts, r)
		return limit <= 0 || len(receipts) < limit
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %v", err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return receipts, nil
}
