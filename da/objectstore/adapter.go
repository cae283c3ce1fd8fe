package objectstore

import (
	"context"
	"fmt"

	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/airchains-network/da-dispatcher/db"
	"github.com/airchains-network/da-dispatcher/dispatch"
	"github.com/sirupsen/logrus"
)

const (
	// Name identifies the backend.
	Name = "objectstore"
	// DefaultMaxBlobSize applies when the config leaves the limit unset.
	DefaultMaxBlobSize = 1 << 20
)

// Config holds object store settings
type Config struct {
	Path        string `toml:"path"`
	MaxBlobSize int    `toml:"max_blob_size"`
}

// Validate checks the required settings.
func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: objectstore.path is required", daerr.ErrInvalidConfig)
	}
	if c.MaxBlobSize < 0 {
		return fmt.Errorf("%w: objectstore.max_blob_size must not be negative", daerr.ErrInvalidConfig)
	}
	return nil
}

// RawProof is the stored blob read back under its id.
type RawProof struct {
	ID   BlobID
	Data []byte
}

// Adapter stores blobs in a local key-value store under their content address.
type Adapter struct {
	store       db.DB
	maxBlobSize int
	log         *logrus.Logger
}

var _ dispatch.Adapter[BlobID, *RawProof] = (*Adapter)(nil)

// NewAdapter creates an object store adapter over store.
func NewAdapter(store db.DB, maxBlobSize int, log *logrus.Logger) *Adapter {
	if maxBlobSize <= 0 {
		maxBlobSize = DefaultMaxBlobSize
	}
	return &Adapter{store: store, maxBlobSize: maxBlobSize, log: log}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) MaxBlobSize() int { return a.maxBlobSize }

func (a *Adapter) ParseBlobID(s string) (BlobID, error) { return ParseBlobID(s) }

// Submit puts the blob under its CID. Storing the same content twice is a no-op.
func (a *Adapter) Submit(ctx context.Context, blob []byte) (dispatch.Submission[BlobID], error) {
	if err := ctx.Err(); err != nil {
		return dispatch.Submission[BlobID]{}, daerr.Wrap("objectstore put", err)
	}
	id, err := NewBlobID(blob)
	if err != nil {
		return dispatch.Submission[BlobID]{}, daerr.Terminal("objectstore put", err)
	}
	exists, err := a.store.Has(id.key())
	if err != nil {
		return dispatch.Submission[BlobID]{}, daerr.Retriable("objectstore put", fmt.Errorf("failed to check blob: %v", err))
	}
	if !exists {
		if err := a.store.Put(id.key(), blob); err != nil {
			return dispatch.Submission[BlobID]{}, daerr.Retriable("objectstore put", fmt.Errorf("failed to store blob: %v", err))
		}
	}
	a.log.Debugf("Stored blob %s (%d bytes)", id, len(blob))
	return dispatch.Final(id), nil
}

// FetchRawProof reads the blob back. A missing blob was never stored here.
func (a *Adapter) FetchRawProof(ctx context.Context, id BlobID) (*RawProof, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, daerr.Wrap("objectstore get", err)
	}
	data, err := a.store.Get(id.key())
	if err != nil {
		return nil, false, daerr.Retriable("objectstore get", fmt.Errorf("failed to read blob: %v", err))
	}
	if data == nil {
		return nil, false, daerr.Terminalf("objectstore get", "blob %s not found", id)
	}
	return &RawProof{ID: id, Data: data}, true, nil
}
