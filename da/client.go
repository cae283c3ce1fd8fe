package da

import "context"

// Client is the interface callers use to reach any DA backend.
type Client interface {
	// Name returns the backend identifier, e.g. "avail".
	Name() string
	// MaxBlobSize is the largest blob the backend accepts, in bytes.
	MaxBlobSize() int
	// Dispatch submits data and returns once the backend has irreversibly
	// ordered it. batchNumber is caller metadata and is only logged.
	Dispatch(ctx context.Context, batchNumber uint64, data []byte) (*DispatchResponse, error)
	// GetInclusionData returns the canonical attestation for blobID, or nil
	// when the backend cannot prove inclusion yet.
	GetInclusionData(ctx context.Context, blobID string) (*InclusionData, error)
}

// DispatchResponse is returned by a successful dispatch.
type DispatchResponse struct {
	BlobID string `json:"blob_id"`
}

// InclusionData holds an encoded attestation.
type InclusionData struct {
	Data []byte `json:"data"`
}
