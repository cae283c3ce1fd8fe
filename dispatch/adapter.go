package dispatch

import (
	"context"
	"fmt"
)

// Adapter is the narrow contract every DA backend implements. ID is the
// backend's blob id and P its raw inclusion proof.
type Adapter[ID fmt.Stringer, P any] interface {
	Name() string
	MaxBlobSize() int
	// ParseBlobID must reject ids produced by any other backend.
	ParseBlobID(s string) (ID, error)
	// Submit sends the blob once. It is never repeated by the coordinator.
	Submit(ctx context.Context, blob []byte) (Submission[ID], error)
	// FetchRawProof returns ok=false while the backend cannot prove inclusion yet.
	FetchRawProof(ctx context.Context, id ID) (raw P, ok bool, err error)
}

// Poller checks whether a submission has been finalized on chain.
type Poller[ID fmt.Stringer] interface {
	Poll(ctx context.Context) (id ID, final bool, err error)
}

// Submission is the outcome of Adapter.Submit: either a final id or a
// pending submission that must be polled.
type Submission[ID fmt.Stringer] struct {
	ID      ID
	Pending Poller[ID]
}

// Final wraps an id that needs no further polling.
func Final[ID fmt.Stringer](id ID) Submission[ID] {
	return Submission[ID]{ID: id}
}

// Awaiting wraps a poller for a submission that is not ordered yet.
func Awaiting[ID fmt.Stringer](p Poller[ID]) Submission[ID] {
	return Submission[ID]{Pending: p}
}

// Transcoder turns a backend raw proof into canonical attestation bytes.
// It must be pure and deterministic.
type Transcoder[P any] func(raw P) ([]byte, error)
