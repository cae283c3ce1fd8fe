package dispatch

import "time"

// State of a single dispatch.
type State int

const (
	StateCreated State = iota
	StateSubmitting
	StateAwaitingFinality
	StateSubmitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingFinality:
		return "awaiting_finality"
	case StateSubmitted:
		return "submitted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event describes a state transition of one dispatch.
type Event struct {
	Backend     string    `json:"backend"`
	BatchNumber uint64    `json:"batch_number"`
	State       string    `json:"state"`
	BlobID      string    `json:"blob_id,omitempty"`
	Size        int       `json:"size"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
}

// Observer receives dispatch events. It is called synchronously and must not block.
type Observer func(Event)

// RetryState counts the attempts of one retry loop.
type RetryState struct {
	Attempts    int
	MaxAttempts int
	Started     time.Time
}

func newRetryState(maxRetries int) *RetryState {
	return &RetryState{MaxAttempts: maxRetries + 1, Started: time.Now()}
}

// Elapsed is the time spent since the loop started.
func (r *RetryState) Elapsed() time.Duration {
	return time.Since(r.Started)
}

// Exhausted reports whether no attempts remain.
func (r *RetryState) Exhausted() bool {
	return r.Attempts >= r.MaxAttempts
}
