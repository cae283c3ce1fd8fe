package daerr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// Kind tells the caller whether repeating the operation may succeed.
type Kind uint8

const (
	// KindTerminal failures will fail again if repeated unchanged.
	KindTerminal Kind = iota
	// KindRetriable failures are transient and may succeed later.
	KindRetriable
)

func (k Kind) String() string {
	switch k {
	case KindRetriable:
		return "retriable"
	case KindTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

var (
	ErrBlobTooLarge     = errors.New("blob exceeds maximum size")
	ErrInvalidBlobID    = errors.New("invalid blob id")
	ErrIntegrity        = errors.New("proof integrity check failed")
	ErrNotFinal         = errors.New("submission not final yet")
	ErrRetriesExhausted = errors.New("max retries exceeded")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrMalformedProof   = errors.New("malformed inclusion proof")
)

// Error is a classified failure raised by a backend adapter, the dispatch
// coordinator or a proof transcoder.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retriable tags err as transient.
func Retriable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindRetriable, Op: op, Err: err}
}

// Terminal tags err as permanent.
func Terminal(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindTerminal, Op: op, Err: err}
}

// Retriablef formats a transient failure.
func Retriablef(op, format string, args ...any) error {
	return &Error{Kind: KindRetriable, Op: op, Err: fmt.Errorf(format, args...)}
}

// Terminalf formats a permanent failure.
func Terminalf(op, format string, args ...any) error {
	return &Error{Kind: KindTerminal, Op: op, Err: fmt.Errorf(format, args...)}
}

// StatusError is a non-2xx answer from an HTTP endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected HTTP status %d", e.Code)
	}
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.Code, e.Body)
}

// Classify maps a failure to its Kind based only on where it came from.
func Classify(err error) Kind {
	if err == nil {
		return KindTerminal
	}

	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}

	var status *StatusError
	if errors.As(err, &status) {
		return classifyStatus(status.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return KindRetriable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindRetriable
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return KindRetriable
	}

	return KindTerminal
}

func classifyStatus(code int) Kind {
	switch {
	case code >= http.StatusInternalServerError,
		code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests:
		return KindRetriable
	default:
		return KindTerminal
	}
}

// IsRetriable reports whether err is worth repeating.
func IsRetriable(err error) bool {
	return err != nil && Classify(err) == KindRetriable
}

// IsTerminal reports whether err is permanent.
func IsTerminal(err error) bool {
	return err != nil && Classify(err) == KindTerminal
}

// Wrap tags an untagged error according to Classify and leaves tagged
// errors unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	return &Error{Kind: Classify(err), Op: op, Err: err}
}
