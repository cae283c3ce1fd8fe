package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airchains-network/da-dispatcher/da"
	"github.com/airchains-network/da-dispatcher/da/daerr"
	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
)

// Config controls the coordinator's waiting behaviour.
type Config struct {
	// MaxRetries bounds the polls after the first one.
	MaxRetries int
	// PollInterval is the fixed sleep between polls.
	PollInterval time.Duration
	// Timeout bounds every poll and proof fetch, zero disables it. Submit is
	// only bounded by the caller's context: a submission cut short by a
	// deadline may still land on chain.
	Timeout time.Duration
}

// Pipeline drives one backend adapter and its transcoder. It implements da.Client.
type Pipeline[ID fmt.Stringer, P any] struct {
	adapter   Adapter[ID, P]
	transcode Transcoder[P]
	cfg       Config
	log       *logrus.Logger
	observer  Observer
}

var _ da.Client = (*Pipeline[fmt.Stringer, any])(nil)

// NewPipeline creates a dispatch-and-attest pipeline for adapter.
func NewPipeline[ID fmt.Stringer, P any](adapter Adapter[ID, P], transcode Transcoder[P], cfg Config, log *logrus.Logger) *Pipeline[ID, P] {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if log == nil {
		log = logrus.New()
	}
	return &Pipeline[ID, P]{adapter: adapter, transcode: transcode, cfg: cfg, log: log}
}

// WithObserver registers a hook that sees every state transition.
func (p *Pipeline[ID, P]) WithObserver(o Observer) *Pipeline[ID, P] {
	p.observer = o
	return p
}

func (p *Pipeline[ID, P]) Name() string { return p.adapter.Name() }

func (p *Pipeline[ID, P]) MaxBlobSize() int { return p.adapter.MaxBlobSize() }

// Dispatch submits data through the adapter and waits for finality when needed.
func (p *Pipeline[ID, P]) Dispatch(ctx context.Context, batchNumber uint64, data []byte) (*da.DispatchResponse, error) {
	ev := Event{Backend: p.Name(), BatchNumber: batchNumber, Size: len(data)}
	p.emit(ev, StateCreated)

	if limit := p.adapter.MaxBlobSize(); len(data) > limit {
		err := daerr.Terminal("dispatch", fmt.Errorf("%w: %d > %d bytes", daerr.ErrBlobTooLarge, len(data), limit))
		p.fail(ev, err)
		return nil, err
	}

	p.emit(ev, StateSubmitting)
	sub, err := p.adapter.Submit(ctx, data)
	if err != nil {
		err = daerr.Wrap("submit", err)
		p.fail(ev, err)
		return nil, err
	}

	id := sub.ID
	if sub.Pending != nil {
		p.emit(ev, StateAwaitingFinality)
		id, err = p.awaitFinality(ctx, ev, sub.Pending)
		if err != nil {
			p.fail(ev, err)
			return nil, err
		}
	}

	ev.BlobID = id.String()
	p.emit(ev, StateSubmitted)
	return &da.DispatchResponse{BlobID: ev.BlobID}, nil
}

func (p *Pipeline[ID, P]) awaitFinality(ctx context.Context, ev Event, poller Poller[ID]) (ID, error) {
	var zero ID
	state := newRetryState(p.cfg.MaxRetries)

	// nothing is final right after submission
	if err := sleep(ctx, p.cfg.PollInterval); err != nil {
		return zero, daerr.Wrap("await finality", err)
	}

	id, err := retry.DoWithData(
		func() (ID, error) {
			state.Attempts++
			callCtx, cancel := p.callContext(ctx)
			defer cancel()
			id, final, err := poller.Poll(callCtx)
			if err != nil {
				return zero, daerr.Wrap("poll", err)
			}
			if !final {
				return zero, daerr.Retriable("poll", daerr.ErrNotFinal)
			}
			return id, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(state.MaxAttempts)),
		retry.Delay(p.cfg.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(daerr.IsRetriable),
		retry.OnRetry(func(n uint, err error) {
			p.log.WithFields(logrus.Fields{"backend": ev.Backend, "batch": ev.BatchNumber}).
				Debugf("Submission not final after attempt %d/%d: %v", state.Attempts, state.MaxAttempts, err)
		}),
	)
	if err == nil {
		return id, nil
	}
	if daerr.IsRetriable(err) && state.Exhausted() {
		return zero, daerr.Retriable("await finality",
			fmt.Errorf("%w: %d polls in %s: %v", daerr.ErrRetriesExhausted, state.Attempts, state.Elapsed().Round(time.Millisecond), err))
	}
	return zero, daerr.Wrap("await finality", err)
}

// GetInclusionData fetches the raw proof for blobID and transcodes it.
func (p *Pipeline[ID, P]) GetInclusionData(ctx context.Context, blobID string) (*da.InclusionData, error) {
	id, err := p.adapter.ParseBlobID(blobID)
	if err != nil {
		if !errors.Is(err, daerr.ErrInvalidBlobID) {
			err = fmt.Errorf("%w: %v", daerr.ErrInvalidBlobID, err)
		}
		return nil, daerr.Terminal("parse blob id", err)
	}

	type fetched struct {
		raw P
		ok  bool
	}
	state := newRetryState(p.cfg.MaxRetries)
	res, err := retry.DoWithData(
		func() (fetched, error) {
			state.Attempts++
			callCtx, cancel := p.callContext(ctx)
			defer cancel()
			raw, ok, err := p.adapter.FetchRawProof(callCtx, id)
			if err != nil {
				return fetched{}, daerr.Wrap("fetch proof", err)
			}
			return fetched{raw: raw, ok: ok}, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(state.MaxAttempts)),
		retry.Delay(p.cfg.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(daerr.IsRetriable),
		retry.OnRetry(func(n uint, err error) {
			p.log.WithField("blob_id", blobID).Warnf("Attempt %d/%d: failed to fetch inclusion proof: %v", state.Attempts, state.MaxAttempts, err)
		}),
	)
	if err != nil {
		if daerr.IsRetriable(err) && state.Exhausted() {
			return nil, daerr.Retriable("fetch proof",
				fmt.Errorf("%w: %d attempts: %v", daerr.ErrRetriesExhausted, state.Attempts, err))
		}
		return nil, daerr.Wrap("fetch proof", err)
	}
	if !res.ok {
		p.log.WithField("blob_id", blobID).Debugf("Inclusion proof for %s not available yet", p.Name())
		return nil, nil
	}

	data, err := p.transcode(res.raw)
	if err != nil {
		var tagged *daerr.Error
		if !errors.As(err, &tagged) {
			err = daerr.Terminal("transcode", err)
		}
		return nil, err
	}
	return &da.InclusionData{Data: data}, nil
}

func (p *Pipeline[ID, P]) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, p.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func (p *Pipeline[ID, P]) emit(ev Event, s State) {
	ev.State = s.String()
	ev.Time = time.Now()
	entry := p.log.WithFields(logrus.Fields{"backend": ev.Backend, "batch": ev.BatchNumber, "state": ev.State})
	switch s {
	case StateSubmitted:
		entry.WithField("blob_id", ev.BlobID).Infof("Blob of %d bytes dispatched", ev.Size)
	case StateFailed:
		entry.Errorf("Dispatch failed: %s", ev.Error)
	default:
		entry.Debug("Dispatch state changed")
	}
	if p.observer != nil {
		p.observer(ev)
	}
}

func (p *Pipeline[ID, P]) fail(ev Event, err error) {
	ev.Error = err.Error()
	p.emit(ev, StateFailed)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
