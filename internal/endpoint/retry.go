package endpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/lodtree/lodtree/internal/octerr"
)

// maxAttempts bounds a PUT or GET at 20 total tries: the first attempt
// plus up to 19 retries.
const maxAttempts = 20

// linearBackOff sleeps k seconds before attempt k+1, the schedule
// the retry discipline calls for rather than backoff's usual
// exponential growth.
type linearBackOff struct {
	attempt uint64
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * time.Second
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// Retrying wraps an Endpoint with the retry discipline: up to
// maxAttempts tries, sleeping k seconds after attempt k before
// retrying, logging each transient failure and surfacing
// octerr.ErrFatal once retries are exhausted.
type Retrying struct {
	inner      Endpoint
	log        zerolog.Logger
	maxRetries uint64
}

// NewRetrying wraps inner with the standard retry discipline: up to
// maxAttempts total tries.
func NewRetrying(inner Endpoint, log zerolog.Logger) *Retrying {
	return newRetrying(inner, log, maxAttempts-1)
}

// newRetrying lets tests exercise exhaustion without waiting through
// the full linear schedule every real attempt count implies.
func newRetrying(inner Endpoint, log zerolog.Logger, maxRetries uint64) *Retrying {
	return &Retrying{inner: inner, log: log, maxRetries: maxRetries}
}

func (r *Retrying) Put(ctx context.Context, path string, data []byte) error {
	op := func() error { return r.inner.Put(ctx, path, data) }
	if err := r.run(ctx, "put", path, op); err != nil {
		return fmt.Errorf("endpoint: put %s exhausted retries: %w", path, err)
	}
	return nil
}

func (r *Retrying) Get(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	op := func() error {
		b, err := r.inner.Get(ctx, path)
		if errors.Is(err, octerr.ErrChunkNotFound) {
			// a missing chunk is permanent, not transient: retrying
			// the full linear schedule would only delay a result
			// that can never change
			return backoff.Permanent(err)
		}
		if err != nil {
			return err
		}
		data = b
		return nil
	}
	if err := r.run(ctx, "get", path, op); err != nil {
		if errors.Is(err, octerr.ErrChunkNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("endpoint: get %s exhausted retries: %w", path, err)
	}
	return data, nil
}

func (r *Retrying) run(ctx context.Context, verb, path string, op backoff.Operation) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(&linearBackOff{}, r.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		r.log.Warn().Err(err).Str("verb", verb).Str("path", path).Dur("wait", wait).Msg("endpoint: transient failure, retrying")
	}
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		if errors.Is(err, octerr.ErrChunkNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", octerr.ErrFatal, err)
	}
	return nil
}
