package services

import (
	"context"
	"time"

	"document-search-platform/internal/telemetry"
	"document-search-platform/models"
)

// retryPolicy retries transient store failures with bounded exponential
// backoff. Extraction and embedding errors are deterministic on the same
// input and never pass the Retryable check, so they fall through on the
// first attempt; so do credential errors.
type retryPolicy struct {
	attempts    int
	backoffBase time.Duration
}

func newRetryPolicy(attempts int, backoffBase time.Duration) retryPolicy {
	if attempts <= 0 {
		attempts = 1
	}
	if backoffBase <= 0 {
		backoffBase = 200 * time.Millisecond
	}
	return retryPolicy{attempts: attempts, backoffBase: backoffBase}
}

func (p retryPolicy) do(ctx context.Context, metrics *telemetry.Metrics, store, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			backoff := p.backoffBase << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return models.WrapError(models.KindTransient, op, "", ctx.Err())
			}
			if metrics != nil {
				metrics.RecordStoreRetry(store, op)
			}
		}

		err = fn()
		if err == nil || !models.Retryable(err) {
			return err
		}
	}
	return err
}
