package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// MutateFunc receives the payload read inside the transaction and returns the
// payload to write. write=false commits nothing. It may run more than once when
// the transaction is retried, so it must derive everything from current.
type MutateFunc func(current []json.RawMessage) (next []json.RawMessage, write bool, err error)

// errConflict signals that the document changed between read and write.
var errConflict = errors.New("document version changed")

const (
	retryBaseDelay = 25 * time.Millisecond
	retryMaxDelay  = time.Second
)

// retryDelay doubles per attempt, capped at retryMaxDelay.
func retryDelay(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	if d <= 0 || d > retryMaxDelay {
		return retryMaxDelay
	}
	return d
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// isoMillis matches the JavaScript toISOString layout used by the portal.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"
