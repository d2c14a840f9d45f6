// Package idempotency deduplicates Telegram updates. Telegram redelivers
// updates after timeouts, so a double-tapped quick-add button must log
// one intake, not two.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// ErrRequestInProgress means another worker is handling the same update.
var ErrRequestInProgress = errors.New("request with this key is already in progress")

// Operation is the unit of work executed at most once per key.
type Operation func(ctx context.Context) (interface{}, error)

// Result carries the operation's response and whether it was replayed
// from a previous execution.
type Result struct {
	Response  interface{}
	FromCache bool
}

// Manager runs operations exactly once per key within the record TTL.
type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store Store
	log   *slog.Logger
}

const (
	executionLockTTL = 5 * time.Minute
	recheckDelay     = 100 * time.Millisecond
)

// NewManager builds a Manager over the given store.
func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store: store,
		log:   log,
	}
}

// Execute runs fn under the key's lock. A concurrent duplicate either
// gets the cached response or ErrRequestInProgress.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	for {
		locked, err := m.store.Lock(ctx, key, executionLockTTL)
		if err != nil {
			return nil, err
		}
		if locked {
			return m.run(ctx, key, ttl, fn)
		}

		record, err := m.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		if record != nil {
			switch record.Status {
			case StatusProcessing:
				return nil, ErrRequestInProgress
			case StatusCompleted:
				return replay(record)
			}
		}

		// The lock holder finished but the record is not visible yet.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(recheckDelay):
		}
	}
}

func (m *manager) run(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	defer func() {
		if err := m.store.ReleaseLock(ctx, key); err != nil {
			m.log.Warn("failed to release idempotency lock", "key", key, "error", err)
		}
	}()

	response, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(response)
	if err != nil {
		return nil, err
	}

	if err := m.store.Set(ctx, key, &Record{
		Status:   StatusCompleted,
		Response: encoded,
	}, ttl); err != nil {
		return nil, err
	}

	return &Result{Response: response}, nil
}

func replay(record *Record) (*Result, error) {
	var response interface{}
	if len(record.Response) > 0 {
		if err := json.Unmarshal(record.Response, &response); err != nil {
			return nil, err
		}
	}

	return &Result{Response: response, FromCache: true}, nil
}
