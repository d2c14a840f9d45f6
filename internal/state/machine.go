package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPattern = "user:lock:%d"
	lockTTL            = 5 * time.Second
)

var (
	// ErrInvalidTransition indicates the requested dialog transition is
	// not in the transition table.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound indicates the user has no active dialog.
	ErrStateNotFound = errors.New("user state not found")
	// ErrStateLocked indicates a concurrent update holds the user's lock.
	ErrStateLocked = errors.New("state is locked, try again later")
)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder installs a hook observing every successful
// transition. Metrics registers itself here to avoid an import cycle.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// StateMachine drives the onboarding dialog for a user.
type StateMachine interface {
	GetState(ctx context.Context, userID int64) (*UserState, error)
	SetState(ctx context.Context, userID int64, state State, contextData map[string]interface{}) error
	TransitionTo(ctx context.Context, userID int64, newState State) error
	ClearState(ctx context.Context, userID int64) error
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

type machine struct {
	storage Storage
	log     *slog.Logger
	locks   *redis.Client
}

// NewStateMachine builds the FSM controller. The redis client serializes
// concurrent updates per user; without it transitions run unguarded.
func NewStateMachine(storage Storage, log *slog.Logger, locks *redis.Client) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage: storage,
		log:     log,
		locks:   locks,
	}
}

func (m *machine) GetState(ctx context.Context, userID int64) (*UserState, error) {
	return m.storage.GetState(ctx, userID)
}

func (m *machine) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return m.storage.GetAllStates(ctx)
}

// SetState stores the state unconditionally, bypassing the transition
// table. Used when a command like /start resets the dialog.
func (m *machine) SetState(ctx context.Context, userID int64, state State, contextData map[string]interface{}) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	return m.save(ctx, userID, state, contextData)
}

// TransitionTo moves the dialog forward when the transition table allows
// it, holding the user's lock for the read-check-write sequence.
func (m *machine) TransitionTo(ctx context.Context, userID int64, newState State) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	current := StateIdle

	stored, err := m.storage.GetState(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrStateNotFound) {
			return err
		}
	} else if stored != nil {
		current = stored.CurrentState
	}

	if !IsTransitionAllowed(current, newState) {
		m.log.Warn("invalid state transition", "user_id", userID, "from", current, "to", newState)
		return ErrInvalidTransition
	}

	transitionRecorder(string(current), string(newState))

	return m.save(ctx, userID, newState, nil)
}

func (m *machine) ClearState(ctx context.Context, userID int64) error {
	if err := m.lock(ctx, userID); err != nil {
		return err
	}
	defer m.unlock(ctx, userID)

	return m.storage.ClearState(ctx, userID)
}

func (m *machine) save(ctx context.Context, userID int64, state State, contextData map[string]interface{}) error {
	return m.storage.SetState(ctx, userID, &UserState{
		UserID:       userID,
		CurrentState: state,
		Context:      contextData,
	})
}

func (m *machine) lock(ctx context.Context, userID int64) error {
	if m.locks == nil {
		m.log.Warn("redis client not configured for state locks; skipping", "user_id", userID)
		return nil
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	acquired, err := m.locks.SetNX(ctx, key, 1, lockTTL).Result()
	if err != nil {
		m.log.Error("failed to acquire user state lock", "user_id", userID, "error", err)
		return err
	}

	if !acquired {
		return ErrStateLocked
	}

	return nil
}

func (m *machine) unlock(ctx context.Context, userID int64) {
	if m.locks == nil {
		return
	}

	key := fmt.Sprintf(userLockKeyPattern, userID)
	if err := m.locks.Del(ctx, key).Err(); err != nil {
		m.log.Error("failed to release user state lock", "user_id", userID, "error", err)
	}
}
