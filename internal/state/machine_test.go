package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	args := m.Called(ctx, userID)
	state, _ := args.Get(0).(*UserState)
	return state, args.Error(1)
}

func (m *mockStorage) SetState(ctx context.Context, userID int64, state *UserState) error {
	args := m.Called(ctx, userID, state)
	return args.Error(0)
}

func (m *mockStorage) ClearState(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]*UserState)
	return states, args.Error(1)
}

func expectSave(ms *mockStorage, userID int64, want State) {
	ms.On("SetState", mock.Anything, userID, mock.MatchedBy(func(s *UserState) bool {
		return s.CurrentState == want
	})).Return(nil).Once()
}

func TestStateMachine_TransitionTo(t *testing.T) {
	ctx := context.Background()
	userID := int64(42)

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		newState    State
		expectedErr error
	}{
		{
			name: "idle user starts onboarding",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{CurrentState: StateIdle}, nil).Once()
				expectSave(ms, userID, StateOnboardingGoal)
			},
			newState: StateOnboardingGoal,
		},
		{
			name: "skipping a step is rejected",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return(&UserState{CurrentState: StateIdle}, nil).Once()
			},
			newState:    StateOnboardingGlass,
			expectedErr: ErrInvalidTransition,
		},
		{
			name: "user with no stored state counts as idle",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetState", mock.Anything, userID).
					Return((*UserState)(nil), ErrStateNotFound).Once()
				expectSave(ms, userID, StateOnboardingGoal)
			},
			newState: StateOnboardingGoal,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewStateMachine(ms, testLogger(), nil)
			err := fsm.TransitionTo(ctx, userID, tc.newState)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_GetState(t *testing.T) {
	ctx := context.Background()
	userID := int64(7)

	t.Run("state found", func(t *testing.T) {
		ms := &mockStorage{}
		ms.On("GetState", mock.Anything, userID).
			Return(&UserState{UserID: userID, CurrentState: StateOnboardingWindow}, nil).Once()

		fsm := NewStateMachine(ms, testLogger(), nil)

		got, err := fsm.GetState(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, StateOnboardingWindow, got.CurrentState)
		ms.AssertExpectations(t)
	})

	t.Run("state not found", func(t *testing.T) {
		ms := &mockStorage{}
		ms.On("GetState", mock.Anything, userID).
			Return((*UserState)(nil), ErrStateNotFound).Once()

		fsm := NewStateMachine(ms, testLogger(), nil)

		got, err := fsm.GetState(ctx, userID)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, ErrStateNotFound)
		ms.AssertExpectations(t)
	})
}

func TestStateMachine_SetState(t *testing.T) {
	ctx := context.Background()
	userID := int64(11)

	t.Run("saves forced state", func(t *testing.T) {
		ms := &mockStorage{}
		expectSave(ms, userID, StateOnboardingGlass)

		fsm := NewStateMachine(ms, testLogger(), nil)
		require.NoError(t, fsm.SetState(ctx, userID, StateOnboardingGlass, nil))
		ms.AssertExpectations(t)
	})

	t.Run("propagates storage failure", func(t *testing.T) {
		ms := &mockStorage{}
		ms.On("SetState", mock.Anything, userID, mock.Anything).
			Return(errStorageFailure).Once()

		fsm := NewStateMachine(ms, testLogger(), nil)
		assert.ErrorIs(t, fsm.SetState(ctx, userID, StateOnboardingGlass, nil), errStorageFailure)
		ms.AssertExpectations(t)
	})
}

func TestStateMachine_ClearState(t *testing.T) {
	ctx := context.Background()
	userID := int64(13)

	t.Run("clears", func(t *testing.T) {
		ms := &mockStorage{}
		ms.On("ClearState", mock.Anything, userID).Return(nil).Once()

		fsm := NewStateMachine(ms, testLogger(), nil)
		require.NoError(t, fsm.ClearState(ctx, userID))
		ms.AssertExpectations(t)
	})

	t.Run("propagates storage failure", func(t *testing.T) {
		ms := &mockStorage{}
		ms.On("ClearState", mock.Anything, userID).Return(errStorageFailure).Once()

		fsm := NewStateMachine(ms, testLogger(), nil)
		assert.ErrorIs(t, fsm.ClearState(ctx, userID), errStorageFailure)
		ms.AssertExpectations(t)
	})
}

func TestStateMachine_Lock(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	storage := newInMemoryStorage(100 * time.Millisecond)
	fsm := NewStateMachine(storage, testLogger(), client)

	ctx := context.Background()
	userID := int64(77)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- fsm.SetState(ctx, userID, StateOnboardingGoal, nil)
		}()
	}

	wg.Wait()
	close(errCh)

	var success, locked int
	for err := range errCh {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrStateLocked):
			locked++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, success, "exactly one writer should win the lock")
	assert.Equal(t, 1, locked, "the loser should see ErrStateLocked")
}

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// inMemoryStorage is a Storage with an artificial write delay, used to
// provoke lock contention.
type inMemoryStorage struct {
	mu     sync.Mutex
	states map[int64]*UserState
	delay  time.Duration
}

func newInMemoryStorage(delay time.Duration) *inMemoryStorage {
	return &inMemoryStorage{
		states: make(map[int64]*UserState),
		delay:  delay,
	}
}

func (s *inMemoryStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	if !ok {
		return nil, ErrStateNotFound
	}

	return cloneState(state), nil
}

func (s *inMemoryStorage) SetState(ctx context.Context, userID int64, state *UserState) error {
	time.Sleep(s.delay)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = cloneState(state)
	return nil
}

func (s *inMemoryStorage) ClearState(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, userID)
	return nil
}

func (s *inMemoryStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]*UserState, 0, len(s.states))
	for _, st := range s.states {
		states = append(states, cloneState(st))
	}
	return states, nil
}

func cloneState(state *UserState) *UserState {
	if state == nil {
		return nil
	}

	copyState := *state
	if state.Context != nil {
		ctxCopy := make(map[string]interface{}, len(state.Context))
		for k, v := range state.Context {
			ctxCopy[k] = v
		}
		copyState.Context = ctxCopy
	}
	return &copyState
}
