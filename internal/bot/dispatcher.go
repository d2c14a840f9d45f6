package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/bot/handlers"
	"github.com/glotok-bot/glotok/internal/state"
)

// Dispatcher routes free-text updates to the handler registered for the
// sender's current dialog state. Users with no stored state are treated
// as idle.
type Dispatcher struct {
	fsm state.StateMachine
	log *slog.Logger

	mu            sync.RWMutex
	stateHandlers map[state.State]handlers.Handler
}

// NewDispatcher creates a Dispatcher with an empty handler registry.
func NewDispatcher(fsm state.StateMachine, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		fsm:           fsm,
		log:           log,
		stateHandlers: make(map[state.State]handlers.Handler),
	}
}

// RegisterStateHandler binds h to dialog state s.
func (d *Dispatcher) RegisterStateHandler(s state.State, h handlers.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stateHandlers[s] = h
}

// Dispatch looks up the sender's dialog state and invokes the matching
// handler. Updates in states with no handler are dropped.
func (d *Dispatcher) Dispatch(c telebot.Context) error {
	if c == nil || c.Sender() == nil {
		d.log.Warn("update without sender, dropping")
		return nil
	}

	userID := c.Sender().ID

	current, err := d.currentState(context.Background(), userID)
	if err != nil {
		return err
	}

	handler := d.getHandler(current)
	if handler == nil {
		d.log.Info("no handler for dialog state",
			slog.String("state", string(current)), slog.Int64("user_id", userID))
		return nil
	}

	return handler(c)
}

func (d *Dispatcher) currentState(ctx context.Context, userID int64) (state.State, error) {
	userState, err := d.fsm.GetState(ctx, userID)
	switch {
	case errors.Is(err, state.ErrStateNotFound):
		return state.StateIdle, nil
	case err != nil:
		return state.StateIdle, err
	case userState == nil:
		return state.StateIdle, nil
	}

	return userState.CurrentState, nil
}

func (d *Dispatcher) getHandler(s state.State) handlers.Handler {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stateHandlers[s]
}
