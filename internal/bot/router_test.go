package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/bot/handlers"
	"github.com/glotok-bot/glotok/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubFSM pins every user to one dialog state.
type stubFSM struct {
	current state.State
}

func (s *stubFSM) GetState(context.Context, int64) (*state.UserState, error) {
	if s.current == "" {
		return nil, state.ErrStateNotFound
	}
	return &state.UserState{CurrentState: s.current}, nil
}

func (s *stubFSM) SetState(context.Context, int64, state.State, map[string]interface{}) error {
	return nil
}
func (s *stubFSM) TransitionTo(context.Context, int64, state.State) error { return nil }
func (s *stubFSM) ClearState(context.Context, int64) error                { return nil }
func (s *stubFSM) GetAllStates(context.Context) ([]*state.UserState, error) {
	return nil, nil
}

// stubContext overrides the few telebot.Context methods the router and
// middlewares touch; everything else stays on the embedded interface.
type stubContext struct {
	telebot.Context
	text   string
	sender *telebot.User
	sent   []string
}

func (c *stubContext) Text() string            { return c.text }
func (c *stubContext) Sender() *telebot.User   { return c.sender }
func (c *stubContext) Callback() *telebot.Callback { return nil }
func (c *stubContext) Message() *telebot.Message   { return nil }

func (c *stubContext) Send(what interface{}, _ ...interface{}) error {
	if text, ok := what.(string); ok {
		c.sent = append(c.sent, text)
	}
	return nil
}

func TestRouteDialogHandlerRunsThroughMiddleware(t *testing.T) {
	fsm := &stubFSM{current: state.StateOnboardingGoal}
	dispatcher := NewDispatcher(fsm, testLogger())

	badInput := errors.New("not a number")
	dispatcher.RegisterStateHandler(state.StateOnboardingGoal, func(telebot.Context) error {
		return badInput
	})

	router := NewRouter(dispatcher, testLogger())

	chainRan := 0
	router.Use(func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			chainRan++
			if err := next(c); err != nil {
				return c.Send("Введите число, например 2000")
			}
			return nil
		}
	})

	c := &stubContext{text: "abc", sender: &telebot.User{ID: 42}}
	require.NoError(t, router.Route(c))

	assert.Equal(t, 1, chainRan, "dialog input must pass through the middleware chain")
	assert.Equal(t, []string{"Введите число, например 2000"}, c.sent)
}

func TestRouteFallsBackThroughMiddleware(t *testing.T) {
	dispatcher := NewDispatcher(&stubFSM{}, testLogger())
	router := NewRouter(dispatcher, testLogger())

	chainRan := 0
	router.Use(func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			chainRan++
			return next(c)
		}
	})

	fallbackRan := 0
	router.SetDefault(func(telebot.Context) error {
		fallbackRan++
		return nil
	})

	c := &stubContext{text: "300", sender: &telebot.User{ID: 42}}
	require.NoError(t, router.Route(c))

	assert.Equal(t, 1, chainRan)
	assert.Equal(t, 1, fallbackRan)
}
