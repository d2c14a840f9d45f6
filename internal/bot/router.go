package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/bot/handlers"
)

// Router directs updates to command handlers, callback handlers by data
// prefix, or the dialog dispatcher, in that order. Every matched handler
// runs through the registered middleware chain.
type Router struct {
	dispatcher *Dispatcher
	log        *slog.Logger

	mu             sync.RWMutex
	commands       map[string]handlers.Handler
	callbacks      map[string]handlers.CallbackHandler
	defaultHandler handlers.Handler
	middlewares    []handlers.Middleware
}

// NewRouter builds a Router with empty registries.
func NewRouter(dispatcher *Dispatcher, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		dispatcher: dispatcher,
		log:        log,
		commands:   make(map[string]handlers.Handler),
		callbacks:  make(map[string]handlers.CallbackHandler),
	}
}

// RegisterCommand registers a handler for a bot command such as "/add".
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[cmd] = h
}

// RegisterCallback registers a handler for callback data starting with prefix.
func (r *Router) RegisterCallback(prefix string, h handlers.CallbackHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[prefix] = h
}

// Use appends a middleware to the chain. Middlewares wrap handlers in
// registration order, the first registered runs outermost.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// SetDefault sets the fallback handler for text that matches neither a
// command nor an active dialog state.
func (r *Router) SetDefault(h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultHandler = h
}

// Route directs the incoming update to the appropriate handler.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	if callback := c.Callback(); callback != nil {
		return r.routeCallback(c, callback.Data)
	}

	return r.routeMessage(c)
}

func (r *Router) routeCallback(c telebot.Context, data string) error {
	handler := r.callbackByPrefix(data)
	if handler == nil {
		r.log.Info("unmatched callback", slog.String("data", data))
		return nil
	}

	return r.run(handlers.Handler(handler), c)
}

func (r *Router) routeMessage(c telebot.Context) error {
	text := c.Text()

	if strings.HasPrefix(text, "/") {
		if handler := r.command(commandToken(text)); handler != nil {
			return r.run(handler, c)
		}
	}

	inDialog, err := r.dialogActive(c)
	if err != nil {
		return err
	}
	if inDialog {
		// Dialog handlers run through the same chain as commands, so
		// recovery and error replies also cover onboarding input.
		return r.run(r.dispatcher.Dispatch, c)
	}

	if handler := r.fallback(); handler != nil {
		return r.run(handler, c)
	}

	return nil
}

// dialogActive reports whether the sender is mid-dialog with a handler
// registered for their current state.
func (r *Router) dialogActive(c telebot.Context) (bool, error) {
	if r.dispatcher == nil || c.Sender() == nil {
		return false, nil
	}

	current, err := r.dispatcher.currentState(context.Background(), c.Sender().ID)
	if err != nil {
		return false, err
	}

	return r.dispatcher.getHandler(current) != nil, nil
}

func (r *Router) run(h handlers.Handler, c telebot.Context) error {
	wrapped := r.wrap(h)
	if wrapped == nil {
		return nil
	}
	return wrapped(c)
}

func (r *Router) wrap(h handlers.Handler) handlers.Handler {
	if h == nil {
		return nil
	}

	r.mu.RLock()
	chain := make([]handlers.Middleware, len(r.middlewares))
	copy(chain, r.middlewares)
	r.mu.RUnlock()

	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}

	return h
}

func (r *Router) callbackByPrefix(data string) handlers.CallbackHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for prefix, handler := range r.callbacks {
		if strings.HasPrefix(data, prefix) {
			return handler
		}
	}

	return nil
}

func (r *Router) command(cmd string) handlers.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[cmd]
}

func (r *Router) fallback() handlers.Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultHandler
}

// commandToken strips the payload and the @botname suffix, so that
// "/add 250" and "/add@glotok_bot" both resolve to "/add".
func commandToken(text string) string {
	if idx := strings.IndexByte(text, ' '); idx != -1 {
		text = text[:idx]
	}
	if idx := strings.IndexByte(text, '@'); idx != -1 {
		text = text[:idx]
	}
	return text
}
