package bot

import (
	"database/sql"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/bot/handlers"
	"github.com/glotok-bot/glotok/internal/bot/keyboard"
	errors "github.com/glotok-bot/glotok/internal/errors"
	"github.com/glotok-bot/glotok/internal/idempotency"
	"github.com/glotok-bot/glotok/internal/intake"
	"github.com/glotok-bot/glotok/internal/middleware"
	"github.com/glotok-bot/glotok/internal/state"
	"github.com/glotok-bot/glotok/internal/user"
	"github.com/glotok-bot/glotok/pkg/config"
)

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot            *telebot.Bot
	db                 *sql.DB
	log                *slog.Logger
	cfg                config.Config
	fsm                state.StateMachine
	rateLimitMw        *middleware.RateLimitMiddleware
	router             *Router
	dispatcher         *Dispatcher
	keyboard           *keyboard.Builder
	errHandler         *errors.Handler
	idempotencyManager idempotency.Manager
}

// New builds a telegram bot instance configured according to the application settings.
func New(
	cfg config.Config,
	log *slog.Logger,
	db *sql.DB,
	fsm state.StateMachine,
	idempotencyManager idempotency.Manager,
	rateLimitMw *middleware.RateLimitMiddleware,
	userService *user.Service,
	intakeService intake.Service,
	kb *keyboard.Builder,
) (*Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Bot.Token,
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen: cfg.Server.Port,
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	if kb == nil {
		kb = keyboard.NewBuilder(log)
	}
	dispatcher := NewDispatcher(fsm, log)
	router := NewRouter(dispatcher, log)
	errHandler := errors.NewHandler(log, cfg.Sentry.Enabled)

	b := &Bot{
		telebot:            tb,
		db:                 db,
		log:                log,
		cfg:                cfg,
		fsm:                fsm,
		rateLimitMw:        rateLimitMw,
		router:             router,
		dispatcher:         dispatcher,
		keyboard:           kb,
		errHandler:         errHandler,
		idempotencyManager: idempotencyManager,
	}

	b.setupRouter(userService, intakeService)

	if b.rateLimitMw != nil {
		b.telebot.Use(b.rateLimitMw.Handle)
	}

	b.registerTelebotHandlers()

	return b, nil
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	if b.log != nil {
		b.log.Info("stopping telegram bot...")
	}

	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter(userService *user.Service, intakeService intake.Service) {
	if b.router == nil {
		return
	}

	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(middleware.Idempotency(b.idempotencyManager, b.log))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(EnsureProfileMiddleware(userService, b.log))
	b.router.Use(middleware.Metrics)

	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(b.fsm, b.log))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler(b.log))

	if userService == nil || intakeService == nil {
		return
	}

	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(userService, b.fsm, b.log))
	b.router.RegisterCommand(CommandToday, handlers.NewTodayHandler(userService, intakeService, b.keyboard, b.log))
	b.router.RegisterCommand(CommandAdd, handlers.NewAddHandler(userService, intakeService, b.log))
	b.router.RegisterCommand(CommandStats, handlers.NewStatsHandler(userService, intakeService, b.log))
	b.router.RegisterCommand(CommandRemind, handlers.NewRemindHandler(userService, b.keyboard, b.log))
	b.router.RegisterCommand(CommandMute, handlers.NewMuteHandler(userService, b.keyboard, b.log))
	b.router.RegisterCommand(CommandUnmute, handlers.NewUnmuteHandler(userService, b.log))

	b.router.RegisterCallback(CallbackDrinkPrefix, handlers.NewDrinkCallbackHandler(userService, intakeService, b.log))
	b.router.RegisterCallback(CallbackNudgePrefix, handlers.NewNudgeCallbackHandler(userService, intakeService, b.log))
	b.router.RegisterCallback(CallbackMutePrefix, handlers.NewMuteCallbackHandler(userService, b.log))
	b.router.RegisterCallback(CallbackRemindPrefix, handlers.NewRemindCallbackHandler(userService, b.log))

	b.dispatcher.RegisterStateHandler(state.StateOnboardingGoal, handlers.NewGoalInputHandler(userService, b.fsm, b.log))
	b.dispatcher.RegisterStateHandler(state.StateOnboardingWindow, handlers.NewWindowInputHandler(userService, b.fsm, b.log))
	b.dispatcher.RegisterStateHandler(state.StateOnboardingGlass, handlers.NewGlassInputHandler(userService, b.fsm, b.keyboard, b.log))

	b.router.SetDefault(handlers.NewTextIntakeHandler(userService, intakeService, b.log))
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil || b.router == nil {
		return
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}
