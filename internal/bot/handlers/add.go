package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/domain"
	apperrors "github.com/glotok-bot/glotok/internal/errors"
	"github.com/glotok-bot/glotok/internal/intake"
	"github.com/glotok-bot/glotok/internal/user"
)

const (
	drinkCallbackPrefix = "drink:"
	nudgeCallbackPrefix = "nudge:"
)

// NewAddHandler returns the /add command handler. The amount comes from
// the command payload: "/add 250", "/add 0.5l", "/add -150" to correct.
func NewAddHandler(userService *user.Service, intakeService intake.Service, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		payload := ""
		if c.Message() != nil {
			payload = c.Message().Payload
		}
		if payload == "" {
			return c.Send("Укажите количество: /add 250, /add 0.5l или /add -150 для исправления")
		}

		amountML, err := intake.ParseAmount(payload)
		if err != nil {
			return err
		}

		ctx := context.Background()

		profile, _, err := userService.GetOrCreate(ctx, c.Sender())
		if err != nil {
			return err
		}

		if _, err := intakeService.Log(ctx, profile, amountML, domain.SourceManual); err != nil {
			return err
		}

		return c.Send(confirmationText(ctx, intakeService, profile, amountML))
	}
}

// NewDrinkCallbackHandler logs one-tap amounts from quick-add buttons.
func NewDrinkCallbackHandler(userService *user.Service, intakeService intake.Service, log *slog.Logger) CallbackHandler {
	return newIntakeCallbackHandler(drinkCallbackPrefix, domain.SourceQuick, userService, intakeService, log)
}

// NewNudgeCallbackHandler logs the dose a user accepted from a reminder.
// Same flow as quick-add, but the ledger row is tagged as nudge-accepted.
func NewNudgeCallbackHandler(userService *user.Service, intakeService intake.Service, log *slog.Logger) CallbackHandler {
	return newIntakeCallbackHandler(nudgeCallbackPrefix, domain.SourceNudge, userService, intakeService, log)
}

func newIntakeCallbackHandler(
	prefix string,
	source domain.IntakeSource,
	userService *user.Service,
	intakeService intake.Service,
	log *slog.Logger,
) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		amountML, err := strconv.Atoi(callbackPayload(c, prefix))
		if err != nil || amountML <= 0 || amountML > intake.MaxSingleAmountML {
			log.Warn("malformed intake callback", slog.String("data", callbackPayload(c, "")))
			return respondCallback(c, "Не удалось записать", true)
		}

		ctx := context.Background()

		profile, _, err := userService.GetOrCreate(ctx, c.Sender())
		if err != nil {
			return err
		}

		if _, err := intakeService.Log(ctx, profile, amountML, source); err != nil {
			var appErr *apperrors.AppError
			if asAppError(err, &appErr) {
				return respondCallback(c, appErr.UserMessage, true)
			}
			return err
		}

		if err := respondCallback(c, fmt.Sprintf("+%s 💧", formatVolume(profile.Units, amountML)), false); err != nil {
			return err
		}

		return c.Send(confirmationText(ctx, intakeService, profile, amountML))
	}
}

func confirmationText(ctx context.Context, intakeService intake.Service, profile *domain.Profile, amountML int) string {
	verb := "Записал"
	if amountML < 0 {
		verb = "Исправил"
	}

	text := fmt.Sprintf("%s %+d мл.", verb, amountML)
	if summary, err := intakeService.TodaySummary(ctx, profile); err == nil {
		text += fmt.Sprintf(" Сегодня: %s из %s (%d%%)",
			formatVolume(profile.Units, summary.ConsumedML),
			formatVolume(profile.Units, summary.GoalML),
			summary.Percent,
		)
	}
	return text
}
