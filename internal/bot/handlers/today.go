package handlers

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/bot/keyboard"
	"github.com/glotok-bot/glotok/internal/intake"
	"github.com/glotok-bot/glotok/internal/policy"
	"github.com/glotok-bot/glotok/internal/user"
)

// NewTodayHandler returns the /today command handler.
func NewTodayHandler(userService *user.Service, intakeService intake.Service, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()

		profile, _, err := userService.GetOrCreate(ctx, c.Sender())
		if err != nil {
			return err
		}

		summary, err := intakeService.TodaySummary(ctx, profile)
		if err != nil {
			return err
		}

		message := fmt.Sprintf(
			"Сегодня: %s из %s (%d%%)\n%s",
			formatVolume(profile.Units, summary.ConsumedML),
			formatVolume(profile.Units, summary.GoalML),
			summary.Percent,
			progressBar(summary.Percent),
		)
		if summary.RemainingML > 0 {
			message += fmt.Sprintf("\nОсталось: %s", formatVolume(profile.Units, summary.RemainingML))
		} else {
			message += "\nЦель на сегодня выполнена! 🎉"
		}

		dose := policy.SuggestedDose(profile.DailyGoalML)
		return c.Send(message, kb.QuickAdd(dose, profile.GlassML))
	}
}
