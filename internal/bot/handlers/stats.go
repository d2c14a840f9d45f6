package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/intake"
	"github.com/glotok-bot/glotok/internal/user"
)

var weekdayNames = map[string]string{
	"Mon": "пн", "Tue": "вт", "Wed": "ср", "Thu": "чт",
	"Fri": "пт", "Sat": "сб", "Sun": "вс",
}

// NewStatsHandler returns the /stats command handler with a seven-day
// consumption overview.
func NewStatsHandler(userService *user.Service, intakeService intake.Service, log *slog.Logger) Handler {
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

		totals, err := intakeService.WeeklyTotals(ctx, profile)
		if err != nil {
			return err
		}

		if len(totals) == 0 {
			return c.Send("За последнюю неделю записей нет. Начните с /add 💧")
		}

		var sb strings.Builder
		sb.WriteString("Статистика за неделю:\n\n")

		var sum, daysOnGoal int
		for _, day := range totals {
			amount := day.AmountML
			if amount < 0 {
				amount = 0
			}
			sum += amount

			percent := 0
			if profile.DailyGoalML > 0 {
				percent = amount * 100 / profile.DailyGoalML
			}
			if percent >= 100 {
				daysOnGoal++
			}

			sb.WriteString(fmt.Sprintf("%s %s — %s (%d%%)\n",
				weekdayNames[day.Day.Format("Mon")],
				day.Day.Format("02.01"),
				formatVolume(profile.Units, amount),
				percent,
			))
		}

		sb.WriteString(fmt.Sprintf("\nВсего: %s", formatVolume(profile.Units, sum)))
		sb.WriteString(fmt.Sprintf("\nДней с выполненной целью: %d из %d", daysOnGoal, len(totals)))

		return c.Send(sb.String())
	}
}
