package keyboard

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"
)

// Builder creates inline keyboards for hydration interactions.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	return &Builder{log: log}
}

// QuickAdd builds the one-tap logging row: the suggested dose, the user's
// glass, and a half liter.
func (b *Builder) QuickAdd(doseML, glassML int) *telebot.ReplyMarkup {
	amounts := dedupeAmounts(doseML, glassML, 500)

	row := make([]InlineButton, 0, len(amounts))
	for _, ml := range amounts {
		row = append(row, InlineButton{
			Text:   fmt.Sprintf("+%d мл", ml),
			Unique: "drink",
			Data:   fmt.Sprintf("%d", ml),
		})
	}

	return NewInlineKeyboard().AddRow(row...).Build(b.encode)
}

// ReminderActions builds the keyboard attached to a reminder: log the
// suggested dose or snooze for an hour. The accept button uses the nudge
// callback so the intake is attributed to the reminder.
func (b *Builder) ReminderActions(doseML int) *telebot.ReplyMarkup {
	return NewInlineKeyboard().
		AddRow(InlineButton{
			Text:   fmt.Sprintf("Выпил %d мл 💧", doseML),
			Unique: "nudge",
			Data:   fmt.Sprintf("%d", doseML),
		}).
		AddRow(InlineButton{
			Text:   "Отложить на час 🔕",
			Unique: "mute",
			Data:   "60",
		}).
		Build(b.encode)
}

// RemindSettings builds the reminder toggle keyboard.
func (b *Builder) RemindSettings(enabled bool) *telebot.ReplyMarkup {
	toggle := InlineButton{Text: "Включить 🔔", Unique: "remind", Data: "on"}
	if enabled {
		toggle = InlineButton{Text: "Выключить 🔕", Unique: "remind", Data: "off"}
	}

	return NewInlineKeyboard().AddRow(toggle).Build(b.encode)
}

// MuteOptions builds the mute duration presets.
func (b *Builder) MuteOptions() *telebot.ReplyMarkup {
	return NewInlineKeyboard().
		AddRow(
			InlineButton{Text: "30 минут", Unique: "mute", Data: "30"},
			InlineButton{Text: "1 час", Unique: "mute", Data: "60"},
			InlineButton{Text: "3 часа", Unique: "mute", Data: "180"},
		).
		Build(b.encode)
}

// CancelButton builds a single cancel button.
func (b *Builder) CancelButton() *telebot.ReplyMarkup {
	return NewInlineKeyboard().
		AddRow(InlineButton{Text: "Отмена ❌", Unique: "cancel"}).
		Build(b.encode)
}

func (b *Builder) encode(unique, data string) string {
	encoded, err := EncodeCallback(unique, data)
	if err != nil {
		if b.log != nil {
			b.log.Error("failed to encode callback data", slog.String("unique", unique), slog.Any("error", err))
		}
		return unique
	}
	return encoded
}

func dedupeAmounts(amounts ...int) []int {
	seen := make(map[int]bool, len(amounts))
	result := make([]int, 0, len(amounts))
	for _, ml := range amounts {
		if ml <= 0 || seen[ml] {
			continue
		}
		seen[ml] = true
		result = append(result, ml)
	}
	return result
}
