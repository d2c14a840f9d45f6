// Package notify delivers reminder messages over Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/glotok-bot/glotok/internal/bot/keyboard"
	"github.com/glotok-bot/glotok/internal/domain"
	"github.com/glotok-bot/glotok/internal/i18n"
)

// ProfileDisabler switches reminders off for users we can no longer reach.
type ProfileDisabler interface {
	SetSmartReminders(ctx context.Context, telegramID int64, enabled bool) error
}

// TelegramSender sends reminder messages through the bot API.
type TelegramSender struct {
	bot      *telebot.Bot
	kb       *keyboard.Builder
	tr       i18n.Translator
	profiles ProfileDisabler
	log      *slog.Logger
}

// NewTelegramSender builds a reminder sender.
func NewTelegramSender(
	bot *telebot.Bot,
	kb *keyboard.Builder,
	tr i18n.Translator,
	profiles ProfileDisabler,
	log *slog.Logger,
) *TelegramSender {
	if log == nil {
		log = slog.Default()
	}

	return &TelegramSender{
		bot:      bot,
		kb:       kb,
		tr:       tr,
		profiles: profiles,
		log:      log,
	}
}

// SendReminder pushes one reminder with quick-action buttons. Users who
// blocked the bot get their reminders switched off instead of retried.
func (s *TelegramSender) SendReminder(ctx context.Context, profile *domain.Profile, doseML int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := fmt.Sprintf(s.tr.T("reminder.text"), doseML)
	recipient := &telebot.User{ID: profile.TelegramID}

	if _, err := s.bot.Send(recipient, text, s.kb.ReminderActions(doseML)); err != nil {
		if errors.Is(err, telebot.ErrBlockedByUser) || errors.Is(err, telebot.ErrUserIsDeactivated) {
			s.log.InfoContext(ctx, "user unreachable, disabling reminders",
				slog.Int64("user_id", profile.TelegramID))
			if s.profiles != nil {
				if disableErr := s.profiles.SetSmartReminders(context.WithoutCancel(ctx), profile.TelegramID, false); disableErr != nil {
					s.log.ErrorContext(ctx, "failed to disable reminders",
						slog.Int64("user_id", profile.TelegramID), slog.Any("error", disableErr))
				}
			}
		}
		return fmt.Errorf("send reminder: %w", err)
	}

	return nil
}
