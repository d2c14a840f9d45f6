package handlers

import (
	"errors"
	"fmt"
	"strings"

	telebot "gopkg.in/telebot.v3"

	apperrors "github.com/glotok-bot/glotok/internal/errors"
	"github.com/glotok-bot/glotok/internal/intake"
)

// formatVolume renders an amount in the profile's display units.
func formatVolume(units string, ml int) string {
	if units == "oz" {
		return fmt.Sprintf("%.1f oz", float64(ml)/intake.MLPerOz)
	}
	return fmt.Sprintf("%d мл", ml)
}

// progressBar renders a ten-segment bar for the given percentage.
func progressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := percent / 10
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		if i < filled {
			sb.WriteString("🟦")
		} else {
			sb.WriteString("⬜")
		}
	}
	return sb.String()
}

func respondCallback(c telebot.Context, text string, alert bool) error {
	if c == nil {
		return nil
	}
	return c.Respond(&telebot.CallbackResponse{
		Text:      text,
		ShowAlert: alert,
	})
}

func asAppError(err error, target **apperrors.AppError) bool {
	return errors.As(err, target)
}

// callbackPayload returns the data part after the handler prefix.
func callbackPayload(c telebot.Context, prefix string) string {
	if c == nil {
		return ""
	}
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	return strings.TrimPrefix(strings.TrimSpace(cb.Data), prefix)
}
