package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// InlineButton describes one inline keyboard button before encoding.
type InlineButton struct {
	Text   string
	Unique string // action name matched by the router's callback prefix
	Data   string // payload encoded into the callback data
}

// InlineKeyboardBuilder accumulates button rows and renders them into
// telebot inline markup.
type InlineKeyboardBuilder struct {
	rows [][]InlineButton
}

// NewInlineKeyboard creates an empty builder.
func NewInlineKeyboard() *InlineKeyboardBuilder {
	return &InlineKeyboardBuilder{}
}

// AddRow appends one row of buttons. Empty rows are ignored.
func (b *InlineKeyboardBuilder) AddRow(buttons ...InlineButton) *InlineKeyboardBuilder {
	if len(buttons) == 0 {
		return b
	}

	row := make([]InlineButton, len(buttons))
	copy(row, buttons)
	b.rows = append(b.rows, row)

	return b
}

// Build renders the accumulated rows, producing callback data through
// encoder. A nil encoder falls back to the raw Data or Unique value.
func (b *InlineKeyboardBuilder) Build(encoder func(unique, data string) string) *telebot.ReplyMarkup {
	if encoder == nil {
		encoder = func(unique, data string) string {
			if data != "" {
				return data
			}
			return unique
		}
	}

	keyboard := make([][]telebot.InlineButton, len(b.rows))
	for i, row := range b.rows {
		keyboard[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			// Unique stays out of the telebot button: telebot would prefix
			// the callback data with "\f<unique>|", which the router's plain
			// prefix matching does not expect.
			keyboard[i][j] = telebot.InlineButton{
				Text: btn.Text,
				Data: encoder(btn.Unique, btn.Data),
			}
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: keyboard}
}
