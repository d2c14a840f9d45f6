package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuickAdd(t *testing.T) {
	b := NewBuilder(nil)

	markup := b.QuickAdd(240, 250)

	assert.Len(t, markup.InlineKeyboard, 1)
	row := markup.InlineKeyboard[0]
	assert.Len(t, row, 3)
	assert.Equal(t, "drink:240", row[0].Data)
	assert.Equal(t, "drink:250", row[1].Data)
	assert.Equal(t, "drink:500", row[2].Data)
}

func TestQuickAddDeduplicates(t *testing.T) {
	b := NewBuilder(nil)

	// Dose equals glass size: only two distinct buttons remain.
	markup := b.QuickAdd(250, 250)

	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Equal(t, "drink:250", markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "drink:500", markup.InlineKeyboard[0][1].Data)
}

func TestReminderActions(t *testing.T) {
	b := NewBuilder(nil)

	markup := b.ReminderActions(240)

	assert.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "nudge:240", markup.InlineKeyboard[0][0].Data,
		"accepting a reminder must not look like a quick-add")
	assert.Equal(t, "mute:60", markup.InlineKeyboard[1][0].Data)
}

func TestRemindSettings(t *testing.T) {
	b := NewBuilder(nil)

	enabled := b.RemindSettings(true)
	assert.Equal(t, "remind:off", enabled.InlineKeyboard[0][0].Data)

	disabled := b.RemindSettings(false)
	assert.Equal(t, "remind:on", disabled.InlineKeyboard[0][0].Data)
}

func TestMuteOptions(t *testing.T) {
	b := NewBuilder(nil)

	markup := b.MuteOptions()

	assert.Len(t, markup.InlineKeyboard, 1)
	var data []string
	for _, btn := range markup.InlineKeyboard[0] {
		data = append(data, btn.Data)
	}
	assert.Equal(t, []string{"mute:30", "mute:60", "mute:180"}, data)
}
