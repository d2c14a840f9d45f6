package bot

// Command constants for Telegram bot commands.
const (
	CommandStart  = "/start"
	CommandToday  = "/today"
	CommandAdd    = "/add"
	CommandStats  = "/stats"
	CommandRemind = "/remind"
	CommandMute   = "/mute"
	CommandUnmute = "/unmute"
	CommandCancel = "/cancel"
	CommandHelp   = "/help"
)

// Callback prefix constants for inline button interactions. Quick-add
// buttons and the reminder's accept button carry distinct prefixes so
// the ledger can tell a spontaneous drink from an accepted nudge.
const (
	CallbackDrinkPrefix  = "drink:"
	CallbackNudgePrefix  = "nudge:"
	CallbackMutePrefix   = "mute:"
	CallbackRemindPrefix = "remind:"
)
