package handlers

import (
	telebot "gopkg.in/telebot.v3"
)

// Handler processes one incoming message or command.
type Handler func(c telebot.Context) error

// CallbackHandler processes one inline-button callback.
type CallbackHandler func(c telebot.Context) error

// Middleware wraps a Handler with cross-cutting behavior.
type Middleware func(Handler) Handler
