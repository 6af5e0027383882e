// Package handler contains the bot's command handlers. Each handler turns a
// command request into a Response; sending and editing messages is the
// router's job, so handlers stay free of transport concerns and easy to test.
package handler

import (
	"github.com/portal-watch/portal-watch/internal/domain/portal"
	"github.com/portal-watch/portal-watch/internal/interface/telegram/presenter"
)

// Request carries the command invocation details.
type Request struct {
	// ChatID is the chat the command was sent from.
	ChatID int64

	// MessageID is the message containing the command.
	MessageID int

	// Args is the text after the command, trimmed.
	Args string
}

// Response is what a handler wants sent (or edited) back.
type Response struct {
	// Text is the message body.
	Text string

	// ParseMode is the Telegram parse mode ("HTML" for all handlers here).
	ParseMode string

	// Keyboard is an optional inline keyboard.
	Keyboard *presenter.InlineKeyboard
}

// htmlResponse builds an HTML response.
func htmlResponse(text string, keyboard *presenter.InlineKeyboard) Response {
	return Response{Text: text, ParseMode: "HTML", Keyboard: keyboard}
}

// errorResponse maps portal errors to a short user-facing message.
func errorResponse(err error) Response {
	switch {
	case portal.IsSession(err):
		return htmlResponse("🔑 Portal login failed. Check the configured credentials.", nil)
	case portal.IsNotFound(err):
		return htmlResponse("🤷 Nothing found for that request.", nil)
	case portal.IsSource(err):
		return htmlResponse("🌐 The portal is not responding right now. Try again in a few minutes.", nil)
	default:
		return htmlResponse("😔 Something went wrong. Try again later.", nil)
	}
}
