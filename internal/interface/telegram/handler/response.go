// Package handler contains Telegram command and callback handlers.
// Each handler follows the pattern: parse input → call the application
// layer → format a response. Sending is the bot layer's job.
package handler

import "github.com/univer-hub/rector-task-bot/internal/interface/telegram/presenter"

// Response is what a handler asks the bot to send or edit.
type Response struct {
	// Text is the message text (HTML formatted).
	Text string

	// Keyboard is the inline keyboard to attach.
	Keyboard *presenter.InlineKeyboard

	// RequestContact shows a one-time reply keyboard with a
	// "share contact" button labelled ContactButton.
	RequestContact bool
	ContactButton  string

	// RemoveKeyboard removes any visible reply keyboard.
	RemoveKeyboard bool

	// EditMessage replaces the message the callback came from
	// instead of sending a new one.
	EditMessage bool

	// Toast is a short callback answer shown as a popup; used
	// instead of (or in addition to) a message.
	Toast string

	// Document attaches a file instead of plain text.
	Document *Document
}

// Document is a file attachment for a response.
type Document struct {
	Filename string
	Data     []byte
	Caption  string
}

// textResponse builds a plain text response.
func textResponse(text string) *Response {
	return &Response{Text: text}
}
