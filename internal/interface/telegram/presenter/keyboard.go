// Package presenter formats monitor data for Telegram display.
// Presenters handle the conversion from domain objects to user-friendly
// Telegram messages, keyboards, and other UI elements.
package presenter

import "fmt"

// InlineKeyboard is a library-agnostic inline keyboard. The bot converts it
// to the Telegram wire format when sending.
type InlineKeyboard struct {
	Rows [][]InlineButton
}

// InlineButton is one button. Exactly one of CallbackData or URL is set.
type InlineButton struct {
	Text         string
	CallbackData string
	URL          string
}

func btn(text, data string) InlineButton {
	return InlineButton{Text: text, CallbackData: data}
}

func row(buttons ...InlineButton) []InlineButton {
	return buttons
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYBOARD BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// KeyboardBuilder builds the inline keyboards the command handlers attach
// to their replies.
type KeyboardBuilder struct{}

// NewKeyboardBuilder creates a new KeyboardBuilder.
func NewKeyboardBuilder() *KeyboardBuilder {
	return &KeyboardBuilder{}
}

// MainMenuKeyboard creates the keyboard shown after /start.
func (b *KeyboardBuilder) MainMenuKeyboard() *InlineKeyboard {
	return &InlineKeyboard{Rows: [][]InlineButton{
		row(btn("📋 Attendance", "cmd:attendance"), btn("📝 Marks", "cmd:marks")),
		row(btn("🗓 Semesters", "cmd:semesters"), btn("ℹ️ Status", "cmd:status")),
	}}
}

// AttendanceKeyboard creates the keyboard under the attendance table.
func (b *KeyboardBuilder) AttendanceKeyboard() *InlineKeyboard {
	return &InlineKeyboard{Rows: [][]InlineButton{
		row(btn("🔄 Refresh", "refresh:attendance"), btn("📝 Marks", "cmd:marks")),
	}}
}

// MarksKeyboard creates the keyboard under a marks summary.
func (b *KeyboardBuilder) MarksKeyboard(label string) *InlineKeyboard {
	return &InlineKeyboard{Rows: [][]InlineButton{
		row(btn("🔄 Refresh", fmt.Sprintf("marks:%s", label)), btn("🗓 Other semesters", "cmd:semesters")),
	}}
}

// SemestersKeyboard creates one button per selectable semester label.
func (b *KeyboardBuilder) SemestersKeyboard(labels []string) *InlineKeyboard {
	kb := &InlineKeyboard{}
	for _, label := range labels {
		kb.Rows = append(kb.Rows, row(btn(label, fmt.Sprintf("marks:%s", label))))
	}
	return kb
}

// StatusKeyboard creates the keyboard under the status message.
func (b *KeyboardBuilder) StatusKeyboard() *InlineKeyboard {
	return &InlineKeyboard{Rows: [][]InlineButton{
		row(btn("🔄 Refresh", "refresh:status")),
	}}
}
