package bot

import (
	"strings"

	"gymbot/internal/flow"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// keyboard раскладывает кнопки ответа в inline-клавиатуру
func keyboard(r flow.Reply) (tgbotapi.InlineKeyboardMarkup, bool) {
	rows := r.Rows()
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}, false
	}
	markup := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		markup = append(markup, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(markup...), true
}

func parseMode(r flow.Reply) string {
	if r.HTML {
		return tgbotapi.ModeHTML
	}
	return ""
}

// sendMessage отправляет новое сообщение с клавиатурой
func (b *Bot) sendMessage(chatID int64, r flow.Reply) {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	msg.ParseMode = parseMode(r)
	if markup, ok := keyboard(r); ok {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

// editMessage правит активное сообщение; если не вышло, отправляет новое
func (b *Bot) editMessage(chatID int64, messageID int, r flow.Reply) {
	markup, _ := keyboard(r)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, r.Text, markup)
	edit.ParseMode = parseMode(r)

	_, err := b.api.Send(edit)
	switch {
	case err == nil:
		return
	case notModified(err):
		// повторное нажатие той же кнопки
		return
	}
	b.log.Warn("edit message failed, sending a new one", "chat_id", chatID, "message_id", messageID, "error", err)
	b.sendMessage(chatID, r)
}

func notModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}

// answer убирает «часики» с кнопки и показывает уведомление
func (b *Bot) answer(callbackID, text string, alert bool) {
	if callbackID == "" {
		return
	}
	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := b.api.Request(cfg); err != nil {
		b.log.Warn("answer callback", "error", err)
	}
}
