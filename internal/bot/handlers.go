package bot

import (
	"context"
	"errors"
	"fmt"

	"gymbot/internal/flow"
	"gymbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// errSkip обновление, на которое бот не отвечает
var errSkip = errors.New("update skipped")

// incoming обновление, разобранное в действие
type incoming struct {
	user      *tgbotapi.User
	chatID    int64
	messageID int
	// callbackID пустой для сообщений
	callbackID string
	action     flow.Action
}

// decode разбирает обновление один раз; дальше работает только flow.Action
func decode(update tgbotapi.Update) (incoming, error) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		in := incoming{user: cb.From, callbackID: cb.ID}
		if cb.Message != nil {
			in.chatID = cb.Message.Chat.ID
			in.messageID = cb.Message.MessageID
		}
		if in.user == nil || in.chatID == 0 {
			return in, errSkip
		}
		a, err := flow.ParseCallback(cb.Data)
		if err != nil {
			return in, err
		}
		in.action = a
		return in, nil

	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil {
			return incoming{}, errSkip
		}
		in := incoming{user: msg.From, chatID: msg.Chat.ID}
		if msg.IsCommand() {
			if a, ok := flow.ParseCommand(msg.Command()); ok {
				in.action = a
				return in, nil
			}
		}
		if msg.Text == "" {
			return in, errSkip
		}
		// неизвестные команды идут как текст, машина ответит подсказкой
		in.action = flow.Text{Text: msg.Text}
		return in, nil
	}
	return incoming{}, errSkip
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic while handling update", "update_id", update.UpdateID, "panic", fmt.Sprint(r))
		}
	}()

	in, err := decode(update)
	switch {
	case errors.Is(err, errSkip):
		return
	case errors.Is(err, flow.ErrUnknownCallback):
		b.log.Warn("stale or foreign callback", "user_id", in.user.ID, "error", err)
		b.answer(in.callbackID, "This button is no longer valid.", false)
		return
	case err != nil:
		b.log.Error("decode update", "update_id", update.UpdateID, "error", err)
		return
	}

	b.touch(ctx, in.user)

	res := b.flow.Handle(ctx, in.user.ID, in.action)
	b.render(in, res)
}

// touch отмечает пользователя; ошибка не мешает ответить
func (b *Bot) touch(ctx context.Context, u *tgbotapi.User) {
	ctx, cancel := context.WithTimeout(ctx, b.touchTimeout)
	defer cancel()

	user := models.User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.UserName,
	}
	if err := b.users.Touch(ctx, user, b.now()); err != nil {
		b.log.Warn("user not registered", "user_id", u.ID, "error", err)
	}
}

// render показывает ответы машины. На нажатие кнопки первый ответ
// редактирует сообщение с клавиатурой, остальные отправляются новыми.
func (b *Bot) render(in incoming, res flow.Result) {
	editable := in.callbackID != "" && in.messageID != 0
	for _, r := range res.Replies {
		if editable && !r.Fresh {
			b.editMessage(in.chatID, in.messageID, r)
			editable = false
			continue
		}
		b.sendMessage(in.chatID, r)
	}
	if in.callbackID != "" {
		b.answer(in.callbackID, res.Notice, res.Alert)
	}
}
