package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gymbot/internal/flow"
	"gymbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// API часть tgbotapi.BotAPI, которой пользуется бот
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler машина состояний диалога
type Handler interface {
	Handle(ctx context.Context, userID int64, a flow.Action) flow.Result
}

// Users регистрация пользователей
type Users interface {
	Touch(ctx context.Context, u models.User, at time.Time) error
}

// Bot представляет Telegram бота
type Bot struct {
	api   API
	flow  Handler
	users Users
	log   *slog.Logger

	touchTimeout time.Duration
	now          func() time.Time

	inflight sync.WaitGroup
}

// New создаёт новый экземпляр бота
func New(api API, handler Handler, users Users, log *slog.Logger) *Bot {
	return &Bot{
		api:          api,
		flow:         handler,
		users:        users,
		log:          log,
		touchTimeout: 5 * time.Second,
		now:          time.Now,
	}
}

var commands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Record a training"},
	{Command: "gym", Description: "Record a training"},
	{Command: "edit", Description: "Edit today's records"},
}

// Start регистрирует команды и обрабатывает обновления до отмены ctx.
// Каждое обновление обрабатывается в своей горутине; перед выходом
// дожидается уже начатых.
func (b *Bot) Start(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		return fmt.Errorf("set bot commands: %w", err)
	}

	updates := b.initUpdatesChannel()
	b.log.Info("bot started, waiting for updates")

	// начатые обновления доживают до конца и после отмены
	handleCtx := context.WithoutCancel(ctx)
	defer b.inflight.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("bot stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.inflight.Add(1)
			go func() {
				defer b.inflight.Done()
				b.handleUpdate(handleCtx, update)
			}()
		}
	}
}

func (b *Bot) initUpdatesChannel() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	return b.api.GetUpdatesChan(u)
}
