package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gymbot/internal/flow"
	"gymbot/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	editErr  error
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if _, ok := c.(tgbotapi.EditMessageTextConfig); ok && f.editErr != nil {
		return tgbotapi.Message{}, f.editErr
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

type fakeHandler struct {
	mu      sync.Mutex
	actions []flow.Action
	result  flow.Result
}

func (h *fakeHandler) Handle(_ context.Context, _ int64, a flow.Action) flow.Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = append(h.actions, a)
	return h.result
}

type fakeUsers struct {
	mu    sync.Mutex
	users []models.User
}

func (u *fakeUsers) Touch(_ context.Context, user models.User, _ time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.users = append(u.users, user)
	return nil
}

func newTestBot(res flow.Result) (*Bot, *fakeAPI, *fakeHandler, *fakeUsers) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	h := &fakeHandler{result: res}
	users := &fakeUsers{}
	return New(api, h, users, slog.New(slog.NewTextHandler(io.Discard, nil))), api, h, users
}

var from = &tgbotapi.User{ID: 7, FirstName: "Ann", LastName: "Lee", UserName: "annlee"}

func callback(data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    from,
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 55, Chat: &tgbotapi.Chat{ID: 7}},
	}}
}

func command(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: from,
		Chat: &tgbotapi.Chat{ID: 7},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(text)},
		},
	}}
}

var musclesReply = flow.Result{
	Replies: []flow.Reply{{
		Text:    "Select a body part",
		HTML:    true,
		Choices: []flow.Button{{Text: "Abs", Data: "mus:Abs"}, {Text: "Chest", Data: "mus:Chest"}},
		PerRow:  3,
		Footer:  []flow.Button{{Text: "Back", Data: "menu"}},
	}},
	Notice: "Chest",
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		want   flow.Action
	}{
		{"gym command", command("/gym"), flow.Start{}},
		{"start command", command("/start"), flow.Start{}},
		{"edit command", command("/edit"), flow.EditMenu{}},
		{"unknown command", command("/help"), flow.Text{Text: "/help"}},
		{"callback", callback("set:2"), flow.SetChosen{Set: 2}},
		{"plain text", tgbotapi.Update{Message: &tgbotapi.Message{
			From: from, Chat: &tgbotapi.Chat{ID: 7}, Text: "62,5",
		}}, flow.Text{Text: "62,5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := decode(tt.update)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, in.action); diff != "" {
				t.Errorf("action mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeSkips(t *testing.T) {
	updates := []tgbotapi.Update{
		{},
		{Message: &tgbotapi.Message{From: from, Chat: &tgbotapi.Chat{ID: 7}}},
		{CallbackQuery: &tgbotapi.CallbackQuery{ID: "x", From: from, Data: "gym"}},
	}
	for i, u := range updates {
		if _, err := decode(u); !errors.Is(err, errSkip) {
			t.Errorf("update %d: err = %v, want errSkip", i, err)
		}
	}
}

func TestCallbackEditsMessage(t *testing.T) {
	b, api, h, users := newTestBot(musclesReply)

	b.handleUpdate(context.Background(), callback("mus:Chest"))

	if diff := cmp.Diff([]flow.Action{flow.MuscleSelected{Muscle: "Chest"}}, h.actions); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
	if len(users.users) != 1 || users.users[0].Username != "annlee" {
		t.Errorf("touched users = %+v", users.users)
	}

	if len(api.sent) != 1 {
		t.Fatalf("sent %d messages, want 1 edit", len(api.sent))
	}
	edit, ok := api.sent[0].(tgbotapi.EditMessageTextConfig)
	if !ok {
		t.Fatalf("sent %T, want an edit", api.sent[0])
	}
	if edit.MessageID != 55 || edit.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("edit = %+v", edit)
	}
	rows := edit.ReplyMarkup.InlineKeyboard
	if len(rows) != 2 || len(rows[0]) != 2 || *rows[0][1].CallbackData != "mus:Chest" {
		t.Errorf("keyboard = %+v", rows)
	}

	if len(api.requests) != 1 {
		t.Fatalf("got %d requests, want callback answer", len(api.requests))
	}
	ans := api.requests[0].(tgbotapi.CallbackConfig)
	if ans.Text != "Chest" || ans.ShowAlert {
		t.Errorf("answer = %+v", ans)
	}
}

func TestFreshReplyIsSent(t *testing.T) {
	b, api, _, _ := newTestBot(flow.Result{Replies: []flow.Reply{{Text: "Please enter the name", Fresh: true}}})

	b.handleUpdate(context.Background(), callback("add:mus"))

	if len(api.sent) != 1 {
		t.Fatalf("sent %d, want 1", len(api.sent))
	}
	if _, ok := api.sent[0].(tgbotapi.MessageConfig); !ok {
		t.Errorf("sent %T, want a new message", api.sent[0])
	}
}

func TestCommandSendsNewMessage(t *testing.T) {
	b, api, h, _ := newTestBot(musclesReply)

	b.handleUpdate(context.Background(), command("/gym"))

	if diff := cmp.Diff([]flow.Action{flow.Start{}}, h.actions); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want message", api.sent[0])
	}
	if msg.Text != "Select a body part" || msg.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("message = %+v", msg)
	}
	if len(api.requests) != 0 {
		t.Error("messages must not answer callbacks")
	}
}

func TestUnknownCallbackIsAnswered(t *testing.T) {
	b, api, h, _ := newTestBot(musclesReply)

	b.handleUpdate(context.Background(), callback("old_button"))

	if len(h.actions) != 0 {
		t.Errorf("handler called with %v", h.actions)
	}
	ans := api.requests[0].(tgbotapi.CallbackConfig)
	if ans.Text != "This button is no longer valid." {
		t.Errorf("answer = %q", ans.Text)
	}
}

func TestEditFallback(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantSent int
	}{
		{"not modified", errors.New("Bad Request: message is not modified"), 1},
		{"message gone", errors.New("Bad Request: message to edit not found"), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, api, _, _ := newTestBot(musclesReply)
			api.editErr = tt.err

			b.handleUpdate(context.Background(), callback("mus:Chest"))

			if len(api.sent) != tt.wantSent {
				t.Errorf("sent %d, want %d", len(api.sent), tt.wantSent)
			}
		})
	}
}

func TestAlertNotice(t *testing.T) {
	b, api, _, _ := newTestBot(flow.Result{Notice: "Failed to delete exercise.", Alert: true})

	b.handleUpdate(context.Background(), callback("del:Peck Deck"))

	if len(api.sent) != 0 {
		t.Errorf("sent %d messages, want none", len(api.sent))
	}
	ans := api.requests[0].(tgbotapi.CallbackConfig)
	if !ans.ShowAlert || ans.Text != "Failed to delete exercise." {
		t.Errorf("answer = %+v", ans)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	b, api, h, _ := newTestBot(musclesReply)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Start(ctx) }()

	api.updates <- command("/gym")
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	api.mu.Lock()
	stopped := api.stopped
	_, isCommands := api.requests[0].(tgbotapi.SetMyCommandsConfig)
	api.mu.Unlock()
	if !stopped {
		t.Error("updates were not stopped")
	}
	if !isCommands {
		t.Error("first request should register commands")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.actions) != 1 {
		t.Errorf("handled %d updates, want 1", len(h.actions))
	}
}
