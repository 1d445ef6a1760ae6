package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/assistant"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/service"
	"github.com/AaronL1011/mechmate-sub000/internal/testsupport"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.MessageConfig
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
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
	return make(chan tgbotapi.Update)
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

type fakeProposer struct {
	resp assistant.ProposalResponse
	err  error
	seen []string
}

func (f *fakeProposer) Propose(_ context.Context, text string) (assistant.ProposalResponse, error) {
	f.seen = append(f.seen, text)
	return f.resp, f.err
}

type fakeConfirmer struct {
	reqs []assistant.ConfirmRequest
}

func (f *fakeConfirmer) Confirm(_ context.Context, req assistant.ConfirmRequest) (assistant.ConfirmationResponse, error) {
	f.reqs = append(f.reqs, req)
	if !req.Confirmed {
		return assistant.ConfirmationResponse{Success: true, Message: "Cancelled, nothing was changed."}, nil
	}
	return assistant.ConfirmationResponse{Success: true, Message: "Added Civic (#1)."}, nil
}

type fixture struct {
	bot       *Bot
	api       *fakeAPI
	proposer  *fakeProposer
	confirmer *fakeConfirmer
	equipment *service.EquipmentService
	tasks     *service.TaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testsupport.NewStore(t)
	logger := zap.NewNop()
	tasks := service.NewTaskService(store, service.NewTaskLocks(), 7, logger)
	f := &fixture{
		api:       &fakeAPI{},
		proposer:  &fakeProposer{},
		confirmer: &fakeConfirmer{},
		equipment: service.NewEquipmentService(store, logger),
		tasks:     tasks,
	}
	f.bot = newBot(f.api, Deps{
		Users:      store.Users,
		Proposer:   f.proposer,
		Confirmer:  f.confirmer,
		Equipment:  f.equipment,
		Reminder:   service.NewReminderService(tasks),
		WindowDays: 7,
		PendingTTL: 10 * time.Minute,
	}, logger)
	return f
}

func textMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: 10, FirstName: "Sam"},
		Chat: &tgbotapi.Chat{ID: 10, Type: "private"},
	}
}

func commandMessage(command string) *tgbotapi.Message {
	msg := textMessage("/" + command)
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command) + 1}}
	return msg
}

func TestProposalGetsConfirmButtons(t *testing.T) {
	f := newFixture(t)
	f.proposer.resp = assistant.ProposalResponse{
		Success:              true,
		ActionID:             "tok-1",
		Message:              `Add equipment "Civic" (car) at 1000 km`,
		RequiresConfirmation: true,
	}

	require.NoError(t, f.bot.handleMessage(context.Background(), textMessage("I have a Civic at 1000 km")))

	assert.Equal(t, []string{"I have a Civic at 1000 km"}, f.proposer.seen)
	msg := f.api.last(t)
	assert.Contains(t, msg.Text, "Add equipment &#34;Civic&#34;")
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	row := markup.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Equal(t, cbConfirmPrefix+"tok-1", *row[0].CallbackData)
	assert.Equal(t, cbCancelPrefix+"tok-1", *row[1].CallbackData)

	token, ok := f.bot.getPending(10)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", token)
}

func TestCallbackConfirmsToken(t *testing.T) {
	f := newFixture(t)
	f.bot.setPending(10, "tok-1")

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 10},
		Message: &tgbotapi.Message{MessageID: 77, Chat: &tgbotapi.Chat{ID: 10, Type: "private"}},
		Data:    cbConfirmPrefix + "tok-1",
	}
	require.NoError(t, f.bot.handleCallback(context.Background(), cb))

	require.Len(t, f.confirmer.reqs, 1)
	assert.Equal(t, assistant.ConfirmRequest{Token: "tok-1", Confirmed: true}, f.confirmer.reqs[0])
	assert.Contains(t, f.api.last(t).Text, "Added Civic (#1).")
	_, ok := f.bot.getPending(10)
	assert.False(t, ok)
}

func TestTypedNoCancelsPending(t *testing.T) {
	f := newFixture(t)
	f.bot.setPending(10, "tok-2")

	require.NoError(t, f.bot.handleMessage(context.Background(), textMessage("No")))

	require.Len(t, f.confirmer.reqs, 1)
	assert.False(t, f.confirmer.reqs[0].Confirmed)
	assert.Empty(t, f.proposer.seen)
	assert.Contains(t, f.api.last(t).Text, "Cancelled")
}

func TestProposalFailureShowsUserMessage(t *testing.T) {
	f := newFixture(t)
	boom := apperr.Wrap(apperr.KindExternalCapabilityFailure, "propose", assert.AnError)
	f.proposer.resp = assistant.ProposalResponse{Error: apperr.UserMessage(boom)}
	f.proposer.err = boom

	require.NoError(t, f.bot.handleMessage(context.Background(), textMessage("hello")))
	assert.Contains(t, f.api.last(t).Text, "⚠️")
}

func TestDueCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bot.handleMessage(ctx, commandMessage("due")))
	assert.Contains(t, f.api.last(t).Text, "Nothing is overdue")

	civic, err := f.equipment.Create(ctx, model.CreateEquipment{Name: "Civic", UsageUnit: "km"})
	require.NoError(t, err)
	past := model.DateOf(time.Now().UTC().AddDate(0, 0, -3))
	_, err = f.tasks.CreateTask(ctx, model.CreateTask{EquipmentID: civic.ID, Title: "Oil change", NextDueDate: &past})
	require.NoError(t, err)

	require.NoError(t, f.bot.handleMessage(ctx, commandMessage("due")))
	text := f.api.last(t).Text
	assert.Contains(t, text, "Overdue")
	assert.Contains(t, text, "Oil change")
}

func TestSendDueReportsReachesKnownUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.bot.handleMessage(ctx, commandMessage("start")))
	_, err := f.bot.deps.Users.UpsertFromTelegram(ctx, 20, "Kim", "", "kim")
	require.NoError(t, err)

	f.api.sent = nil
	require.NoError(t, f.bot.SendDueReports(ctx))
	assert.Empty(t, f.api.sent, "nothing due, nothing sent")

	mower, err := f.equipment.Create(ctx, model.CreateEquipment{Name: "Mower"})
	require.NoError(t, err)
	past := model.DateOf(time.Now().UTC().AddDate(0, 0, -1))
	_, err = f.tasks.CreateTask(ctx, model.CreateTask{EquipmentID: mower.ID, Title: "Sharpen blade", NextDueDate: &past})
	require.NoError(t, err)

	require.NoError(t, f.bot.SendDueReports(ctx))
	require.Len(t, f.api.sent, 2)
	var chats []int64
	for _, msg := range f.api.sent {
		chats = append(chats, msg.ChatID)
		assert.Contains(t, msg.Text, "Sharpen blade")
	}
	assert.ElementsMatch(t, []int64{10, 20}, chats)
}

func TestFormatEquipment(t *testing.T) {
	year := 2019
	got := formatEquipment(model.Equipment{ID: 3, Name: "Civic <LX>", Make: "Honda", Model: "Civic", Year: &year, CurrentUsageValue: 56000, UsageUnit: "km"})
	assert.Equal(t, "#3 Civic &lt;LX&gt; <i>(2019 Honda Civic)</i>\n   📏 56000 km\n", got)

	assert.Equal(t, "#4 Generator\n", formatEquipment(model.Equipment{ID: 4, Name: "Generator"}))
}

func TestMenuAliases(t *testing.T) {
	f := newFixture(t)
	handled, err := f.bot.handleMenuAlias(context.Background(), textMessage(menuLabelHelp))
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, f.api.last(t).Text, "/due")

	handled, err = f.bot.handleMenuAlias(context.Background(), textMessage("change the oil"))
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestTypedYesAfterExpiryGoesToAssistant(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	f.bot.now = func() time.Time { return now }
	f.bot.setPending(10, "tok-3")
	f.proposer.resp = assistant.ProposalResponse{Success: true, Message: "Yes to what?"}

	now = now.Add(10 * time.Minute)
	require.NoError(t, f.bot.handleMessage(context.Background(), textMessage("yes")))

	assert.Empty(t, f.confirmer.reqs)
	assert.Equal(t, []string{"yes"}, f.proposer.seen)
	_, ok := f.bot.getPending(10)
	assert.False(t, ok)
}

func TestTypedYesWithinTTLConfirms(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	f.bot.now = func() time.Time { return now }
	f.bot.setPending(10, "tok-4")

	now = now.Add(9 * time.Minute)
	require.NoError(t, f.bot.handleMessage(context.Background(), textMessage("Yes")))

	require.Len(t, f.confirmer.reqs, 1)
	assert.Equal(t, assistant.ConfirmRequest{Token: "tok-4", Confirmed: true}, f.confirmer.reqs[0])
	assert.Empty(t, f.proposer.seen)
}
