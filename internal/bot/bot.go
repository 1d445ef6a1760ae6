package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/AaronL1011/mechmate-sub000/internal/apperr"
	"github.com/AaronL1011/mechmate-sub000/internal/assistant"
	"github.com/AaronL1011/mechmate-sub000/internal/model"
	"github.com/AaronL1011/mechmate-sub000/internal/repository"
	"github.com/AaronL1011/mechmate-sub000/internal/service"
)

const (
	cbConfirmPrefix = "confirm:"
	cbCancelPrefix  = "cancel:"
)

const (
	btnConfirm         = "✅ Confirm"
	btnCancel          = "↩️ Cancel"
	btnYes             = "yes"
	btnNo              = "no"
	menuLabelDue       = "🔧 Due"
	menuLabelEquipment = "🚗 Equipment"
	menuLabelHelp      = "ℹ️ Help"
)

// telegramAPI is the part of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Proposer interface {
	Propose(ctx context.Context, text string) (assistant.ProposalResponse, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, req assistant.ConfirmRequest) (assistant.ConfirmationResponse, error)
}

// Deps are the services the bot talks to.
type Deps struct {
	Users      *repository.UserRepository
	Proposer   Proposer
	Confirmer  Confirmer
	Equipment  *service.EquipmentService
	Reminder   *service.ReminderService
	WindowDays int
	// PendingTTL is how long a proposal stays answerable by a typed yes
	// or no. Zero keeps it until it is answered.
	PendingTTL time.Duration
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api    telegramAPI
	deps   Deps
	logger *zap.Logger
	// pending is the latest unanswered proposal per user, so a typed
	// yes or no works as well as the buttons.
	pending map[int64]pendingProposal
	mu      sync.Mutex
	now     func() time.Time
}

type pendingProposal struct {
	token     string
	expiresAt time.Time
}

func New(token string, deps Deps, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	logger.Info("bot authorized", zap.String("account", api.Self.UserName))
	return newBot(api, deps, logger), nil
}

func newBot(api telegramAPI, deps Deps, logger *zap.Logger) *Bot {
	return &Bot{api: api, deps: deps, logger: logger, pending: make(map[int64]pendingProposal), now: time.Now}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.logger.Warn("handle callback", zap.Error(err))
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.logger.Warn("handle message", zap.Error(err))
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		b.logger.Info("command", zap.Int64("user", msg.From.ID), zap.String("command", msg.Command()))
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	text := strings.TrimSpace(msg.Text)
	if token, ok := b.getPending(msg.From.ID); ok {
		switch strings.ToLower(text) {
		case btnYes:
			return b.confirm(ctx, msg.Chat.ID, msg.From.ID, token, true, 0)
		case btnNo:
			return b.confirm(ctx, msg.Chat.ID, msg.From.ID, token, false, 0)
		}
	}
	if text == "" {
		return nil
	}
	return b.propose(ctx, msg, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "due":
		return b.handleDue(ctx, msg)
	case "equipment":
		return b.handleEquipment(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "I don't know that command. Try /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}
	text := fmt.Sprintf("👋 Hi, %s!\n<b>I keep track of maintenance for your equipment.</b>\n\n"+
		"Just tell me what you did or what you need, for example:\n"+
		"• <i>I changed the oil on the Civic at 56000 km</i>\n"+
		"• <i>Remind me to service the mower every 50 hours</i>\n\n"+
		"I'll ask you to confirm every change. /help lists the commands.", escape(name))
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /due - overdue and upcoming maintenance\n" +
		"• /equipment - your equipment and usage counters\n" +
		"• /help - this message\n\n" +
		"Anything else you write is read by the assistant. Proposed changes come with Confirm and Cancel buttons; you can also answer yes or no."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleDue(ctx context.Context, msg *tgbotapi.Message) error {
	text, err := b.deps.Reminder.DueSummary(ctx, b.deps.WindowDays)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the report: %s", escape(apperr.UserMessage(err))))
	}
	if text == "" {
		text = "✅ Nothing is overdue or due soon."
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleEquipment(ctx context.Context, msg *tgbotapi.Message) error {
	items, err := b.deps.Equipment.List(ctx, "")
	if err != nil {
		return b.sendText(msg.Chat.ID, escape(apperr.UserMessage(err)))
	}
	if len(items) == 0 {
		return b.sendText(msg.Chat.ID, "No equipment yet. Tell me about something you own, e.g. <i>I have a 2019 Honda Civic at 42000 km</i>.")
	}
	var sb strings.Builder
	sb.WriteString("🚗 <b>Equipment</b>\n")
	for _, e := range items {
		sb.WriteString(formatEquipment(e))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) propose(ctx context.Context, msg *tgbotapi.Message, text string) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	if _, err := b.api.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug("chat action", zap.Error(err))
	}

	resp, err := b.deps.Proposer.Propose(ctx, text)
	if err != nil {
		b.logger.Info("proposal failed", zap.Int64("user", msg.From.ID), zap.String("kind", string(apperr.KindOf(err))), zap.Error(err))
	}

	switch {
	case resp.ActionID != "":
		b.setPending(msg.From.ID, resp.ActionID)
		prompt := fmt.Sprintf("📝 %s\n\nShall I go ahead?", escape(resp.Message))
		return b.sendWithReplyMarkup(msg.Chat.ID, prompt, confirmKeyboard(resp.ActionID))
	case resp.RequiresMoreInfo:
		return b.sendText(msg.Chat.ID, "🤔 "+escape(resp.Message))
	case err != nil:
		return b.sendText(msg.Chat.ID, "⚠️ "+escape(apperr.UserMessage(err)))
	default:
		return b.sendText(msg.Chat.ID, escape(firstNonEmpty(resp.Message, resp.Error)))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Debug("callback ack", zap.Error(err))
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbConfirmPrefix):
		return b.confirm(ctx, cb.Message.Chat.ID, cb.From.ID, strings.TrimPrefix(data, cbConfirmPrefix), true, cb.Message.MessageID)
	case strings.HasPrefix(data, cbCancelPrefix):
		return b.confirm(ctx, cb.Message.Chat.ID, cb.From.ID, strings.TrimPrefix(data, cbCancelPrefix), false, cb.Message.MessageID)
	default:
		return nil
	}
}

// confirm redeems token. messageID, when set, is the proposal message whose
// buttons are removed.
func (b *Bot) confirm(ctx context.Context, chatID, userID int64, token string, confirmed bool, messageID int) error {
	b.clearPending(userID, token)
	b.logger.Info("confirmation", zap.Int64("user", userID), zap.String("action_id", token), zap.Bool("confirmed", confirmed))

	if messageID != 0 {
		edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
		if _, err := b.api.Request(edit); err != nil {
			b.logger.Debug("remove buttons", zap.Error(err))
		}
	}

	resp, err := b.deps.Confirmer.Confirm(ctx, assistant.ConfirmRequest{Token: token, Confirmed: confirmed})
	if err != nil {
		return b.sendText(chatID, "⚠️ "+escape(apperr.UserMessage(err)))
	}
	icon := "✅ "
	if !confirmed {
		icon = "↩️ "
	}
	return b.sendText(chatID, icon+escape(firstNonEmpty(resp.Message, resp.Error)))
}

// SendDueReports sends the due report to every known user. Nothing is sent
// when no task is overdue or upcoming.
func (b *Bot) SendDueReports(ctx context.Context) error {
	users, err := b.deps.Users.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}
	text, err := b.deps.Reminder.DueSummary(ctx, b.deps.WindowDays)
	if err != nil {
		return err
	}
	if text == "" {
		b.logger.Debug("due report empty, nothing sent")
		return nil
	}
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			b.logger.Warn("send due report", zap.Int64("user", user.TelegramID), zap.Error(err))
		}
	}
	return nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.deps.Users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// getPending returns the user's latest proposal unless it has expired.
// Expired entries are dropped.
func (b *Bot) getPending(userID int64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pending[userID]
	if !ok {
		return "", false
	}
	if !p.expiresAt.IsZero() && !b.now().Before(p.expiresAt) {
		delete(b.pending, userID)
		return "", false
	}
	return p.token, true
}

func (b *Bot) setPending(userID int64, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := pendingProposal{token: token}
	if b.deps.PendingTTL > 0 {
		p.expiresAt = b.now().Add(b.deps.PendingTTL)
	}
	b.pending[userID] = p
}

// clearPending forgets token if it is still the user's latest proposal.
func (b *Bot) clearPending(userID int64, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending[userID].token == token {
		delete(b.pending, userID)
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelDue):
		return true, b.handleDue(ctx, msg)
	case strings.ToLower(menuLabelEquipment):
		return true, b.handleEquipment(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func confirmKeyboard(token string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnConfirm, cbConfirmPrefix+token),
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, cbCancelPrefix+token),
		),
	)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelDue),
			tgbotapi.NewKeyboardButton(menuLabelEquipment),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func formatEquipment(e model.Equipment) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("#%d %s", e.ID, escape(e.Name)))
	if desc := strings.TrimSpace(strings.Join([]string{yearString(e.Year), e.Make, e.Model}, " ")); desc != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", escape(desc)))
	}
	if e.UsageUnit != "" || e.CurrentUsageValue > 0 {
		sb.WriteString(fmt.Sprintf("\n   📏 %s %s", service.FormatNumber(e.CurrentUsageValue), escape(e.UsageUnit)))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func yearString(year *int) string {
	if year == nil {
		return ""
	}
	return fmt.Sprintf("%d", *year)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func escape(s string) string {
	return html.EscapeString(s)
}
