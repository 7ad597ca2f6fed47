// Package telegram exposes the student assistant as a Telegram bot. Every
// text message goes through the command interpreter under the actor name the
// allowlist assigns to the sender.
package telegram

import (
	"context"
	"fmt"
	"html"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"student-chatter/internal/auth"
	"student-chatter/internal/history"
	"student-chatter/internal/interpreter"
	"student-chatter/internal/pending"
	"student-chatter/internal/report"
	"student-chatter/internal/storage"
)

const (
	resetCmd      = "reset_session"
	approvePrefix = "approve:"
	denyPrefix    = "deny:"
)

type commandInterpreter interface {
	Interpret(ctx context.Context, utterance string, actor interpreter.Actor) (interpreter.Reply, error)
}

// Store is the read side the bot needs for its own commands and reports.
type Store interface {
	storage.StudentStore
	storage.AuditLog
	storage.Recorder
}

type Options struct {
	AdminUserID int64
	ParseMode   string
	// AllowGuests lets users outside the allowlist talk to the bot
	// anonymously. Their changes are not audited.
	AllowGuests bool
	Exporter    report.Exporter
	// Pending, when set, turns messages from unknown users into access
	// requests the admin can approve.
	Pending *pending.Queue
}

type Bot struct {
	api      *tgbotapi.BotAPI
	s        sender
	authSvc  *auth.Service
	interp   commandInterpreter
	store    Store
	exporter report.Exporter
	history  *history.Manager
	pending  *pending.Queue

	adminUserID int64
	parseMode   string
	allowGuests bool
}

func New(botToken string, authSvc *auth.Service, interp commandInterpreter, store Store, opts Options) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("connect telegram: %w", err)
	}
	b := newBot(botAPISender{api: api}, authSvc, interp, store, opts)
	b.api = api
	log.Info().Str("bot", api.Self.UserName).Msg("🤖 authorized on telegram")
	return b, nil
}

func newBot(s sender, authSvc *auth.Service, interp commandInterpreter, store Store, opts Options) *Bot {
	exp := opts.Exporter
	if exp == nil {
		exp = report.CSVExporter{}
	}
	return &Bot{
		s:           s,
		authSvc:     authSvc,
		interp:      interp,
		store:       store,
		exporter:    exp,
		history:     history.NewManager(history.DefaultLimit),
		pending:     opts.Pending,
		adminUserID: opts.AdminUserID,
		parseMode:   opts.ParseMode,
		allowGuests: opts.AllowGuests,
	}
}

// Start consumes updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil:
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) parseModeValue() string {
	switch b.parseMode {
	case tgbotapi.ModeHTML, tgbotapi.ModeMarkdown, tgbotapi.ModeMarkdownV2:
		return b.parseMode
	default:
		return ""
	}
}

// escapeIfNeeded protects user-supplied text such as student names in HTML mode.
func (b *Bot) escapeIfNeeded(s string) string {
	if b.parseModeValue() == tgbotapi.ModeHTML {
		return html.EscapeString(s)
	}
	return s
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, b.escapeIfNeeded(text))
	msg.ParseMode = b.parseModeValue()
	if _, err := b.s.Send(msg); err != nil {
		log.Error().Err(err).Int64("chat", chatID).Msg("failed to send message")
	}
}

func (b *Bot) resetKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("End session", resetCmd),
		),
	)
}
