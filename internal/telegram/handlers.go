package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"student-chatter/internal/auth"
	"student-chatter/internal/history"
	"student-chatter/internal/interpreter"
	"student-chatter/internal/report"
)

const (
	deniedText    = "Access denied. Ask the administrator to add your Telegram id to the allowlist."
	adminOnlyText = "❌ This command is available to the administrator only."
	defaultLimit  = 10
	tsLayout      = "2006-01-02 15:04:05"
)

// actorFor resolves the sender. ok is false when the sender may not use the bot.
func (b *Bot) actorFor(from *tgbotapi.User) (interpreter.Actor, bool) {
	if err := b.authSvc.Remember(from.ID, from.UserName, from.FirstName); err != nil {
		log.Warn().Err(err).Int64("user", from.ID).Msg("failed to update allowlist profile")
	}
	if name, ok := b.authSvc.Actor(from.ID); ok {
		return interpreter.Actor(name), true
	}
	return interpreter.Anonymous, b.allowGuests
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}
	actor, ok := b.actorFor(msg.From)
	if !ok {
		log.Warn().Int64("user", msg.From.ID).Str("username", msg.From.UserName).Msg("unauthorized access attempt")
		b.requestAccess(msg)
		return
	}
	log.Debug().Int64("user", msg.From.ID).Str("actor", actor.String()).Str("text", msg.Text).Msg("incoming message")

	reply, err := b.interp.Interpret(ctx, msg.Text, actor)
	if err != nil {
		log.Error().Err(err).Int64("chat", msg.Chat.ID).Msg("interpret failed")
	}

	if reply.Intent == interpreter.IntentExit {
		b.history.Reset(msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, reply.Text)
		return
	}
	b.history.Append(msg.Chat.ID, history.Exchange{Utterance: msg.Text, Response: reply.Text})
	log.Debug().Int64("chat", msg.Chat.ID).Int("session", b.history.Len(msg.Chat.ID)).Msg("session updated")

	out := tgbotapi.NewMessage(msg.Chat.ID, b.escapeIfNeeded(reply.Text))
	out.ParseMode = b.parseModeValue()
	out.ReplyMarkup = b.resetKeyboard()
	if _, err := b.s.Send(out); err != nil {
		log.Error().Err(err).Int64("chat", msg.Chat.ID).Msg("failed to send reply")
	}
}

func (b *Bot) handleCallback(cb *tgbotapi.CallbackQuery) {
	defer b.answerCallback(cb)
	switch {
	case cb.Data == resetCmd && cb.Message != nil:
		b.history.Reset(cb.Message.Chat.ID)
		b.sendMessage(cb.Message.Chat.ID, "Session cleared.")
	case strings.HasPrefix(cb.Data, approvePrefix), strings.HasPrefix(cb.Data, denyPrefix):
		if cb.From == nil || !b.authSvc.IsAdmin(cb.From.ID) {
			return
		}
		approve := strings.HasPrefix(cb.Data, approvePrefix)
		idStr := strings.TrimPrefix(strings.TrimPrefix(cb.Data, approvePrefix), denyPrefix)
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return
		}
		if approve {
			b.approveUser(id)
		} else {
			b.denyUser(id)
		}
	}
}

// answerCallback stops the client's spinner on the pressed button.
func (b *Bot) answerCallback(cb *tgbotapi.CallbackQuery) {
	if cb.ID == "" {
		return
	}
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Warn().Err(err).Str("callback", cb.ID).Msg("failed to answer callback")
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	switch msg.Command() {
	case "start":
		b.handleIncomingMessage(ctx, withText(msg, "hello"))
		return
	case "help":
		b.handleIncomingMessage(ctx, withText(msg, "help"))
		return
	}

	if _, ok := b.actorFor(msg.From); !ok {
		b.sendMessage(msg.Chat.ID, deniedText)
		return
	}
	switch msg.Command() {
	case "history":
		b.handleHistory(msg)
		return
	case "export":
		b.handleExport(ctx, msg)
		return
	}

	// admin-only commands
	if !b.authSvc.IsAdmin(msg.From.ID) {
		b.sendMessage(msg.Chat.ID, adminOnlyText)
		return
	}
	switch msg.Command() {
	case "audit":
		b.handleAudit(ctx, msg)
	case "chats":
		b.handleChats(ctx, msg)
	case "report":
		if err := b.sendDailyReport(ctx, msg.Chat.ID); err != nil {
			log.Error().Err(err).Msg("❌ report generation failed")
			b.sendMessage(msg.Chat.ID, "❌ Report generation failed.")
		}
	case "pending":
		if b.pending == nil {
			b.sendMessage(msg.Chat.ID, "Access requests are disabled.")
			return
		}
		var bld strings.Builder
		bld.WriteString("Pending requests:\n")
		for _, u := range b.pending.List() {
			fmt.Fprintf(&bld, "- id=%d @%s %s\n", u.ID, u.Username, u.FirstName)
		}
		b.sendMessage(msg.Chat.ID, bld.String())
	case "approve", "deny":
		uid, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
		if err != nil {
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("Usage: /%s <user_id>", msg.Command()))
			return
		}
		if msg.Command() == "approve" {
			b.approveUser(uid)
		} else {
			b.denyUser(uid)
		}
	case "allowlist":
		var bld strings.Builder
		bld.WriteString("Allowlist:\n")
		for _, u := range b.authSvc.List() {
			fmt.Fprintf(&bld, "- id=%d %s (@%s)\n", u.ID, u.ActorName(), u.Username)
		}
		b.sendMessage(msg.Chat.ID, bld.String())
	case "allow":
		args := strings.Fields(msg.CommandArguments())
		if len(args) < 1 {
			b.sendMessage(msg.Chat.ID, "Usage: /allow <user_id> [name]")
			return
		}
		uid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			b.sendMessage(msg.Chat.ID, "Invalid user_id")
			return
		}
		u := auth.User{ID: uid, Name: strings.Join(args[1:], " ")}
		if err := b.authSvc.Upsert(u); err != nil {
			log.Error().Err(err).Int64("user", uid).Msg("allowlist upsert failed")
			b.sendMessage(msg.Chat.ID, "❌ Could not update the allowlist.")
			return
		}
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("User %d added to the allowlist as %s", uid, u.ActorName()))
	case "remove":
		args := strings.Fields(msg.CommandArguments())
		if len(args) != 1 {
			b.sendMessage(msg.Chat.ID, "Usage: /remove <user_id>")
			return
		}
		uid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			b.sendMessage(msg.Chat.ID, "Invalid user_id")
			return
		}
		if !b.authSvc.IsAllowed(uid) {
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("User %d is not in the allowlist", uid))
			return
		}
		if err := b.authSvc.Remove(uid); err != nil {
			log.Error().Err(err).Int64("user", uid).Msg("allowlist remove failed")
			b.sendMessage(msg.Chat.ID, "❌ Could not update the allowlist.")
			return
		}
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("User %d removed from the allowlist", uid))
	default:
		b.sendMessage(msg.Chat.ID, "Unknown command. Say 'help' for available commands.")
	}
}

func withText(msg *tgbotapi.Message, text string) *tgbotapi.Message {
	cp := *msg
	cp.Text = text
	cp.Entities = nil
	return &cp
}

func (b *Bot) handleHistory(msg *tgbotapi.Message) {
	exs := b.history.Get(msg.Chat.ID)
	if len(exs) == 0 {
		b.sendMessage(msg.Chat.ID, "No messages in this session yet.")
		return
	}
	var bld strings.Builder
	for i, ex := range exs {
		if i > 0 {
			bld.WriteString("\n\n")
		}
		fmt.Fprintf(&bld, "[%s] You: %s\nAssistant: %s", ex.At.UTC().Format(tsLayout), ex.Utterance, ex.Response)
	}
	b.sendMessage(msg.Chat.ID, bld.String())
}

func commandLimit(msg *tgbotapi.Message) int {
	n, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil || n <= 0 {
		return defaultLimit
	}
	return n
}

func (b *Bot) handleAudit(ctx context.Context, msg *tgbotapi.Message) {
	entries, err := b.store.LoadAudit(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load audit log failed")
		b.sendMessage(msg.Chat.ID, "❌ Could not load the audit log.")
		return
	}
	if len(entries) == 0 {
		b.sendMessage(msg.Chat.ID, "The audit log is empty.")
		return
	}
	if n := commandLimit(msg); len(entries) > n {
		entries = entries[:n]
	}
	var bld strings.Builder
	bld.WriteString("📜 Recent changes:\n")
	for _, e := range entries {
		target := "-"
		if e.TargetID != nil {
			target = strconv.FormatInt(*e.TargetID, 10)
		}
		fmt.Fprintf(&bld, "[%s] %s %s #%s\n", e.Timestamp.UTC().Format(tsLayout), e.Actor, e.Action, target)
	}
	b.sendMessage(msg.Chat.ID, strings.TrimRight(bld.String(), "\n"))
}

func (b *Bot) handleChats(ctx context.Context, msg *tgbotapi.Message) {
	chats, err := b.store.LoadInteractions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("load chats failed")
		b.sendMessage(msg.Chat.ID, "❌ Could not load saved chats.")
		return
	}
	if len(chats) == 0 {
		b.sendMessage(msg.Chat.ID, "No saved chats.")
		return
	}
	if n := commandLimit(msg); len(chats) > n {
		chats = chats[:n]
	}
	var bld strings.Builder
	for i, c := range chats {
		if i > 0 {
			bld.WriteString("\n\n")
		}
		fmt.Fprintf(&bld, "[%s] %s: %s\nAssistant: %s", c.Timestamp.UTC().Format(tsLayout), c.Actor, c.Utterance, c.Response)
	}
	b.sendMessage(msg.Chat.ID, bld.String())
}

// handleExport sends the current snapshot as a CSV document.
func (b *Bot) handleExport(ctx context.Context, msg *tgbotapi.Message) {
	students, err := b.store.ListStudents(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list students for export failed")
		b.sendMessage(msg.Chat.ID, "❌ Could not export the student database.")
		return
	}
	if len(students) == 0 {
		b.sendMessage(msg.Chat.ID, "No students to export.")
		return
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, report.Table(students)); err != nil {
		log.Error().Err(err).Msg("render export failed")
		b.sendMessage(msg.Chat.ID, "❌ Could not export the student database.")
		return
	}
	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{Name: report.DefaultExportName, Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("%d students, exported %s UTC", len(students), time.Now().UTC().Format(tsLayout))
	if _, err := b.s.Send(doc); err != nil {
		log.Error().Err(err).Int64("chat", msg.Chat.ID).Msg("failed to send export")
	}
}
