package telegram

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"student-chatter/internal/auth"
)

const (
	requestSentText    = "Your access request has been sent to the administrator. You will be notified once it is approved."
	requestWaitingText = "Your access request is already waiting for the administrator."
)

func (b *Bot) requestAccess(msg *tgbotapi.Message) {
	if b.pending == nil {
		b.sendMessage(msg.Chat.ID, deniedText)
		return
	}
	u := auth.User{ID: msg.From.ID, Username: msg.From.UserName, FirstName: msg.From.FirstName}
	added, err := b.pending.Add(u)
	if err != nil {
		log.Error().Err(err).Int64("user", u.ID).Msg("failed to store access request")
	}
	if !added {
		b.sendMessage(msg.Chat.ID, requestWaitingText)
		return
	}
	b.sendMessage(msg.Chat.ID, requestSentText)
	b.notifyAdminRequest(u)
}

func (b *Bot) notifyAdminRequest(u auth.User) {
	if b.adminUserID == 0 {
		return
	}
	text := fmt.Sprintf("User @%s (%s) with id %d asks for access to the student assistant", u.Username, u.FirstName, u.ID)
	id := strconv.FormatInt(u.ID, 10)
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve", approvePrefix+id),
			tgbotapi.NewInlineKeyboardButtonData("Deny", denyPrefix+id),
		),
	)
	out := tgbotapi.NewMessage(b.adminUserID, b.escapeIfNeeded(text))
	out.ParseMode = b.parseModeValue()
	out.ReplyMarkup = kb
	if _, err := b.s.Send(out); err != nil {
		log.Error().Err(err).Msg("failed to notify admin about access request")
	}
}

func (b *Bot) approveUser(userID int64) {
	u := auth.User{ID: userID}
	if b.pending != nil {
		if req, ok, err := b.pending.Take(userID); err != nil {
			log.Error().Err(err).Int64("user", userID).Msg("failed to drop access request")
		} else if ok {
			u = req
		}
	}
	if err := b.authSvc.Upsert(u); err != nil {
		log.Error().Err(err).Int64("user", userID).Msg("allowlist upsert failed")
		b.sendMessage(b.adminUserID, "❌ Could not update the allowlist.")
		return
	}
	log.Info().Int64("user", userID).Msg("✅ access approved")
	b.sendMessage(userID, "✅ Access granted. Say 'help' to see what I can do.")
	b.sendMessage(b.adminUserID, fmt.Sprintf("User %d approved as %s", userID, u.ActorName()))
}

func (b *Bot) denyUser(userID int64) {
	if b.pending != nil {
		if !b.pending.Has(userID) {
			b.sendMessage(b.adminUserID, fmt.Sprintf("No pending request from user %d", userID))
			return
		}
		if _, _, err := b.pending.Take(userID); err != nil {
			log.Error().Err(err).Int64("user", userID).Msg("failed to drop access request")
		}
	}
	log.Info().Int64("user", userID).Msg("access denied")
	b.sendMessage(userID, "❌ Your access request was declined.")
	b.sendMessage(b.adminUserID, fmt.Sprintf("User %d denied", userID))
}
