package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"community_bot/internal/archive"
)

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID
	userID := cb.From.ID

	ack := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.MakeRequest("answerCallbackQuery", callbackParams(ack)); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	action, payload, ok := strings.Cut(data, ":")
	if !ok {
		return
	}

	b.log.Info("callback",
		"action", action,
		"payload", payload,
		"chat_id", chatID,
		"user_id", userID,
		"username", cb.From.UserName,
	)

	switch action {
	case "noop":
		return
	case "archive_approve":
		b.handleArchiveApproval(ctx, chatID, userID, payload)
		return
	}

	// Everything below mutates announcements.
	if !b.cfg.IsModerator(userID) {
		b.reply(chatID, "Access denied.")
		return
	}

	switch action {
	case "save_ann":
		b.saveAnnouncement(ctx, chatID, payload)
	case "cancel_ann":
		b.discardAnnouncement(chatID, payload)
	case "delete":
		id, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return
		}
		b.deleteAnnouncement(ctx, chatID, id)
	case "publish_go":
		b.publishNow(ctx, chatID)
	}
}

func (b *Bot) handleArchiveApproval(ctx context.Context, chatID, userID int64, requestID string) {
	err := b.arch.HandleApproval(ctx, requestID, userID)
	switch {
	case errors.Is(err, archive.ErrUnknownRequest):
		// Stale marker, already decided or timed out.
	case errors.Is(err, archive.ErrNotAuthorized):
		b.reply(chatID, "Only moderators can approve archival requests.")
	case err != nil:
		b.reply(chatID, "Archival failed: "+err.Error())
	}
}

func callbackParams(ack tgbotapi.CallbackConfig) tgbotapi.Params {
	params := tgbotapi.Params{}
	params["callback_query_id"] = ack.CallbackQueryID
	if ack.Text != "" {
		params["text"] = ack.Text
	}
	return params
}
