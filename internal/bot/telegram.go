package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"community_bot/internal/archive"
	"community_bot/internal/publisher"
)

// Telegram adapts the Bot API to the collaborator interfaces the publisher,
// the archive workflow, and the scheduler consume.
type Telegram struct {
	api             telegramAPI
	announceChatID  int64
	moderatorChatID int64
	communityChatID int64
	archiveChatID   int64
	log             *slog.Logger
}

// NewTelegram creates the platform adapter over a connected API client.
func NewTelegram(api telegramAPI, announce, moderator, community, archiveChat int64, log *slog.Logger) *Telegram {
	return &Telegram{
		api:             api,
		announceChatID:  announce,
		moderatorChatID: moderator,
		communityChatID: community,
		archiveChatID:   archiveChat,
		log:             log,
	}
}

// SendAnnouncements posts the composed payload to the announcement channel.
func (t *Telegram) SendAnnouncements(_ context.Context, p publisher.Payload) (publisher.MessageRef, error) {
	text := p.Header + "\n\n" + publisher.FormatCards(p.Cards)
	msg := tgbotapi.NewMessage(t.announceChatID, text)
	msg.DisableWebPagePreview = true
	sent, err := t.api.Send(msg)
	if err != nil {
		return publisher.MessageRef{}, fmt.Errorf("send announcement payload: %w", err)
	}
	return publisher.MessageRef{ChatID: sent.Chat.ID, MessageID: sent.MessageID}, nil
}

// AttachReaction sets the tracked emoji reaction on a message. The Bot API
// method is not wrapped by the client library, so it goes through the raw
// request path.
func (t *Telegram) AttachReaction(_ context.Context, ref publisher.MessageRef, emoji string) error {
	reaction, err := json.Marshal([]map[string]string{{"type": "emoji", "emoji": emoji}})
	if err != nil {
		return fmt.Errorf("encode reaction: %w", err)
	}
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", ref.ChatID)
	params.AddNonZero("message_id", ref.MessageID)
	params["reaction"] = string(reaction)
	if _, err := t.api.MakeRequest("setMessageReaction", params); err != nil {
		return fmt.Errorf("set message reaction: %w", err)
	}
	return nil
}

// NotifyUser sends a direct message.
func (t *Telegram) NotifyUser(_ context.Context, userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("notify user %d: %w", userID, err)
	}
	return nil
}

// ChannelName resolves a chat's current title.
func (t *Telegram) ChannelName(_ context.Context, channelID int64) (string, error) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", channelID)
	resp, err := t.api.MakeRequest("getChat", params)
	if err != nil {
		return "", fmt.Errorf("get chat %d: %w", channelID, err)
	}
	var chat struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(resp.Result, &chat); err != nil {
		return "", fmt.Errorf("decode chat %d: %w", channelID, err)
	}
	if chat.Title == "" {
		return "", fmt.Errorf("chat %d has no title", channelID)
	}
	return chat.Title, nil
}

// ArchiveChannel renames the chat and records it in the archive group.
func (t *Telegram) ArchiveChannel(ctx context.Context, channelID int64, newName string) error {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", channelID)
	params["title"] = newName
	if _, err := t.api.MakeRequest("setChatTitle", params); err != nil {
		return fmt.Errorf("rename chat %d: %w", channelID, err)
	}
	// The archive group keeps the ledger of archived channels.
	note := fmt.Sprintf("📦 %s", newName)
	if _, err := t.api.Send(tgbotapi.NewMessage(t.archiveChatID, note)); err != nil {
		t.log.Warn("record archive entry", "chat_id", channelID, "error", err)
	}
	return nil
}

// PostApprovalRequest posts the approval notice with its inline approval
// marker to the moderator channel.
func (t *Telegram) PostApprovalRequest(_ context.Context, req archive.Request) error {
	text := fmt.Sprintf("Archival requested for %s by %d.\nReason: %s\nApprove within 24 hours or the request lapses.",
		req.ChannelName, req.RequesterID, req.Reason)
	msg := tgbotapi.NewMessage(t.moderatorChatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve", "archive_approve:"+req.ID),
		),
	)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("post approval request: %w", err)
	}
	return nil
}

// PostConfirmation posts an archival confirmation to the moderator channel.
func (t *Telegram) PostConfirmation(_ context.Context, text string) error {
	if _, err := t.api.Send(tgbotapi.NewMessage(t.moderatorChatID, text)); err != nil {
		return fmt.Errorf("post confirmation: %w", err)
	}
	return nil
}

// CreateChannel provisions a scoped topic in the community group and returns
// its display name.
func (t *Telegram) CreateChannel(_ context.Context, name string) (string, error) {
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", t.communityChatID)
	params["name"] = name
	resp, err := t.api.MakeRequest("createForumTopic", params)
	if err != nil {
		return "", fmt.Errorf("create forum topic %q: %w", name, err)
	}
	var topic struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(resp.Result, &topic); err != nil {
		return "", fmt.Errorf("decode created topic: %w", err)
	}
	if topic.Name == "" {
		topic.Name = name
	}
	return topic.Name, nil
}
