// Package bot is the Telegram command surface: command parsing, role
// checks, inline-button confirmations, and the platform adapter the other
// packages consume.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"community_bot/internal/archive"
	"community_bot/internal/config"
	"community_bot/internal/model"
	"community_bot/internal/publisher"
	"community_bot/internal/settings"
	"community_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot handles user commands and drives the announcement and archival
// workflows.
type Bot struct {
	api      telegramAPI
	store    storage.Storage
	settings *settings.Service
	cfg      *config.Config
	pub      *publisher.Publisher
	arch     *archive.Workflow
	platform *Telegram
	log      *slog.Logger
	selfID   int64

	now func() time.Time

	// Pending confirmations keyed by inline-button payload.
	mu         sync.Mutex
	pendingAdd map[string]model.Announcement
}

// New connects to the Bot API and wires the command surface.
func New(cfg *config.Config, store storage.Storage, svc *settings.Service, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newWithAPI(api, cfg, store, svc, log)
	b.selfID = api.Self.ID
	return b, nil
}

// SelfID is the bot's own account id, known after connecting.
func (b *Bot) SelfID() int64 {
	return b.selfID
}

func newWithAPI(api telegramAPI, cfg *config.Config, store storage.Storage, svc *settings.Service, log *slog.Logger) *Bot {
	return &Bot{
		api:        api,
		store:      store,
		settings:   svc,
		cfg:        cfg,
		log:        log,
		platform:   NewTelegram(api, cfg.AnnounceChatID, cfg.ModeratorChatID, cfg.CommunityChatID, cfg.ArchiveChatID, log),
		now:        time.Now,
		pendingAdd: make(map[string]model.Announcement),
	}
}

// Platform returns the adapter for the publisher, scheduler, and archive
// collaborators.
func (b *Bot) Platform() *Telegram {
	return b.platform
}

// SetPublisher attaches the publish pipeline. Wired after construction
// because the publisher itself sends through this bot's platform adapter.
func (b *Bot) SetPublisher(p *publisher.Publisher) {
	b.pub = p
}

// SetArchive attaches the archival workflow.
func (b *Bot) SetArchive(w *archive.Workflow) {
	b.arch = w
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}
	if !update.Message.IsCommand() {
		b.autoReact(ctx, update.Message)
		return
	}
	b.handleCommand(ctx, update.Message)
}

// autoReact attaches the tracked reaction to messages in the configured
// channels. Best effort.
func (b *Bot) autoReact(ctx context.Context, msg *tgbotapi.Message) {
	channels, err := b.settings.AutoReactChannels(ctx)
	if err != nil {
		b.log.Error("read auto-react channels", "error", err)
		return
	}
	if !slices.Contains(channels, msg.Chat.ID) {
		return
	}
	emoji, err := b.settings.ReactionEmoji(ctx)
	if err != nil {
		b.log.Error("read reaction emoji", "error", err)
		return
	}
	ref := publisher.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID}
	if err := b.platform.AttachReaction(ctx, ref, emoji); err != nil {
		b.log.Warn("auto-react", "chat_id", msg.Chat.ID, "error", err)
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID
	userID := msg.From.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID, "user_id", userID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
		return
	case "help":
		b.handleHelp(chatID)
		return
	case "archive":
		b.handleArchive(ctx, msg, args)
		return
	}

	if !b.cfg.IsModerator(userID) {
		b.reply(chatID, "Access denied.")
		return
	}

	switch cmd {
	case "create_channel":
		b.handleCreateChannel(ctx, msg, args)
	case "add_event":
		b.handleAdd(ctx, chatID, model.TypeEvent, args)
	case "add_info":
		b.handleAdd(ctx, chatID, model.TypeInfo, args)
	case "announcements":
		b.handleList(ctx, chatID)
	case "edit":
		b.handleEdit(ctx, chatID, args)
	case "delete":
		b.handleDelete(ctx, chatID, args)
	case "preview":
		b.handlePreview(ctx, chatID, args)
	case "generate":
		b.handleGenerate(ctx, chatID, args)
	case "publish":
		b.handlePublish(chatID)
	default:
		b.handleAdminCommand(ctx, cmd, chatID, userID, args)
	}
}

func (b *Bot) handleAdminCommand(ctx context.Context, cmd string, chatID, userID int64, args string) {
	if !b.cfg.IsAdmin(userID) {
		b.reply(chatID, "Access denied.")
		return
	}

	switch cmd {
	case "schedule":
		b.handleSchedule(ctx, chatID, args)
	case "schedule_on":
		b.handleScheduleToggle(ctx, chatID, true)
	case "schedule_off":
		b.handleScheduleToggle(ctx, chatID, false)
	case "set_emoji":
		b.handleSetEmoji(ctx, chatID, args)
	case "notify_add":
		b.handleNotify(ctx, chatID, args, true)
	case "notify_rm":
		b.handleNotify(ctx, chatID, args, false)
	case "autoreact_add":
		b.handleAutoReact(ctx, chatID, args, true)
	case "autoreact_rm":
		b.handleAutoReact(ctx, chatID, args, false)
	case "settings":
		b.handleSettings(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
