package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"community_bot/internal/model"
	"community_bot/internal/publisher"
	"community_bot/internal/storage"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to the community bot!

Announcements:
1. /add_event or /add_info — create an announcement
2. /announcements — see what is queued
3. /publish — post the current set

Channels:
- /create_channel <emoji> <name> — provision a scoped channel
- /archive <label> [reason] — archive the current channel
  (moderators archive immediately, everyone else needs an approval)

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Announcements:
/add_event title | description | datetime | day [| from - to]
/add_info title | description [| link [| image [| from - to]]]
/announcements — list all with status markers
/edit <id> | fields — replace an announcement's fields
/delete <id> — delete (asks for confirmation)
/preview <id> — render a single announcement
/generate [D.M[.YYYY]] — render the set for a date, no send
/publish — post the current set (asks for confirmation)

Channels:
/create_channel <emoji> <name> — provision a scoped channel
/archive <label> [reason] — archive the current channel

Settings (admin):
/schedule <day> <HH:MM> — set the weekly publish slot
/schedule_on, /schedule_off — toggle auto-publish
/set_emoji <e> — tracked reaction emoji
/notify_add, /notify_rm <user_id> — reminder recipients
/autoreact_add, /autoreact_rm <chat_id> — auto-react channels
/settings — show everything`)
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, typ model.Type, args string) {
	a, err := ParseAnnouncementFields(typ, args, b.now())
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	key := uuid.NewString()
	b.mu.Lock()
	b.pendingAdd[key] = a
	b.mu.Unlock()

	msg := tgbotapi.NewMessage(chatID, "Save this announcement?\n\n"+FormatAnnouncementDetail(a))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Save", "save_ann:"+key),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "cancel_ann:"+key),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send save confirmation", "error", err)
	}
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	anns, err := b.store.ListAnnouncements(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatAnnouncementList(anns, b.now()))
}

func (b *Bot) handleEdit(ctx context.Context, chatID int64, args string) {
	id, fields, err := ParseEditArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	existing, err := b.store.GetAnnouncement(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Announcement #%d not found.", id))
		return
	}

	updated, err := ParseAnnouncementFields(existing.Type, fields, b.now())
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if err := b.store.UpdateAnnouncement(ctx, &updated); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Announcement #%d updated.\n\n%s", id, FormatAnnouncementDetail(updated)))
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /delete <id>")
		return
	}

	a, err := b.store.GetAnnouncement(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Announcement #%d not found.", id))
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Delete #%d \"%s\"? This cannot be undone.", id, a.Title))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, delete", fmt.Sprintf("delete:%d", id)),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "noop:0"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send delete confirmation", "error", err)
	}
}

func (b *Bot) handlePreview(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /preview <id>")
		return
	}

	a, err := b.store.GetAnnouncement(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Announcement #%d not found.", id))
		return
	}
	b.reply(chatID, publisher.FormatCard(b.pub.BuildCard(*a)))
}

func (b *Bot) handleGenerate(ctx context.Context, chatID int64, args string) {
	target, err := ParseGenerateDate(args, b.now())
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	text, count, err := b.pub.Preview(ctx, target)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if count == 0 {
		b.reply(chatID, fmt.Sprintf("Nothing would be published on %s.", target.Format("2.1.2006")))
		return
	}
	b.reply(chatID, fmt.Sprintf("Publish set for %s (%d):\n\n%s", target.Format("2.1.2006"), count, text))
}

func (b *Bot) handlePublish(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Publish the current announcement set now?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Publish", "publish_go:0"),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", "noop:0"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send publish confirmation", "error", err)
	}
}

func (b *Bot) handleArchive(ctx context.Context, msg *tgbotapi.Message, args string) {
	label, reason, err := ParseArchiveArgs(args)
	if err != nil {
		b.reply(msg.Chat.ID, err.Error())
		return
	}

	id, err := b.arch.Submit(ctx, msg.Chat.ID, msg.From.ID, label, reason)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Archival failed: %v", err))
		return
	}
	if id == "" {
		b.reply(msg.Chat.ID, "Channel archived.")
		return
	}
	b.reply(msg.Chat.ID, "Archival requested. A moderator has 24 hours to approve.")
}

func (b *Bot) handleCreateChannel(ctx context.Context, msg *tgbotapi.Message, args string) {
	if msg.Chat.ID != b.cfg.CommandChatID {
		b.reply(msg.Chat.ID, "Use this command in the command channel.")
		return
	}
	emoji, name, err := ParseCreateChannelArgs(args)
	if err != nil {
		b.reply(msg.Chat.ID, err.Error())
		return
	}

	created, err := b.platform.CreateChannel(ctx, emoji+"・"+name)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Channel creation failed: %v", err))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Channel %s created.", created))
}

func (b *Bot) handleSchedule(ctx context.Context, chatID int64, args string) {
	cfg, err := ParseScheduleArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if err := b.settings.SetPublishSchedule(ctx, cfg); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Publish schedule set to %s %s. Use /schedule_on to activate.", cfg.Day, cfg.Time))
}

func (b *Bot) handleScheduleToggle(ctx context.Context, chatID int64, active bool) {
	if active {
		cfg, err := b.settings.PublishSchedule(ctx)
		if err != nil || !cfg.Configured() {
			b.reply(chatID, "Set a schedule first with /schedule <day> <HH:MM>.")
			return
		}
	}
	if err := b.settings.SetScheduleActive(ctx, active); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if active {
		b.reply(chatID, "Auto-publish enabled.")
	} else {
		b.reply(chatID, "Auto-publish disabled.")
	}
}

func (b *Bot) handleSetEmoji(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /set_emoji <emoji>")
		return
	}
	if err := b.settings.SetReactionEmoji(ctx, args); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Reaction emoji set to %s.", args))
}

func (b *Bot) handleNotify(ctx context.Context, chatID int64, args string, add bool) {
	id, err := ParseChatIDArg(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if add {
		err = b.settings.AddAdminNotifyUser(ctx, id)
	} else {
		err = b.settings.RemoveAdminNotifyUser(ctx, id)
	}
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if add {
		b.reply(chatID, fmt.Sprintf("User %d will receive reminders and error notices.", id))
	} else {
		b.reply(chatID, fmt.Sprintf("User %d removed from the notification list.", id))
	}
}

func (b *Bot) handleAutoReact(ctx context.Context, chatID int64, args string, add bool) {
	id, err := ParseChatIDArg(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if add {
		err = b.settings.AddAutoReactChannel(ctx, id)
	} else {
		err = b.settings.RemoveAutoReactChannel(ctx, id)
	}
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if add {
		b.reply(chatID, fmt.Sprintf("Auto-react enabled in chat %d.", id))
	} else {
		b.reply(chatID, fmt.Sprintf("Auto-react disabled in chat %d.", id))
	}
}

func (b *Bot) handleSettings(ctx context.Context, chatID int64) {
	cfg, err := b.settings.PublishSchedule(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	active, err := b.settings.ScheduleActive(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	emoji, err := b.settings.ReactionEmoji(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	autoReact, err := b.settings.AutoReactChannels(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	notify, err := b.settings.AdminNotifyUsers(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatSettings(cfg, active, emoji, autoReact, notify))
}

// saveAnnouncement persists a confirmed pending announcement and shows the
// refreshed listing.
func (b *Bot) saveAnnouncement(ctx context.Context, chatID int64, key string) {
	b.mu.Lock()
	a, ok := b.pendingAdd[key]
	delete(b.pendingAdd, key)
	b.mu.Unlock()
	if !ok {
		b.reply(chatID, "Nothing pending to save.")
		return
	}

	if err := b.store.CreateAnnouncement(ctx, &a); err != nil {
		b.reply(chatID, fmt.Sprintf("Error saving announcement: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Announcement #%d saved.", a.ID))
	b.handleList(ctx, chatID)
}

func (b *Bot) discardAnnouncement(chatID int64, key string) {
	b.mu.Lock()
	_, ok := b.pendingAdd[key]
	delete(b.pendingAdd, key)
	b.mu.Unlock()
	if ok {
		b.reply(chatID, "Discarded.")
	}
}

func (b *Bot) deleteAnnouncement(ctx context.Context, chatID, id int64) {
	if err := b.store.DeleteAnnouncement(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(chatID, fmt.Sprintf("Announcement #%d not found.", id))
			return
		}
		b.reply(chatID, fmt.Sprintf("Error deleting announcement: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Announcement #%d deleted.", id))
}

func (b *Bot) publishNow(ctx context.Context, chatID int64) {
	count, err := b.pub.Publish(ctx, b.now())
	if errors.Is(err, publisher.ErrNothingToPublish) {
		b.reply(chatID, "Nothing to publish today.")
		return
	}
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Publish failed: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Published %d announcement(s).", count))
}
