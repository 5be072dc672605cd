// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string

	// AnnounceChatID is the channel announcements are published to.
	AnnounceChatID int64
	// ModeratorChatID is where archive requests and confirmations go.
	ModeratorChatID int64
	// CommunityChatID is the forum supergroup channels are provisioned in.
	CommunityChatID int64
	// ArchiveChatID is the archive grouping channels are moved under.
	ArchiveChatID int64
	// CommandChatID restricts channel provisioning to one command channel.
	// Zero means any chat.
	CommandChatID int64

	// AdminUsers hold the elevated role; ModeratorUsers may request channel
	// creation and archival.
	AdminUsers     []int64
	ModeratorUsers []int64

	// Greeter settings for the best-effort publish header.
	GreeterAPIKey  string
	GreeterBaseURL string
	GreeterModel   string

	// ThumbnailProxyURL prefixes INFO image URLs; empty passes them through.
	ThumbnailProxyURL string
}

// Load reads configuration from the environment, with a .env file as
// fallback when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/bot.db"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	baseURL := os.Getenv("GREETER_BASE_URL")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	greeterModel := os.Getenv("GREETER_MODEL")
	if greeterModel == "" {
		greeterModel = "gemini-flash-lite-latest"
	}

	cfg := &Config{
		TelegramBotToken:  token,
		DatabasePath:      dbPath,
		LogLevel:          logLevel,
		GreeterAPIKey:     os.Getenv("GREETER_API_KEY"),
		GreeterBaseURL:    baseURL,
		GreeterModel:      greeterModel,
		ThumbnailProxyURL: os.Getenv("THUMBNAIL_PROXY_URL"),
	}

	for _, f := range []struct {
		env string
		dst *int64
	}{
		{"ANNOUNCE_CHAT_ID", &cfg.AnnounceChatID},
		{"MODERATOR_CHAT_ID", &cfg.ModeratorChatID},
		{"COMMUNITY_CHAT_ID", &cfg.CommunityChatID},
		{"ARCHIVE_CHAT_ID", &cfg.ArchiveChatID},
		{"COMMAND_CHAT_ID", &cfg.CommandChatID},
	} {
		v, err := parseChatID(f.env)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	var err error
	if cfg.AdminUsers, err = parseIDList("ADMIN_USERS"); err != nil {
		return nil, err
	}
	if cfg.ModeratorUsers, err = parseIDList("MODERATOR_USERS"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsAdmin reports whether a user holds the elevated role.
func (c *Config) IsAdmin(userID int64) bool {
	return contains(c.AdminUsers, userID)
}

// IsModerator reports whether a user may provision and archive channels.
// Admins are moderators too.
func (c *Config) IsModerator(userID int64) bool {
	return c.IsAdmin(userID) || contains(c.ModeratorUsers, userID)
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func parseChatID(env string) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chat ID %q in %s: %w", raw, env, err)
	}
	return id, nil
}

func parseIDList(env string) ([]int64, error) {
	var ids []int64
	for _, s := range strings.Split(os.Getenv(env), ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q in %s: %w", s, env, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
