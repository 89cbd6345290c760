package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"gopkg.in/telebot.v3"
)

// =============================================================================
// LOG
// =============================================================================

// LogAnnouncer writes announcements to the structured log. Default backend.
type LogAnnouncer struct {
	Log *slog.Logger
}

func (a LogAnnouncer) Announce(_ context.Context, text string) error {
	l := a.Log
	if l == nil {
		l = slog.Default()
	}
	l.Info("announcement", "text", text)
	return nil
}

// =============================================================================
// COMMAND (text-to-speech)
// =============================================================================

// CommandAnnouncer runs an external program with the text as its last
// argument, e.g. `espeak -s 150 "<text>"`.
type CommandAnnouncer struct {
	Name string
	Args []string
}

// NewCommandAnnouncer splits a command line such as "espeak -s 150".
func NewCommandAnnouncer(commandLine string) (*CommandAnnouncer, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, errors.New("empty announcement command")
	}
	return &CommandAnnouncer{Name: fields[0], Args: fields[1:]}, nil
}

func (a *CommandAnnouncer) Announce(ctx context.Context, text string) error {
	args := append(append([]string{}, a.Args...), text)
	out, err := exec.CommandContext(ctx, a.Name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", a.Name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// =============================================================================
// TELEGRAM
// =============================================================================

// sender is the part of *telebot.Bot used here.
type sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramAnnouncer posts announcements to one chat.
type TelegramAnnouncer struct {
	bot  sender
	chat telebot.ChatID
}

// NewTelegramAnnouncer builds an offline bot: it only sends, it never
// polls for updates.
func NewTelegramAnnouncer(token string, chatID int64) (*TelegramAnnouncer, error) {
	bot, err := telebot.NewBot(telebot.Settings{
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return newTelegramAnnouncer(bot, chatID), nil
}

func newTelegramAnnouncer(bot sender, chatID int64) *TelegramAnnouncer {
	return &TelegramAnnouncer{bot: bot, chat: telebot.ChatID(chatID)}
}

func (a *TelegramAnnouncer) Announce(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := a.bot.Send(a.chat, text); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
