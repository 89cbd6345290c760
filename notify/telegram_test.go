package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type fakeBot struct {
	to   telebot.Recipient
	what interface{}
	err  error
}

func (f *fakeBot) Send(to telebot.Recipient, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	f.to, f.what = to, what
	return &telebot.Message{}, f.err
}

func TestTelegramAnnouncer_SendsToChat(t *testing.T) {
	bot := &fakeBot{}
	a := newTelegramAnnouncer(bot, -100123)

	require.NoError(t, a.Announce(context.Background(), "Alice Ahmed late by 21 minutes"))
	assert.Equal(t, "-100123", bot.to.Recipient())
	assert.Equal(t, "Alice Ahmed late by 21 minutes", bot.what)
}

func TestTelegramAnnouncer_Errors(t *testing.T) {
	bot := &fakeBot{err: errors.New("chat not found")}
	a := newTelegramAnnouncer(bot, 42)
	assert.ErrorContains(t, a.Announce(context.Background(), "x"), "chat not found")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, newTelegramAnnouncer(&fakeBot{}, 42).Announce(ctx, "x"), context.Canceled)
}

func TestNewTelegramAnnouncer_Offline(t *testing.T) {
	a, err := NewTelegramAnnouncer("123456:TEST-TOKEN", 42)
	require.NoError(t, err)
	assert.Equal(t, telebot.ChatID(42), a.chat)
}
