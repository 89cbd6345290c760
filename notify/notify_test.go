package notify_test

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/logger"
	"github.com/warp/attendance-engine/notify"
)

type recorder struct {
	mu    sync.Mutex
	texts []string
}

func (r *recorder) Announce(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return nil
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

func TestDispatcher_DeliversAndDrainsOnClose(t *testing.T) {
	rec := &recorder{}
	d := notify.NewDispatcher(rec, 2, 8, logger.Discard())

	d.Notify("Alice Ahmed on time")
	d.Notify("Bob Barua late by 3 minutes")
	d.Notify("") // ignored
	d.Close()

	assert.ElementsMatch(t, []string{"Alice Ahmed on time", "Bob Barua late by 3 minutes"}, rec.got())
}

func TestDispatcher_NeverBlocksWhenFull(t *testing.T) {
	// GIVEN: One worker stuck on a slow announcement and a queue of one
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	slow := notify.AnnouncerFunc(func(ctx context.Context, text string) error {
		started <- struct{}{}
		<-release
		return nil
	})
	d := notify.NewDispatcher(slow, 1, 1, logger.Discard())

	d.Notify("first")
	<-started
	d.Notify("second") // fills the queue

	// WHEN: Notifying again
	done := make(chan struct{})
	go func() {
		d.Notify("third") // dropped
		close(done)
	}()

	// THEN: The call returns immediately
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	close(release)
	d.Close()
}

func TestDispatcher_ErrorsAreSwallowed(t *testing.T) {
	var calls int
	var mu sync.Mutex
	failing := notify.AnnouncerFunc(func(context.Context, string) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return errors.New("speaker unplugged")
	})
	d := notify.NewDispatcher(failing, 1, 4, logger.Discard())

	d.Notify("one")
	d.Notify("two")
	d.Close()

	assert.Equal(t, 2, calls)
}

func TestDispatcher_NotifyAfterClose(t *testing.T) {
	rec := &recorder{}
	d := notify.NewDispatcher(rec, 1, 1, logger.Discard())
	d.Close()
	d.Close()

	assert.NotPanics(t, func() { d.Notify("late message") })
	assert.Empty(t, rec.got())
}

func TestCommandAnnouncer(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true(1) not available")
	}

	ok, err := notify.NewCommandAnnouncer("true --ignored")
	require.NoError(t, err)
	assert.Equal(t, "true", ok.Name)
	assert.Equal(t, []string{"--ignored"}, ok.Args)
	assert.NoError(t, ok.Announce(context.Background(), "Alice Ahmed on time"))

	fail, err := notify.NewCommandAnnouncer("false")
	require.NoError(t, err)
	assert.Error(t, fail.Announce(context.Background(), "anything"))

	_, err = notify.NewCommandAnnouncer("   ")
	assert.Error(t, err)
}

func TestLogAnnouncer(t *testing.T) {
	a := notify.LogAnnouncer{Log: logger.Discard()}
	assert.NoError(t, a.Announce(context.Background(), "hello"))
}
