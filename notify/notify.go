/*
Package notify delivers check-in announcements.

PURPOSE:
  A check-in produces a short sentence ("Alice Ahmed late by 21 minutes")
  that the kiosk speaks out loud or that is pushed to a chat. Delivery is
  fire-and-forget: a slow speaker or an unreachable chat must never delay
  or fail the check-in itself.

COMPONENTS:
  Announcer   one delivery backend (log, TTS command, Telegram, none)
  Dispatcher  bounded queue drained by a fixed set of workers; Notify
              never blocks, drops when the queue is full, and logs
              delivery errors instead of returning them

SEE ALSO:
  - checkin/service.go: the only producer
*/
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Announcer delivers one message.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// Notifier is the fire-and-forget side seen by the services.
type Notifier interface {
	Notify(text string)
}

// AnnouncerFunc adapts a function to Announcer.
type AnnouncerFunc func(ctx context.Context, text string) error

func (f AnnouncerFunc) Announce(ctx context.Context, text string) error { return f(ctx, text) }

// Nop discards every message.
type Nop struct{}

func (Nop) Announce(context.Context, string) error { return nil }
func (Nop) Notify(string) {}

// =============================================================================
// DISPATCHER
// =============================================================================

// DefaultTimeout bounds a single delivery.
const DefaultTimeout = 10 * time.Second

// Dispatcher runs announcements on background workers.
type Dispatcher struct {
	announcer Announcer
	log       *slog.Logger
	timeout   time.Duration

	tasks  chan string
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher starts workers goroutines reading from a queue of size queue.
func NewDispatcher(a Announcer, workers, queue int, log *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queue < 1 {
		queue = 1
	}
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		announcer: a,
		log:       log,
		timeout:   DefaultTimeout,
		tasks:     make(chan string, queue),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for text := range d.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.announcer.Announce(ctx, text); err != nil {
			d.log.Warn("announcement failed", "text", text, "error", err)
		}
		cancel()
	}
}

// Notify queues text for delivery. It never blocks.
func (d *Dispatcher) Notify(text string) {
	if text == "" {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn("announcement dropped, dispatcher closed", "text", text)
		return
	}
	select {
	case d.tasks <- text:
	default:
		d.log.Warn("announcement dropped, queue full", "text", text)
	}
}

// Close stops accepting messages and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.tasks)
	d.mu.Unlock()

	d.wg.Wait()
}
