package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const sendTimeout = 30 * time.Second

// Dispatcher fans a notification out to every registered sender. Sender
// failures are logged and never reach the caller.
type Dispatcher struct {
	mu      sync.RWMutex
	senders []Sender
	logger  *slog.Logger
}

func NewDispatcher(logger *slog.Logger, senders ...Sender) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{senders: senders, logger: logger}
}

// Register adds a sender.
func (d *Dispatcher) Register(sender Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders = append(d.senders, sender)
}

// Notify implements Notifier.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) error {
	d.mu.RLock()
	senders := make([]Sender, len(d.senders))
	copy(senders, d.senders)
	d.mu.RUnlock()

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	for _, sender := range senders {
		d.sendWithRecover(ctx, sender, n)
	}
	return nil
}

func (d *Dispatcher) sendWithRecover(ctx context.Context, sender Sender, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification sender panicked",
				"sender", sender.Name(), "task_id", n.TaskID, "panic", fmt.Sprint(r))
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := sender.Send(sendCtx, n); err != nil {
		d.logger.Error("failed to send notification",
			"sender", sender.Name(), "task_id", n.TaskID, "error", err)
	}
}
