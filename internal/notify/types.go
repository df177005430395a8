// Package notify delivers user-facing notifications (task reminders and the
// daily digest) to whichever sinks are configured.
package notify

import (
	"context"
	"time"
)

// ReminderTitle is the title of every per-task reminder.
const ReminderTitle = "Task Reminder"

// Notification is one message for the user. TaskID is zero for messages not
// tied to a task, such as the daily digest.
type Notification struct {
	TaskID    int64
	Title     string
	Body      string
	Timestamp time.Time
}

// NewReminder builds the reminder posted when a task's alarm fires.
func NewReminder(taskID int64, taskTitle string) Notification {
	return Notification{
		TaskID:    taskID,
		Title:     ReminderTitle,
		Body:      taskTitle,
		Timestamp: time.Now(),
	}
}

// Notifier is what the scheduler and digest talk to.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Sender is one delivery channel.
type Sender interface {
	Send(ctx context.Context, n Notification) error

	// Name returns the sender's name for logging purposes.
	Name() string
}
