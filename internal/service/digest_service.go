package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"todoapp/internal/model"
	"todoapp/internal/notify"
)

// DigestTitle heads the daily summary notification.
const DigestTitle = "Today's tasks"

// DigestSource is what the daily digest reads.
type DigestSource interface {
	GetActiveTasks(ctx context.Context, sortByDueDate bool) ([]model.Task, error)
	GetTasksByDueDate(ctx context.Context, date model.Date) ([]model.Task, error)
}

// DigestService builds human-readable summaries for daily notifications.
type DigestService struct {
	tasks DigestSource
}

func NewDigestService(tasks DigestSource) *DigestService {
	return &DigestService{tasks: tasks}
}

// DailySummary lists the active tasks due today followed by the overdue ones.
func (s *DigestService) DailySummary(ctx context.Context, now time.Time) (string, error) {
	today := model.DateOf(now)

	dueToday, err := s.tasks.GetTasksByDueDate(ctx, today)
	if err != nil {
		return "", err
	}

	active, err := s.tasks.GetActiveTasks(ctx, true)
	if err != nil {
		return "", err
	}
	var overdue []model.Task
	for _, task := range active {
		if task.IsDue(today) && !task.IsDueToday(today) {
			overdue = append(overdue, task)
		}
	}

	sort.SliceStable(dueToday, func(i, j int) bool {
		a, b := dueToday[i], dueToday[j]
		switch {
		case a.DueTime == nil && b.DueTime == nil:
			return a.Priority.Rank() < b.Priority.Rank()
		case a.DueTime == nil:
			return false
		case b.DueTime == nil:
			return true
		default:
			return *a.DueTime < *b.DueTime
		}
	})

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", today))

	builder.WriteString("🔥 Due today\n")
	if len(dueToday) == 0 {
		builder.WriteString("— nothing due today\n")
	} else {
		for _, task := range dueToday {
			builder.WriteString(formatTask(task, today))
		}
	}

	if len(overdue) > 0 {
		builder.WriteString("\n⚠️ Overdue\n")
		for _, task := range overdue {
			builder.WriteString(formatTask(task, today))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// SendDailySummary builds the summary and posts it.
func (s *DigestService) SendDailySummary(ctx context.Context, notifier notify.Notifier, now time.Time) error {
	summary, err := s.DailySummary(ctx, now)
	if err != nil {
		return err
	}
	return notifier.Notify(ctx, notify.Notification{
		Title:     DigestTitle,
		Body:      summary,
		Timestamp: now,
	})
}

func formatTask(task model.Task, today model.Date) string {
	var sb strings.Builder

	icon := "🟢"
	switch {
	case task.DueDate.Before(today):
		icon = "⚠️"
	case task.Priority == model.PriorityHigh:
		icon = "⏳"
	}

	sb.WriteString(fmt.Sprintf("%s %s (%s)", icon, strings.TrimSpace(task.Title), strings.ToLower(string(task.Category))))
	if task.IsFavorite {
		sb.WriteString(" ★")
	}

	if task.DueDate.Before(today) {
		sb.WriteString(fmt.Sprintf("\n   ⏰ due %s", task.DueDate))
	} else if task.DueTime != nil {
		sb.WriteString(fmt.Sprintf("\n   ⏰ %s", task.DueTime.Display()))
	}

	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", strings.TrimSpace(task.Description)))
	}

	sb.WriteByte('\n')
	return sb.String()
}
