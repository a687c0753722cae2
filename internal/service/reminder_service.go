package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"brainboard/internal/codec"
	"brainboard/internal/model"
	"brainboard/internal/store"
)

// Action is a user's choice on a presented reminder, decoded at the
// transport boundary so no unknown-action case reaches the core.
type Action int

const (
	ActionComplete Action = iota
	ActionSnooze
	ActionDismiss
)

func (a Action) String() string {
	switch a {
	case ActionComplete:
		return "complete"
	case ActionSnooze:
		return "snooze"
	case ActionDismiss:
		return "dismiss"
	default:
		return "unknown"
	}
}

// Notifier presents a fired reminder to the user and clears it again.
type Notifier interface {
	ShowReminder(reminder Reminder) error
	ClearReminder(taskID string)
}

// ReminderService reacts to fired reminders and to the user's choice on
// them. Each firing is terminal: complete and dismiss end it, snooze
// ends it and books a fresh registration through the scheduler.
type ReminderService struct {
	store       *store.Adapter
	scheduler   *SchedulerService
	snoozeDelay time.Duration

	mu       sync.Mutex
	notifier Notifier
	active   map[string]Reminder // task id -> last fired reminder
}

func NewReminderService(st *store.Adapter, scheduler *SchedulerService, snoozeDelay time.Duration) *ReminderService {
	if snoozeDelay <= 0 {
		snoozeDelay = 5 * time.Minute
	}
	return &ReminderService{
		store:       st,
		scheduler:   scheduler,
		snoozeDelay: snoozeDelay,
		active:      make(map[string]Reminder),
	}
}

// SetNotifier wires the presentation collaborator. Must be called
// before the first fire.
func (s *ReminderService) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// HandleFire presents a fired reminder. Errors stay inside: a failed
// presentation is logged, never propagated into the timer goroutine.
func (s *ReminderService) HandleFire(reminder Reminder) {
	s.mu.Lock()
	s.active[reminder.TaskID] = reminder
	notifier := s.notifier
	s.mu.Unlock()

	if notifier == nil {
		log.Printf("reminder: no notifier, dropping fire for %s", reminder.TaskID)
		return
	}
	if err := notifier.ShowReminder(reminder); err != nil {
		log.Printf("reminder: show %s: %v", reminder.TaskID, err)
	}
}

// HandleAction applies the user's choice for a firing identified by
// (taskID, generation). An action whose generation no longer matches
// the scheduler's record is discarded: the task was rescheduled or
// edited after the notification went out. When the scheduler has no
// record at all (fresh process), the action is accepted — staleness
// cannot be proven and every mutation below is idempotent.
func (s *ReminderService) HandleAction(ctx context.Context, action Action, taskID string, gen uint64) error {
	if cur, ok := s.scheduler.Generation(taskID); ok && cur != gen {
		log.Printf("reminder: stale %s for %s (generation %d, current %d)", action, taskID, gen, cur)
		return nil
	}

	s.mu.Lock()
	reminder, hadActive := s.active[taskID]
	delete(s.active, taskID)
	notifier := s.notifier
	s.mu.Unlock()

	switch action {
	case ActionComplete:
		if err := s.store.Delete(ctx, taskID); err != nil {
			return fmt.Errorf("complete %s: %w", taskID, err)
		}
		s.scheduler.Cancel(taskID)
	case ActionSnooze:
		title := reminder.Title
		if !hadActive {
			title = s.lookupTitle(ctx, taskID)
		}
		s.scheduler.Snooze(taskID, title, s.snoozeDelay)
	case ActionDismiss:
		// Clearing the presentation below is the whole effect.
	}

	if notifier != nil {
		notifier.ClearReminder(taskID)
	}
	return nil
}

// SnoozeDelay reports the configured snooze interval.
func (s *ReminderService) SnoozeDelay() time.Duration {
	return s.snoozeDelay
}

func (s *ReminderService) lookupTitle(ctx context.Context, taskID string) string {
	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		log.Printf("reminder: lookup %s: %v", taskID, err)
		return ""
	}
	return task.Title
}

// DailyDigest renders a summary of open tasks for the daily push,
// soonest deadline first.
func (s *ReminderService) DailyDigest(ctx context.Context, now time.Time) (string, error) {
	tasks, err := s.store.List(ctx)
	if err != nil {
		return "", err
	}

	type entry struct {
		task model.Task
		due  time.Time
	}
	var open []entry
	for _, task := range tasks {
		if task.Completed {
			continue
		}
		due, err := codec.ParseDueAt(task.DueDateTime)
		if err != nil {
			log.Printf("reminder: digest %s: %v", task.TaskID, err)
			continue
		}
		open = append(open, entry{task: task, due: due})
	}

	sort.SliceStable(open, func(i, j int) bool {
		return open[i].due.Before(open[j].due)
	})

	var builder strings.Builder
	builder.WriteString("📋 <b>Open tasks</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	if len(open) == 0 {
		builder.WriteString("— nothing due, enjoy the quiet\n")
	}
	for _, e := range open {
		icon := "🟢"
		switch {
		case now.After(e.due):
			icon = "⚠️"
		case e.due.Sub(now) <= 24*time.Hour:
			icon = "⏳"
		}
		builder.WriteString(fmt.Sprintf("%s %s\n   ⏰ due %s\n",
			icon, html.EscapeString(strings.TrimSpace(e.task.Title)), e.due.Format("02.01.2006 15:04")))
	}

	return strings.TrimSpace(builder.String()), nil
}
