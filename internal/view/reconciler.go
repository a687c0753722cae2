// Package view maintains the ordered, duplicate-free task list the UI
// renders, driven by the store's change stream.
package view

import (
	"sync"

	"brainboard/internal/model"
	"brainboard/internal/store"
)

// List reconciles change events onto an in-memory task list. Apply
// calls are serialized internally; the change stream may redeliver
// events or interleave them with local optimistic state, and the list
// converges on last-event-wins.
type List struct {
	mu       sync.Mutex
	tasks    []model.Task
	onChange func([]model.Task)
}

// NewList builds an empty list. onChange, if non-nil, is invoked with a
// copy of the list after every applied batch.
func NewList(onChange func([]model.Task)) *List {
	return &List{onChange: onChange}
}

// Apply processes a batch of change events in delivery order. A
// duplicate Added for a present id updates it in place; Modified and
// Removed for absent ids are no-ops.
func (l *List) Apply(events []store.ChangeEvent) {
	if len(events) == 0 {
		return
	}

	l.mu.Lock()
	for _, ev := range events {
		switch ev.Type {
		case store.Added:
			if i := l.index(ev.Task.TaskID); i >= 0 {
				l.tasks[i] = ev.Task
			} else {
				l.tasks = append(l.tasks, ev.Task)
			}
		case store.Modified:
			if i := l.index(ev.Task.TaskID); i >= 0 {
				l.tasks[i] = ev.Task
			}
		case store.Removed:
			if i := l.index(ev.Task.TaskID); i >= 0 {
				l.tasks = append(l.tasks[:i], l.tasks[i+1:]...)
			}
		}
	}
	snapshot := l.snapshotLocked()
	onChange := l.onChange
	l.mu.Unlock()

	if onChange != nil {
		onChange(snapshot)
	}
}

// Tasks returns a copy of the current list in display order.
func (l *List) Tasks() []model.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// Len reports the number of listed tasks.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

func (l *List) index(taskID string) int {
	for i, task := range l.tasks {
		if task.TaskID == taskID {
			return i
		}
	}
	return -1
}

func (l *List) snapshotLocked() []model.Task {
	out := make([]model.Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}
