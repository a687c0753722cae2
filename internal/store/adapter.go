// Package store exposes one user's task collection as a CRUD adapter
// with a change-event stream, hiding the persistence layer from the
// rest of the system.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"brainboard/internal/model"
	"brainboard/internal/repository"
)

// ErrUnauthenticated is returned by every operation when the adapter
// was built without a signed-in account.
var ErrUnauthenticated = errors.New("store: unauthenticated")

// Session identifies the signed-in account a store adapter is scoped
// to.
type Session struct {
	UID string
}

// ChangeType tags a change event.
type ChangeType int

const (
	Added ChangeType = iota
	Modified
	Removed
)

func (t ChangeType) String() string {
	switch t {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// ChangeEvent describes one document change. For Removed events only
// the TaskID field of Task is meaningful.
type ChangeEvent struct {
	Type ChangeType
	Task model.Task
}

// Subscription is a live change feed. Close stops delivery; the
// callback is never invoked again after Close returns.
type Subscription struct {
	adapter *Adapter
	id      int
	events  chan []ChangeEvent
	done    chan struct{}
	once    sync.Once
}

// Close cancels the subscription.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.adapter.unsubscribe(s.id)
		close(s.done)
	})
}

// Adapter is a user-scoped façade over the task collection. All writes
// fan out to subscribers as change events; events for one task id are
// delivered in commit order.
type Adapter struct {
	repo    *repository.TaskRepository
	session Session
	mirror  *LocalCache

	mu      sync.Mutex
	subs    map[int]*Subscription
	nextSub int
}

// NewAdapter builds an adapter scoped to the given session. A nil
// mirror disables the legacy cache path.
func NewAdapter(repo *repository.TaskRepository, session Session, mirror *LocalCache) *Adapter {
	return &Adapter{
		repo:    repo,
		session: session,
		mirror:  mirror,
		subs:    make(map[int]*Subscription),
	}
}

// CreateOrReplace upserts a task by its document key, generating one
// first when the task is transient. Replaying the same task is
// observably a no-op.
func (a *Adapter) CreateOrReplace(ctx context.Context, task model.Task) (model.Task, error) {
	if a.session.UID == "" {
		return model.Task{}, ErrUnauthenticated
	}

	task.UserID = a.session.UID
	if !task.Saved() {
		task.TaskID = uuid.NewString()
	}

	created, err := a.repo.Upsert(ctx, &task)
	if err != nil {
		return model.Task{}, fmt.Errorf("store: %w", err)
	}

	a.mirrorAdd(task)

	kind := Modified
	if created {
		kind = Added
	}
	a.publish([]ChangeEvent{{Type: kind, Task: task}})
	return task, nil
}

// Delete removes a task by id. Deleting an id that is already gone
// succeeds, so the completion path can race a manual delete safely.
func (a *Adapter) Delete(ctx context.Context, taskID string) error {
	if a.session.UID == "" {
		return ErrUnauthenticated
	}

	if err := a.repo.Delete(ctx, a.session.UID, taskID); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if a.mirror != nil {
		a.mirror.Remove(taskID)
	}
	a.publish([]ChangeEvent{{Type: Removed, Task: model.Task{UserID: a.session.UID, TaskID: taskID}}})
	return nil
}

// SetCompleted flips the completed flag without touching any other
// field.
func (a *Adapter) SetCompleted(ctx context.Context, taskID string, completed bool) error {
	if a.session.UID == "" {
		return ErrUnauthenticated
	}

	if err := a.repo.SetCompleted(ctx, a.session.UID, taskID, completed); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	task, err := a.repo.FindByID(ctx, a.session.UID, taskID)
	if err != nil {
		// Row vanished between update and read; the delete path already
		// published a Removed event.
		return nil
	}

	a.mirrorAdd(*task)
	a.publish([]ChangeEvent{{Type: Modified, Task: *task}})
	return nil
}

// Get fetches one task by its document key.
func (a *Adapter) Get(ctx context.Context, taskID string) (model.Task, error) {
	if a.session.UID == "" {
		return model.Task{}, ErrUnauthenticated
	}
	task, err := a.repo.FindByID(ctx, a.session.UID, taskID)
	if err != nil {
		return model.Task{}, fmt.Errorf("store: %w", err)
	}
	return *task, nil
}

// List returns the collection ordered by write time, most recent first.
func (a *Adapter) List(ctx context.Context) ([]model.Task, error) {
	if a.session.UID == "" {
		return nil, ErrUnauthenticated
	}
	tasks, err := a.repo.List(ctx, a.session.UID)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return tasks, nil
}

// Subscribe registers a change callback. The current snapshot is
// delivered first as a batch of Added events, then incremental diffs.
// Each subscriber gets its own serialized delivery goroutine, so a slow
// callback never reorders events.
func (a *Adapter) Subscribe(ctx context.Context, onChange func([]ChangeEvent)) (*Subscription, error) {
	if a.session.UID == "" {
		return nil, ErrUnauthenticated
	}

	snapshot, err := a.repo.List(ctx, a.session.UID)
	if err != nil {
		return nil, fmt.Errorf("store: snapshot: %w", err)
	}

	sub := &Subscription{
		adapter: a,
		events:  make(chan []ChangeEvent, 64),
		done:    make(chan struct{}),
	}

	initial := make([]ChangeEvent, 0, len(snapshot))
	for _, task := range snapshot {
		initial = append(initial, ChangeEvent{Type: Added, Task: task})
	}

	// Registering and enqueueing the snapshot under one lock keeps the
	// snapshot strictly ahead of any concurrent diff.
	a.mu.Lock()
	sub.id = a.nextSub
	a.nextSub++
	a.subs[sub.id] = sub
	if len(initial) > 0 {
		sub.events <- initial
	}
	a.mu.Unlock()

	go func() {
		for {
			select {
			case batch := <-sub.events:
				onChange(batch)
			case <-sub.done:
				return
			}
		}
	}()

	return sub, nil
}

func (a *Adapter) unsubscribe(id int) {
	a.mu.Lock()
	delete(a.subs, id)
	a.mu.Unlock()
}

func (a *Adapter) publish(batch []ChangeEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, sub := range a.subs {
		select {
		case sub.events <- batch:
		case <-sub.done:
		}
	}
}

func (a *Adapter) mirrorAdd(task model.Task) {
	if a.mirror == nil {
		return
	}
	if err := a.mirror.Add(task); err != nil {
		log.Printf("store: mirror %s: %v", task.TaskID, err)
	}
}
