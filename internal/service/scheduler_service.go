package service

import (
	"errors"
	"log"
	"sync"
	"time"

	"brainboard/internal/codec"
	"brainboard/internal/model"
)

// ErrExactDenied is returned by a HostTimer that refuses exact-time
// registration. The scheduler retries with best-effort delivery.
var ErrExactDenied = errors.New("scheduler: exact registration denied")

// CancelFunc revokes a pending host registration.
type CancelFunc func()

// HostTimer is the host wake-up registry: best-effort single delivery
// at or after fireAt.
type HostTimer interface {
	Register(fireAt time.Time, exact bool, deliver func()) (CancelFunc, error)
}

// SystemTimer is the in-process HostTimer. Exactness is best-effort by
// nature here, so the flag is accepted and ignored.
type SystemTimer struct{}

func NewSystemTimer() SystemTimer {
	return SystemTimer{}
}

func (SystemTimer) Register(fireAt time.Time, exact bool, deliver func()) (CancelFunc, error) {
	timer := time.AfterFunc(time.Until(fireAt), deliver)
	return func() { timer.Stop() }, nil
}

// Reminder is one pending wake-up registration. Generation increases on
// every reschedule of the same task, so a fire or user action carrying
// an old generation can be detected and dropped.
type Reminder struct {
	TaskID     string
	Title      string
	FireAt     time.Time
	Generation uint64
}

type registration struct {
	reminder Reminder
	cancel   CancelFunc
}

// SchedulerService keeps one-shot reminder registrations keyed by task
// id. Scheduling a task that already has a registration replaces it;
// the generation counter survives fires and cancels so stale signals
// stay detectable.
type SchedulerService struct {
	host        HostTimer
	now         func() time.Time
	minFallback time.Duration

	mu      sync.Mutex
	onFire  func(Reminder)
	pending map[string]*registration
	gens    map[string]uint64
}

func NewSchedulerService(host HostTimer, minFallback time.Duration) *SchedulerService {
	if minFallback <= 0 {
		minFallback = 3 * time.Second
	}
	return &SchedulerService{
		host:        host,
		now:         time.Now,
		minFallback: minFallback,
		pending:     make(map[string]*registration),
		gens:        make(map[string]uint64),
	}
}

// OnFire sets the callback invoked when a registration fires. Must be
// set before the first Schedule call.
func (s *SchedulerService) OnFire(fn func(Reminder)) {
	s.mu.Lock()
	s.onFire = fn
	s.mu.Unlock()
}

// Schedule registers a wake-up at dueAt minus lead. A fire time already
// in the past is clamped to a short offset from now, so a just-missed
// reminder still fires once instead of being dropped.
func (s *SchedulerService) Schedule(taskID, title string, dueAt time.Time, lead time.Duration) {
	s.register(taskID, title, dueAt.Add(-lead))
}

// Snooze replaces the task's registration with one firing after delay.
func (s *SchedulerService) Snooze(taskID, title string, delay time.Duration) {
	s.register(taskID, title, s.now().Add(delay))
}

// Cancel removes any pending registration for the task. A registration
// that already fired is past cancelling; the generation check on the
// action path is the remaining guard.
func (s *SchedulerService) Cancel(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.pending[taskID]; ok {
		if reg.cancel != nil {
			reg.cancel()
		}
		delete(s.pending, taskID)
	}
}

// Generation returns the latest generation issued for the task.
func (s *SchedulerService) Generation(taskID string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen, ok := s.gens[taskID]
	return gen, ok
}

// PendingReminder returns the live registration for the task, if any.
func (s *SchedulerService) PendingReminder(taskID string) (Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.pending[taskID]; ok {
		return reg.reminder, true
	}
	return Reminder{}, false
}

// Resync re-registers reminders for open tasks that lost their
// registration, recomputing fire times purely from the task records.
// Only future fire times are registered here; the clamp path is
// reserved for interactive saves, otherwise every sweep would re-fire
// overdue tasks.
func (s *SchedulerService) Resync(tasks []model.Task, lead time.Duration) {
	now := s.now()
	for _, task := range tasks {
		if task.Completed || !task.Saved() {
			continue
		}
		if _, ok := s.PendingReminder(task.TaskID); ok {
			continue
		}
		dueAt, err := codec.ParseDueAt(task.DueDateTime)
		if err != nil {
			log.Printf("scheduler: resync %s: %v", task.TaskID, err)
			continue
		}
		if !dueAt.Add(-lead).After(now) {
			continue
		}
		s.Schedule(task.TaskID, task.Title, dueAt, lead)
	}
}

func (s *SchedulerService) register(taskID, title string, fireAt time.Time) {
	s.mu.Lock()

	if prev, ok := s.pending[taskID]; ok {
		if prev.cancel != nil {
			prev.cancel()
		}
		delete(s.pending, taskID)
	}

	gen := s.gens[taskID] + 1
	s.gens[taskID] = gen

	if !fireAt.After(s.now()) {
		fireAt = s.now().Add(s.minFallback)
	}

	reg := &registration{reminder: Reminder{
		TaskID:     taskID,
		Title:      title,
		FireAt:     fireAt,
		Generation: gen,
	}}
	s.pending[taskID] = reg
	s.mu.Unlock()

	deliver := func() { s.fired(taskID, gen) }
	cancel, err := s.host.Register(fireAt, true, deliver)
	if errors.Is(err, ErrExactDenied) {
		cancel, err = s.host.Register(fireAt, false, deliver)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// The reminder is a convenience; a host that refuses entirely
		// costs one notification, not the save.
		log.Printf("scheduler: register %s: %v", taskID, err)
		if cur, ok := s.pending[taskID]; ok && cur == reg {
			delete(s.pending, taskID)
		}
		return
	}
	if cur, ok := s.pending[taskID]; ok && cur == reg {
		reg.cancel = cancel
	} else if cancel != nil {
		// Replaced while registering with the host.
		cancel()
	}
}

func (s *SchedulerService) fired(taskID string, gen uint64) {
	s.mu.Lock()
	reg, ok := s.pending[taskID]
	if !ok || reg.reminder.Generation != gen {
		s.mu.Unlock()
		log.Printf("scheduler: stale fire for %s (generation %d)", taskID, gen)
		return
	}
	delete(s.pending, taskID)
	onFire := s.onFire
	reminder := reg.reminder
	s.mu.Unlock()

	if onFire != nil {
		onFire(reminder)
	}
}
