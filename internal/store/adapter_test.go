package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainboard/internal/model"
	"brainboard/internal/repository"
)

func newTestAdapter(t *testing.T, mirror *LocalCache) *Adapter {
	t.Helper()
	db, err := repository.NewDB(":memory:")
	require.NoError(t, err)
	return NewAdapter(repository.NewTaskRepository(db), Session{UID: "u1"}, mirror)
}

type eventCollector struct {
	mu      sync.Mutex
	batches [][]ChangeEvent
}

func (c *eventCollector) collect(batch []ChangeEvent) {
	c.mu.Lock()
	c.batches = append(c.batches, batch)
	c.mu.Unlock()
}

func (c *eventCollector) all() []ChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []ChangeEvent
	for _, batch := range c.batches {
		out = append(out, batch...)
	}
	return out
}

func TestCreateOrReplace_GeneratesID(t *testing.T) {
	adapter := newTestAdapter(t, nil)
	ctx := context.Background()

	saved, err := adapter.CreateOrReplace(ctx, model.Task{Title: "Buy milk", DueDateTime: "25/12/2024 18:00:00.000"})
	require.NoError(t, err)
	assert.True(t, saved.Saved())
	assert.Equal(t, "u1", saved.UserID)
}

func TestCreateOrReplace_IsIdempotent(t *testing.T) {
	adapter := newTestAdapter(t, nil)
	ctx := context.Background()

	task := model.Task{TaskID: "t1", Title: "Buy milk", DueDateTime: "25/12/2024 18:00:00.000"}
	_, err := adapter.CreateOrReplace(ctx, task)
	require.NoError(t, err)
	_, err = adapter.CreateOrReplace(ctx, task)
	require.NoError(t, err)

	tasks, err := adapter.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)
}

func TestDelete_IsIdempotent(t *testing.T) {
	adapter := newTestAdapter(t, nil)
	ctx := context.Background()

	_, err := adapter.CreateOrReplace(ctx, model.Task{TaskID: "t1", Title: "Buy milk", DueDateTime: "25/12/2024 18:00:00.000"})
	require.NoError(t, err)

	require.NoError(t, adapter.Delete(ctx, "t1"))
	require.NoError(t, adapter.Delete(ctx, "t1"))
	require.NoError(t, adapter.Delete(ctx, "never-existed"))

	tasks, err := adapter.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSetCompleted_DoesNotClobberOtherFields(t *testing.T) {
	adapter := newTestAdapter(t, nil)
	ctx := context.Background()

	_, err := adapter.CreateOrReplace(ctx, model.Task{TaskID: "t1", Title: "Buy milk", DueDateTime: "25/12/2024 18:00:00.000"})
	require.NoError(t, err)

	require.NoError(t, adapter.SetCompleted(ctx, "t1", true))

	got, err := adapter.Get(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, "25/12/2024 18:00:00.000", got.DueDateTime)
}

func TestUnauthenticated_AllOperationsRefuse(t *testing.T) {
	db, err := repository.NewDB(":memory:")
	require.NoError(t, err)
	adapter := NewAdapter(repository.NewTaskRepository(db), Session{}, nil)
	ctx := context.Background()

	_, err = adapter.CreateOrReplace(ctx, model.Task{Title: "x"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, adapter.Delete(ctx, "t1"), ErrUnauthenticated)
	assert.ErrorIs(t, adapter.SetCompleted(ctx, "t1", true), ErrUnauthenticated)
	_, err = adapter.List(ctx)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = adapter.Subscribe(ctx, func([]ChangeEvent) {})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSubscribe_SnapshotThenDiffs(t *testing.T) {
	adapter := newTestAdapter(t, nil)
	ctx := context.Background()

	_, err := adapter.CreateOrReplace(ctx, model.Task{TaskID: "t1", Title: "one", DueDateTime: "25/12/2024 18:00:00.000"})
	require.NoError(t, err)
	_, err = adapter.CreateOrReplace(ctx, model.Task{TaskID: "t2", Title: "two", DueDateTime: "26/12/2024 18:00:00.000"})
	require.NoError(t, err)

	collector := &eventCollector{}
	sub, err := adapter.Subscribe(ctx, collector.collect)
	require.NoError(t, err)
	defer sub.Close()

	require.Eventually(t, func() bool {
		return len(collector.all()) == 2
	}, time.Second, 10*time.Millisecond, "initial snapshot must arrive as Added events")
	for _, ev := range collector.all() {
		assert.Equal(t, Added, ev.Type)
	}

	_, err = adapter.CreateOrReplace(ctx, model.Task{TaskID: "t3", Title: "three", DueDateTime: "27/12/2024 18:00:00.000"})
	require.NoError(t, err)
	require.NoError(t, adapter.Delete(ctx, "t1"))

	require.Eventually(t, func() bool {
		return len(collector.all()) == 4
	}, time.Second, 10*time.Millisecond)

	events := collector.all()
	assert.Equal(t, Added, events[2].Type)
	assert.Equal(t, "t3", events[2].Task.TaskID)
	assert.Equal(t, Removed, events[3].Type)
	assert.Equal(t, "t1", events[3].Task.TaskID)
}

func TestSubscribe_ReplaceEmitsModified(t *testing.T) {
	adapter := newTestAdapter(t, nil)
	ctx := context.Background()

	_, err := adapter.CreateOrReplace(ctx, model.Task{TaskID: "t1", Title: "one", DueDateTime: "25/12/2024 18:00:00.000"})
	require.NoError(t, err)

	collector := &eventCollector{}
	sub, err := adapter.Subscribe(ctx, collector.collect)
	require.NoError(t, err)
	defer sub.Close()

	_, err = adapter.CreateOrReplace(ctx, model.Task{TaskID: "t1", Title: "one v2", DueDateTime: "25/12/2024 18:00:00.000"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		events := collector.all()
		return len(events) == 2 && events[1].Type == Modified && events[1].Task.Title == "one v2"
	}, time.Second, 10*time.Millisecond)
}

func TestSubscribe_CloseStopsDelivery(t *testing.T) {
	adapter := newTestAdapter(t, nil)
	ctx := context.Background()

	collector := &eventCollector{}
	sub, err := adapter.Subscribe(ctx, collector.collect)
	require.NoError(t, err)
	sub.Close()
	sub.Close() // safe to close twice

	_, err = adapter.CreateOrReplace(ctx, model.Task{TaskID: "t1", Title: "one", DueDateTime: "25/12/2024 18:00:00.000"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, collector.all())
}

func TestMirror_FollowsWrites(t *testing.T) {
	cache := NewLocalCache()
	adapter := newTestAdapter(t, cache)
	ctx := context.Background()

	saved, err := adapter.CreateOrReplace(ctx, model.Task{TaskID: "t1", Title: "Buy milk", DueDateTime: "25/12/2024 18:00:00.000"})
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())
	assert.Contains(t, cache.Entries(), "Buy milk||25/12/2024 18:00:00.000||t1")

	require.NoError(t, adapter.Delete(ctx, saved.TaskID))
	assert.Equal(t, 0, cache.Len())
}
