package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainboard/internal/model"
	"brainboard/internal/store"
)

func task(id, title string) model.Task {
	return model.Task{TaskID: id, Title: title}
}

func added(id, title string) store.ChangeEvent {
	return store.ChangeEvent{Type: store.Added, Task: task(id, title)}
}

func modified(id, title string) store.ChangeEvent {
	return store.ChangeEvent{Type: store.Modified, Task: task(id, title)}
}

func removed(id string) store.ChangeEvent {
	return store.ChangeEvent{Type: store.Removed, Task: model.Task{TaskID: id}}
}

func ids(tasks []model.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.TaskID
	}
	return out
}

func TestApply_AddedAppends(t *testing.T) {
	l := NewList(nil)

	l.Apply([]store.ChangeEvent{added("a", "one"), added("b", "two")})

	assert.Equal(t, []string{"a", "b"}, ids(l.Tasks()))
}

func TestApply_DuplicateAddedUpdatesInPlace(t *testing.T) {
	l := NewList(nil)

	l.Apply([]store.ChangeEvent{added("a", "one"), added("b", "two")})
	l.Apply([]store.ChangeEvent{added("a", "one again")})

	tasks := l.Tasks()
	require.Equal(t, []string{"a", "b"}, ids(tasks))
	assert.Equal(t, "one again", tasks[0].Title)
}

func TestApply_ModifiedPreservesPosition(t *testing.T) {
	l := NewList(nil)

	l.Apply([]store.ChangeEvent{added("a", "one"), added("b", "two"), added("c", "three")})
	l.Apply([]store.ChangeEvent{modified("b", "two v2")})

	tasks := l.Tasks()
	require.Equal(t, []string{"a", "b", "c"}, ids(tasks))
	assert.Equal(t, "two v2", tasks[1].Title)
}

func TestApply_ModifiedAbsentIsNoop(t *testing.T) {
	l := NewList(nil)

	l.Apply([]store.ChangeEvent{added("a", "one")})
	l.Apply([]store.ChangeEvent{modified("ghost", "nope")})

	assert.Equal(t, []string{"a"}, ids(l.Tasks()))
}

func TestApply_RemovedDeletesAndToleratesAbsent(t *testing.T) {
	l := NewList(nil)

	l.Apply([]store.ChangeEvent{added("a", "one"), added("b", "two")})
	l.Apply([]store.ChangeEvent{removed("a"), removed("a"), removed("ghost")})

	assert.Equal(t, []string{"b"}, ids(l.Tasks()))
}

func TestApply_ConvergesOnRedelivery(t *testing.T) {
	l := NewList(nil)

	// A snapshot redelivered after incremental changes, then the final
	// per-id states: membership must match the last event per id with
	// no duplicates.
	l.Apply([]store.ChangeEvent{added("a", "one"), added("b", "two")})
	l.Apply([]store.ChangeEvent{added("a", "one"), added("b", "two"), added("c", "three")})
	l.Apply([]store.ChangeEvent{removed("b")})
	l.Apply([]store.ChangeEvent{modified("c", "three v2"), added("b", "two back")})

	tasks := l.Tasks()
	assert.ElementsMatch(t, []string{"a", "c", "b"}, ids(tasks))

	seen := map[string]bool{}
	for _, task := range tasks {
		assert.False(t, seen[task.TaskID], "duplicate id %s", task.TaskID)
		seen[task.TaskID] = true
	}
}

func TestApply_SignalsOncePerBatch(t *testing.T) {
	var calls int
	var last []model.Task
	l := NewList(func(tasks []model.Task) {
		calls++
		last = tasks
	})

	l.Apply([]store.ChangeEvent{added("a", "one"), added("b", "two")})
	assert.Equal(t, 1, calls)
	assert.Len(t, last, 2)

	l.Apply(nil)
	assert.Equal(t, 1, calls, "empty batch must not signal")

	l.Apply([]store.ChangeEvent{removed("a")})
	assert.Equal(t, 2, calls)
	assert.Len(t, last, 1)
}
