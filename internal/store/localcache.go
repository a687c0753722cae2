package store

import (
	"sync"

	"brainboard/internal/codec"
	"brainboard/internal/model"
)

// LocalCache is the legacy flat-string task cache: a set of composite
// entries, one per task. It mirrors adapter writes so the old
// export/import path keeps working where the remote store is not
// reachable.
type LocalCache struct {
	mu      sync.Mutex
	entries map[string]string // task id -> composite entry
}

func NewLocalCache() *LocalCache {
	return &LocalCache{entries: make(map[string]string)}
}

// Add stores the composite encoding of a task, replacing any previous
// entry with the same id.
func (c *LocalCache) Add(task model.Task) error {
	entry, err := codec.EncodeComposite(task)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[task.TaskID] = entry
	c.mu.Unlock()
	return nil
}

// Remove drops the entry for a task id. Removing an absent id is a
// no-op.
func (c *LocalCache) Remove(taskID string) {
	c.mu.Lock()
	delete(c.entries, taskID)
	c.mu.Unlock()
}

// Entries returns the composite strings currently in the cache.
func (c *LocalCache) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, entry)
	}
	return out
}

// Tasks decodes every cache entry. Corrupt entries are skipped rather
// than aborting the whole import.
func (c *LocalCache) Tasks() []model.Task {
	var tasks []model.Task
	for _, entry := range c.Entries() {
		task, err := codec.DecodeComposite(entry)
		if err != nil {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// Len reports the number of cached entries.
func (c *LocalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
