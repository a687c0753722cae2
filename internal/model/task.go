package model

import "time"

// Task represents a single reminder item. TaskID is the document key in
// the task collection and stays stable for the task's lifetime; the
// numeric ID is only the local row key.
type Task struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      string `gorm:"index:idx_user_task,unique"`
	TaskID      string `gorm:"index:idx_user_task,unique"`
	Title       string
	DueDateTime string
	Completed   bool      `gorm:"default:false"`
	Timestamp   time.Time `gorm:"autoUpdateTime"`
}

// Saved reports whether the task has been assigned a document key. A
// task without one is transient and must not reach the store or the
// list view.
func (t Task) Saved() bool {
	return t.TaskID != ""
}
