// Package codec converts tasks between the structured record, the
// canonical due-time string and the legacy "title||due||id" composite
// used by the local cache. Pure transforms, no I/O.
package codec

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"brainboard/internal/model"
)

const (
	// LayoutMillis is the canonical due-time format. All output uses it.
	LayoutMillis = "02/01/2006 15:04:05.000"
	// LayoutMinutes is the newer, seconds-free encoding found in stored
	// data. Accepted on parse only.
	LayoutMinutes = "02/01/2006 15:04"

	// NoTime is the sentinel for a composite entry without a due field.
	NoTime = "No Time"

	separator = "||"
)

var (
	ErrUnparseableTimestamp = errors.New("codec: unparseable timestamp")
	ErrMalformedComposite   = errors.New("codec: malformed composite")
)

// ParseDueAt parses a due-time string, trying the canonical layout
// first and the minutes-only layout second. An unparsable string is a
// data-corruption error, never a silent zero time.
func ParseDueAt(s string) (time.Time, error) {
	for _, layout := range []string{LayoutMillis, LayoutMinutes} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTimestamp, s)
}

// FormatDueAt renders an instant in the canonical with-milliseconds
// layout.
func FormatDueAt(t time.Time) string {
	return t.Format(LayoutMillis)
}

// EncodeComposite renders a task as a flat cache entry. Tasks with a
// document key always produce all three fields. Titles containing the
// field separator cannot be represented and are rejected; the legacy
// consumer has no escape syntax.
func EncodeComposite(t model.Task) (string, error) {
	if t.Title == "" || strings.Contains(t.Title, separator) {
		return "", fmt.Errorf("%w: title %q", ErrMalformedComposite, t.Title)
	}
	due := t.DueDateTime
	if due == "" {
		due = NoTime
	}
	if !t.Saved() {
		return t.Title + separator + due, nil
	}
	return t.Title + separator + due + separator + t.TaskID, nil
}

// DecodeComposite parses a flat cache entry with one, two or three
// fields. A missing due time becomes the NoTime sentinel and a missing
// id is derived from the title, so old entries written before ids
// existed still resolve to a stable key.
func DecodeComposite(s string) (model.Task, error) {
	parts := strings.Split(s, separator)
	if len(parts) > 3 {
		return model.Task{}, fmt.Errorf("%w: %d fields", ErrMalformedComposite, len(parts))
	}
	if parts[0] == "" {
		return model.Task{}, fmt.Errorf("%w: empty title", ErrMalformedComposite)
	}

	task := model.Task{
		Title:       parts[0],
		DueDateTime: NoTime,
		TaskID:      TitleHash(parts[0]),
	}
	if len(parts) > 1 && parts[1] != "" {
		task.DueDateTime = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		task.TaskID = parts[2]
	}
	return task, nil
}

// TitleHash derives a fallback document key from a title for cache
// entries that predate explicit ids.
func TitleHash(title string) string {
	h := fnv.New32a()
	h.Write([]byte(title))
	return fmt.Sprint(h.Sum32())
}
