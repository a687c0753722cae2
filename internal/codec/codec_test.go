package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brainboard/internal/model"
)

func TestParseDueAt_Millis(t *testing.T) {
	got, err := ParseDueAt("25/12/2024 18:00:00.000")
	require.NoError(t, err)

	want := time.Date(2024, 12, 25, 18, 0, 0, 0, time.Local)
	assert.True(t, got.Equal(want))
}

func TestParseDueAt_MinutesOnly(t *testing.T) {
	got, err := ParseDueAt("25/12/2024 18:30")
	require.NoError(t, err)

	want := time.Date(2024, 12, 25, 18, 30, 0, 0, time.Local)
	assert.True(t, got.Equal(want))
}

func TestParseDueAt_Garbage(t *testing.T) {
	_, err := ParseDueAt("next tuesday")
	assert.ErrorIs(t, err, ErrUnparseableTimestamp)

	_, err = ParseDueAt("")
	assert.ErrorIs(t, err, ErrUnparseableTimestamp)
}

func TestFormatDueAt_RoundTrip(t *testing.T) {
	instants := []time.Time{
		time.Date(2024, 12, 25, 18, 0, 0, 0, time.Local),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local),
		time.Date(2026, 8, 28, 23, 59, 59, 999*int(time.Millisecond), time.Local),
	}
	for _, want := range instants {
		got, err := ParseDueAt(FormatDueAt(want))
		require.NoError(t, err)
		assert.True(t, got.Equal(want), "round trip of %v gave %v", want, got)
	}
}

func TestEncodeComposite_ThreeFields(t *testing.T) {
	task := model.Task{
		TaskID:      "abc-123",
		Title:       "Buy milk",
		DueDateTime: "25/12/2024 18:00:00.000",
	}

	entry, err := EncodeComposite(task)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk||25/12/2024 18:00:00.000||abc-123", entry)
}

func TestEncodeComposite_RejectsSeparatorInTitle(t *testing.T) {
	_, err := EncodeComposite(model.Task{TaskID: "x", Title: "a||b"})
	assert.ErrorIs(t, err, ErrMalformedComposite)
}

func TestEncodeComposite_RejectsEmptyTitle(t *testing.T) {
	_, err := EncodeComposite(model.Task{TaskID: "x"})
	assert.ErrorIs(t, err, ErrMalformedComposite)
}

func TestEncodeComposite_NoDueTime(t *testing.T) {
	entry, err := EncodeComposite(model.Task{TaskID: "x", Title: "stretch"})
	require.NoError(t, err)
	assert.Equal(t, "stretch||No Time||x", entry)
}

func TestDecodeComposite_RoundTrip(t *testing.T) {
	want := model.Task{
		TaskID:      "abc-123",
		Title:       "Buy milk",
		DueDateTime: "25/12/2024 18:00:00.000",
	}

	entry, err := EncodeComposite(want)
	require.NoError(t, err)

	got, err := DecodeComposite(entry)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeComposite_TitleOnly(t *testing.T) {
	got, err := DecodeComposite("water the plants")
	require.NoError(t, err)

	assert.Equal(t, "water the plants", got.Title)
	assert.Equal(t, NoTime, got.DueDateTime)
	assert.Equal(t, TitleHash("water the plants"), got.TaskID)
}

func TestDecodeComposite_TwoFields(t *testing.T) {
	got, err := DecodeComposite("call mom||25/12/2024 18:00")
	require.NoError(t, err)

	assert.Equal(t, "call mom", got.Title)
	assert.Equal(t, "25/12/2024 18:00", got.DueDateTime)
	assert.Equal(t, TitleHash("call mom"), got.TaskID)
}

func TestDecodeComposite_TooManyFields(t *testing.T) {
	_, err := DecodeComposite("a||b||c||d")
	assert.ErrorIs(t, err, ErrMalformedComposite)
}

func TestDecodeComposite_EmptyTitle(t *testing.T) {
	_, err := DecodeComposite("||25/12/2024 18:00||id")
	assert.ErrorIs(t, err, ErrMalformedComposite)
}

func TestTitleHash_Stable(t *testing.T) {
	assert.Equal(t, TitleHash("Buy milk"), TitleHash("Buy milk"))
	assert.NotEqual(t, TitleHash("Buy milk"), TitleHash("Buy eggs"))
}
