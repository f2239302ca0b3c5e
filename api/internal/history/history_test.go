package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reshalka/api/internal/solve"
)

func seqIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func sol(task string) solve.Solution {
	return solve.Solution{Subject: "Математика", Task: task, Steps: []string{"a", "b"}, Answer: "c"}
}

func TestRecord_PrependsWithUniqueIDs(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	h := New(WithClock(func() time.Time { return now }))

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		it := h.Record("Математика", fmt.Sprintf("task %d", i), sol(fmt.Sprintf("task %d", i)))
		require.False(t, seen[it.ID], "duplicate id %s", it.ID)
		seen[it.ID] = true

		list := h.List()
		require.Len(t, list, i+1)
		assert.Equal(t, it.ID, list[0].ID)
		assert.Equal(t, now, list[0].Timestamp)
	}
	// при равных timestamp сохраняется порядок вставки
	list := h.List()
	assert.Equal(t, "task 49", list[0].Preview)
	assert.Equal(t, "task 0", list[49].Preview)
}

func TestRecord_IsImmutable(t *testing.T) {
	h := New(WithIDGenerator(seqIDs()))
	s := sol("2x+3=7")
	it := h.Record(s.Subject, s.Task, s)
	assert.Equal(t, "id-1", it.ID)
	assert.Equal(t, "2x+3=7", it.Preview)

	s.Steps[0] = "mutated"
	list := h.List()
	list[0].Preview = "mutated"

	got, ok := h.Get("id-1")
	require.True(t, ok)
	assert.Equal(t, "a", got.Solution.Steps[0])
	assert.Equal(t, "2x+3=7", got.Preview)
}

func TestClear(t *testing.T) {
	h := New()
	assert.NotPanics(t, h.Clear)
	assert.Empty(t, h.List())

	for i := 0; i < 3; i++ {
		h.Record("Физика", "F=ma", sol("F=ma"))
	}
	require.Equal(t, 3, h.Len())
	h.Clear()
	assert.Zero(t, h.Len())
	assert.Empty(t, h.List())

	_, ok := h.Get("anything")
	assert.False(t, ok)
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
		unit AgeUnit
	}{
		{0, "just now", JustNow},
		{59 * time.Minute, "just now", JustNow},
		{-time.Hour, "just now", JustNow},
		{time.Hour, "1 hours ago", Hours},
		{23 * time.Hour, "23 hours ago", Hours},
		{24 * time.Hour, "yesterday", Yesterday},
		{47 * time.Hour, "yesterday", Yesterday},
		{48 * time.Hour, "2 days ago", Days},
		{10 * 24 * time.Hour, "10 days ago", Days},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			at := now.Add(-tt.ago)
			assert.Equal(t, tt.want, TimeAgo(at, now))
			unit, _ := Age(at, now)
			assert.Equal(t, tt.unit, unit)
		})
	}
}
