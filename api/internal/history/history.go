// Package history keeps the solutions obtained during one session,
// newest first. Nothing here is persisted.
package history

import (
	"time"

	"github.com/google/uuid"

	"reshalka/api/internal/solve"
)

// Item - неизменяемая запись об одном успешном решении.
type Item struct {
	ID        string
	Subject   string
	Preview   string
	Solution  solve.Solution
	Timestamp time.Time
}

// IDGenerator produces unique identifiers for history items.
type IDGenerator func() string

// UUIDv7 is the default generator: time-sortable RFC 9562 ids.
func UUIDv7() IDGenerator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

type Option func(*History)

func WithIDGenerator(g IDGenerator) Option { return func(h *History) { h.newID = g } }
func WithClock(now func() time.Time) Option { return func(h *History) { h.now = now } }

// History is owned by a single view controller and is not safe for
// concurrent use.
type History struct {
	items []Item
	newID IDGenerator
	now   func() time.Time
}

func New(opts ...Option) *History {
	h := &History{newID: UUIDv7(), now: time.Now}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Record добавляет запись в начало списка и возвращает её.
func (h *History) Record(subject, task string, sol solve.Solution) Item {
	it := Item{
		ID:        h.newID(),
		Subject:   subject,
		Preview:   task,
		Solution:  sol.Clone(),
		Timestamp: h.now(),
	}
	h.items = append([]Item{it}, h.items...)
	return it
}

func (h *History) Clear() { h.items = nil }

// List возвращает копию, новые первыми.
func (h *History) List() []Item {
	out := make([]Item, len(h.items))
	for i, it := range h.items {
		it.Solution = it.Solution.Clone()
		out[i] = it
	}
	return out
}

func (h *History) Get(id string) (Item, bool) {
	for _, it := range h.items {
		if it.ID == id {
			it.Solution = it.Solution.Clone()
			return it, true
		}
	}
	return Item{}, false
}

func (h *History) Len() int { return len(h.items) }
