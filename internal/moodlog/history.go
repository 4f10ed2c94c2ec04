// Package moodlog keeps the append-only record of mood selections.
package moodlog

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/soulsync/soulsync/internal/mood"
	"github.com/soulsync/soulsync/internal/storage"
)

// DefaultTrendLen is the number of entries charted by Trend when n <= 0.
const DefaultTrendLen = 7

// EmptyMessage is shown in place of a chart when nothing has been recorded.
const EmptyMessage = "Start tracking your mood to see your history"

// Entry is one recorded mood selection.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Mood      mood.Mood `json:"mood"`
}

// Point is one chart sample.
type Point struct {
	Day   string    `json:"day"`
	Value int       `json:"value"`
	Label string    `json:"label"`
	Mood  mood.Mood `json:"mood"`
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// History persists entries under a single key.
type History struct {
	store storage.KV
	clock Clock
	mu    sync.Mutex
}

func New(store storage.KV) *History {
	return &History{store: store, clock: realClock{}}
}

// NewWithClock creates a History with a custom clock (for testing).
func NewWithClock(store storage.KV, clock Clock) *History {
	return &History{store: store, clock: clock}
}

// Record appends an entry for m. Timestamps never go backwards: a clock
// reading earlier than the last entry is clamped to it.
func (h *History) Record(m mood.Mood) (Entry, error) {
	if !m.Valid() {
		return Entry{}, fmt.Errorf("invalid mood %d", int(m))
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load()
	if err != nil {
		return Entry{}, err
	}

	now := h.clock.Now().UTC()
	if n := len(entries); n > 0 && now.Before(entries[n-1].Timestamp) {
		now = entries[n-1].Timestamp
	}
	e := Entry{Timestamp: now, Mood: m}
	entries = append(entries, e)

	if err := storage.SetJSON(h.store, storage.KeyHistory, entries); err != nil {
		return Entry{}, fmt.Errorf("saving history: %w", err)
	}
	return e, nil
}

// Entries returns all entries, oldest first.
func (h *History) Entries() ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load()
}

// Trend returns chart points for the last n entries.
func (h *History) Trend(n int) ([]Point, error) {
	entries, err := h.Entries()
	if err != nil {
		return nil, err
	}
	return Trend(entries, n), nil
}

// load reads the stored list. An unreadable blob is treated as empty and is
// overwritten by the next Record.
func (h *History) load() ([]Entry, error) {
	var entries []Entry
	_, err := storage.GetJSON(h.store, storage.KeyHistory, &entries)
	if errors.Is(err, storage.ErrCorrupt) {
		slog.Warn("stored mood history is unreadable, starting empty", "error", err)
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Trend converts the last n entries to chart points.
func Trend(entries []Entry, n int) []Point {
	if n <= 0 {
		n = DefaultTrendLen
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	points := make([]Point, 0, len(entries))
	for _, e := range entries {
		v := mood.Valence(e.Mood)
		points = append(points, Point{
			Day:   e.Timestamp.Local().Format("Mon"),
			Value: v,
			Label: mood.ValenceLabel(v),
			Mood:  e.Mood,
		})
	}
	return points
}

// Describe renders entries as text for the trend summary prompt.
func Describe(entries []Entry) string {
	if len(entries) == 0 {
		return "no entries"
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s: %s", e.Timestamp.Local().Format("Mon Jan 2"), e.Mood)
	}
	return strings.Join(parts, ", ")
}
