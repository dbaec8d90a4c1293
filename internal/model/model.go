package model

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrEmptyTitle = errors.New("title cannot be empty")
	ErrMissingID  = errors.New("todo id is required")
)

// Todo is the record stored in the key-value store and sent over the wire.
// CreatedAt is set once at creation; UpdatedAt is refreshed on every mutation.
type Todo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Patch is a partial update: only non-nil fields replace the stored value.
type Patch struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Completed == nil
}

// New builds a fresh record. The title is trimmed and must be non-empty.
func New(id, title string, completed bool, now time.Time) (Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Todo{}, ErrEmptyTitle
	}
	if id == "" {
		return Todo{}, ErrMissingID
	}
	now = now.UTC()
	return Todo{
		ID:        id,
		Title:     title,
		Completed: completed,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Apply merges a patch into the record and refreshes UpdatedAt. The new
// UpdatedAt is strictly later than the previous one even when the clock
// has not advanced between mutations.
func (t Todo) Apply(p Patch, now time.Time) (Todo, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Todo{}, ErrEmptyTitle
		}
		t.Title = title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	now = now.UTC()
	if !now.After(t.UpdatedAt) {
		now = t.UpdatedAt.Add(time.Millisecond)
	}
	t.UpdatedAt = now
	return t, nil
}

// SortCreatedDesc orders newest-first, the order the list view displays.
// Ties fall back to ID so the order is stable.
func SortCreatedDesc(todos []Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		if todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].ID > todos[j].ID
		}
		return todos[i].CreatedAt.After(todos[j].CreatedAt)
	})
}

// Counts returns the filter tab totals. all == active + completed always.
func Counts(todos []Todo) (all, active, completed int) {
	for _, t := range todos {
		if t.Completed {
			completed++
		} else {
			active++
		}
	}
	return len(todos), active, completed
}
