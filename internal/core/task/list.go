package task

import (
	"fmt"
	"slices"
)

// List is the ordered task collection. Insertion order is display order.
// A List is not safe for concurrent use; its owner serializes access.
type List struct {
	items []Task
}

// NewList returns a list holding a copy of items.
func NewList(items []Task) *List {
	l := &List{}
	l.Replace(items)
	return l
}

// Len returns the number of tasks.
func (l *List) Len() int {
	return len(l.items)
}

// All returns a copy of the tasks in order. Never nil.
func (l *List) All() []Task {
	out := make([]Task, len(l.items))
	copy(out, l.items)
	return out
}

// Replace swaps the whole collection for a copy of items.
func (l *List) Replace(items []Task) {
	l.items = append(make([]Task, 0, len(items)), items...)
}

// Append adds t to the end of the list.
func (l *List) Append(t Task) {
	l.items = append(l.items, t)
}

// Get returns the task with the given ID.
func (l *List) Get(id int64) (Task, error) {
	i := l.index(id)
	if i < 0 {
		return Task{}, fmt.Errorf("get %d: %w", id, ErrNotFound)
	}
	return l.items[i], nil
}

// Toggle flips the completed flag of the task with the given ID and returns the updated task.
func (l *List) Toggle(id int64) (Task, error) {
	i := l.index(id)
	if i < 0 {
		return Task{}, fmt.Errorf("toggle %d: %w", id, ErrNotFound)
	}
	l.items[i].Completed = !l.items[i].Completed
	return l.items[i], nil
}

// Remove deletes the task with the given ID, keeping the order of the rest.
func (l *List) Remove(id int64) error {
	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("remove %d: %w", id, ErrNotFound)
	}
	l.items = slices.Delete(l.items, i, i+1)
	return nil
}

// MaxID returns the largest ID in the list, or 0 when empty.
func (l *List) MaxID() int64 {
	var maxID int64
	for _, t := range l.items {
		maxID = max(maxID, t.ID)
	}
	return maxID
}

func (l *List) index(id int64) int {
	return slices.IndexFunc(l.items, func(t Task) bool { return t.ID == id })
}
