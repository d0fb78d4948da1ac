// Package render holds the row buffer the task manager draws into and the
// plain-text formatter used by the CLI.
package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/colonyops/tasklet/internal/core/task"
)

// Row is one rendered task.
type Row struct {
	ID      int64
	Text    string
	Checked bool
}

// List is a rendered task list plus the offline banner state.
type List struct {
	mu      sync.RWMutex
	rows    []Row
	offline bool
}

// NewList returns an empty rendered list.
func NewList() *List {
	return &List{}
}

// Clear drops every rendered row.
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = l.rows[:0]
}

// AppendRow renders t at the end of the list.
func (l *List) AppendRow(t task.Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, Row{ID: t.ID, Text: t.Text, Checked: t.Completed})
}

// SetOffline shows or hides the offline banner.
func (l *List) SetOffline(offline bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.offline = offline
}

// Offline reports whether the offline banner is visible.
func (l *List) Offline() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.offline
}

// Rows returns a copy of the rendered rows.
func (l *List) Rows() []Row {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Row, len(l.rows))
	copy(out, l.rows)
	return out
}

// Plain writes rows as "[x] <id> <text>" lines.
func Plain(w io.Writer, rows []Row) error {
	for _, r := range rows {
		mark := " "
		if r.Checked {
			mark = "x"
		}
		if _, err := fmt.Fprintf(w, "[%s] %d %s\n", mark, r.ID, r.Text); err != nil {
			return err
		}
	}
	return nil
}
