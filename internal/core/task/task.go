// Package task defines the task record and the ordered collection that owns it.
package task

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when no task matches the requested ID.
var ErrNotFound = errors.New("task not found")

// Task is a single to-do item. ID is the creation timestamp in Unix milliseconds.
type Task struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// NormalizeText trims surrounding whitespace. The second return value is false
// when nothing is left, which callers treat as "no task".
func NormalizeText(text string) (string, bool) {
	text = strings.TrimSpace(text)
	return text, text != ""
}
