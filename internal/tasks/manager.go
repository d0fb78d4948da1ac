// Package tasks implements the task store manager: it owns the task
// collection, persists it to local key-value storage and renders it.
package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/colonyops/tasklet/internal/core/kv"
	"github.com/colonyops/tasklet/internal/core/task"
)

// StorageKey is the local storage key holding the JSON task array.
const StorageKey = "todos"

// View is the rendered task list and status banner.
type View interface {
	Clear()
	AppendRow(t task.Task)
	SetOffline(offline bool)
}

// Manager routes every task mutation through persist-then-render.
// Persist and render are not transactional: when the storage write fails the
// in-memory change stays and the view is left untouched.
type Manager struct {
	mu    sync.Mutex
	list  *task.List
	store kv.KV
	view  View
	ids   *task.IDSource
	log   zerolog.Logger
}

// NewManager creates a manager with an empty collection. Call Load to read
// persisted tasks.
func NewManager(store kv.KV, view View, log zerolog.Logger) *Manager {
	return &Manager{
		list:  task.NewList(nil),
		store: store,
		view:  view,
		ids:   task.NewIDSource(),
		log:   log,
	}
}

// Load replaces the collection with the persisted one and renders it.
// A missing key loads as an empty list; malformed data is an error.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.read(ctx)
	if err != nil {
		return err
	}

	m.list.Replace(items)
	m.ids.Seed(m.list.MaxID())
	m.log.Debug().Int("count", len(items)).Msg("loaded tasks")

	m.renderAll()
	return nil
}

func (m *Manager) read(ctx context.Context) ([]task.Task, error) {
	entry, err := m.store.GetRaw(ctx, StorageKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	if err := validateStored(entry.Value); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	var items []task.Task
	if err := json.Unmarshal(entry.Value, &items); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return items, nil
}

// Add appends a new task built from text and renders only the new row.
// Whitespace-only text is ignored: ok is false and nothing changes.
func (m *Manager) Add(ctx context.Context, text string) (t task.Task, ok bool, err error) {
	text, ok = task.NormalizeText(text)
	if !ok {
		return task.Task{}, false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t = task.Task{ID: m.ids.Next(), Text: text}
	m.list.Append(t)

	if err := m.persist(ctx); err != nil {
		return t, true, err
	}

	m.view.AppendRow(t)
	m.log.Debug().Int64("id", t.ID).Msg("task added")
	return t, true, nil
}

// Toggle flips the completed flag of the task with the given ID.
func (m *Manager) Toggle(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.list.Toggle(id)
	if err != nil {
		return err
	}

	if err := m.persist(ctx); err != nil {
		return err
	}

	m.renderAll()
	m.log.Debug().Int64("id", id).Bool("completed", t.Completed).Msg("task toggled")
	return nil
}

// Delete removes the task with the given ID.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.list.Remove(id); err != nil {
		return err
	}

	if err := m.persist(ctx); err != nil {
		return err
	}

	m.renderAll()
	m.log.Debug().Int64("id", id).Msg("task deleted")
	return nil
}

// RenderAll clears the view and renders every task in order.
func (m *Manager) RenderAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renderAll()
}

// Persist overwrites the stored task array with the current collection.
func (m *Manager) Persist(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persist(ctx)
}

// Tasks returns a snapshot of the collection.
func (m *Manager) Tasks() []task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list.All()
}

// SetOnline updates the status banner. It does not touch task data.
func (m *Manager) SetOnline(online bool) {
	m.view.SetOffline(!online)
}

func (m *Manager) renderAll() {
	m.view.Clear()
	for _, t := range m.list.All() {
		m.view.AppendRow(t)
	}
}

func (m *Manager) persist(ctx context.Context) error {
	if err := m.store.Set(ctx, StorageKey, m.list.All()); err != nil {
		return fmt.Errorf("persist tasks: %w", err)
	}
	return nil
}
