// Package store owns the in-memory task collection. Every mutation is a full
// copy, mutate, persist, swap cycle; subscribers are told about each new
// version.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"daily-planner-ai/internal/model"
)

// ErrTaskNotFound is returned by operations addressing an unknown task id.
var ErrTaskNotFound = errors.New("task not found")

// Persister is the whole-collection task store boundary.
type Persister interface {
	Load(ctx context.Context) ([]model.Task, error)
	Save(ctx context.Context, tasks []model.Task) error
}

// Change is published after every successful replace.
type Change struct {
	Version uint64
	Tasks   []model.Task
}

// Store is safe for concurrent use.
type Store struct {
	persister Persister

	mu      sync.RWMutex
	tasks   []model.Task
	version uint64

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan Change
}

// Open loads the current snapshot from persister.
func Open(ctx context.Context, persister Persister) (*Store, error) {
	tasks, err := persister.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	return &Store{
		persister: persister,
		tasks:     cloneAll(tasks),
		version:   1,
		subs:      make(map[int]chan Change),
	}, nil
}

// Snapshot returns a copy of the collection and its version.
func (s *Store) Snapshot() ([]model.Task, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.tasks), s.version
}

// Version returns the current collection version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Replace hands mutate a copy of the collection and persists the result as a
// whole. If mutate or the save fails, the collection is left unchanged.
func (s *Store) Replace(ctx context.Context, mutate func([]model.Task) ([]model.Task, error)) error {
	s.mu.Lock()
	next, err := mutate(cloneAll(s.tasks))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.persister.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save tasks: %w", err)
	}
	s.tasks = next
	s.version++
	// Publishing under the write lock keeps notifications in version order.
	s.publish(Change{Version: s.version, Tasks: cloneAll(next)})
	s.mu.Unlock()
	return nil
}

// Subscribe returns a channel receiving every later change and a cancel func.
// A subscriber that falls behind only sees the most recent change.
func (s *Store) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publish(change Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- change:
		default:
			// Drop the stale change and keep the newest.
			select {
			case <-ch:
			default:
			}
			ch <- change
		}
	}
}

// Add appends a task.
func (s *Store) Add(ctx context.Context, task model.Task) error {
	return s.Replace(ctx, func(tasks []model.Task) ([]model.Task, error) {
		return append(tasks, task.Clone()), nil
	})
}

// Update applies fn to the task with the given id and returns the result.
func (s *Store) Update(ctx context.Context, id string, fn func(*model.Task) error) (model.Task, error) {
	var updated model.Task
	err := s.Replace(ctx, func(tasks []model.Task) ([]model.Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		if err := fn(&tasks[i]); err != nil {
			return nil, err
		}
		updated = tasks[i].Clone()
		return tasks, nil
	})
	return updated, err
}

// Toggle flips the completion flag. For a recurring task this affects every occurrence.
func (s *Store) Toggle(ctx context.Context, id string) (model.Task, error) {
	return s.Update(ctx, id, func(t *model.Task) error {
		t.Completed = !t.Completed
		return nil
	})
}

// Delete removes the task with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.Replace(ctx, func(tasks []model.Task) ([]model.Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
		}
		return append(tasks[:i], tasks[i+1:]...), nil
	})
}

// Get returns a copy of one task.
func (s *Store) Get(id string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.tasks, id)
	if i < 0 {
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return s.tasks[i].Clone(), nil
}

func indexOf(tasks []model.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
