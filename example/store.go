package example

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Status is the completion state of a todo.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Tag labels a todo.
type Tag string

const (
	TagWork     Tag = "work"
	TagPersonal Tag = "personal"
	TagUrgent   Tag = "urgent"
	TagLater    Tag = "later"
)

// Todo is one task.
type Todo struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	Tags      []Tag     `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Done reports whether the todo is completed.
func (t *Todo) Done() bool { return t.Status == StatusCompleted }

// HasTag reports whether the todo carries tag.
func (t *Todo) HasTag(tag Tag) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// Stats summarizes the store.
type Stats struct {
	Total     int         `json:"total"`
	Completed int         `json:"completed"`
	Pending   int         `json:"pending"`
	ByTag     map[Tag]int `json:"by_tag"`
}

// Store is an in-memory todo store.
type Store struct {
	mu     sync.RWMutex
	todos  map[int]*Todo
	nextID int
	now    func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		todos:  make(map[int]*Todo),
		nextID: 1,
		now:    time.Now,
	}
}

// Seed adds sample todos.
func (s *Store) Seed() *Store {
	s.Add("Buy groceries", TagPersonal)
	s.Add("Review PR #123", TagWork, TagUrgent)
	s.Add("Write documentation", TagWork)
	s.Add("Call dentist", TagPersonal, TagLater)
	return s
}

// Add creates a pending todo and returns a copy of it.
func (s *Store) Add(title string, tags ...Tag) Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := &Todo{
		ID:        s.nextID,
		Title:     strings.TrimSpace(title),
		Status:    StatusPending,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.todos[t.ID] = t
	s.nextID++
	return *t
}

// Get returns a copy of the todo with id.
func (s *Store) Get(id int) (Todo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.todos[id]
	if !ok {
		return Todo{}, false
	}
	return *t, true
}

// Toggle flips the completion state of a todo.
func (s *Store) Toggle(id int) (Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok {
		return Todo{}, false
	}
	if t.Status == StatusCompleted {
		t.Status = StatusPending
	} else {
		t.Status = StatusCompleted
	}
	t.UpdatedAt = s.now()
	return *t, true
}

// Delete removes a todo.
func (s *Store) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.todos[id]; !ok {
		return false
	}
	delete(s.todos, id)
	return true
}

// ClearCompleted removes every completed todo and returns how many went.
func (s *Store) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, t := range s.todos {
		if t.Status == StatusCompleted {
			delete(s.todos, id)
			n++
		}
	}
	return n
}

// List returns todos with the given status, or all of them for "",
// newest first.
func (s *Store) List(status Status) []Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if status != "" && t.Status != status {
			continue
		}
		result = append(result, *t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result
}

// Stats counts todos by status and tag.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{ByTag: make(map[Tag]int)}
	for _, t := range s.todos {
		stats.Total++
		if t.Status == StatusCompleted {
			stats.Completed++
		} else {
			stats.Pending++
		}
		for _, tag := range t.Tags {
			stats.ByTag[tag]++
		}
	}
	return stats
}
