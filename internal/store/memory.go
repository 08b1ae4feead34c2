package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"meritboard/internal/model"
)

// Memory is a process-local Store for dev and testing. Every read and write
// copies the record, so callers never share activity slices with the store.
type Memory struct {
	mu       sync.RWMutex
	admins   map[string]model.Admin // by username
	students map[string]model.Student
	rolls    map[string]string // roll number -> id
	order    []string
	now      func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		admins:   make(map[string]model.Admin),
		students: make(map[string]model.Student),
		rolls:    make(map[string]string),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error                { return nil }

func (m *Memory) FindAdminByUsername(_ context.Context, username string) (*model.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.admins[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) CreateAdmin(_ context.Context, admin model.Admin) (model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[admin.Username]; ok {
		return model.Admin{}, fmt.Errorf("%w: username %q already exists", ErrDuplicateKey, admin.Username)
	}
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	admin.CreatedAt = m.now()
	admin.UpdatedAt = admin.CreatedAt
	m.admins[admin.Username] = admin
	return admin, nil
}

func (m *Memory) FindStudent(_ context.Context, id string) (*model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := s.Clone()
	return &out, nil
}

func (m *Memory) FindStudentByRoll(ctx context.Context, rollNumber string) (*model.Student, error) {
	m.mu.RLock()
	id, ok := m.rolls[rollNumber]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.FindStudent(ctx, id)
}

func (m *Memory) FindStudentByRollOrID(ctx context.Context, key string) (*model.Student, error) {
	if s, err := m.FindStudent(ctx, key); err == nil {
		return s, nil
	}
	return m.FindStudentByRoll(ctx, key)
}

func (m *Memory) CreateStudent(_ context.Context, s model.Student) (model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rolls[s.RollNumber]; ok {
		return model.Student{}, fmt.Errorf("%w: rollNumber %q already exists", ErrDuplicateKey, s.RollNumber)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s = s.Clone()
	s.CreatedAt = m.now()
	s.UpdatedAt = s.CreatedAt
	m.students[s.ID] = s
	m.rolls[s.RollNumber] = s.ID
	m.order = append(m.order, s.ID)
	return s.Clone(), nil
}

func (m *Memory) SaveStudent(_ context.Context, s *model.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.students[s.ID]
	if !ok {
		return ErrNotFound
	}
	next := s.Clone()
	next.RollNumber = cur.RollNumber
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = m.now()
	m.students[s.ID] = next
	s.UpdatedAt = next.UpdatedAt
	return nil
}

func (m *Memory) DeleteStudent(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return false, nil
	}
	delete(m.students, id)
	delete(m.rolls, s.RollNumber)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *Memory) ListStudents(context.Context) ([]model.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Student, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.students[id].Clone())
	}
	return out, nil
}
