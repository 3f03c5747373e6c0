package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]*strategy.Template
	fighters  map[string]*actor.FighterSpec
	pingError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		templates: make(map[uuid.UUID]*strategy.Template),
		fighters:  make(map[string]*actor.FighterSpec),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error { return nil }

func (m *MockStorage) byName(name string) *strategy.Template {
	for _, t := range m.templates {
		if strings.EqualFold(strings.TrimSpace(t.Name), strings.TrimSpace(name)) {
			return t
		}
	}
	return nil
}

func (m *MockStorage) CreateTemplate(ctx context.Context, t *strategy.Template) error {
	if t == nil {
		return errors.New("template cannot be nil")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byName(t.Name) != nil {
		return ErrDuplicateName
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *MockStorage) GetTemplate(ctx context.Context, id uuid.UUID) (*strategy.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockStorage) GetTemplateByName(ctx context.Context, name string) (*strategy.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := m.byName(name)
	if t == nil {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockStorage) UpdateTemplate(ctx context.Context, t *strategy.Template) error {
	if t == nil {
		return errors.New("template cannot be nil")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.templates[t.ID]
	if !ok {
		return ErrNotFound
	}
	if other := m.byName(t.Name); other != nil && other.ID != t.ID {
		return ErrDuplicateName
	}
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = time.Now()
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *MockStorage) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

// ListTemplates returns templates sorted by name.
func (m *MockStorage) ListTemplates(ctx context.Context) ([]*strategy.Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*strategy.Template, 0, len(m.templates))
	for _, t := range m.templates {
		cp := *t
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *strategy.Template) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *MockStorage) GetFighterSpec(ctx context.Context, id string) (*actor.FighterSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	spec, ok := m.fighters[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *spec
	return &cp, nil
}

func (m *MockStorage) ListFighters(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.fighters))
	for id := range m.fighters {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// AddFighterSpec adds a fighter spec to the mock storage (for testing)
func (m *MockStorage) AddFighterSpec(id string, spec *actor.FighterSpec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fighters[id] = spec
}
