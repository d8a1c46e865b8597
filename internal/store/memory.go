package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"booked/internal/models"
)

// Memory is an in-memory DocumentStore for development and tests.
type Memory struct {
	mu       sync.RWMutex
	events   map[string][]models.Event
	groups   map[string]models.Group
	messages map[string][]models.Message
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		events:   make(map[string][]models.Event),
		groups:   make(map[string]models.Group),
		messages: make(map[string][]models.Message),
	}
}

func (m *Memory) GetUserEvents(_ context.Context, userID string) ([]models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Event(nil), m.events[userID]...), nil
}

func (m *Memory) PutUserEvents(_ context.Context, userID string, events []models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[userID] = append([]models.Event(nil), events...)
	return nil
}

func (m *Memory) GetGroup(_ context.Context, groupID string) (models.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[groupID]
	if !ok {
		return models.Group{}, fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	return g, nil
}

func (m *Memory) PutGroup(_ context.Context, group models.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group.ID] = group
	return nil
}

func (m *Memory) ListGroups(_ context.Context) ([]models.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) AppendMessage(_ context.Context, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.GroupID] = append(m.messages[msg.GroupID], msg)
	return nil
}

func (m *Memory) ListMessages(_ context.Context, groupID string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Message(nil), m.messages[groupID]...), nil
}
