package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process Source, used by tests and the CSV inspector.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]Table

	// ConnectErr, when set, is returned by Connect.
	ConnectErr error
}

func NewMemory(tables ...Table) *Memory {
	m := &Memory{tables: make(map[string]Table)}
	for _, t := range tables {
		m.tables[t.Name] = t
	}
	return m
}

// Put stores or replaces a table.
func (m *Memory) Put(t Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[t.Name] = t
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Connect(ctx context.Context) error {
	return m.ConnectErr
}

func (m *Memory) ListTables(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) FetchTable(ctx context.Context, name string) (Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return t, nil
}
