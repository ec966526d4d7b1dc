package store

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process room store for tests and database-less runs. It
// hands out deep copies so callers never share record memory.
type Memory struct {
	mu     sync.RWMutex
	byID   map[string]*Record
	byCode map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		byID:   make(map[string]*Record),
		byCode: make(map[string]string),
	}
}

func (m *Memory) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byCode[rec.Code]; exists {
		return ErrDuplicateCode
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.byID[rec.ID] = clone(rec)
	m.byCode[rec.Code] = rec.ID
	return nil
}

func (m *Memory) GetByCode(_ context.Context, code string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(m.byID[id]), nil
}

func (m *Memory) Update(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[rec.ID]; !ok {
		return ErrNotFound
	}
	rec.UpdatedAt = time.Now()
	m.byID[rec.ID] = clone(rec)
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.byID[id]
	if !ok {
		return nil // delete is idempotent; both peers may race here
	}
	delete(m.byCode, rec.Code)
	delete(m.byID, id)
	return nil
}

func clone(rec *Record) *Record {
	c := *rec
	c.State = append([]byte(nil), rec.State...)
	return &c
}
