package checkout

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps checkout session records in process memory.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]*Record
	byKey   map[string]string // userID+"/"+idempotencyKey -> session id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*Record),
		byKey:   make(map[string]string),
	}
}

func (m *MemoryRepository) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	stored := *rec
	m.records[rec.ID] = &stored
	if rec.IdempotencyKey != "" {
		m.byKey[rec.UserID+"/"+rec.IdempotencyKey] = rec.ID
	}
	return nil
}

func (m *MemoryRepository) UpdateState(_ context.Context, id string, state State, orderID, failureMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrSessionNotFound
	}
	rec.State = state
	rec.OrderID = orderID
	rec.FailureMessage = failureMessage
	rec.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryRepository) Find(_ context.Context, id string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := *rec
	return &out, nil
}

func (m *MemoryRepository) FindByIdempotencyKey(_ context.Context, userID, key string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byKey[userID+"/"+key]
	if key == "" || !ok {
		return nil, ErrIdempotencyKeyNotFound
	}
	out := *m.records[id]
	return &out, nil
}
