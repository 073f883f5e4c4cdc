package request

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when a request id is unknown to the store.
var ErrNotFound = errors.New("privacy request not found")

// Store persists privacy requests and their execution logs. The production
// implementation sits on the relational store; this package only ships the
// in-memory variant used by tests and the CLI.
type Store interface {
	SaveRequest(ctx context.Context, r *PrivacyRequest) error
	GetRequest(ctx context.Context, id string) (*PrivacyRequest, error)
	AppendLog(ctx context.Context, l *ExecutionLog) error
	Logs(ctx context.Context, requestID string) ([]*ExecutionLog, error)
}

// MemoryStore is a Store backed by process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*PrivacyRequest
	logs     map[string][]*ExecutionLog
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*PrivacyRequest),
		logs:     make(map[string][]*ExecutionLog),
	}
}

func (s *MemoryStore) SaveRequest(ctx context.Context, r *PrivacyRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

func (s *MemoryStore) GetRequest(ctx context.Context, id string) (*PrivacyRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) AppendLog(ctx context.Context, l *ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.logs[l.RequestID] = append(s.logs[l.RequestID], &cp)
	return nil
}

func (s *MemoryStore) Logs(ctx context.Context, requestID string) ([]*ExecutionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ExecutionLog, len(s.logs[requestID]))
	for i, l := range s.logs[requestID] {
		cp := *l
		out[i] = &cp
	}
	return out, nil
}
