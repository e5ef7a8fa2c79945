package store

import (
	"sort"
	"sync"
	"time"

	"github.com/psantana5/boxbot/pkg/models"
)

// MemoryStore is an in-memory implementation of the run store
type MemoryStore struct {
	mu          sync.RWMutex
	runs        map[string]*Run
	transitions map[string][]*Transition
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:        make(map[string]*Run),
		transitions: make(map[string][]*Transition),
	}
}

// CreateRun stores a copy of run
func (s *MemoryStore) CreateRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

// FinishRun marks a run as ended
func (s *MemoryStore) FinishRun(id string, endedAt time.Time, finalState models.RobotState, ticks int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[id]
	if !ok {
		return ErrRunNotFound
	}
	run.EndedAt = endedAt
	run.FinalState = finalState
	run.Ticks = ticks
	return nil
}

// GetRun retrieves a run by ID
func (s *MemoryStore) GetRun(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	cp := *run
	return &cp, nil
}

// ListRuns returns every run, oldest first
func (s *MemoryStore) ListRuns() ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*Run, 0, len(s.runs))
	for _, run := range s.runs {
		cp := *run
		runs = append(runs, &cp)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	return runs, nil
}

// AddTransition appends a transition to its run
func (s *MemoryStore) AddTransition(tr *Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[tr.RunID]; !ok {
		return ErrRunNotFound
	}
	cp := *tr
	s.transitions[tr.RunID] = append(s.transitions[tr.RunID], &cp)
	return nil
}

// GetTransitions returns a run's transitions in tick order
func (s *MemoryStore) GetTransitions(runID string) ([]*Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.runs[runID]; !ok {
		return nil, ErrRunNotFound
	}
	out := make([]*Transition, 0, len(s.transitions[runID]))
	for _, tr := range s.transitions[runID] {
		cp := *tr
		out = append(out, &cp)
	}
	return out, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}
