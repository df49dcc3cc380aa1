package correlator

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps job slots in process memory. It is the default for a
// single-instance deployment and for tests.
type MemoryStore struct {
	mu       sync.Mutex
	slots    map[Key]string
	jobs     map[string]Job
	attempts map[Key]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:    make(map[Key]string),
		jobs:     make(map[string]Job),
		attempts: make(map[Key]int),
	}
}

func (s *MemoryStore) NextAttempt(_ context.Context, key Key) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[key]++
	return s.attempts[key], nil
}

func (s *MemoryStore) Put(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token, ok := s.slots[job.Key]; ok {
		if _, live := s.jobs[token]; live {
			return ErrActiveJob
		}
	}

	s.slots[job.Key] = job.Token
	s.jobs[job.Token] = job
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key Key) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.slots[key]
	if !ok {
		return nil, nil
	}
	job, ok := s.jobs[token]
	if !ok {
		return nil, nil
	}
	return &job, nil
}

func (s *MemoryStore) Take(_ context.Context, token string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[token]
	if !ok {
		return nil, nil
	}
	delete(s.jobs, token)
	if s.slots[job.Key] == token {
		delete(s.slots, job.Key)
	}
	return &job, nil
}

func (s *MemoryStore) Due(_ context.Context, now time.Time) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Job
	for _, job := range s.jobs {
		if job.Expired(now) {
			due = append(due, job)
		}
	}
	return due, nil
}
