package dispatch

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ariefcatur/go-depot-engine/internal/orders"
	"github.com/ariefcatur/go-depot-engine/internal/presence"
)

var (
	ErrJobNotFound     = errors.New("delivery job not found")
	ErrVersionConflict = errors.New("delivery job was modified concurrently")
)

// JobStore persists jobs. Save must fail with ErrVersionConflict unless the
// stored version equals job.Version, and store the job with Version+1.
// Create stores a new job at version 1.
type JobStore interface {
	Create(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
	GetByOrder(ctx context.Context, orderID string) (Job, error)
	Save(ctx context.Context, job Job) (Job, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]Job, error)
}

// DeliveryStatusWriter pushes delivery progress back to the order. It only
// writes the order's delivery status, never its ledger status.
type DeliveryStatusWriter interface {
	SetDeliveryStatus(ctx context.Context, orderID string, status orders.DeliveryStatus, note string) error
}

// Presence is the part of the presence tracker the dispatcher uses.
type Presence interface {
	SetStatus(ctx context.Context, driverID string, status presence.Status) error
	IsAvailable(ctx context.Context, driverID string) (bool, error)
	Available(ctx context.Context) ([]presence.Presence, error)
}

type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[string]Job{}}
}

func (s *MemoryStore) Create(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return ErrVersionConflict
	}
	job.Version = 1
	s.jobs[job.ID] = job.clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return j.clone(), nil
}

func (s *MemoryStore) GetByOrder(_ context.Context, orderID string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		if j.OrderID == orderID {
			return j.clone(), nil
		}
	}
	return Job{}, ErrJobNotFound
}

func (s *MemoryStore) Save(_ context.Context, job Job) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[job.ID]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	if cur.Version != job.Version {
		return Job{}, ErrVersionConflict
	}
	job.Version++
	s.jobs[job.ID] = job.clone()
	return job, nil
}

func (s *MemoryStore) ListByStatus(_ context.Context, statuses ...Status) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[Status]bool{}
	for _, st := range statuses {
		want[st] = true
	}
	var out []Job
	for _, j := range s.jobs {
		if len(want) == 0 || want[j.Status] {
			out = append(out, j.clone())
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out, nil
}
