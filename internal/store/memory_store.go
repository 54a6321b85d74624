package store

import (
	"context"
	"sync"

	"github.com/auto-dns/docker-traceability/internal/domain"
	"github.com/auto-dns/docker-traceability/internal/util"
)

type jobRuns struct {
	runs  []domain.Run
	index map[string]int // run key -> position in runs
}

// MemoryStore keeps items and runs in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]domain.Item
	jobs  *util.DefaultMap[string, *jobRuns]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]domain.Item),
		jobs: util.NewDefaultMap[string](func() *jobRuns {
			return &jobRuns{index: make(map[string]int)}
		}),
	}
}

func (s *MemoryStore) ListItems(ctx context.Context) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}
	return items, nil
}

func (s *MemoryStore) LoadOrCreateItem(ctx context.Context, item domain.Item) (domain.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[item.Name]; ok {
		return existing, false, nil
	}
	s.items[item.Name] = item
	return item, true, nil
}

func (s *MemoryStore) FindRun(ctx context.Context, jobName string, runType domain.RunType, dockerID string) (*domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jr, ok := s.jobs.Lookup(jobName)
	if !ok {
		return nil, nil
	}
	pos, ok := jr.index[domain.RunKey(runType, dockerID)]
	if !ok {
		return nil, nil
	}
	run := jr.runs[pos]
	return &run, nil
}

func (s *MemoryStore) CreateRun(ctx context.Context, run domain.Run) (domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jr := s.jobs.Get(run.JobName)
	if pos, ok := jr.index[run.Key()]; ok {
		return jr.runs[pos], nil
	}
	run.Number = int64(len(jr.runs)) + 1
	jr.index[run.Key()] = len(jr.runs)
	jr.runs = append(jr.runs, run)
	return run, nil
}

func (s *MemoryStore) ListRuns(ctx context.Context, jobName string) ([]domain.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jr, ok := s.jobs.Lookup(jobName)
	if !ok {
		return []domain.Run{}, nil
	}
	runs := make([]domain.Run, len(jr.runs))
	copy(runs, jr.runs)
	return runs, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
