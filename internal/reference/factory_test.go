package reference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/auto-dns/docker-traceability/internal/domain"
	"github.com/auto-dns/docker-traceability/internal/host"
	"github.com/auto-dns/docker-traceability/internal/job"
	"github.com/auto-dns/docker-traceability/internal/store"
	"github.com/rs/zerolog"
)

// countingStore records how many items were created and can inject failures.
type countingStore struct {
	*store.MemoryStore
	created atomic.Int32
	loadErr error
	delay   time.Duration
}

func (c *countingStore) LoadOrCreateItem(ctx context.Context, item domain.Item) (domain.Item, bool, error) {
	if c.loadErr != nil {
		return domain.Item{}, false, c.loadErr
	}
	time.Sleep(c.delay)
	got, created, err := c.MemoryStore.LoadOrCreateItem(ctx, item)
	if created {
		c.created.Add(1)
	}
	return got, created, err
}

func newLoadedFactory(t *testing.T, s *countingStore) (*Factory, *host.Host) {
	t.Helper()
	h := host.New(s.MemoryStore, zerolog.Nop())
	h.RegisterKind(job.Kind, job.NewDecoder(s, zerolog.Nop()))
	if err := h.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return NewFactory(h, s, job.DefaultName, zerolog.Nop()), h
}

func TestForContainerCreatesOneJobAndOneRun(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	f, h := newLoadedFactory(t, s)

	ts := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	run, err := f.ForContainer(ctx, "c0ffee", "web", ts)
	if err != nil {
		t.Fatalf("ForContainer failed: %v", err)
	}

	if got := s.created.Load(); got != 1 {
		t.Errorf("Expected 1 job to be created, got %d", got)
	}
	if _, ok := h.GetItem(job.DefaultName).(*job.BuildReferenceJob); !ok {
		t.Error("Expected job to be registered with the host")
	}
	runs, _ := s.ListRuns(ctx, job.DefaultName)
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	if run.DockerID != "c0ffee" || run.Name != "web" || !run.Timestamp.Equal(ts) || run.JobName != job.DefaultName {
		t.Errorf("Unexpected run: %+v", run)
	}
}

func TestRunTypeMatchesEntryPoint(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	f, _ := newLoadedFactory(t, s)

	tests := []struct {
		name string
		call func() (domain.Run, error)
		want domain.RunType
	}{
		{"container", func() (domain.Run, error) { return f.ForContainer(ctx, "abc", "", time.Now()) }, domain.RunTypeContainer},
		{"image", func() (domain.Run, error) { return f.ForImage(ctx, "abc", "nginx", time.Now()) }, domain.RunTypeImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := tt.call()
			if err != nil {
				t.Fatalf("call failed: %v", err)
			}
			if run.Type != tt.want {
				t.Errorf("Type = %q, want %q", run.Type, tt.want)
			}
		})
	}
}

func TestConcurrentFirstUseCreatesOneJob(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{MemoryStore: store.NewMemoryStore(), delay: time.Millisecond}
	f, _ := newLoadedFactory(t, s)

	const callers = 32
	jobs := make([]*job.BuildReferenceJob, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.ForImage(ctx, fmt.Sprintf("sha256:%d", i), "", time.Now()); err != nil {
				t.Errorf("ForImage failed: %v", err)
			}
			j, err := f.GetOrCreateJob(ctx)
			if err != nil {
				t.Errorf("GetOrCreateJob failed: %v", err)
			}
			jobs[i] = j
		}(i)
	}
	wg.Wait()

	if got := s.created.Load(); got != 1 {
		t.Errorf("Expected exactly 1 job to be created, got %d", got)
	}
	for i := 1; i < callers; i++ {
		if jobs[i] != jobs[0] {
			t.Fatal("Expected every caller to share one job instance")
		}
	}
	runs, _ := s.ListRuns(ctx, job.DefaultName)
	if len(runs) != callers {
		t.Errorf("Expected %d runs, got %d", callers, len(runs))
	}
}

func TestConflictingItemFailsEveryCall(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	s.MemoryStore.LoadOrCreateItem(ctx, domain.Item{Name: job.DefaultName, Kind: "freestyle"})
	f, h := newLoadedFactory(t, s)

	if _, ok := h.GetItem(job.DefaultName).(*host.GenericItem); !ok {
		t.Fatalf("Expected a generic item under the job name, got %T", h.GetItem(job.DefaultName))
	}

	for i := 0; i < 3; i++ {
		_, err := f.ForContainer(ctx, "abc", "", time.Now())
		var conflict *domain.ItemConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("call %d: expected ItemConflictError, got %v", i, err)
		}
		if conflict.Existing != "freestyle" || conflict.Want != job.Kind {
			t.Errorf("Unexpected conflict: %+v", conflict)
		}
		if _, err := f.ForImage(ctx, "abc", "", time.Now()); !errors.As(err, &conflict) {
			t.Fatalf("call %d: expected ItemConflictError, got %v", i, err)
		}
	}

	runs, _ := s.ListRuns(ctx, job.DefaultName)
	if len(runs) != 0 {
		t.Errorf("Expected no runs, got %d", len(runs))
	}
	if s.created.Load() != 0 {
		t.Error("Expected no job to be created")
	}
}

func TestHostNotReady(t *testing.T) {
	ctx := context.Background()
	s := &countingStore{MemoryStore: store.NewMemoryStore()}

	notLoaded := NewFactory(host.New(s.MemoryStore, zerolog.Nop()), s, job.DefaultName, zerolog.Nop())
	if _, err := notLoaded.ForContainer(ctx, "abc", "", time.Now()); !errors.Is(err, ErrHostNotReady) {
		t.Errorf("Expected ErrHostNotReady, got %v", err)
	}

	var nilHost *host.Host
	withNilHost := NewFactory(nilHost, s, job.DefaultName, zerolog.Nop())
	if _, err := withNilHost.ForImage(ctx, "abc", "", time.Now()); !errors.Is(err, ErrHostNotReady) {
		t.Errorf("Expected ErrHostNotReady, got %v", err)
	}

	noHost := NewFactory(nil, s, job.DefaultName, zerolog.Nop())
	if _, err := noHost.GetOrCreateJob(ctx); !errors.Is(err, ErrHostNotReady) {
		t.Errorf("Expected ErrHostNotReady, got %v", err)
	}

	if s.created.Load() != 0 {
		t.Error("Expected no job to be created")
	}
}

func TestStorageErrorPropagates(t *testing.T) {
	boom := errors.New("etcd unavailable")
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	f, _ := newLoadedFactory(t, s)
	s.loadErr = boom

	if _, err := f.ForContainer(context.Background(), "abc", "", time.Now()); !errors.Is(err, boom) {
		t.Errorf("Expected storage error, got %v", err)
	}
}

func TestStartupHookPrewarmsJob(t *testing.T) {
	s := &countingStore{MemoryStore: store.NewMemoryStore()}
	h := host.New(s.MemoryStore, zerolog.Nop())
	h.RegisterKind(job.Kind, job.NewDecoder(s, zerolog.Nop()))
	f := NewFactory(h, s, job.DefaultName, zerolog.Nop())
	f.RegisterStartupHook(h)

	if err := h.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.created.Load() != 1 {
		t.Errorf("Expected the hook to create the job, got %d creations", s.created.Load())
	}
	if _, ok := h.GetItem(job.DefaultName).(*job.BuildReferenceJob); !ok {
		t.Error("Expected job to be registered after startup")
	}
}

func TestStartupHookLogsFailures(t *testing.T) {
	s := &countingStore{MemoryStore: store.NewMemoryStore(), loadErr: errors.New("etcd unavailable")}
	h := host.New(s.MemoryStore, zerolog.Nop())

	var buf bytes.Buffer
	f := NewFactory(h, s, job.DefaultName, zerolog.New(&buf))
	f.RegisterStartupHook(h)

	if err := h.Load(context.Background()); err != nil {
		t.Fatalf("Expected Load to succeed despite hook failure, got %v", err)
	}
	if !strings.Contains(buf.String(), "etcd unavailable") || !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("Expected error to be logged, got %q", buf.String())
	}
}
