package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/auto-dns/docker-traceability/internal/domain"
)

func TestMemoryStoreLoadOrCreateItem(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := domain.Item{Name: "docker-traceability", Kind: domain.ItemKindBuildReferenceJob, Created: time.Unix(100, 0)}
	got, created, err := s.LoadOrCreateItem(ctx, first)
	if err != nil {
		t.Fatalf("LoadOrCreateItem failed: %v", err)
	}
	if !created {
		t.Error("Expected item to be created")
	}
	if got != first {
		t.Errorf("Got %+v, want %+v", got, first)
	}

	second := domain.Item{Name: "docker-traceability", Kind: "freestyle", Created: time.Unix(200, 0)}
	got, created, err = s.LoadOrCreateItem(ctx, second)
	if err != nil {
		t.Fatalf("LoadOrCreateItem failed: %v", err)
	}
	if created {
		t.Error("Expected existing item to be loaded")
	}
	if got.Kind != domain.ItemKindBuildReferenceJob {
		t.Errorf("Expected stored kind to win, got %q", got.Kind)
	}

	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(items))
	}
}

func TestMemoryStoreRuns(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	found, err := s.FindRun(ctx, "job", domain.RunTypeContainer, "abc")
	if err != nil {
		t.Fatalf("FindRun failed: %v", err)
	}
	if found != nil {
		t.Fatalf("Expected no run, got %+v", found)
	}

	c, err := s.CreateRun(ctx, domain.Run{JobName: "job", Type: domain.RunTypeContainer, DockerID: "abc", Name: "web"})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if c.Number != 1 {
		t.Errorf("Expected run number 1, got %d", c.Number)
	}

	// Same id but different type is a different docker object.
	i, err := s.CreateRun(ctx, domain.Run{JobName: "job", Type: domain.RunTypeImage, DockerID: "abc"})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if i.Number != 2 {
		t.Errorf("Expected run number 2, got %d", i.Number)
	}

	again, err := s.CreateRun(ctx, domain.Run{JobName: "job", Type: domain.RunTypeContainer, DockerID: "abc", Name: "other"})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if again.Number != 1 || again.Name != "web" {
		t.Errorf("Expected existing run to be returned, got %+v", again)
	}

	found, err = s.FindRun(ctx, "job", domain.RunTypeImage, "abc")
	if err != nil {
		t.Fatalf("FindRun failed: %v", err)
	}
	if found == nil || found.Number != 2 {
		t.Errorf("Expected image run #2, got %+v", found)
	}

	runs, err := s.ListRuns(ctx, "job")
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].Number != 1 || runs[1].Number != 2 {
		t.Errorf("Runs out of order: %+v", runs)
	}

	other, err := s.ListRuns(ctx, "other-job")
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected runs to be scoped per job, got %d", len(other))
	}
}

func TestMemoryStoreReadsDoNotCreateJobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if run, err := s.FindRun(ctx, "ghost", domain.RunTypeImage, "x"); err != nil || run != nil {
		t.Fatalf("FindRun = %+v, %v", run, err)
	}
	runs, err := s.ListRuns(ctx, "ghost")
	if err != nil || runs == nil || len(runs) != 0 {
		t.Fatalf("ListRuns = %v, %v", runs, err)
	}
	if _, ok := s.jobs.Lookup("ghost"); ok {
		t.Error("Expected reads of an unknown job not to create an entry")
	}
}

func TestMemoryStoreConcurrentCreateRun(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.CreateRun(ctx, domain.Run{JobName: "job", Type: domain.RunTypeImage, DockerID: "sha256:1"}); err != nil {
				t.Errorf("CreateRun failed: %v", err)
			}
		}()
	}
	wg.Wait()

	runs, _ := s.ListRuns(ctx, "job")
	if len(runs) != 1 {
		t.Errorf("Expected exactly 1 run, got %d", len(runs))
	}
}
