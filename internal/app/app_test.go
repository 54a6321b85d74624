package app

import (
	"context"
	"testing"
	"time"

	"github.com/auto-dns/docker-traceability/internal/config"
	"github.com/auto-dns/docker-traceability/internal/domain"
	"github.com/rs/zerolog"
)

func memoryConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			JobName: "build-refs",
			Storage: config.StorageMemory,
		},
	}
}

func TestRecordAndListRuns(t *testing.T) {
	a, err := New(memoryConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()
	ctx := context.Background()

	ts := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	c, err := a.Record(ctx, domain.RunTypeContainer, "c1", "web", ts)
	if err != nil {
		t.Fatalf("Record container failed: %v", err)
	}
	i, err := a.Record(ctx, domain.RunTypeImage, "sha256:1", "nginx", ts)
	if err != nil {
		t.Fatalf("Record image failed: %v", err)
	}
	if c.Type != domain.RunTypeContainer || i.Type != domain.RunTypeImage {
		t.Errorf("Unexpected types: %s, %s", c.Type, i.Type)
	}
	if c.JobName != "build-refs" {
		t.Errorf("JobName = %q", c.JobName)
	}

	runs, err := a.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].DockerID != "c1" || runs[1].DockerID != "sha256:1" {
		t.Errorf("Unexpected runs: %+v", runs)
	}

	if _, err := a.Record(ctx, domain.RunType("VOLUME"), "v", "", ts); err == nil {
		t.Error("Expected error for invalid run type")
	}
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	cfg := memoryConfig()
	cfg.App.Storage = "sqlite"
	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Error("Expected error for unknown storage")
	}
}

func TestCloseWithoutRun(t *testing.T) {
	a, err := New(memoryConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
