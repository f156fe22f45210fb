package storage

import (
	"context"
	"testing"

	"popstat/internal/model"
)

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, run := range []model.RunRecord{
		{VersionedRecord: CurrentVersion(), ID: "a", CreatedAtUTC: "2026-01-01T00:00:00Z"},
		{VersionedRecord: CurrentVersion(), ID: "b", CreatedAtUTC: "2026-01-02T00:00:00Z"},
	} {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}

	run, ok, err := store.GetRun(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("get run: ok=%v err=%v", ok, err)
	}
	if run.CreatedAtUTC != "2026-01-01T00:00:00Z" {
		t.Fatalf("unexpected run: %+v", run)
	}
	if _, ok, _ := store.GetRun(ctx, "missing"); ok {
		t.Fatal("expected missing run")
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "b" || runs[1].ID != "a" {
		t.Fatalf("unexpected run order: %+v", runs)
	}

	if err := store.SaveRun(ctx, model.RunRecord{}); err == nil {
		t.Fatal("expected missing id error")
	}
}

func TestMemoryStoreSummariesAreCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.StatisticSummary{{TypeTag: "stat.colless", Samples: []float64{1, 2, 3}}}
	if err := store.SaveSummaries(ctx, "run-1", input); err != nil {
		t.Fatalf("save summaries: %v", err)
	}
	input[0].Samples[0] = 99

	output, ok, err := store.GetSummaries(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("get summaries: ok=%v err=%v", ok, err)
	}
	if output[0].Samples[0] != 1 {
		t.Fatalf("stored summaries share caller memory: %+v", output)
	}
	output[0].Samples[1] = 99

	again, _, _ := store.GetSummaries(ctx, "run-1")
	if again[0].Samples[1] != 2 {
		t.Fatalf("returned summaries share store memory: %+v", again)
	}
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	if err := store.SaveRun(context.Background(), model.RunRecord{ID: "a"}); err == nil {
		t.Fatal("expected uninitialized store error")
	}
}
