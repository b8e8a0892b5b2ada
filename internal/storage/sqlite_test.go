package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"canbot/internal/model"
)

func TestSQLiteStoreRunAndGenomeRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "canbot.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	run := sampleRun("run-1", time.Unix(200, 0).UTC())
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	loaded, ok, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatalf("expected run %s", run.ID)
	}
	if !loaded.CreatedAt.Equal(run.CreatedAt) || len(loaded.BestByGeneration) != 3 || loaded.Diagnostics[0].MeanFitness != 0.05 {
		t.Fatalf("unexpected run loaded: %+v", loaded)
	}

	genome := model.GenomeRecord{
		VersionedRecord: CurrentVersion(),
		ID:              "run-1/g2-i4",
		RunID:           "run-1",
		Generation:      2,
		Fitness:         0.3,
		Rules:           "0123456",
	}
	if err := store.SaveGenome(ctx, genome); err != nil {
		t.Fatalf("save genome: %v", err)
	}
	loadedGenome, ok, err := store.GetGenome(ctx, genome.ID)
	if err != nil || !ok {
		t.Fatalf("get genome ok=%t err=%v", ok, err)
	}
	if loadedGenome != genome {
		t.Fatalf("unexpected genome loaded: %+v", loadedGenome)
	}

	if _, ok, err := store.GetGenome(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing genome, ok=%t err=%v", ok, err)
	}
}

func TestSQLiteStoreListRunsAndReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "canbot.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	base := time.Unix(5000, 0).UTC()
	_ = store.SaveRun(ctx, sampleRun("first", base))
	_ = store.SaveRun(ctx, sampleRun("second", base.Add(time.Minute)))
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := NewSQLiteStore(dbPath)
	if err := reopened.Init(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() {
		_ = reopened.Close()
	})
	runs, err := reopened.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "second" || runs[1].ID != "first" {
		t.Fatalf("unexpected runs after reopen: %+v", runs)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"))
	if _, _, err := store.GetRun(context.Background(), "x"); err == nil {
		t.Fatal("expected error before init")
	}
}
