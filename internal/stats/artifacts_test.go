package stats

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"canbot/internal/model"
)

func TestWriteFitnessCSVFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFitnessCSV(&buf, []float64{0.1, 0.25, 0.5}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	want := "generation,score\n0,0.1\n1,0.25\n2,0.5\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}

	series, err := ReadFitnessCSV(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(series) != 3 || series[2] != 0.5 {
		t.Fatalf("unexpected series: %v", series)
	}
}

func TestReadFitnessCSVRejectsMalformedRows(t *testing.T) {
	if _, err := ReadFitnessCSV(strings.NewReader("generation\n0\n")); err == nil {
		t.Fatal("expected header error")
	}
	if _, err := ReadFitnessCSV(strings.NewReader("generation,score\n0,abc\n")); err == nil {
		t.Fatal("expected parse error")
	}
	series, err := ReadFitnessCSV(strings.NewReader(""))
	if err != nil || len(series) != 0 {
		t.Fatalf("expected empty series, got %v err=%v", series, err)
	}
}

func TestWriteRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	artifacts := RunArtifacts{
		RunID:            "run-123",
		Config:           model.RunConfig{GridWidth: 11, GridHeight: 11, PopulationSize: 4, Generations: 2},
		BestByGeneration: []float64{0.5, 0.6, 0.7},
		Diagnostics:      []model.GenerationDiagnostics{{Generation: 0, BestFitness: 0.5}},
		FinalBestFitness: 0.7,
		Champion:         model.GenomeRecord{ID: "run-123/g2-i1", RunID: "run-123", Rules: "0123"},
		ChampionListing:  "(+Empty) (^Empty) (>Empty) (vEmpty) (<Empty) -> Stay\n",
	}

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	for _, file := range []string{configFile, fitnessFile, diagnosticsFile, championFile, championText} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	series, ok, err := ReadFitnessSeries(baseDir, "run-123")
	if err != nil || !ok {
		t.Fatalf("read fitness series ok=%t err=%v", ok, err)
	}
	if len(series) != 3 || series[0] != 0.5 {
		t.Fatalf("unexpected series: %v", series)
	}
	champion, ok, err := ReadChampion(baseDir, "run-123")
	if err != nil || !ok || champion.Rules != "0123" {
		t.Fatalf("unexpected champion %+v ok=%t err=%v", champion, ok, err)
	}
	cfg, ok, err := ReadRunConfig(baseDir, "run-123")
	if err != nil || !ok || cfg.PopulationSize != 4 {
		t.Fatalf("unexpected config %+v ok=%t err=%v", cfg, ok, err)
	}

	if _, ok, err := ReadFitnessSeries(baseDir, "missing"); ok || err != nil {
		t.Fatalf("expected missing series, ok=%t err=%v", ok, err)
	}
	if _, err := WriteRunArtifacts(baseDir, RunArtifacts{}); err == nil {
		t.Fatal("expected error without run id")
	}
}

func TestRunIndexNewestFirstAndUpsert(t *testing.T) {
	baseDir := t.TempDir()
	entries := []RunIndexEntry{
		{RunID: "a", CreatedAtUTC: "2024-01-01T00:00:00Z", FinalBestFitness: 0.1},
		{RunID: "b", CreatedAtUTC: "2024-01-03T00:00:00Z"},
		{RunID: "c", CreatedAtUTC: "2024-01-02T00:00:00Z"},
		{RunID: "a", CreatedAtUTC: "2024-01-01T00:00:00Z", FinalBestFitness: 0.9},
	}
	for _, entry := range entries {
		if err := AppendRunIndex(baseDir, entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(index) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(index))
	}
	if index[0].RunID != "b" || index[1].RunID != "c" || index[2].RunID != "a" {
		t.Fatalf("unexpected order: %+v", index)
	}
	if index[2].FinalBestFitness != 0.9 {
		t.Fatalf("expected upserted entry, got %+v", index[2])
	}

	empty, err := ListRunIndex(t.TempDir())
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty index, got %v err=%v", empty, err)
	}
}

func TestRunIndexOrdersFractionalTimestampsChronologically(t *testing.T) {
	baseDir := t.TempDir()
	entries := []RunIndexEntry{
		{RunID: "later", CreatedAtUTC: "2024-01-01T00:00:05.5Z"},
		{RunID: "earlier", CreatedAtUTC: "2024-01-01T00:00:05Z"},
		{RunID: "latest", CreatedAtUTC: "2024-01-01T00:00:06Z"},
	}
	for _, entry := range entries {
		if err := AppendRunIndex(baseDir, entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(index) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(index))
	}
	if index[0].RunID != "latest" || index[1].RunID != "later" || index[2].RunID != "earlier" {
		t.Fatalf("unexpected order: %+v", index)
	}
}
