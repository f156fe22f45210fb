package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"popstat/internal/model"
)

func TestWriteAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	runID := "run-123"
	artifacts := RunArtifacts{
		RunID:     runID,
		ConfigXML: "<popstat></popstat>\n",
		Summaries: []model.StatisticSummary{
			{TypeTag: TypeColless, Identifier: "Colless' index", Report: "== Colless' index (stat.colless) ==\n", Samples: []float64{1, 2}},
			{TypeTag: TypeCoalescentIntervals, Identifier: "Coalescent interval times", Report: "== Coalescent interval times ==\n"},
		},
	}

	runDir, err := WriteRunArtifacts(baseDir, artifacts)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	for _, file := range []string{"config.xml", "summary.txt", "series.json"} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(runDir, "series.json"))
	if err != nil {
		t.Fatalf("read series: %v", err)
	}
	var series []seriesEntry
	if err := json.Unmarshal(data, &series); err != nil {
		t.Fatalf("decode series: %v", err)
	}
	if len(series) != 1 || series[0].Type != TypeColless || len(series[0].Samples) != 2 {
		t.Fatalf("unexpected series: %+v", series)
	}

	summary, ok, err := ReadSummary(baseDir, runID)
	if err != nil || !ok {
		t.Fatalf("read summary: ok=%v err=%v", ok, err)
	}
	if !strings.Contains(summary, "stat.colless") || !strings.Contains(summary, "Coalescent interval times") {
		t.Fatalf("unexpected summary: %q", summary)
	}

	exportedDir, err := ExportRun(baseDir, runID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range []string{"config.xml", "summary.txt", "series.json"} {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestRunIndexAppendAndList(t *testing.T) {
	baseDir := t.TempDir()

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list empty index: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty index, got %+v", entries)
	}

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "a", CreatedAtUTC: "2026-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("append a: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "b", CreatedAtUTC: "2026-01-02T00:00:00Z"}); err != nil {
		t.Fatalf("append b: %v", err)
	}
	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "a", Generations: 9, CreatedAtUTC: "2026-01-03T00:00:00Z"}); err != nil {
		t.Fatalf("replace a: %v", err)
	}

	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].RunID != "a" || entries[0].Generations != 9 || entries[1].RunID != "b" {
		t.Fatalf("unexpected index order: %+v", entries)
	}
}
