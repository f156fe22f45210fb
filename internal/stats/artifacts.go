package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"popstat/internal/model"
)

const runIndexFile = "run_index.json"

// RunArtifacts is everything written to a run directory.
type RunArtifacts struct {
	RunID     string
	ConfigXML string
	Summaries []model.StatisticSummary
}

type RunIndexEntry struct {
	RunID          string   `json:"run_id"`
	PopulationSize int      `json:"population_size"`
	Generations    int      `json:"generations"`
	Seed           int64    `json:"seed"`
	Statistics     []string `json:"statistics"`
	CreatedAtUTC   string   `json:"created_at_utc"`
}

type seriesEntry struct {
	Type       string    `json:"type"`
	Identifier string    `json:"identifier"`
	Samples    []float64 `json:"samples"`
}

// WriteRunArtifacts writes config.xml, summary.txt and series.json under
// baseDir/<run id> and returns that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if strings.TrimSpace(artifacts.RunID) == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(runDir, "config.xml"), []byte(artifacts.ConfigXML), 0o644); err != nil {
		return "", err
	}

	var report strings.Builder
	series := make([]seriesEntry, 0, len(artifacts.Summaries))
	for i, summary := range artifacts.Summaries {
		if i > 0 {
			report.WriteString("\n")
		}
		report.WriteString(summary.Report)
		if summary.Samples != nil {
			series = append(series, seriesEntry{Type: summary.TypeTag, Identifier: summary.Identifier, Samples: summary.Samples})
		}
	}
	if err := os.WriteFile(filepath.Join(runDir, "summary.txt"), []byte(report.String()), 0o644); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "series.json"), series); err != nil {
		return "", err
	}
	return runDir, nil
}

// ReadSummary returns the summary.txt of a run.
func ReadSummary(baseDir, runID string) (string, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, "summary.txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries, newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAtUTC > entries[j].CreatedAtUTC
	})
	return entries, nil
}

// ExportRun copies a run directory's files into outDir/<run id>.
func ExportRun(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}
	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}
	for _, file := range []string{"config.xml", "summary.txt", "series.json"} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
