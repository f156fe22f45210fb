package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"popstat/internal/model"
)

const experimentsDir = "experiments"

// Experiment groups replicate runs of one configuration with different
// seeds.
type Experiment struct {
	ID             string             `json:"id"`
	Notes          string             `json:"notes,omitempty"`
	Replicates     int                `json:"replicates"`
	Completed      int                `json:"completed"`
	StartedAtUTC   string             `json:"started_at_utc,omitempty"`
	CompletedAtUTC string             `json:"completed_at_utc,omitempty"`
	RunIDs         []string           `json:"run_ids,omitempty"`
	Replicated     []ReplicateSummary `json:"replicated,omitempty"`
}

// ReplicateSummary is the spread of one statistic's per-run mean across
// replicates.
type ReplicateSummary struct {
	TypeTag  string  `json:"type"`
	Runs     int     `json:"runs"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

// SummarizeReplicates averages each statistic's sample mean over runs.
// Statistics without a scalar series are skipped; output follows first
// appearance.
func SummarizeReplicates(runs [][]model.StatisticSummary) []ReplicateSummary {
	var order []string
	means := make(map[string][]float64)
	for _, summaries := range runs {
		for _, s := range summaries {
			if len(s.Samples) == 0 {
				continue
			}
			if _, seen := means[s.TypeTag]; !seen {
				order = append(order, s.TypeTag)
			}
			means[s.TypeTag] = append(means[s.TypeTag], Mean(s.Samples))
		}
	}
	out := make([]ReplicateSummary, 0, len(order))
	for _, tag := range order {
		values := means[tag]
		out = append(out, ReplicateSummary{
			TypeTag:  tag,
			Runs:     len(values),
			Mean:     Mean(values),
			Variance: Variance(values),
		})
	}
	return out
}

func WriteExperiment(baseDir string, exp Experiment) error {
	if exp.ID == "" {
		return fmt.Errorf("experiment id is required")
	}
	path := experimentPath(baseDir, exp.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeJSON(path, exp)
}

func ReadExperiment(baseDir, id string) (Experiment, bool, error) {
	if id == "" {
		return Experiment{}, false, fmt.Errorf("experiment id is required")
	}
	data, err := os.ReadFile(experimentPath(baseDir, id))
	if err != nil {
		if os.IsNotExist(err) {
			return Experiment{}, false, nil
		}
		return Experiment{}, false, err
	}
	var exp Experiment
	if err := json.Unmarshal(data, &exp); err != nil {
		return Experiment{}, false, err
	}
	return exp, true, nil
}

// ListExperiments returns experiments newest first; unstarted ones sort last.
func ListExperiments(baseDir string) ([]Experiment, error) {
	entries, err := os.ReadDir(filepath.Join(baseDir, experimentsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return []Experiment{}, nil
		}
		return nil, err
	}

	exps := make([]Experiment, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		exp, ok, err := ReadExperiment(baseDir, entry.Name())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		exps = append(exps, exp)
	}
	sort.Slice(exps, func(i, j int) bool {
		switch {
		case exps[i].StartedAtUTC == exps[j].StartedAtUTC:
			return exps[i].ID < exps[j].ID
		case exps[i].StartedAtUTC == "":
			return false
		case exps[j].StartedAtUTC == "":
			return true
		default:
			return exps[i].StartedAtUTC > exps[j].StartedAtUTC
		}
	})
	return exps, nil
}

func experimentPath(baseDir, id string) string {
	return filepath.Join(baseDir, experimentsDir, id, "experiment.json")
}
