package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"popstat/internal/config"
	"popstat/internal/model"
	"popstat/internal/sim"
	"popstat/internal/stats"
	"popstat/internal/storage"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
)

var stdout io.Writer = os.Stdout

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "config":
		return runConfig(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "report":
		return runReport(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "experiments":
		return runExperiments(ctx, args[1:])
	case "statistics":
		return runStatistics(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "run configuration XML path (default document when empty)")
	outDir := fs.String("out", runsDir, "artifact output directory")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	seed := fs.Int64("seed", 0, "override the configured seed (0 keeps it)")
	replicates := fs.Int("replicates", 1, "number of replicate runs with consecutive seeds")
	notes := fs.String("notes", "", "experiment notes for replicate runs")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "popstat.db", "sqlite database path")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := setLogLevel(*logLevel); err != nil {
		return err
	}
	if *replicates <= 0 {
		return errors.New("replicates must be > 0")
	}

	doc, err := loadDocument(*configPath)
	if err != nil {
		return err
	}
	if *seed != 0 {
		doc.Params.Seed = *seed
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()
	if err := store.Init(ctx); err != nil {
		return err
	}

	metrics := sim.NewMetrics()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		return err
	}

	baseID := *runID
	if baseID == "" {
		baseID = uuid.NewString()
	}
	exp := stats.Experiment{
		ID:           baseID,
		Notes:        *notes,
		Replicates:   *replicates,
		StartedAtUTC: time.Now().UTC().Format(time.RFC3339),
	}
	var replicated [][]model.StatisticSummary
	baseSeed := doc.Params.Seed
	for i := 0; i < *replicates; i++ {
		id := baseID
		if *replicates > 1 {
			id = fmt.Sprintf("%s-rep%d", baseID, i+1)
		}
		doc.Params.Seed = baseSeed + int64(i)
		summaries, err := executeRun(ctx, doc, id, *outDir, store, metrics)
		if err != nil {
			return err
		}
		exp.RunIDs = append(exp.RunIDs, id)
		exp.Completed++
		replicated = append(replicated, summaries)
	}

	if *replicates > 1 {
		exp.CompletedAtUTC = time.Now().UTC().Format(time.RFC3339)
		exp.Replicated = stats.SummarizeReplicates(replicated)
		if err := stats.WriteExperiment(*outDir, exp); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "experiment_id=%s replicates=%d\n", exp.ID, exp.Completed)
		for _, r := range exp.Replicated {
			fmt.Fprintf(stdout, "  %s runs=%d mean=%.6f variance=%.6f\n", r.TypeTag, r.Runs, r.Mean, r.Variance)
		}
	}
	return nil
}

// executeRun runs one replicate and persists its record, summaries and
// artifacts.
func executeRun(ctx context.Context, doc sim.Document, runID, outDir string, store storage.Store, metrics *sim.Metrics) ([]model.StatisticSummary, error) {
	runner, err := sim.NewRunner(doc, metrics)
	if err != nil {
		return nil, err
	}
	result, err := runner.Run(ctx, runID)
	if err != nil {
		return nil, err
	}

	var configXML bytes.Buffer
	if err := config.Encode(&configXML, doc.Block()); err != nil {
		return nil, err
	}
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	record := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              result.RunID,
		CreatedAtUTC:    createdAt,
		PopulationSize:  doc.Params.Size,
		Generations:     result.Generations,
		Seed:            doc.Params.Seed,
		ConfigXML:       configXML.String(),
	}
	summaries := make([]model.StatisticSummary, len(result.Summaries))
	statistics := make([]string, len(result.Summaries))
	for i, s := range result.Summaries {
		s.VersionedRecord = storage.CurrentVersion()
		summaries[i] = s
		statistics[i] = s.TypeTag
	}
	if err := store.SaveRun(ctx, record); err != nil {
		return nil, err
	}
	if err := store.SaveSummaries(ctx, record.ID, summaries); err != nil {
		return nil, err
	}

	runDir, err := stats.WriteRunArtifacts(outDir, stats.RunArtifacts{
		RunID:     record.ID,
		ConfigXML: record.ConfigXML,
		Summaries: summaries,
	})
	if err != nil {
		return nil, err
	}
	if err := stats.AppendRunIndex(outDir, stats.RunIndexEntry{
		RunID:          record.ID,
		PopulationSize: record.PopulationSize,
		Generations:    record.Generations,
		Seed:           record.Seed,
		Statistics:     statistics,
		CreatedAtUTC:   createdAt,
	}); err != nil {
		return nil, err
	}

	fmt.Fprintf(stdout, "run_id=%s generations=%d trees=%d statistics=%d artifacts=%s\n",
		record.ID, record.Generations, result.TreesSampled, len(summaries), filepath.Clean(runDir))
	return summaries, nil
}

func runConfig(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	outPath := fs.String("out", "", "write the default document to this path instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	doc, err := sim.DefaultDocument()
	if err != nil {
		return err
	}
	if *outPath != "" {
		return config.WriteFile(*outPath, doc.Block())
	}
	return config.Encode(stdout, doc.Block())
}

func runRuns(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	outDir := fs.String("out", runsDir, "artifact output directory")
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	entries, err := stats.ListRunIndex(*outDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}
	if len(entries) > *limit {
		entries = entries[:*limit]
	}
	if *jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "run_id=%s created_at=%s size=%d generations=%d seed=%d statistics=%d\n",
			e.RunID, e.CreatedAtUTC, e.PopulationSize, e.Generations, e.Seed, len(e.Statistics))
	}
	return nil
}

func runReport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	outDir := fs.String("out", runsDir, "artifact directory used when the store has no record")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "popstat.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("report requires --run-id")
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()
	if err := store.Init(ctx); err != nil {
		return err
	}

	summaries, ok, err := store.GetSummaries(ctx, *runID)
	if err != nil {
		return err
	}
	if ok {
		for i, s := range summaries {
			if i > 0 {
				fmt.Fprintln(stdout)
			}
			fmt.Fprint(stdout, s.Report)
		}
		return nil
	}

	report, ok, err := stats.ReadSummary(*outDir, *runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run not found: %s", *runID)
	}
	fmt.Fprint(stdout, report)
	return nil
}

func runExport(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", runsDir, "artifact directory")
	to := fs.String("to", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}
	if *latest {
		entries, err := stats.ListRunIndex(*outDir)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errors.New("no runs available to export")
		}
		*runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRun(*outDir, *runID, *to)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported run_id=%s to=%s\n", *runID, filepath.Clean(exportedDir))
	return nil
}

func runExperiments(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("experiments", flag.ContinueOnError)
	outDir := fs.String("out", runsDir, "artifact directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	exps, err := stats.ListExperiments(*outDir)
	if err != nil {
		return err
	}
	if len(exps) == 0 {
		fmt.Fprintln(stdout, "no experiments found")
		return nil
	}
	for _, exp := range exps {
		fmt.Fprintf(stdout, "experiment_id=%s started_at=%s completed=%d/%d\n",
			exp.ID, exp.StartedAtUTC, exp.Completed, exp.Replicates)
	}
	return nil
}

func runStatistics(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("statistics", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, tag := range stats.ListTypes() {
		s, err := stats.New(tag, stats.Env{Feed: sim.NewTreeFeed(stats.MaxSerialEpochs)})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%-36s %s\n", tag, s.Description())
	}
	return nil
}

func setLogLevel(name string) error {
	level, err := log.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	log.SetLevel(level)
	return nil
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: popstatctl <run|config|runs|report|export|experiments|statistics> [flags]", msg)
}
