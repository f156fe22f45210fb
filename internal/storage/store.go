package storage

import (
	"context"

	"popstat/internal/model"
)

// Store persists finished runs and the summaries their statistics produced.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns every stored run, newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveSummaries(ctx context.Context, runID string, summaries []model.StatisticSummary) error
	GetSummaries(ctx context.Context, runID string) ([]model.StatisticSummary, bool, error)
}
