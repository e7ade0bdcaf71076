package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsamuelsen/quotesync/internal/ports"
)

// A sync cycle runs in stages: fetch, verify, apply.
// The collection is only touched in the apply stage, after the fetched
// candidates have been verified, so a failure earlier leaves it unchanged.

// errCyclePanicked marks a recovered panic inside a cycle.
var errCyclePanicked = errors.New("sync cycle panicked")

// CycleStage names a stage of a sync cycle.
type CycleStage string

const (
	StageFetch  CycleStage = "fetch"
	StageVerify CycleStage = "verify"
	StageApply  CycleStage = "apply"
)

// CycleError wraps a sync cycle failure with the stage where it happened.
type CycleError struct {
	Stage CycleStage
	Cause error
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("sync %s failed: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CycleError) Unwrap() error {
	return e.Cause
}

// CycleStageOf extracts the stage from a cycle error.
func CycleStageOf(err error) (CycleStage, bool) {
	var cycleErr *CycleError
	if errors.As(err, &cycleErr) {
		return cycleErr.Stage, true
	}

	return "", false
}

// SyncResult describes one completed sync cycle.
type SyncResult struct {
	// Fetched is the number of candidates the feed returned.
	Fetched int `json:"fetched"`

	// Remote, Kept and Dropped come from domain.MergeStats.
	Remote  int `json:"remote"`
	Kept    int `json:"kept"`
	Dropped int `json:"dropped"`

	// Total is the collection size after the merge.
	Total int `json:"total"`

	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}

// cycle is one fetch-then-merge attempt.
type cycle struct {
	feed   ports.QuoteFeed
	repo   *QuoteRepository
	logger *slog.Logger
}

// run recovers panics from the feed or from change listeners and reports
// them as a *CycleError for the stage that was running.
func (c *cycle) run(ctx context.Context, now func() time.Time) (result SyncResult, err error) {
	start := now()
	stage := StageFetch

	defer func() {
		if v := recover(); v != nil {
			result = SyncResult{}
			err = &CycleError{Stage: stage, Cause: fmt.Errorf("%w: %v", errCyclePanicked, v)}
		}
	}()

	c.logger.DebugContext(ctx, "fetching candidates")

	candidates, err := c.feed.FetchCandidates(ctx)
	if err != nil {
		return SyncResult{}, &CycleError{Stage: StageFetch, Cause: err}
	}

	stage = StageVerify
	c.logger.DebugContext(ctx, "verifying candidates", slog.Int("count", len(candidates)))

	for i, q := range candidates {
		if err := q.Validate(); err != nil {
			return SyncResult{}, &CycleError{
				Stage: StageVerify,
				Cause: fmt.Errorf("candidate %d: %w", i, err),
			}
		}
	}

	stage = StageApply
	merged, stats := c.repo.Merge(ctx, candidates)

	return SyncResult{
		Fetched:  len(candidates),
		Remote:   stats.Remote,
		Kept:     stats.Kept,
		Dropped:  stats.Dropped,
		Total:    len(merged),
		Duration: now().Sub(start),
		At:       start,
	}, nil
}
