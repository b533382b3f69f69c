// Package jobs contains the scheduled mirror maintenance jobs.
package jobs

import (
	"context"
	"time"

	syncapp "github.com/campus-hub/campus-data-hub/internal/application/sync"
)

// SyncMirrorsJob runs the full cross-store synchronization: graph mirror
// stages plus the index rebuilds.
type SyncMirrorsJob struct {
	pipeline *syncapp.Pipeline
	timeout  time.Duration
}

// NewSyncMirrorsJob creates the job. timeout bounds one full run; zero
// means no bound.
func NewSyncMirrorsJob(pipeline *syncapp.Pipeline, timeout time.Duration) *SyncMirrorsJob {
	return &SyncMirrorsJob{pipeline: pipeline, timeout: timeout}
}

func (j *SyncMirrorsJob) Name() string { return "sync_mirrors" }

func (j *SyncMirrorsJob) Description() string {
	return "Full synchronization of graph, cache, search and document mirrors"
}

func (j *SyncMirrorsJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	_, err := j.pipeline.RunAll(ctx)
	return err
}
