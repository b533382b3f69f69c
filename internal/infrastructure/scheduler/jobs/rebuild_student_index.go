package jobs

import (
	"context"
	"time"

	syncapp "github.com/campus-hub/campus-data-hub/internal/application/sync"
	"github.com/campus-hub/campus-data-hub/internal/domain/student"
)

// RebuildStudentIndexJob refreshes only the Redis student index. Much
// cheaper than a full mirror sync, so it can run on a tighter interval.
type RebuildStudentIndexJob struct {
	source  syncapp.Source
	index   student.CacheIndex
	timeout time.Duration
}

// NewRebuildStudentIndexJob creates the job.
func NewRebuildStudentIndexJob(source syncapp.Source, index student.CacheIndex, timeout time.Duration) *RebuildStudentIndexJob {
	return &RebuildStudentIndexJob{source: source, index: index, timeout: timeout}
}

func (j *RebuildStudentIndexJob) Name() string { return "rebuild_student_index" }

func (j *RebuildStudentIndexJob) Description() string {
	return "Fast rebuild of the Redis student cache index"
}

func (j *RebuildStudentIndexJob) Run(ctx context.Context) error {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	return j.source.WithSnapshot(ctx, func(r syncapp.Readers) error {
		records, err := r.Students.CacheRecords(ctx)
		if err != nil {
			return err
		}
		return j.index.Rebuild(ctx, records)
	})
}
