package query

import (
	"context"
	"time"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/report"
	"github.com/campus-hub/campus-data-hub/pkg/logger"
)

// AttendanceSummary returns every student's aggregate over the resolved
// scope, ordered by student id, without truncation.
func (e *Engine) AttendanceSummary(ctx context.Context, sessionIDs []catalog.SourceID, period report.Period) ([]report.Row, error) {
	started := time.Now()

	rows, err := e.aggregateRows(ctx, sessionIDs, period)
	if err != nil {
		return nil, err
	}

	sortRows(rows, report.ByStudentID)
	e.enrich(ctx, rows)

	e.log.Info("attendance summary built",
		logger.Int("sessions", len(sessionIDs)),
		logger.RowCount(len(rows)),
		logger.Latency(time.Since(started)))
	return rows, nil
}
