package query

import (
	"context"
	"time"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/report"
	"github.com/campus-hub/campus-data-hub/pkg/logger"
)

// FindWorstAttendees ranks students by ascending attendance percent over
// the resolved scope and returns the bottom topN. Truncation happens
// strictly after the full sort, so the returned slice is always the global
// worst, not a per-partition worst. topN <= 0 applies the configured
// default.
func (e *Engine) FindWorstAttendees(ctx context.Context, sessionIDs []catalog.SourceID, topN int, period report.Period) ([]report.Row, error) {
	started := time.Now()

	rows, err := e.aggregateRows(ctx, sessionIDs, period)
	if err != nil {
		return nil, err
	}

	sortRows(rows, report.WorstFirst)
	if topN <= 0 {
		topN = e.defaultTopN
	}
	if len(rows) > topN {
		rows = rows[:topN]
	}

	e.enrich(ctx, rows)

	e.log.Info("worst attendees report built",
		logger.Int("sessions", len(sessionIDs)),
		logger.RowCount(len(rows)),
		logger.Latency(time.Since(started)))
	return rows, nil
}
