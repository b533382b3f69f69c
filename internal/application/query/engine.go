// Package query implements the federated attendance report engine: scope
// resolution, aggregation, ranking and enrichment over a pluggable backend.
package query

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campus-hub/campus-data-hub/config"
	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/report"
	"github.com/campus-hub/campus-data-hub/pkg/logger"
)

// Engine runs the two-phase attendance queries. Ranking, truncation and
// percent computation always happen here, never in a backend, so switching
// the backend never changes report semantics.
type Engine struct {
	backend  report.Backend
	enricher report.Enricher

	defaultTopN      int
	scopeConcurrency int
	enrichTimeout    time.Duration

	log *logger.Logger
}

// NewEngine creates an engine over the given backend and enricher.
func NewEngine(backend report.Backend, enricher report.Enricher, cfg config.ReportConfig, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Default()
	}
	concurrency := cfg.ScopeConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	topN := cfg.DefaultTopN
	if topN <= 0 {
		topN = 10
	}
	return &Engine{
		backend:          backend,
		enricher:         enricher,
		defaultTopN:      topN,
		scopeConcurrency: concurrency,
		enrichTimeout:    cfg.EnrichTimeout,
		log:              log.With(logger.Component("query"), logger.BackendName(backend.Name())),
	}
}

// aggregateRows runs phase 1 and phase 2: resolve the event scope of every
// session concurrently, then aggregate attendance per student. Rows whose
// denominator is zero are filtered, not an error.
func (e *Engine) aggregateRows(ctx context.Context, sessionIDs []catalog.SourceID, period report.Period) ([]report.Row, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	perSession := make([][]catalog.SourceID, len(sessionIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.scopeConcurrency)
	for i, sessionID := range sessionIDs {
		g.Go(func() error {
			events, err := e.backend.EventsForSession(gctx, sessionID, period)
			if err != nil {
				return err
			}
			perSession[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[catalog.SourceID]struct{})
	var eventIDs []catalog.SourceID
	for _, events := range perSession {
		for _, id := range events {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			eventIDs = append(eventIDs, id)
		}
	}
	if len(eventIDs) == 0 {
		return nil, nil
	}

	aggregates, err := e.backend.AggregateAttendance(ctx, eventIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]report.Row, 0, len(aggregates))
	for _, agg := range aggregates {
		if agg.TotalCount == 0 {
			continue
		}
		rows = append(rows, report.Row{
			StudentID:         agg.StudentID,
			GroupID:           agg.GroupID,
			AttendedCount:     agg.AttendedCount,
			TotalCount:        agg.TotalCount,
			AttendancePercent: report.Percent(agg.AttendedCount, agg.TotalCount),
		})
	}
	return rows, nil
}

// enrich attaches descriptive details to each row. Enrichment is best
// effort: a lookup failure or a missing student leaves Details nil and the
// report intact.
func (e *Engine) enrich(ctx context.Context, rows []report.Row) {
	if e.enricher == nil || len(rows) == 0 {
		return
	}
	if e.enrichTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.enrichTimeout)
		defer cancel()
	}

	ids := make([]catalog.SourceID, len(rows))
	for i, row := range rows {
		ids[i] = row.StudentID
	}

	details, err := e.enricher.StudentDetails(ctx, ids)
	if err != nil {
		e.log.Warn("enrichment degraded", logger.Err(err), logger.RowCount(len(rows)))
		return
	}
	for i := range rows {
		if d, ok := details[rows[i].StudentID]; ok {
			rows[i].Details = &d
		}
	}
}

// sortRows orders rows with the given rule.
func sortRows(rows []report.Row, less func(a, b report.Row) bool) {
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}
