// Package main runs the campus data hub server: the attendance report API
// plus the background mirror synchronization scheduler.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/campus-hub/campus-data-hub/config"
	"github.com/campus-hub/campus-data-hub/internal/application/query"
	syncapp "github.com/campus-hub/campus-data-hub/internal/application/sync"
	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/report"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/elastic"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/mongo"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/neo4j"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/postgres"
	redisstore "github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/redis"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/scheduler"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/campus-hub/campus-data-hub/internal/interface/http"
	"github.com/campus-hub/campus-data-hub/internal/interface/http/handlers"
	"github.com/campus-hub/campus-data-hub/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level: logger.ParseLevel(cfg.Observability.LogLevel),
	})
	log.Info("starting campus data hub",
		logger.String("environment", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─────────────────────────────────────────────────────────────────────────
	// Stores
	// ─────────────────────────────────────────────────────────────────────────
	pg, err := postgres.NewConnection(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	graph, err := neo4j.NewStore(ctx, cfg.Neo4j)
	if err != nil {
		return err
	}
	defer graph.Close(context.Background())

	cache, err := redisstore.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer cache.Close()

	search, err := elastic.NewClient(cfg.Elastic)
	if err != nil {
		return err
	}

	var docStore *mongo.OrgMirror
	checks := map[string]handlers.PingFunc{
		"postgres": pg.Ping,
		"neo4j":    graph.Ping,
		"redis":    func(ctx context.Context) error { return cache.Ping(ctx).Err() },
	}
	var orgDocs syncapp.OrgDocsRebuilder
	if cfg.Mongo.Enabled {
		docClient, err := mongo.NewClient(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		defer docClient.Disconnect(context.Background())
		docStore = mongo.NewOrgMirror(docClient, cfg.Mongo.Database)
		checks["mongo"] = func(ctx context.Context) error { return docClient.Ping(ctx, nil) }
		orgDocs = func(ctx context.Context, u []catalog.University, i []catalog.Institute, d []catalog.Department, s []catalog.Specialty) error {
			return docStore.Rebuild(ctx, mongo.BuildDocs(u, i, d, s))
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Sync pipeline
	// ─────────────────────────────────────────────────────────────────────────
	source := syncapp.SourceFunc(func(ctx context.Context, fn func(syncapp.Readers) error) error {
		return pg.WithSnapshot(ctx, func(q postgres.Querier) error {
			repo := postgres.NewSnapshotRepo(q)
			return fn(syncapp.Readers{Catalog: repo, Students: repo, Schedule: repo, Docs: repo})
		})
	})
	studentIndex := redisstore.NewStudentIndex(cache)
	sessionTypes := redisstore.NewSessionTypeIndex(cache)

	pipeline := syncapp.NewPipeline(syncapp.Deps{
		Source:       source,
		Graph:        neo4j.NewMirror(graph),
		StudentIndex: studentIndex,
		SessionTypes: sessionTypes,
		SessionIndex: elastic.NewSessionIndex(search, cfg.Elastic.Index),
		OrgDocs:      orgDocs,
		StageRetries: cfg.Sync.StageRetries,
		Logger:       log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// Query engine
	// ─────────────────────────────────────────────────────────────────────────
	// The analytical reports are traversal-shaped, so they always read the
	// graph regardless of which backend answers attendance aggregation.
	graphBackend := neo4j.NewReportBackend(graph)
	var backend report.Backend
	switch cfg.Report.Backend {
	case config.BackendNeo4j:
		backend = graphBackend
	default:
		backend = postgres.NewReportBackend(pg)
	}
	engine := query.NewEngine(backend, neo4j.NewEnricher(graph), cfg.Report, log)
	resolver := elastic.NewSearchResolver(search, cfg.Elastic)

	// ─────────────────────────────────────────────────────────────────────────
	// Scheduler
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(slog.Default())
	if cfg.Sync.Enabled {
		if err := sched.Register(
			jobs.NewSyncMirrorsJob(pipeline, cfg.Sync.JobTimeout),
			scheduler.NewIntervalSchedule(cfg.Sync.Interval),
		); err != nil {
			return err
		}
		if err := sched.Register(
			jobs.NewRebuildStudentIndexJob(source, studentIndex, cfg.Sync.JobTimeout),
			scheduler.NewIntervalSchedule(cfg.Sync.RebuildCacheInterval),
		); err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// HTTP server
	// ─────────────────────────────────────────────────────────────────────────
	server := httpserver.NewServer(cfg.HTTP, httpserver.Dependencies{
		Reports:   handlers.NewReportHandler(resolver, sessionTypes, engine, log),
		Analytics: handlers.NewAnalyticsHandler(graphBackend, graphBackend, log),
		Students:  handlers.NewStudentHandler(studentIndex),
		Health:    handlers.NewHealthHandler(checks, cfg.App.Version),
		Logger:    log,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
