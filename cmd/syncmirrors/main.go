// Package main runs one full mirror synchronization and exits. Used for
// the initial load and for manual resyncs after source maintenance.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/campus-hub/campus-data-hub/config"
	syncapp "github.com/campus-hub/campus-data-hub/internal/application/sync"
	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/elastic"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/mongo"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/neo4j"
	"github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/postgres"
	redisstore "github.com/campus-hub/campus-data-hub/internal/infrastructure/persistence/redis"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	var orgDocs syncapp.OrgDocsRebuilder
	if cfg.Mongo.Enabled {
		docClient, err := mongo.NewClient(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		defer docClient.Disconnect(context.Background())
		docStore := mongo.NewOrgMirror(docClient, cfg.Mongo.Database)
		orgDocs = func(ctx context.Context, u []catalog.University, i []catalog.Institute, d []catalog.Department, s []catalog.Specialty) error {
			return docStore.Rebuild(ctx, mongo.BuildDocs(u, i, d, s))
		}
	}

	pipeline := syncapp.NewPipeline(syncapp.Deps{
		Source: syncapp.SourceFunc(func(ctx context.Context, fn func(syncapp.Readers) error) error {
			return pg.WithSnapshot(ctx, func(q postgres.Querier) error {
				repo := postgres.NewSnapshotRepo(q)
				return fn(syncapp.Readers{Catalog: repo, Students: repo, Schedule: repo, Docs: repo})
			})
		}),
		Graph:        neo4j.NewMirror(graph),
		StudentIndex: redisstore.NewStudentIndex(cache),
		SessionTypes: redisstore.NewSessionTypeIndex(cache),
		SessionIndex: elastic.NewSessionIndex(search, cfg.Elastic.Index),
		OrgDocs:      orgDocs,
		StageRetries: cfg.Sync.StageRetries,
		Logger:       log,
	})

	stats, err := pipeline.RunAll(ctx)
	if err != nil {
		return err
	}

	log.Info("mirror sync complete",
		logger.RowCount(stats.Rows()),
		logger.Latency(stats.Duration),
	)
	return nil
}
