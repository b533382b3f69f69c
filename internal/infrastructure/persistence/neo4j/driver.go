// Package neo4j implements the graph mirror of the relational source and
// the graph-native report backend. Nodes are merged by the cross-store
// source_id key, so the mirror can be rebuilt any number of times without
// duplicating nodes or edges.
package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconf "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"github.com/campus-hub/campus-data-hub/config"
	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
)

// Store wraps the bolt driver with scoped session acquisition. Sessions
// are opened per operation and always closed on exit; nothing is shared
// across concurrent operations except the driver's own pool.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewStore connects to the graph store and verifies connectivity.
func NewStore(ctx context.Context, cfg config.Neo4jConfig) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""),
		func(c *neo4jconf.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
			if cfg.ConnectionTimeout > 0 {
				c.SocketConnectTimeout = cfg.ConnectionTimeout
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to create driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: failed to verify connectivity: %w", err)
	}

	return &Store{driver: driver, database: cfg.Database}, nil
}

// Close releases the driver and its connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Ping checks connectivity to the graph store.
func (s *Store) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

// execWrite runs one write transaction in a session scoped to the call.
func (s *Store) execWrite(ctx context.Context, op, cypher string, params map[string]any) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		return shared.NewStoreError("neo4j", op, err)
	}
	return nil
}

// readRecords runs one read transaction and collects all records.
func (s *Store) readRecords(ctx context.Context, op, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	records, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return result.Collect(ctx)
	})
	if err != nil {
		return nil, shared.NewStoreError("neo4j", op, err)
	}
	return records.([]*neo4j.Record), nil
}
