package neo4j

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRAPH MIRROR
// Bulk merge-by-key writer used by the sync pipeline. One MergeNodes call
// is one stage's bulk operation: UNWIND over the row batch, MERGE on
// (label, source_id), unconditional SET of scalar properties, then MERGE of
// each parent edge. Parents are verified first; a missing parent fails the
// stage instead of silently dropping rows the way a bare MATCH would.
// ══════════════════════════════════════════════════════════════════════════════

// NodeRow is one entity row in canonical attribute-map form.
type NodeRow struct {
	SourceID int64

	// Props are the scalar attributes written last-write-wins.
	Props map[string]any

	// ParentIDs align with MergeRequest.Parents.
	ParentIDs []int64
}

// ParentRef names the already-mirrored node type a row links to.
type ParentRef struct {
	Label   string
	RelType string

	// FromParent orients the edge (parent)-[rel]->(child) when true,
	// (child)-[rel]->(parent) otherwise.
	FromParent bool
}

// MergeRequest is one bulk node upsert plus its relationship edges.
type MergeRequest struct {
	Label   string
	Parents []ParentRef
	Rows    []NodeRow
}

// EdgeRow is one relationship fact between two mirrored nodes, used for
// edge-only merges such as attendance.
type EdgeRow struct {
	FromID int64
	ToID   int64
	Props  map[string]any
}

// EdgeMergeRequest merges edges between two existing node types.
type EdgeMergeRequest struct {
	FromLabel string
	ToLabel   string
	RelType   string
	Rows      []EdgeRow
}

// Mirror writes the graph projection of the relational source.
type Mirror struct {
	store *Store
}

// NewMirror creates a graph mirror writer.
func NewMirror(store *Store) *Mirror {
	return &Mirror{store: store}
}

var graphIdentRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// checkIdent guards against label/relationship injection. Labels cannot be
// bind parameters in Cypher, so they are validated instead.
func checkIdent(kind, name string) error {
	if !graphIdentRe.MatchString(name) {
		return fmt.Errorf("neo4j: invalid %s identifier %q", kind, name)
	}
	return nil
}

// MergeNodes performs one stage's bulk upsert.
func (m *Mirror) MergeNodes(ctx context.Context, req MergeRequest) error {
	if err := checkIdent("label", req.Label); err != nil {
		return err
	}
	for _, p := range req.Parents {
		if err := checkIdent("label", p.Label); err != nil {
			return err
		}
		if err := checkIdent("relationship", p.RelType); err != nil {
			return err
		}
	}
	if len(req.Rows) == 0 {
		return nil
	}

	rows := make([]map[string]any, len(req.Rows))
	for i, r := range req.Rows {
		parents := make([]any, len(r.ParentIDs))
		for j, id := range r.ParentIDs {
			parents[j] = id
		}
		rows[i] = map[string]any{
			"source_id": r.SourceID,
			"props":     r.Props,
			"parents":   parents,
		}
	}
	params := map[string]any{"rows": rows}

	for i, p := range req.Parents {
		if err := m.verifyParents(ctx, req.Label, p.Label, i, rows); err != nil {
			return err
		}
	}

	var b strings.Builder
	b.WriteString("UNWIND $rows AS row\n")
	fmt.Fprintf(&b, "MERGE (n:%s {source_id: row.source_id})\n", req.Label)
	b.WriteString("SET n += row.props\n")
	for i, p := range req.Parents {
		fmt.Fprintf(&b, "WITH n, row\nMATCH (p%d:%s {source_id: row.parents[%d]})\n", i, p.Label, i)
		if p.FromParent {
			fmt.Fprintf(&b, "MERGE (p%d)-[:%s]->(n)\n", i, p.RelType)
		} else {
			fmt.Fprintf(&b, "MERGE (n)-[:%s]->(p%d)\n", p.RelType, i)
		}
	}

	return m.store.execWrite(ctx, "merge "+req.Label+" nodes", b.String(), params)
}

// verifyParents fails the stage when any row references a parent node that
// has not been mirrored.
func (m *Mirror) verifyParents(ctx context.Context, label, parentLabel string, idx int, rows []map[string]any) error {
	cypher := fmt.Sprintf(`
		UNWIND $rows AS row
		OPTIONAL MATCH (p:%s {source_id: row.parents[%d]})
		WITH row, p WHERE p IS NULL
		RETURN row.source_id AS orphan LIMIT 1`, parentLabel, idx)

	records, err := m.store.readRecords(ctx, "verify "+label+" parents", cypher, map[string]any{"rows": rows})
	if err != nil {
		return err
	}
	if len(records) > 0 {
		orphan, _ := records[0].Get("orphan")
		return fmt.Errorf("%w: %s %v references missing %s",
			shared.ErrParentMissing, label, orphan, parentLabel)
	}
	return nil
}

// MergeEdges performs an edge-only bulk merge between existing nodes.
// Both endpoints must already be mirrored; a missing endpoint fails the
// call the same way a missing parent fails MergeNodes.
func (m *Mirror) MergeEdges(ctx context.Context, req EdgeMergeRequest) error {
	if err := checkIdent("label", req.FromLabel); err != nil {
		return err
	}
	if err := checkIdent("label", req.ToLabel); err != nil {
		return err
	}
	if err := checkIdent("relationship", req.RelType); err != nil {
		return err
	}
	if len(req.Rows) == 0 {
		return nil
	}

	rows := make([]map[string]any, len(req.Rows))
	for i, r := range req.Rows {
		rows[i] = map[string]any{"from": r.FromID, "to": r.ToID, "props": r.Props}
	}
	params := map[string]any{"rows": rows}

	check := fmt.Sprintf(`
		UNWIND $rows AS row
		OPTIONAL MATCH (a:%s {source_id: row.from})
		OPTIONAL MATCH (b:%s {source_id: row.to})
		WITH row, a, b WHERE a IS NULL OR b IS NULL
		RETURN row.from AS fromId, row.to AS toId LIMIT 1`, req.FromLabel, req.ToLabel)

	records, err := m.store.readRecords(ctx, "verify "+req.RelType+" endpoints", check, params)
	if err != nil {
		return err
	}
	if len(records) > 0 {
		from, _ := records[0].Get("fromId")
		to, _ := records[0].Get("toId")
		return fmt.Errorf("%w: %s edge (%v)->(%v) has an unmirrored endpoint",
			shared.ErrParentMissing, req.RelType, from, to)
	}

	cypher := fmt.Sprintf(`
		UNWIND $rows AS row
		MATCH (a:%s {source_id: row.from})
		MATCH (b:%s {source_id: row.to})
		MERGE (a)-[r:%s]->(b)
		SET r += row.props`, req.FromLabel, req.ToLabel, req.RelType)

	return m.store.execWrite(ctx, "merge "+req.RelType+" edges", cypher, params)
}

// Counts returns node counts per label and edge counts per relationship
// type. Used by sync health reporting and by the idempotence checks in
// operational tooling.
func (m *Mirror) Counts(ctx context.Context) (nodes map[string]int64, edges map[string]int64, err error) {
	nodeRecords, err := m.store.readRecords(ctx, "count nodes", `
		MATCH (n) UNWIND labels(n) AS label
		RETURN label, count(*) AS cnt`, nil)
	if err != nil {
		return nil, nil, err
	}
	nodes = make(map[string]int64, len(nodeRecords))
	for _, rec := range nodeRecords {
		label, _ := rec.Get("label")
		cnt, _ := rec.Get("cnt")
		nodes[label.(string)] = cnt.(int64)
	}

	edgeRecords, err := m.store.readRecords(ctx, "count edges", `
		MATCH ()-[r]->() RETURN type(r) AS rel, count(*) AS cnt`, nil)
	if err != nil {
		return nil, nil, err
	}
	edges = make(map[string]int64, len(edgeRecords))
	for _, rec := range edgeRecords {
		rel, _ := rec.Get("rel")
		cnt, _ := rec.Get("cnt")
		edges[rel.(string)] = cnt.(int64)
	}
	return nodes, edges, nil
}
