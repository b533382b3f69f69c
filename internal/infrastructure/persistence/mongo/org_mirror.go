// Package mongo implements the nested organizational document mirror: one
// document per university with its institutes, departments and specialty
// names denormalized inside.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campus-hub/campus-data-hub/config"
	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
)

const orgCollection = "universities"

// NewClient connects to the document store and verifies the connection.
func NewClient(ctx context.Context, cfg config.MongoConfig) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.User != "" {
		opts.SetAuth(options.Credential{Username: cfg.User, Password: cfg.Password})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: failed to connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: failed to ping: %w", err)
	}
	return client, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ORG DOCUMENT MIRROR
// ══════════════════════════════════════════════════════════════════════════════

// DepartmentDoc nests the specialty names offered by one department.
type DepartmentDoc struct {
	Name        string   `bson:"name"`
	Specialties []string `bson:"specialties"`
}

// InstituteDoc nests the departments of one institute.
type InstituteDoc struct {
	Name        string          `bson:"name"`
	Departments []DepartmentDoc `bson:"departments"`
}

// UniversityDoc is the root document, one per university.
type UniversityDoc struct {
	SourceID   int64          `bson:"_id"`
	Name       string         `bson:"name"`
	Institutes []InstituteDoc `bson:"institutes"`
}

// OrgMirror rebuilds the universities collection from the snapshot.
type OrgMirror struct {
	collection *mongo.Collection
}

// NewOrgMirror creates the mirror over the configured database.
func NewOrgMirror(client *mongo.Client, database string) *OrgMirror {
	return &OrgMirror{collection: client.Database(database).Collection(orgCollection)}
}

// BuildDocs assembles the nested document tree from flat snapshot rows.
// Row order is preserved within each nesting level.
func BuildDocs(
	universities []catalog.University,
	institutes []catalog.Institute,
	departments []catalog.Department,
	specialties []catalog.Specialty,
) []UniversityDoc {
	specsByDept := make(map[catalog.SourceID][]string)
	for _, s := range specialties {
		specsByDept[s.DepartmentID] = append(specsByDept[s.DepartmentID], s.Name)
	}

	deptsByInst := make(map[catalog.SourceID][]DepartmentDoc)
	for _, d := range departments {
		deptsByInst[d.InstituteID] = append(deptsByInst[d.InstituteID], DepartmentDoc{
			Name:        d.Name,
			Specialties: specsByDept[d.ID],
		})
	}

	instsByUni := make(map[catalog.SourceID][]InstituteDoc)
	for _, i := range institutes {
		instsByUni[i.UniversityID] = append(instsByUni[i.UniversityID], InstituteDoc{
			Name:        i.Name,
			Departments: deptsByInst[i.ID],
		})
	}

	docs := make([]UniversityDoc, 0, len(universities))
	for _, u := range universities {
		docs = append(docs, UniversityDoc{
			SourceID:   int64(u.ID),
			Name:       u.Name,
			Institutes: instsByUni[u.ID],
		})
	}
	return docs
}

// Rebuild drops the owned collection and reinserts the document tree.
// Documents are keyed by university source id, so a rebuild from the same
// snapshot produces the same collection.
func (m *OrgMirror) Rebuild(ctx context.Context, docs []UniversityDoc) error {
	if err := m.collection.Drop(ctx); err != nil {
		return shared.NewStoreError("mongo", "drop universities collection", err)
	}
	if len(docs) == 0 {
		return nil
	}

	payload := make([]any, len(docs))
	for i, doc := range docs {
		payload[i] = doc
	}
	if _, err := m.collection.InsertMany(ctx, payload); err != nil {
		return shared.NewStoreError("mongo", "insert university documents", err)
	}
	return nil
}

// Count reports the number of mirrored university documents.
func (m *OrgMirror) Count(ctx context.Context) (int64, error) {
	n, err := m.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, shared.NewStoreError("mongo", "count university documents", err)
	}
	return n, nil
}
