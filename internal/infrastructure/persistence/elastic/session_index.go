package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION INDEX BUILDER
// Rebuild recreates the index and bulk-loads the snapshot. Document ids are
// the session source ids, so loading the same snapshot twice yields the
// same index.
// ══════════════════════════════════════════════════════════════════════════════

const sessionMapping = `{
	"mappings": {
		"properties": {
			"session_id":       {"type": "long"},
			"topic":            {"type": "text"},
			"course_name":      {"type": "text"},
			"description":      {"type": "text"},
			"keywords":         {"type": "text"},
			"duration_minutes": {"type": "integer"},
			"session_type_id":  {"type": "long"}
		}
	}
}`

// SessionIndex writes the full-text projection of lecture sessions.
type SessionIndex struct {
	client *elasticsearch.Client
	index  string
}

// NewSessionIndex creates a session index builder for the named index.
func NewSessionIndex(client *elasticsearch.Client, index string) *SessionIndex {
	return &SessionIndex{client: client, index: index}
}

// Rebuild drops and recreates the index, then bulk-loads the documents.
func (x *SessionIndex) Rebuild(ctx context.Context, docs []catalog.SessionDocument) error {
	if err := x.recreate(ctx); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	var body bytes.Buffer
	for _, doc := range docs {
		meta := fmt.Sprintf(`{"index":{"_id":%q}}`, strconv.FormatInt(int64(doc.SessionID), 10))
		body.WriteString(meta)
		body.WriteByte('\n')
		payload, err := json.Marshal(doc)
		if err != nil {
			return shared.NewStoreError("elastic", "encode session document", err)
		}
		body.Write(payload)
		body.WriteByte('\n')
	}

	res, err := x.client.Bulk(bytes.NewReader(body.Bytes()),
		x.client.Bulk.WithContext(ctx),
		x.client.Bulk.WithIndex(x.index),
		x.client.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return shared.NewStoreError("elastic", "bulk index sessions", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return shared.NewStoreError("elastic", "bulk index sessions", responseError(res.Body, res.Status()))
	}

	var result struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Error *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return shared.NewStoreError("elastic", "decode bulk response", err)
	}
	if result.Errors {
		for _, item := range result.Items {
			for _, op := range item {
				if op.Error != nil {
					return shared.NewStoreError("elastic", "bulk index sessions",
						fmt.Errorf("%s: %s", op.Error.Type, op.Error.Reason))
				}
			}
		}
		return shared.NewStoreError("elastic", "bulk index sessions", fmt.Errorf("partial bulk failure"))
	}
	return nil
}

// recreate drops the index if present and creates it with the mapping.
func (x *SessionIndex) recreate(ctx context.Context) error {
	del, err := x.client.Indices.Delete([]string{x.index},
		x.client.Indices.Delete.WithContext(ctx),
		x.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return shared.NewStoreError("elastic", "delete session index", err)
	}
	del.Body.Close()
	if del.IsError() {
		return shared.NewStoreError("elastic", "delete session index",
			fmt.Errorf("unexpected status %s", del.Status()))
	}

	create, err := x.client.Indices.Create(x.index,
		x.client.Indices.Create.WithContext(ctx),
		x.client.Indices.Create.WithBody(strings.NewReader(sessionMapping)),
	)
	if err != nil {
		return shared.NewStoreError("elastic", "create session index", err)
	}
	defer create.Body.Close()
	if create.IsError() {
		return shared.NewStoreError("elastic", "create session index",
			responseError(create.Body, create.Status()))
	}
	return nil
}

// responseError summarizes an error response body into one error value.
func responseError(body io.Reader, status string) error {
	raw, _ := io.ReadAll(io.LimitReader(body, 2048))
	if len(raw) == 0 {
		return fmt.Errorf("status %s", status)
	}
	return fmt.Errorf("status %s: %s", status, string(raw))
}
