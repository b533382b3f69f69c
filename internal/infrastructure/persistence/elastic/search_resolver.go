package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/campus-hub/campus-data-hub/config"
	"github.com/campus-hub/campus-data-hub/internal/domain/catalog"
	"github.com/campus-hub/campus-data-hub/internal/domain/shared"
	"github.com/campus-hub/campus-data-hub/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH RESOLVER
// Free text to ordered session ids. Topic outweighs course name outweighs
// description and keywords; fuzziness lets a report request survive typos.
// The store's relevance order is the order the report presents sessions in,
// so it is preserved verbatim.
// ══════════════════════════════════════════════════════════════════════════════

// maxResolvedSessions bounds the scope fan-out a single search can trigger.
const maxResolvedSessions = 100

// SearchResolver implements report.SearchResolver on the search store,
// guarded by a circuit breaker so a flapping store fails fast.
type SearchResolver struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
	breaker *circuitbreaker.Breaker
}

// NewSearchResolver creates a resolver over the given client. Each search
// is bounded by cfg.RequestTimeout; a slow store counts as a breaker
// failure the same way an unreachable one does.
func NewSearchResolver(client *elasticsearch.Client, cfg config.ElasticConfig) *SearchResolver {
	return &SearchResolver{
		client:  client,
		index:   cfg.Index,
		timeout: cfg.RequestTimeout,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:             "elastic-search",
			FailureThreshold: cfg.BreakerThreshold,
			Timeout:          cfg.BreakerTimeout,
		}),
	}
}

// searchBody builds the weighted multi-match query. A zero sessionTypeID
// means no type filter.
func searchBody(term string, sessionTypeID catalog.SourceID) ([]byte, error) {
	query := map[string]any{
		"size":    maxResolvedSessions,
		"_source": []string{"session_id"},
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{
						"multi_match": map[string]any{
							"query":     term,
							"fields":    []string{"topic^3", "course_name^2", "description", "keywords"},
							"fuzziness": "AUTO",
						},
					},
				},
			},
		},
	}
	if sessionTypeID != 0 {
		boolQuery := query["query"].(map[string]any)["bool"].(map[string]any)
		boolQuery["filter"] = []any{
			map[string]any{"term": map[string]any{"session_type_id": int64(sessionTypeID)}},
		}
	}

	return json.Marshal(query)
}

// ResolveSessions runs the search and returns session ids in relevance
// order. A search matching nothing returns shared.ErrScopeEmpty; that is a
// successful round-trip and never trips the breaker.
func (r *SearchResolver) ResolveSessions(ctx context.Context, term string, sessionTypeID catalog.SourceID) ([]catalog.SourceID, error) {
	body, err := searchBody(term, sessionTypeID)
	if err != nil {
		return nil, shared.NewStoreError("elastic", "encode search query", err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var ids []catalog.SourceID
	err = r.breaker.Execute(ctx, func(ctx context.Context) error {
		res, err := r.client.Search(
			r.client.Search.WithContext(ctx),
			r.client.Search.WithIndex(r.index),
			r.client.Search.WithBody(bytes.NewReader(body)),
		)
		if err != nil {
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			return responseError(res.Body, res.Status())
		}

		var result struct {
			Hits struct {
				Hits []struct {
					Source struct {
						SessionID int64 `json:"session_id"`
					} `json:"_source"`
				} `json:"hits"`
			} `json:"hits"`
		}
		if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
			return err
		}

		ids = make([]catalog.SourceID, 0, len(result.Hits.Hits))
		for _, hit := range result.Hits.Hits {
			ids = append(ids, catalog.SourceID(hit.Source.SessionID))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return nil, shared.NewStoreError("elastic", "resolve sessions", shared.ErrStoreUnavailable)
		}
		return nil, shared.NewStoreError("elastic", "resolve sessions", err)
	}
	if len(ids) == 0 {
		return nil, shared.ErrScopeEmpty
	}
	return ids, nil
}
