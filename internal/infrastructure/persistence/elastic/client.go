// Package elastic implements the full-text session index and the search
// resolver that turns report search terms into ordered session ids.
package elastic

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/campus-hub/campus-data-hub/config"
)

// NewClient creates a search store client. Connectivity is verified lazily
// on first use; the search path is guarded by a circuit breaker, so a store
// that is down at startup must not block the rest of the hub.
func NewClient(cfg config.ElasticConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elastic: failed to create client: %w", err)
	}
	return client, nil
}
