package search

import (
	"errors"
	"fmt"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	opensearch "github.com/opensearch-project/opensearch-go/v4"
	"go.uber.org/zap"
)

var errNoURLs = errors.New("search: at least one url is required")

// NewElasticsearch connects to an Elasticsearch cluster.
func NewElasticsearch(cfg Config, logger *zap.Logger) (*Index, error) {
	if len(cfg.URLs) == 0 {
		return nil, errNoURLs
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.URLs,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return New(client, "elasticsearch", cfg.IndexPrefix, logger), nil
}

// NewOpenSearch connects to an OpenSearch cluster.
func NewOpenSearch(cfg Config, logger *zap.Logger) (*Index, error) {
	if len(cfg.URLs) == 0 {
		return nil, errNoURLs
	}
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.URLs,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}
	return New(client, "opensearch", cfg.IndexPrefix, logger), nil
}
