// Package search keeps a full-text index of ideas, public projects and tags
// in Elasticsearch or OpenSearch and runs keyword searches against it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Performer sends a raw request through a search client. Both the
// Elasticsearch and the OpenSearch clients implement it.
type Performer interface {
	Perform(req *http.Request) (*http.Response, error)
}

// Config configures the search client.
type Config struct {
	URLs        []string
	Username    string
	Password    string
	IndexPrefix string
}

// fields lists the searched fields per index, boosted where it matters.
var fields = map[string][]string{
	"ideas":    {"title^2", "content", "tags"},
	"projects": {"name^2", "description", "tags"},
	"tags":     {"name"},
}

// Index is a search index client.
type Index struct {
	client  Performer
	product string
	prefix  string
	logger  *zap.Logger
}

// New wraps a client. product names the engine in errors.
func New(client Performer, product, indexPrefix string, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{client: client, product: product, prefix: indexPrefix, logger: logger}
}

// Index stores doc under id, replacing any previous version.
func (i *Index) Index(ctx context.Context, index, id string, doc any) error {
	_, err := i.do(ctx, http.MethodPut, i.path(index, "_doc", id), doc, false)
	return err
}

// Update merges doc into the stored document id.
func (i *Index) Update(ctx context.Context, index, id string, doc any) error {
	_, err := i.do(ctx, http.MethodPost, i.path(index, "_update", id), map[string]any{"doc": doc}, false)
	return err
}

// Delete removes id. Deleting a missing document succeeds.
func (i *Index) Delete(ctx context.Context, index, id string) error {
	_, err := i.do(ctx, http.MethodDelete, i.path(index, "_doc", id), nil, true)
	return err
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search returns the ids of the best limit matches for query, best first.
func (i *Index) Search(ctx context.Context, index, query string, limit int) ([]string, error) {
	searched, ok := fields[index]
	if !ok {
		searched = []string{"*"}
	}
	body := map[string]any{
		"size":    limit,
		"_source": false,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": searched,
			},
		},
	}
	raw, err := i.do(ctx, http.MethodPost, i.path(index, "_search", ""), body, false)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode %s search response: %w", i.product, err)
	}
	ids := make([]string, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	i.logger.Debug("search",
		zap.String("index", index),
		zap.String("query", query),
		zap.Int("hits", len(ids)),
	)
	return ids, nil
}

func (i *Index) path(index, endpoint, id string) string {
	name := index
	if i.prefix != "" {
		name = i.prefix + "_" + index
	}
	p := "/" + url.PathEscape(name) + "/" + endpoint
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (i *Index) do(ctx context.Context, method, path string, body any, allowNotFound bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", i.product, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", i.product, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := i.client.Perform(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s %s: %w", i.product, method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", i.product, err)
	}
	if allowNotFound && resp.StatusCode == http.StatusNotFound {
		return data, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s %s failed with status %d: %s", i.product, method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
