// Package search is a thin client for an OpenSearch-compatible HTTP API.
// It speaks plain REST (no engine SDK), which keeps it working against
// both OpenSearch and Elasticsearch single-node setups. Endpoints used:
//   - GET  / (reachability ping)
//   - HEAD /{index} (existence check)
//   - PUT  /{index} (index creation with explicit mappings)
//   - PUT  /{index}/_doc/{id} (document write)
//   - POST /{index}/_search (queries and aggregations)
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// do sends one request and returns the status code and response body.
// Transport problems surface as errors; HTTP-level failures are left to
// the caller, which knows which statuses it expects.
func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("search %s %s: marshal body: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("search %s %s: build request: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set(headerContentType, mimeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("search %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("search %s %s: read body: %w", method, path, err)
	}
	return resp.StatusCode, raw, nil
}

// Ping checks that the engine answers on its root endpoint.
func (c *Client) Ping(ctx context.Context) error {
	status, _, err := c.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("search ping: status %d", status)
	}
	return nil
}

// IndexExists checks for the index via HEAD.
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	status, _, err := c.do(ctx, http.MethodHead, "/"+index, nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("search head %s: status %d", index, status)
	}
}

// CreateIndex creates the index with the given settings/mappings body.
func (c *Client) CreateIndex(ctx context.Context, index string, mapping json.RawMessage) error {
	status, raw, err := c.do(ctx, http.MethodPut, "/"+index, mapping)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("search create %s: status %d: %s", index, status, truncateBody(raw))
	}
	return nil
}

// IndexDoc writes one document under an explicit ID. 200 (update) and
// 201 (create) both count as success.
func (c *Client) IndexDoc(ctx context.Context, index, id string, doc any) error {
	status, raw, err := c.do(ctx, http.MethodPut, "/"+index+"/_doc/"+id, doc)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("search index %s/%s: status %d: %s", index, id, status, truncateBody(raw))
	}
	return nil
}

type searchHit struct {
	Source json.RawMessage `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

// Search runs a _search body against the index.
func (c *Client) Search(ctx context.Context, index string, body any) (*searchResponse, error) {
	status, raw, err := c.do(ctx, http.MethodPost, "/"+index+"/_search", body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("search query %s: status %d: %s", index, status, truncateBody(raw))
	}
	var resp searchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("search query %s: decode response: %w", index, err)
	}
	return &resp, nil
}

func truncateBody(raw []byte) string {
	const max = 256
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
