// Package ollama is a thin client for a local Ollama-compatible model
// server. Endpoints used:
//   - GET  /api/tags (reachability probe, installed model listing)
//   - POST /api/generate (non-streaming text generation)
//   - POST /api/pull (model download)
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/QIRoss/ai-orchestrator/internal/config"
	"github.com/QIRoss/ai-orchestrator/internal/model"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/apperrors"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/logger"
	"github.com/QIRoss/ai-orchestrator/internal/pkg/metrics"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"
)

// Failure types recorded in the ollama_errors_total metric.
const (
	errTypeConnection = "connection"
	errTypeTimeout    = "timeout"
	errTypeHTTP       = "http_error"
	errTypeDecode     = "decode"
)

// Client talks to the first reachable URL out of a candidate list. The
// working URL is cached after a successful probe and forgotten again on
// any connection failure, so a server that moves between restarts (host
// vs. compose networking) is re-discovered without a process restart.
type Client struct {
	urls        []string
	temperature float64
	maxTokens   int

	probeClient *http.Client
	genClient   *http.Client
	pullClient  *http.Client

	mu      sync.Mutex
	baseURL string // empty until a probe succeeds
}

func NewClient(cfg config.OllamaConfig) *Client {
	return &Client{
		urls:        cfg.URLs,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		probeClient: &http.Client{Timeout: cfg.ProbeTimeout},
		genClient:   &http.Client{Timeout: cfg.GenerateTimeout},
		pullClient:  &http.Client{Timeout: cfg.PullTimeout},
	}
}

// GenerateResult carries the generated text plus the token counts the
// server reports for it.
type GenerateResult struct {
	Text      string
	TokensIn  int
	TokensOut int
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

type tagsResponse struct {
	Models []model.ModelInfo `json:"models"`
}

type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

type pullResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Probe walks the candidate URLs and caches the first one that answers
// GET /api/tags with 200.
func (c *Client) Probe(ctx context.Context) (string, error) {
	for _, url := range c.urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/api/tags", nil)
		if err != nil {
			continue
		}
		resp, err := c.probeClient.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			c.mu.Lock()
			c.baseURL = url
			c.mu.Unlock()
			logger.Info("✅ model server found", "url", url)
			return url, nil
		}
	}
	return "", fmt.Errorf("no model server reachable (tried %d urls)", len(c.urls))
}

// Available reports whether a working URL is currently cached. It does
// not touch the network.
func (c *Client) Available() bool {
	return c.BaseURL() != ""
}

// BaseURL returns the cached working URL, or "" when none is known.
func (c *Client) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

func (c *Client) resetURL() {
	c.mu.Lock()
	c.baseURL = ""
	c.mu.Unlock()
}

// current returns the cached URL, probing first if none is cached.
func (c *Client) current(ctx context.Context) (string, error) {
	c.mu.Lock()
	url := c.baseURL
	c.mu.Unlock()
	if url != "" {
		return url, nil
	}
	return c.Probe(ctx)
}

// Generate runs a single non-streaming completion. Transport failures
// come back as typed errors: unreachable server maps to 503 (and drops
// the cached URL so the next call re-probes), a blown deadline maps to
// 504, an upstream 4xx is surfaced as an invalid request and anything
// else upstream as a bad gateway.
func (c *Client) Generate(ctx context.Context, modelName, prompt string) (*GenerateResult, error) {
	url, err := c.current(ctx)
	if err != nil {
		metrics.OllamaErrors.WithLabelValues(errTypeConnection).Inc()
		return nil, apperrors.NewModelUnavailable("model server not reachable", err)
	}

	body, err := json.Marshal(generateRequest{
		Model:  modelName,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": c.temperature,
			"num_predict": c.maxTokens,
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(err)
	}
	req.Header.Set(headerContentType, mimeJSON)

	resp, err := c.genClient.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.upstreamStatusError(resp)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		metrics.OllamaErrors.WithLabelValues(errTypeDecode).Inc()
		return nil, apperrors.New(apperrors.ErrUpstream, "decode model server response", err)
	}
	return &GenerateResult{
		Text:      genResp.Response,
		TokensIn:  genResp.PromptEvalCount,
		TokensOut: genResp.EvalCount,
	}, nil
}

// ListModels returns the models installed on the server.
func (c *Client) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	url, err := c.current(ctx)
	if err != nil {
		metrics.OllamaErrors.WithLabelValues(errTypeConnection).Inc()
		return nil, apperrors.NewModelUnavailable("model server not reachable", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/api/tags", nil)
	if err != nil {
		return nil, apperrors.Wrap(err)
	}
	resp, err := c.probeClient.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.upstreamStatusError(resp)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		metrics.OllamaErrors.WithLabelValues(errTypeDecode).Inc()
		return nil, apperrors.New(apperrors.ErrUpstream, "decode model list", err)
	}
	return tags.Models, nil
}

// Pull asks the server to download a model. Blocks until the server
// reports a final status, which can take minutes for a cold model.
func (c *Client) Pull(ctx context.Context, name string) (string, error) {
	url, err := c.current(ctx)
	if err != nil {
		metrics.OllamaErrors.WithLabelValues(errTypeConnection).Inc()
		return "", apperrors.NewModelUnavailable("model server not reachable", err)
	}

	body, err := json.Marshal(pullRequest{Name: name, Stream: false})
	if err != nil {
		return "", apperrors.Wrap(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.Wrap(err)
	}
	req.Header.Set(headerContentType, mimeJSON)

	resp, err := c.pullClient.Do(req)
	if err != nil {
		return "", c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.upstreamStatusError(resp)
	}

	var pull pullResponse
	if err := json.NewDecoder(resp.Body).Decode(&pull); err != nil {
		metrics.OllamaErrors.WithLabelValues(errTypeDecode).Inc()
		return "", apperrors.New(apperrors.ErrUpstream, "decode pull response", err)
	}
	return pull.Status, nil
}

func (c *Client) classifyTransportError(err error) *apperrors.AppError {
	var ne net.Error
	if (errors.As(err, &ne) && ne.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		metrics.OllamaErrors.WithLabelValues(errTypeTimeout).Inc()
		return apperrors.New(apperrors.ErrModelTimeout, "model server timed out", err)
	}
	// Anything else on the wire means the cached URL is stale.
	c.resetURL()
	metrics.OllamaErrors.WithLabelValues(errTypeConnection).Inc()
	return apperrors.NewModelUnavailable("model server connection failed", err)
}

// upstreamStatusError maps a non-200 from the server. A 4xx is almost
// always a bad model name or malformed prompt, so it is returned to the
// caller as their error; 5xx stays a gateway-side failure.
func (c *Client) upstreamStatusError(resp *http.Response) *apperrors.AppError {
	metrics.OllamaErrors.WithLabelValues(errTypeHTTP).Inc()
	detail := readErrorDetail(resp.Body)
	msg := fmt.Sprintf("model server returned status %d", resp.StatusCode)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return apperrors.New(apperrors.ErrInvalidRequest, msg, nil)
	}
	return apperrors.New(apperrors.ErrUpstream, msg, nil)
}

// readErrorDetail pulls the "error" field out of an Ollama error body,
// falling back to the raw payload.
func readErrorDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var e errorResponse
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return e.Error
	}
	return string(raw)
}
