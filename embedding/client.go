// Package embedding talks to the external embedding service named by
// config.Config.EmbeddingServiceURL. It enforces the service's concurrency and rate
// limits client-side, retries transient failures with backoff, and caches single-query
// embeddings so repeat search queries never re-hit the service.
package embedding

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bobinette/research/errors"
	"github.com/bobinette/research/kvcache"
	"github.com/bobinette/research/log"
)

const maxConcurrentRequests = 2
const minRequestGap = 100 * time.Millisecond
const maxBackoff = 10 * time.Second

type embedRequest struct {
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Client is the concrete research.EmbeddingService, fronting the embedding service's
// single /embed endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	logger     log.Logger

	semaphore chan struct{}
	mu        sync.Mutex
	lastReq   time.Time

	queryCache *kvcache.Cache // optional; nil disables query caching
}

// Options configures a Client beyond the required baseURL/timeout/retries.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	QueryCache *kvcache.Cache
	Logger     log.Logger
}

// New builds a Client rate-limited to maxConcurrentRequests in flight and minRequestGap
// apart, matching the embedding service's own documented limits.
func New(opts Options) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: maxConcurrentRequests,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		baseURL:    opts.BaseURL,
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
		semaphore:  make(chan struct{}, maxConcurrentRequests),
		queryCache: opts.QueryCache,
	}
}

// GetEmbeddings fetches embeddings for texts in a single request, preserving order.
func (c *Client) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, errors.New("embed request cancelled", errors.WithKind(errors.KindCancelled), errors.WithCause(ctx.Err()))
	}

	c.mu.Lock()
	if elapsed := time.Since(c.lastReq); elapsed < minRequestGap {
		time.Sleep(minRequestGap - elapsed)
	}
	c.lastReq = time.Now()
	c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		embeddings, err := c.doRequest(ctx, texts)
		if err == nil {
			return embeddings, nil
		}
		lastErr = err
		if c.logger != nil {
			c.logger.Warnf("embedding request attempt %d/%d failed: %v", attempt+1, c.maxRetries, err)
		}

		if attempt < c.maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, errors.New("embed request cancelled", errors.WithKind(errors.KindCancelled), errors.WithCause(ctx.Err()))
			}
		}
	}

	return nil, errors.EmbeddingUnavailable(fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr))
}

// GetQueryEmbedding embeds a single free-text query, transparently caching the result
// under a truncated hash of the query text so identical queries skip the embedding
// service entirely.
func (c *Client) GetQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	key := "embed:" + queryCacheKey(query)

	if c.queryCache != nil {
		if raw, ok, err := c.queryCache.Get(ctx, key); err == nil && ok {
			var vec []float32
			if err := json.Unmarshal(raw, &vec); err == nil {
				return vec, nil
			}
		}
	}

	embeddings, err := c.GetEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, errors.EmbeddingUnavailable(fmt.Errorf("empty embedding response"))
	}
	vec := embeddings[0]

	if c.queryCache != nil {
		if raw, err := json.Marshal(vec); err == nil {
			_ = c.queryCache.Set(ctx, key, raw)
		}
	}

	return vec, nil
}

func queryCacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])[:16]
}

func (c *Client) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(raw))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.Embeddings, nil
}

// Health probes the embedding service's liveness endpoint, used by /search/health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.EmbeddingUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.EmbeddingUnavailable(fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

// BuildEmbeddingText produces the SPECTER2-format text used for document embedding:
// title alone if there is no abstract, otherwise "title [SEP] abstract".
func BuildEmbeddingText(title, abstract string) string {
	if abstract == "" {
		return title
	}
	return title + " [SEP] " + abstract
}
