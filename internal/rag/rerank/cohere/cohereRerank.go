// Package cohere talks to the Cohere v2 rerank endpoint over plain HTTP.
// There is no official Go SDK for it, so this is a small JSON client.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/customHttpClient"
	"github.com/akolanti/AuditRAG/internal/rag/rerank"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
)

const requestTimeout = 30 * time.Second

type Client struct {
	httpClient *http.Client
	apiKey     string
	model      string
	url        string
	logger     *logger_i.Logger
}

// NewFromEnv returns nil when COHERE_API_KEY is unset. A nil reranker is the
// documented "unconfigured" state and triggers the fallback path upstream.
func NewFromEnv() rerank.Reranker {
	apiKey := os.Getenv("COHERE_API_KEY")
	if apiKey == "" {
		return nil
	}
	return &Client{
		httpClient: customHttpClient.New(requestTimeout),
		apiKey:     apiKey,
		model:      config.CohereRerankModel,
		url:        config.CohereRerankURL,
		logger:     logger_i.NewLogger("CohereRerank"),
	}
}

func (c *Client) ModelName() string {
	return c.model
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float32 `json:"relevance_score"`
	} `json:"results"`
	Message string `json:"message,omitempty"`
}

func (c *Client) Rerank(ctx context.Context, query string, candidates []rerank.Candidate, topN int) ([]rerank.Result, error) {
	documents := make([]string, len(candidates))
	for i, cand := range candidates {
		documents[i] = cand.Text
	}

	body, err := json.Marshal(rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rerank response: %w", err)
	}

	var parsed rerankResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank returned %d: %s", resp.StatusCode, parsed.Message)
	}

	results := make([]rerank.Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			c.logger.Warn("Rerank result index out of range", "index", r.Index)
			continue
		}
		results = append(results, rerank.Result{Index: r.Index, Score: r.RelevanceScore})
	}
	return results, nil
}
