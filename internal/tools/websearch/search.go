// Package websearch implements a web search tool backed by the
// DuckDuckGo instant answer API, with a small response cache.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/concierge/internal/tools"
)

// maxCacheSize bounds the number of cached responses.
const maxCacheSize = 256

// Config holds configuration for the web search tool.
type Config struct {
	// BaseURL overrides the DuckDuckGo endpoint (used in tests).
	BaseURL string

	// CacheTTL is how long responses are cached.
	CacheTTL time.Duration

	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client
}

// SearchParams are the tool's input parameters.
type SearchParams struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
}

// SearchResult is a single result entry.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchResponse is the tool's JSON output payload.
type SearchResponse struct {
	Query    string         `json:"query"`
	Abstract string         `json:"abstract,omitempty"`
	Results  []SearchResult `json:"results"`
}

type cacheEntry struct {
	payload   string
	expiresAt time.Time
}

// Tool implements tools.Tool for web searching.
type Tool struct {
	config     Config
	httpClient *http.Client
	now        func() time.Time

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

// New creates the web search tool.
func New(config Config) *Tool {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.duckduckgo.com"
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Tool{
		config:     config,
		httpClient: client,
		now:        time.Now,
		cache:      make(map[string]cacheEntry),
	}
}

// Name returns the tool name.
func (t *Tool) Name() string { return "web_search" }

// Description returns the tool description.
func (t *Tool) Description() string {
	return "Search the web for a query and return titles, links, and snippets."
}

// Schema returns the parameter schema.
func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {
				"type": "string",
				"description": "The search query"
			},
			"max_results": {
				"type": "integer",
				"minimum": 1,
				"maximum": 10,
				"description": "Maximum number of results to return"
			}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

// Execute performs the search.
func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var p SearchParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decode search params: %w", err)
	}
	if strings.TrimSpace(p.Query) == "" {
		return &tools.Result{Content: "query is empty", IsError: true}, nil
	}
	if p.MaxResults <= 0 {
		p.MaxResults = 5
	}

	if cached, ok := t.cached(p.Query); ok {
		return &tools.Result{Content: cached}, nil
	}

	resp, err := t.search(ctx, p)
	if err != nil {
		return &tools.Result{Content: fmt.Sprintf("search failed: %v", err), IsError: true}, nil
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode search response: %w", err)
	}
	t.store(p.Query, string(payload))
	return &tools.Result{Content: string(payload)}, nil
}

// ddgResponse is the subset of the instant answer payload we consume.
type ddgResponse struct {
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	Heading       string `json:"Heading"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

func (t *Tool) search(ctx context.Context, p SearchParams) (*SearchResponse, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1",
		strings.TrimRight(t.config.BaseURL, "/"), url.QueryEscape(p.Query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	res, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search backend returned status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var raw ddgResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode search backend response: %w", err)
	}

	out := &SearchResponse{Query: p.Query, Abstract: raw.AbstractText}
	if raw.AbstractURL != "" {
		out.Results = append(out.Results, SearchResult{
			Title:   raw.Heading,
			URL:     raw.AbstractURL,
			Snippet: raw.AbstractText,
		})
	}
	for _, topic := range raw.RelatedTopics {
		if len(out.Results) >= p.MaxResults {
			break
		}
		if topic.FirstURL == "" || topic.Text == "" {
			continue
		}
		out.Results = append(out.Results, SearchResult{
			Title:   topic.Text,
			URL:     topic.FirstURL,
			Snippet: topic.Text,
		})
	}
	return out, nil
}

func (t *Tool) cached(query string) (string, bool) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	entry, ok := t.cache[query]
	if !ok || t.now().After(entry.expiresAt) {
		delete(t.cache, query)
		return "", false
	}
	return entry.payload, true
}

func (t *Tool) store(query, payload string) {
	t.cacheMu.Lock()
	defer t.cacheMu.Unlock()
	if len(t.cache) >= maxCacheSize {
		for k := range t.cache {
			delete(t.cache, k)
			break
		}
	}
	t.cache[query] = cacheEntry{payload: payload, expiresAt: t.now().Add(t.config.CacheTTL)}
}
