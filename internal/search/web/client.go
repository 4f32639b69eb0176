package web

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/metrics"
	"github.com/iris-assistant/backend/internal/providers/httpjson"
	"github.com/iris-assistant/backend/pkg/apperr"
	"github.com/iris-assistant/backend/pkg/logger"
)

const maxContextChars = 1500

type Config struct {
	BaseURL    string
	APIKey     string
	MaxResults int
	Depth      string
	TimeoutSec int
}

type Client struct {
	cfg  Config
	http *httpjson.Client
}

type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type Response struct {
	Answer  string         `json:"answer"`
	Results []SearchResult `json:"results"`
}

// Context is the text handed to the LLM: the direct answer when the
// search engine produced one, else the page contents joined and capped.
func (r *Response) Context() string {
	if r == nil {
		return ""
	}
	if strings.TrimSpace(r.Answer) != "" {
		return r.Answer
	}

	parts := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		parts = append(parts, res.Content)
	}
	joined := strings.Join(parts, "\n")
	if runes := []rune(joined); len(runes) > maxContextChars {
		joined = string(runes[:maxContextChars])
	}
	return joined
}

var statusMessages = apperr.StatusMessages{
	Auth:    "Chave da busca web inválida",
	Default: "Erro na busca web",
}

func NewClient(cfg Config) *Client {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Depth == "" {
		cfg.Depth = "advanced"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:  cfg,
		http: httpjson.New("tavily", time.Duration(cfg.TimeoutSec)*time.Second),
	}
}

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
	MaxResults    int    `json:"max_results"`
}

func (c *Client) Search(ctx context.Context, query string) (*Response, error) {
	if c.cfg.APIKey == "" {
		return nil, apperr.Auth("Busca web não configurada", nil)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.InvalidInput("Consulta vazia")
	}

	logger.Info("Performing web search", zap.String("query", query))
	metrics.WebSearchTriggered.Inc()

	var resp Response
	err := c.http.PostJSON(ctx, c.cfg.BaseURL+"/search", searchRequest{
		APIKey:        c.cfg.APIKey,
		Query:         query,
		SearchDepth:   c.cfg.Depth,
		IncludeAnswer: true,
		MaxResults:    c.cfg.MaxResults,
	}, &resp, statusMessages)
	if err != nil {
		return nil, err
	}

	logger.Info("Web search completed",
		zap.Int("results", len(resp.Results)),
		zap.Bool("answer", resp.Answer != ""),
	)
	return &resp, nil
}

// Lookup runs Search and returns only the LLM context.
func (c *Client) Lookup(ctx context.Context, query string) (string, error) {
	resp, err := c.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return resp.Context(), nil
}
