package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/metrics"
	"github.com/iris-assistant/backend/internal/storage/models"
	"github.com/iris-assistant/backend/pkg/apperr"
	"github.com/iris-assistant/backend/pkg/circuitbreaker"
	"github.com/iris-assistant/backend/pkg/logger"
	"github.com/iris-assistant/backend/pkg/retry"
)

// FailureReply is shown to the user whenever the completion fails.
const FailureReply = "Deu um erro aqui, pode repetir?"

type Config struct {
	BaseURL       string
	APIKey        string
	Model         string
	Temperature   float32
	MaxTokens     int
	TimeoutSec    int
	RetryAttempts int
	AssistantName string
	Location      *time.Location
}

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	persona     string
	loc         *time.Location
	now         func() time.Time
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type ChatResponse struct {
	Content string
	Usage   Usage
}

func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	name := cfg.AssistantName
	if name == "" {
		name = "ÍRIS"
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	isNetwork := func(err error) bool {
		return err != nil && apperr.KindOf(err) == apperr.KindNetwork
	}

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      2,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 1,
		IsFailure:        isNetwork,
		OnStateChange: func(name string, _, to circuitbreaker.State) {
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
		Logger: logger.GetLogger(),
	})

	logger.Info("LLM client initialized",
		zap.String("model", cfg.Model),
		zap.String("base_url", oc.BaseURL),
	)

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		persona:     Persona(name),
		loc:         loc,
		now:         time.Now,
		cb:          cb,
		retryConfig: retry.Backoff(cfg.RetryAttempts, isNetwork, logger.GetLogger()),
	}
}

// Chat answers the last turn of history. When extra is non-empty it is
// injected into the last user message as real-time data.
func (c *Client) Chat(ctx context.Context, history []models.Message, extra string) (*ChatResponse, error) {
	if len(history) == 0 {
		return nil, apperr.InvalidInput("Mensagem vazia")
	}

	messages := c.buildMessages(history, extra)
	var result *ChatResponse

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model:       c.model,
				Messages:    messages,
				Temperature: c.temperature,
				MaxTokens:   c.maxTokens,
			})
			if err != nil {
				return classify(ctx, err)
			}
			if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
				return apperr.Network(FailureReply, errors.New("completion returned no choices"))
			}

			result = &ChatResponse{
				Content: resp.Choices[0].Message.Content,
				Usage: Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				},
			}
			return nil
		})
	})
	if circuitbreaker.IsOpen(err) {
		err = apperr.Network(FailureReply, err)
	}
	if err != nil {
		logger.Error("LLM completion failed", zap.String("model", c.model), zap.Error(err))
		return nil, err
	}

	metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(result.Usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(result.Usage.CompletionTokens))
	logger.Debug("LLM completion generated",
		zap.Int("prompt_tokens", result.Usage.PromptTokens),
		zap.Int("completion_tokens", result.Usage.CompletionTokens),
	)

	return result, nil
}

func (c *Client) buildMessages(history []models.Message, extra string) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.persona + "\n\nHOJE É: " + FormatDate(c.now().In(c.loc)) + ".",
	})

	last := len(history) - 1
	for i, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		content := m.Content
		if i == last && role == openai.ChatMessageRoleUser {
			content = Augment(content, extra)
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: content})
	}
	return messages
}

// Augment prefixes a question with search data.
func Augment(question, extra string) string {
	if strings.TrimSpace(extra) == "" {
		return question
	}
	return fmt.Sprintf("DADOS REAIS (HOJE): %s\n\nPERGUNTA: %s", extra, question)
}

func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return apperr.Auth("Chave da API do assistente inválida", fmt.Errorf("failed to create completion: %w", err))
	}
	return apperr.Network(FailureReply, fmt.Errorf("failed to create completion: %w", err))
}
