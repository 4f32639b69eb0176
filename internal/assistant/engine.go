// Package assistant answers one chat turn: classify the utterance, run the
// matching local action or data adapter, or fall back to web search plus
// the LLM, then persist the exchange for logged-in users.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iris-assistant/backend/internal/conversation"
	"github.com/iris-assistant/backend/internal/intent"
	"github.com/iris-assistant/backend/internal/llm"
	"github.com/iris-assistant/backend/internal/metrics"
	"github.com/iris-assistant/backend/internal/providers/cep"
	"github.com/iris-assistant/backend/internal/providers/economy"
	"github.com/iris-assistant/backend/internal/providers/news"
	"github.com/iris-assistant/backend/internal/providers/weather"
	"github.com/iris-assistant/backend/internal/storage/models"
	"github.com/iris-assistant/backend/pkg/apperr"
	"github.com/iris-assistant/backend/pkg/logger"
)

const (
	MissingCEPReply   = "Por favor, informe um CEP válido. Exemplo: 40301-110"
	DefaultHistory    = 20
	ActionOpenURL     = "open_url"
	economyFailure    = "Desculpe, não consegui obter as cotações no momento. Tente novamente."
	weatherFailure    = "Erro ao buscar dados do clima"
	cepFailure        = "Erro ao consultar CEP. Verifique o número e tente novamente."
	newsFailure       = "Erro ao buscar notícias"
	identityMentioned = "você"
)

type WeatherProvider interface {
	ByCity(ctx context.Context, city string) (*weather.Weather, error)
}

type EconomyProvider interface {
	Latest(ctx context.Context, codes []string) ([]economy.Quote, error)
}

type CEPProvider interface {
	Lookup(ctx context.Context, cep string) (*cep.Address, error)
}

type NewsProvider interface {
	Top(ctx context.Context, category string) ([]news.Item, error)
}

// Searcher returns text to ground the LLM answer.
type Searcher interface {
	Lookup(ctx context.Context, query string) (string, error)
}

type ChatModel interface {
	Chat(ctx context.Context, history []models.Message, extra string) (*llm.ChatResponse, error)
}

type Conversations interface {
	Start(ctx context.Context, userID string, first models.Message, rest ...models.Message) (*models.Conversation, error)
	Append(ctx context.Context, userID, conversationID string, msg models.Message) error
	Get(ctx context.Context, userID, conversationID string) (*models.Conversation, error)
}

type Deps struct {
	Classifier    *intent.Classifier
	Weather       WeatherProvider
	Economy       EconomyProvider
	CEP           CEPProvider
	News          NewsProvider
	Search        Searcher
	LLM           ChatModel
	Conversations Conversations
	HistoryLimit  int
	AssistantName string
	CreatorName   string
	Location      *time.Location
}

type Engine struct {
	deps Deps
	now  func() time.Time
}

func NewEngine(deps Deps) *Engine {
	if deps.Classifier == nil {
		deps.Classifier = intent.NewClassifier(intent.Options{})
	}
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = DefaultHistory
	}
	if deps.AssistantName == "" {
		deps.AssistantName = "ÍRIS"
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &Engine{deps: deps, now: time.Now}
}

type Request struct {
	UserID         string `json:"-"`
	ConversationID string `json:"conversationId,omitempty"`
	Content        string `json:"content"`
}

type Action struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

type Reply struct {
	ConversationID string         `json:"conversationId,omitempty"`
	Route          intent.Route   `json:"route"`
	Content        string         `json:"content"`
	Action         *Action        `json:"action,omitempty"`
	Message        models.Message `json:"message"`
	SearchUsed     bool           `json:"searchUsed"`
	Persisted      bool           `json:"persisted"`
}

func (e *Engine) HandleMessage(ctx context.Context, req Request) (*Reply, error) {
	start := time.Now()

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperr.InvalidInput("Mensagem vazia")
	}

	var history []models.Message
	if req.UserID != "" && req.ConversationID != "" && e.deps.Conversations != nil {
		conv, err := e.deps.Conversations.Get(ctx, req.UserID, req.ConversationID)
		if err != nil {
			return nil, err
		}
		history = conv.Messages
	}

	userMsg := conversation.NewMessage(models.RoleUser, content, e.now())
	decision := e.deps.Classifier.Classify(content)
	metrics.IntentDecisions.WithLabelValues(string(decision.Route)).Inc()

	logger.Info("Processing message",
		zap.String("route", string(decision.Route)),
		zap.String("conversation_id", req.ConversationID),
		zap.Bool("authenticated", req.UserID != ""),
	)

	reply := &Reply{ConversationID: req.ConversationID, Route: decision.Route}

	switch decision.Route {
	case intent.RouteDial, intent.RouteOpenMap, intent.RouteMusic:
		reply.Content = decision.Reply
		reply.Action = &Action{Kind: ActionOpenURL, URL: decision.URL}
	case intent.RouteWeather:
		reply.Content = e.answerWeather(ctx, decision.Param)
	case intent.RouteEconomy:
		reply.Content = e.answerEconomy(ctx, decision.Codes)
	case intent.RouteCEP:
		reply.Content = e.answerCEP(ctx, decision.Param)
	case intent.RouteNews:
		reply.Content = e.answerNews(ctx, decision.Param)
	default:
		reply.Content, reply.SearchUsed = e.delegate(ctx, decision, history, userMsg)
	}

	reply.Message = conversation.NewMessage(models.RoleAssistant, reply.Content, e.now())
	e.persist(ctx, req.UserID, reply, userMsg)

	metrics.AssistantDuration.WithLabelValues(string(decision.Route)).Observe(time.Since(start).Seconds())
	return reply, nil
}

func (e *Engine) answerWeather(ctx context.Context, city string) string {
	w, err := e.deps.Weather.ByCity(ctx, city)
	if err != nil {
		return failure(err, weatherFailure)
	}
	return weather.Format(w)
}

func (e *Engine) answerEconomy(ctx context.Context, codes []string) string {
	quotes, err := e.deps.Economy.Latest(ctx, codes)
	if err != nil {
		return failure(err, economyFailure)
	}
	return economy.Format(quotes, e.now().In(e.deps.Location))
}

func (e *Engine) answerCEP(ctx context.Context, code string) string {
	if code == "" {
		return MissingCEPReply
	}
	addr, err := e.deps.CEP.Lookup(ctx, code)
	if err != nil {
		return failure(err, cepFailure)
	}
	return cep.Format(addr)
}

func (e *Engine) answerNews(ctx context.Context, category string) string {
	items, err := e.deps.News.Top(ctx, category)
	if err != nil {
		return failure(err, newsFailure)
	}
	return news.FormatForAssistant(items)
}

func (e *Engine) delegate(ctx context.Context, d intent.Decision, history []models.Message, userMsg models.Message) (string, bool) {
	var extra string
	if d.NeedsSearch && e.deps.Search != nil {
		found, err := e.deps.Search.Lookup(ctx, e.searchQuery(userMsg.Content))
		if err != nil {
			logger.Warn("Web search failed, answering without it", zap.Error(err))
		} else {
			extra = found
		}
	}

	if len(history) > e.deps.HistoryLimit {
		history = history[len(history)-e.deps.HistoryLimit:]
	}
	turns := make([]models.Message, 0, len(history)+1)
	turns = append(turns, history...)
	turns = append(turns, userMsg)

	resp, err := e.deps.LLM.Chat(ctx, turns, extra)
	if err != nil {
		logger.Error("LLM reply failed", zap.Error(err))
		return llm.FailureReply, extra != ""
	}
	return resp.Content, extra != ""
}

// searchQuery steers questions about the assistant itself to its identity
// and dates everything else.
func (e *Engine) searchQuery(text string) string {
	if strings.Contains(strings.ToLower(text), identityMentioned) {
		q := "quem é a inteligência artificial " + e.deps.AssistantName
		if e.deps.CreatorName != "" {
			q += " do " + e.deps.CreatorName
		}
		return q
	}
	return fmt.Sprintf("%s hoje %d", text, e.now().In(e.deps.Location).Year())
}

// persist writes the exchange for logged-in users. The first reply creates
// the conversation with both messages; later turns append one message at a
// time. Failures never fail the reply.
func (e *Engine) persist(ctx context.Context, userID string, reply *Reply, userMsg models.Message) {
	if userID == "" || e.deps.Conversations == nil {
		return
	}

	if reply.ConversationID == "" {
		conv, err := e.deps.Conversations.Start(ctx, userID, userMsg, reply.Message)
		if err != nil {
			logger.Error("Failed to create conversation", zap.String("user_id", userID), zap.Error(err))
			return
		}
		reply.ConversationID = conv.ID
		reply.Persisted = true
		return
	}

	for _, m := range []models.Message{userMsg, reply.Message} {
		if err := e.deps.Conversations.Append(ctx, userID, reply.ConversationID, m); err != nil {
			logger.Error("Failed to append message",
				zap.String("conversation_id", reply.ConversationID),
				zap.String("role", string(m.Role)),
				zap.Error(err),
			)
			return
		}
	}
	reply.Persisted = true
}

func failure(err error, fallback string) string {
	return "❌ " + apperr.MessageOf(err, fallback)
}
