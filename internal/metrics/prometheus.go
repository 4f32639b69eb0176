package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	IntentDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iris_intent_decisions_total",
			Help: "Utterances routed by the intent classifier",
		},
		[]string{"route"},
	)

	AssistantDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iris_assistant_reply_duration_seconds",
			Help:    "Time to produce an assistant reply",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"route"},
	)

	ProviderRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iris_provider_requests_total",
			Help: "Outbound requests to external data providers",
		},
		[]string{"provider", "outcome"},
	)

	ProviderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iris_provider_request_duration_seconds",
			Help:    "Outbound request latency per provider",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"provider"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "iris_circuit_breaker_state",
			Help: "Circuit breaker state per provider (0 closed, 1 half-open, 2 open)",
		},
		[]string{"provider"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iris_llm_tokens_used_total",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	WebSearchTriggered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "iris_web_search_triggered_total",
			Help: "Total number of web searches triggered",
		},
	)

	ConversationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "iris_conversations_created_total",
			Help: "Conversations persisted",
		},
	)

	MessagesAppended = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iris_messages_appended_total",
			Help: "Messages appended to conversations",
		},
		[]string{"role"},
	)

	AlertsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iris_alerts_created_total",
			Help: "Road alerts reported",
		},
		[]string{"type"},
	)

	AlertVotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iris_alert_votes_total",
			Help: "Votes cast on road alerts",
		},
		[]string{"direction"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			IntentDecisions,
			AssistantDuration,
			ProviderRequests,
			ProviderDuration,
			BreakerState,
			LLMTokensUsed,
			WebSearchTriggered,
			ConversationsCreated,
			MessagesAppended,
			AlertsCreated,
			AlertVotes,
		)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
