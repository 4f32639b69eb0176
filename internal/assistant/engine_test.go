package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iris-assistant/backend/internal/intent"
	"github.com/iris-assistant/backend/internal/llm"
	"github.com/iris-assistant/backend/internal/providers/cep"
	"github.com/iris-assistant/backend/internal/providers/economy"
	"github.com/iris-assistant/backend/internal/providers/news"
	"github.com/iris-assistant/backend/internal/providers/weather"
	"github.com/iris-assistant/backend/internal/storage/models"
	"github.com/iris-assistant/backend/pkg/apperr"
)

type stubWeather struct {
	city string
	err  error
}

func (s *stubWeather) ByCity(_ context.Context, city string) (*weather.Weather, error) {
	s.city = city
	if s.err != nil {
		return nil, s.err
	}
	return &weather.Weather{City: city, Country: "BR", Temp: 29, FeelsLike: 31, TempMin: 27, TempMax: 30, Humidity: 74, Description: "céu limpo", Icon: "01d", WindSpeed: 3}, nil
}

type stubEconomy struct{ codes []string }

func (s *stubEconomy) Latest(_ context.Context, codes []string) ([]economy.Quote, error) {
	s.codes = codes
	return []economy.Quote{{Code: "USD", Name: "Dólar Americano/Real Brasileiro", Bid: 5.37, PctChange: 1.2}}, nil
}

type stubCEP struct{ called bool }

func (s *stubCEP) Lookup(_ context.Context, code string) (*cep.Address, error) {
	s.called = true
	return &cep.Address{CEP: code, Logradouro: "Rua A", Bairro: "Centro", Localidade: "Salvador", UF: "BA", Estado: "Bahia"}, nil
}

type stubNews struct{ category string }

func (s *stubNews) Top(_ context.Context, category string) ([]news.Item, error) {
	s.category = category
	return []news.Item{{Title: "Primeira"}}, nil
}

type stubSearch struct {
	query  string
	answer string
	err    error
}

func (s *stubSearch) Lookup(_ context.Context, query string) (string, error) {
	s.query = query
	return s.answer, s.err
}

type stubLLM struct {
	history []models.Message
	extra   string
	err     error
	calls   int
}

func (s *stubLLM) Chat(_ context.Context, history []models.Message, extra string) (*llm.ChatResponse, error) {
	s.calls++
	s.history = history
	s.extra = extra
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{Content: "Resposta do modelo"}, nil
}

type stubConversations struct {
	started  []models.Message
	appended []models.Message
	history  []models.Message
	err      error
}

func (s *stubConversations) Start(_ context.Context, _ string, first models.Message, rest ...models.Message) (*models.Conversation, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.started = append([]models.Message{first}, rest...)
	return &models.Conversation{ID: "conv_new"}, nil
}

func (s *stubConversations) Append(_ context.Context, _, _ string, msg models.Message) error {
	s.appended = append(s.appended, msg)
	return s.err
}

func (s *stubConversations) Get(_ context.Context, _, id string) (*models.Conversation, error) {
	if id == "missing" {
		return nil, models.ErrConversationNotFound
	}
	return &models.Conversation{ID: id, Messages: s.history}, nil
}

type fixture struct {
	engine  *Engine
	weather *stubWeather
	economy *stubEconomy
	cep     *stubCEP
	news    *stubNews
	search  *stubSearch
	llm     *stubLLM
	convs   *stubConversations
}

func newFixture() *fixture {
	f := &fixture{
		weather: &stubWeather{},
		economy: &stubEconomy{},
		cep:     &stubCEP{},
		news:    &stubNews{},
		search:  &stubSearch{answer: "dados frescos"},
		llm:     &stubLLM{},
		convs:   &stubConversations{},
	}
	f.engine = NewEngine(Deps{
		Classifier:    intent.NewClassifier(intent.Options{DefaultCity: "Feira de Santana"}),
		Weather:       f.weather,
		Economy:       f.economy,
		CEP:           f.cep,
		News:          f.news,
		Search:        f.search,
		LLM:           f.llm,
		Conversations: f.convs,
		HistoryLimit:  2,
		CreatorName:   "Lucélio",
	})
	f.engine.now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) ask(t *testing.T, userID, convID, text string) *Reply {
	t.Helper()
	reply, err := f.engine.HandleMessage(context.Background(), Request{UserID: userID, ConversationID: convID, Content: text})
	require.NoError(t, err)
	return reply
}

func TestWeatherInSalvador(t *testing.T) {
	f := newFixture()
	reply := f.ask(t, "", "", "clima em Salvador")

	assert.Equal(t, intent.RouteWeather, reply.Route)
	assert.Equal(t, "Salvador", f.weather.city)
	assert.True(t, strings.HasPrefix(reply.Content, "☀️ Clima em Salvador, BR:"))
	assert.Zero(t, f.llm.calls)
	assert.False(t, reply.Persisted)
}

func TestMusicOnSpotifyIsLocal(t *testing.T) {
	f := newFixture()
	reply := f.ask(t, "", "", "toca rock brasileiro no spotify")

	assert.Equal(t, intent.RouteMusic, reply.Route)
	require.NotNil(t, reply.Action)
	assert.Equal(t, ActionOpenURL, reply.Action.Kind)
	assert.Equal(t, "https://open.spotify.com/search/rock%20brasileiro", reply.Action.URL)
	assert.Equal(t, `🎵 Abrindo "rock brasileiro" no Spotify!`, reply.Content)
	assert.Zero(t, f.llm.calls)
	assert.Empty(t, f.search.query)
}

func TestAdapterErrorIsShownVerbatim(t *testing.T) {
	f := newFixture()
	f.weather.err = apperr.NotFound("Cidade não encontrada")

	reply := f.ask(t, "", "", "qual o clima em Atlântida?")
	assert.Equal(t, "❌ Cidade não encontrada", reply.Content)
}

func TestEconomyCEPAndNews(t *testing.T) {
	f := newFixture()

	reply := f.ask(t, "", "", "quanto está o dólar?")
	assert.Equal(t, intent.RouteEconomy, reply.Route)
	assert.Equal(t, []string{"USD-BRL"}, f.economy.codes)
	assert.Contains(t, reply.Content, "R$ 5.37")

	reply = f.ask(t, "", "", "qual o cep?")
	assert.Equal(t, intent.RouteCEP, reply.Route)
	assert.Equal(t, MissingCEPReply, reply.Content)
	assert.False(t, f.cep.called)

	reply = f.ask(t, "", "", "busca o cep 40301-110")
	assert.True(t, f.cep.called)
	assert.Contains(t, reply.Content, "📍 CEP 40301-110:")

	reply = f.ask(t, "", "", "últimas notícias de tecnologia")
	assert.Equal(t, intent.RouteNews, reply.Route)
	assert.Equal(t, "tecnologia", f.news.category)
	assert.Equal(t, "Aqui estão as últimas notícias do G1: 1: Primeira", reply.Content)
}

func TestDelegateWithSearch(t *testing.T) {
	f := newFixture()
	reply := f.ask(t, "", "", "quem ganhou o jogo ontem")

	assert.Equal(t, intent.RouteDelegate, reply.Route)
	assert.Equal(t, "quem ganhou o jogo ontem hoje 2026", f.search.query)
	assert.Equal(t, "dados frescos", f.llm.extra)
	assert.True(t, reply.SearchUsed)
	assert.Equal(t, "Resposta do modelo", reply.Content)
}

func TestIdentityQuestionSearchesAssistant(t *testing.T) {
	f := newFixture()
	f.ask(t, "", "", "quem é você?")
	assert.Equal(t, "quem é a inteligência artificial ÍRIS do Lucélio", f.search.query)
}

func TestSearchFailureIsIgnored(t *testing.T) {
	f := newFixture()
	f.search.err = errors.New("timeout")

	reply := f.ask(t, "", "", "quem ganhou o jogo ontem")
	assert.Equal(t, "Resposta do modelo", reply.Content)
	assert.Empty(t, f.llm.extra)
	assert.False(t, reply.SearchUsed)
}

func TestGreetingSkipsSearch(t *testing.T) {
	f := newFixture()
	f.ask(t, "", "", "boa noite")
	assert.Empty(t, f.search.query)
	assert.Equal(t, 1, f.llm.calls)
}

func TestLLMFailure(t *testing.T) {
	f := newFixture()
	f.llm.err = apperr.Network(llm.FailureReply, errors.New("503"))

	reply := f.ask(t, "", "", "me conta uma piada")
	assert.Equal(t, llm.FailureReply, reply.Content)
}

func TestAttachmentAlwaysDelegates(t *testing.T) {
	f := newFixture()
	reply := f.ask(t, "", "", "[doc: clima.pdf] analise este arquivo")
	assert.Equal(t, intent.RouteDelegate, reply.Route)
	assert.Equal(t, 1, f.llm.calls)
}

func TestFirstReplyCreatesConversation(t *testing.T) {
	f := newFixture()
	reply := f.ask(t, "user-1", "", "oi íris")

	assert.True(t, reply.Persisted)
	assert.Equal(t, "conv_new", reply.ConversationID)
	require.Len(t, f.convs.started, 2)
	assert.Equal(t, models.RoleUser, f.convs.started[0].Role)
	assert.Equal(t, "oi íris", f.convs.started[0].Content)
	assert.Equal(t, models.RoleAssistant, f.convs.started[1].Role)
	assert.Equal(t, reply.Message.ID, f.convs.started[1].ID)
}

func TestLaterTurnsAppendOneAtATime(t *testing.T) {
	f := newFixture()
	f.convs.history = []models.Message{
		{Role: models.RoleUser, Content: "um"},
		{Role: models.RoleAssistant, Content: "dois"},
		{Role: models.RoleUser, Content: "três"},
	}

	reply := f.ask(t, "user-1", "conv_1", "e agora?")
	assert.True(t, reply.Persisted)
	assert.Equal(t, "conv_1", reply.ConversationID)
	require.Len(t, f.convs.appended, 2)
	assert.Equal(t, models.RoleUser, f.convs.appended[0].Role)
	assert.Equal(t, models.RoleAssistant, f.convs.appended[1].Role)

	// History is capped before the new turn is added.
	require.Len(t, f.llm.history, 3)
	assert.Equal(t, "dois", f.llm.history[0].Content)
	assert.Equal(t, "e agora?", f.llm.history[2].Content)
}

func TestPersistenceFailureDoesNotFailReply(t *testing.T) {
	f := newFixture()
	f.convs.err = errors.New("disk full")

	reply := f.ask(t, "user-1", "", "toca samba")
	assert.False(t, reply.Persisted)
	assert.NotEmpty(t, reply.Content)
}

func TestRejects(t *testing.T) {
	f := newFixture()

	_, err := f.engine.HandleMessage(context.Background(), Request{Content: "   "})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = f.engine.HandleMessage(context.Background(), Request{UserID: "u", ConversationID: "missing", Content: "oi"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
