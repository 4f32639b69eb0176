package intent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iris-assistant/backend/internal/storage/models"
)

func TestClassifyRoutes(t *testing.T) {
	c := NewClassifier(Options{DefaultCity: "Feira de Santana"})

	tests := []struct {
		name  string
		input string
		route Route
		param string
	}{
		{"dial", "Íris, ligue para 75 99999-8888", RouteDial, "75999998888"},
		{"dial needs eight digits", "ligar para 1234", RouteDelegate, ""},
		{"route with destination", "rota para Salvador", RouteOpenMap, "Salvador"},
		{"traffic", "trânsito na Paralela", RouteOpenMap, "Paralela"},
		{"music on spotify", "toca rock brasileiro no spotify", RouteMusic, "rock brasileiro"},
		{"music default youtube", "quero ouvir Caetano Veloso", RouteMusic, "quero Caetano Veloso"},
		{"weather with city", "clima em Salvador", RouteWeather, "Salvador"},
		{"forecast phrasing", "previsão do tempo em Salvador", RouteWeather, "Salvador"},
		{"weather default city", "vai chover hoje?", RouteWeather, "Feira de Santana"},
		{"economy", "qual a cotação do dólar?", RouteEconomy, ""},
		{"cep with number", "me diga o endereço do 40301-110", RouteCEP, "40301-110"},
		{"cep keyword only", "qual o meu cep", RouteCEP, ""},
		{"news", "quais as últimas notícias de tecnologia", RouteNews, "tecnologia"},
		{"fallback", "me conte uma piada", RouteDelegate, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Classify(tt.input)
			assert.Equal(t, tt.route, d.Route)
			assert.Equal(t, tt.param, d.Param)
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	c := NewClassifier(Options{})

	// Dial precedes the CEP rule even though the digits look like a CEP.
	assert.Equal(t, RouteDial, c.Classify("ligue 40301110").Route)
	// Music precedes weather.
	assert.Equal(t, RouteMusic, c.Classify("toca uma música sobre chuva").Route)
	// Weather precedes news.
	assert.Equal(t, RouteWeather, c.Classify("notícias do tempo em Recife").Route)
}

func TestClassifyWholeWords(t *testing.T) {
	c := NewClassifier(Options{})

	assert.Equal(t, RouteWeather, c.Classify("clima em Tocantins").Route)
	assert.Equal(t, RouteDelegate, c.Classify("quantas calorias tem uma maçã").Route)
}

func TestClassifyAttachmentBypass(t *testing.T) {
	c := NewClassifier(Options{})

	d := c.Classify("[doc: relatorio.pdf] clima em Salvador")
	assert.Equal(t, RouteDelegate, d.Route)

	d = c.Classify("Analise este arquivo e toca rock")
	assert.Equal(t, RouteDelegate, d.Route)
}

func TestMusicScenario(t *testing.T) {
	d := NewClassifier(Options{}).Classify("toca rock brasileiro no spotify")

	assert.Equal(t, RouteMusic, d.Route)
	assert.Equal(t, PlatformSpotify, d.Platform)
	assert.Equal(t, "https://open.spotify.com/search/rock%20brasileiro", d.URL)
	assert.Contains(t, d.Reply, "Spotify")
	assert.Equal(t, "🎵 Abrindo \"rock brasileiro\" no Spotify!", d.Reply)
}

func TestLocalRoutesCarryURLAndReply(t *testing.T) {
	c := NewClassifier(Options{})

	d := c.Classify("ligue 75988887777")
	assert.Equal(t, "tel:75988887777", d.URL)
	assert.Equal(t, "Abrindo o discador para 75988887777.", d.Reply)
	assert.True(t, d.Route.Local())

	d = c.Classify("mapa")
	assert.Equal(t, "https://www.google.com/maps", d.URL)
	assert.Equal(t, "Mostrando o mapa.", d.Reply)

	d = c.Classify("ir para Praia do Forte")
	assert.Equal(t, "https://www.google.com/maps/search/Praia%20do%20Forte", d.URL)
	assert.Equal(t, "Calculando rota para Praia do Forte.", d.Reply)

	assert.False(t, RouteWeather.Local())
}

func TestEconomyCodes(t *testing.T) {
	c := NewClassifier(Options{})

	assert.Equal(t, []string{"USD-BRL", "EUR-BRL"}, c.Classify("cotação do dólar e do euro").Codes)
	assert.Equal(t, []string{"BTC-BRL"}, c.Classify("quanto está o bitcoin, btc").Codes)
	assert.Equal(t, DefaultCurrencies, c.Classify("cotação das moedas").Codes)
}

func TestNeedsSearch(t *testing.T) {
	c := NewClassifier(Options{})

	d := c.Classify("quem ganhou o jogo ontem?")
	assert.Equal(t, RouteDelegate, d.Route)
	assert.True(t, d.NeedsSearch)

	assert.False(t, c.Classify("olá, tudo bem?").NeedsSearch)
	assert.False(t, NeedsSearch("onde"))
}

func TestDetectCategory(t *testing.T) {
	tests := map[string]models.Category{
		"clima em Salvador":            models.CategoryWeather,
		"últimas notícias":             models.CategoryNews,
		"onde fica o Pelourinho":       models.CategoryMaps,
		"toca uma música":              models.CategoryMusic,
		"40301-110":                    models.CategoryCEP,
		"quanto está o dólar":          models.CategoryEconomy,
		"me conte uma piada":           models.CategoryGeneral,
		"":                             models.CategoryGeneral,
		"clima e notícias e 40301-110": models.CategoryWeather,
	}

	for input, want := range tests {
		assert.Equal(t, want, DetectCategory(input), input)
		assert.Equal(t, DetectCategory(input), DetectCategory(input))
	}
}

func TestGenerateTitle(t *testing.T) {
	assert.Equal(t, "qual o clima hoje?", GenerateTitle("Íris, qual o clima hoje?", 50))
	assert.Equal(t, "toca algo", GenerateTitle("hey íris toca algo", 50))
	assert.Equal(t, "me ajuda", GenerateTitle("  IRIS,   me ajuda ", 50))
	assert.Equal(t, UntitledTitle, GenerateTitle("Íris", 50))
	assert.Equal(t, UntitledTitle, GenerateTitle("   ", 50))

	long := strings.Repeat("á", 60)
	got := GenerateTitle(long, 50)
	assert.Equal(t, strings.Repeat("á", 50)+"...", got)

	exact := strings.Repeat("b", 50)
	assert.Equal(t, exact, GenerateTitle(exact, 50))
}
