// Package intent routes a user utterance to a local action, a data adapter
// or the search+LLM fallback. Rules are evaluated in a fixed order and the
// first one that matches wins; reordering them changes behavior.
package intent

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Route string

const (
	RouteDial     Route = "dial"
	RouteOpenMap  Route = "open-map"
	RouteMusic    Route = "open-music-link"
	RouteWeather  Route = "answer-weather"
	RouteEconomy  Route = "answer-economy"
	RouteCEP      Route = "answer-cep"
	RouteNews     Route = "answer-news"
	RouteDelegate Route = "delegate-to-search-and-llm"
)

// Local reports whether the route is answered without any network call.
func (r Route) Local() bool {
	return r == RouteDial || r == RouteOpenMap || r == RouteMusic
}

type Decision struct {
	Route Route `json:"route"`
	// Param is the extracted parameter: phone digits, destination, music
	// query, city, CEP or news category depending on Route.
	Param    string   `json:"param,omitempty"`
	Codes    []string `json:"codes,omitempty"`
	Platform Platform `json:"platform,omitempty"`
	// URL and Reply are set for local routes.
	URL         string `json:"url,omitempty"`
	Reply       string `json:"reply,omitempty"`
	NeedsSearch bool   `json:"needsSearch,omitempty"`
}

type Options struct {
	DefaultCity string
}

type Classifier struct {
	defaultCity string
	rules       []rule
}

type rule struct {
	name  Route
	apply func(text, lower string) (Decision, bool)
}

func NewClassifier(opts Options) *Classifier {
	if opts.DefaultCity == "" {
		opts.DefaultCity = "Feira de Santana"
	}

	c := &Classifier{defaultCity: opts.DefaultCity}
	c.rules = []rule{
		{RouteDial, c.dial},
		{RouteOpenMap, c.openMap},
		{RouteMusic, c.music},
		{RouteWeather, c.weather},
		{RouteEconomy, c.economy},
		{RouteCEP, c.cep},
		{RouteNews, c.news},
	}
	return c
}

var attachmentMarkers = []string{"[doc:", "analise este arquivo", "[arquivo"}

func (c *Classifier) Classify(text string) Decision {
	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)

	if !containsAny(lower, attachmentMarkers) {
		for _, r := range c.rules {
			if d, ok := r.apply(text, lower); ok {
				d.Route = r.name
				return d
			}
		}
	}

	return Decision{Route: RouteDelegate, NeedsSearch: NeedsSearch(text)}
}

var (
	dialKeywords  = []string{"ligue", "ligar", "disque"}
	mapKeywords   = []string{"trânsito", "transito", "mapa", "rota", "ir para"}
	musicKeywords = []string{"tocar", "toca", "toque", "ouvir", "youtube", "spotify", "deezer", "música", "musica", "músicas", "musicas", "reproduza"}

	weatherKeywords = []string{"clima", "tempo", "previsão", "previsao", "temperatura", "chuva", "chover", "chovendo", "frio", "calor"}
	economyKeywords = []string{"cotação", "cotacao", "cotações", "cotacoes", "moeda", "moedas", "câmbio", "cambio", "cripto", "criptomoeda", "criptomoedas"}
	cepKeywords     = []string{"cep", "código postal", "codigo postal"}
	newsKeywords    = []string{"notícia", "noticia", "notícias", "noticias", "manchete", "manchetes", "jornal"}
)

func (c *Classifier) dial(text, lower string) (Decision, bool) {
	if !matchesAny(lower, dialKeywords) {
		return Decision{}, false
	}
	digits, ok := ExtractPhone(text)
	if !ok {
		return Decision{}, false
	}
	return Decision{
		Param: digits,
		URL:   "tel:" + digits,
		Reply: fmt.Sprintf("Abrindo o discador para %s.", digits),
	}, true
}

func (c *Classifier) openMap(text, lower string) (Decision, bool) {
	if !matchesAny(lower, mapKeywords) {
		return Decision{}, false
	}
	dest := ExtractDestination(text)
	if dest == "" {
		return Decision{URL: "https://www.google.com/maps", Reply: "Mostrando o mapa."}, true
	}
	return Decision{
		Param: dest,
		URL:   "https://www.google.com/maps/search/" + encodeComponent(dest),
		Reply: fmt.Sprintf("Calculando rota para %s.", dest),
	}, true
}

func (c *Classifier) music(text, lower string) (Decision, bool) {
	if !matchesAny(lower, musicKeywords) {
		return Decision{}, false
	}
	m := ParseMusic(text)
	return Decision{
		Param:    m.Query,
		Platform: m.Platform,
		URL:      m.URL(),
		Reply:    fmt.Sprintf("🎵 Abrindo \"%s\" no %s!", m.Query, m.Platform.Name()),
	}, true
}

func (c *Classifier) weather(text, lower string) (Decision, bool) {
	if !matchesAny(lower, weatherKeywords) {
		return Decision{}, false
	}
	city, ok := ExtractCity(text)
	if !ok {
		city = c.defaultCity
	}
	return Decision{Param: city}, true
}

func (c *Classifier) economy(text, lower string) (Decision, bool) {
	if !matchesAny(lower, economyKeywords) && !mentionsCurrency(lower) {
		return Decision{}, false
	}
	return Decision{Codes: ExtractCurrencies(text)}, true
}

func (c *Classifier) cep(text, lower string) (Decision, bool) {
	cep, ok := ExtractCEP(text)
	if !ok && !matchesAny(lower, cepKeywords) {
		return Decision{}, false
	}
	return Decision{Param: cep}, true
}

func (c *Classifier) news(text, lower string) (Decision, bool) {
	if !matchesAny(lower, newsKeywords) {
		return Decision{}, false
	}
	return Decision{Param: NewsCategory(text)}, true
}

var searchPattern = regexp.MustCompile(`(?i)(clima|tempo|notícia|quem|onde|preço|cotação|política|como está)`)

// NeedsSearch reports whether a delegated utterance should be enriched with
// a web search before reaching the LLM.
func NeedsSearch(text string) bool {
	return utf8.RuneCountInString(text) > 5 && searchPattern.MatchString(text)
}

// matchesAny compares single-word keywords against whole words of lower and
// multi-word keywords as substrings, so "toca" does not fire on "tocantins".
func matchesAny(lower string, keywords []string) bool {
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, k := range keywords {
		if strings.Contains(k, " ") {
			if strings.Contains(lower, k) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == k {
				return true
			}
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
