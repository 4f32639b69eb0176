package intent

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minPhoneDigits = 8

// ExtractPhone keeps every digit of text. It fails when fewer than eight
// digits are present.
func ExtractPhone(text string) (string, bool) {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() < minPhoneDigits {
		return "", false
	}
	return b.String(), true
}

var (
	mapCommandWords = set("íris", "iris", "ver", "trânsito", "mapa", "rota", "caminho")
	leadingFillers  = set("para", "pra", "pro", "até", "o", "a", "no", "na", "de", "do", "da")
	irParaPattern   = regexp.MustCompile(`(?i)\bir\s+para\b`)
)

// ExtractDestination strips navigation command words and leading
// prepositions, returning whatever place name is left.
func ExtractDestination(text string) string {
	text = irParaPattern.ReplaceAllString(text, " ")
	kept := filterTokens(text, mapCommandWords)
	for len(kept) > 0 && leadingFillers[normalizeToken(kept[0])] {
		kept = kept[1:]
	}
	return strings.Join(kept, " ")
}

type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformSpotify Platform = "spotify"
	PlatformDeezer  Platform = "deezer"
)

func (p Platform) Name() string {
	switch p {
	case PlatformSpotify:
		return "Spotify"
	case PlatformDeezer:
		return "Deezer"
	default:
		return "YouTube"
	}
}

type MusicRequest struct {
	Query    string
	Platform Platform
}

func (m MusicRequest) URL() string {
	q := encodeComponent(m.Query)
	switch m.Platform {
	case PlatformSpotify:
		return "https://open.spotify.com/search/" + q
	case PlatformDeezer:
		return "https://www.deezer.com/search/" + q
	default:
		return "https://www.youtube.com/results?search_query=" + q
	}
}

const DefaultMusicQuery = "músicas recomendadas"

var musicCommandWords = set(
	"íris", "iris", "toque", "tocar", "toca", "ouvir", "música", "musica", "reproduza",
	"coloca", "coloque", "bota", "ponha", "põe", "play",
	"no", "na", "do", "da", "pelo", "pela",
	"youtube", "spotify", "deezer", "yt",
)

// ParseMusic picks the platform (Spotify, Deezer, YouTube by default) and
// reduces the utterance to the search query.
func ParseMusic(text string) MusicRequest {
	lower := strings.ToLower(text)

	platform := PlatformYouTube
	switch {
	case strings.Contains(lower, "spotify"):
		platform = PlatformSpotify
	case strings.Contains(lower, "deezer"):
		platform = PlatformDeezer
	}

	query := strings.Join(filterTokens(text, musicCommandWords), " ")
	if utf8.RuneCountInString(query) < 2 {
		query = DefaultMusicQuery
	}

	return MusicRequest{Query: query, Platform: platform}
}

// Tried in order over the whole text, so "previsão do tempo em X" is
// caught by the tempo pattern before the previsão one sees "do tempo".
var cityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bclima\s+(?:em|de|do|da|no|na|para)\s+(.+)`),
	regexp.MustCompile(`(?i)\btempo\s+(?:em|de|do|da|no|na|para)\s+(.+)`),
	regexp.MustCompile(`(?i)\btemperatura\s+(?:em|de|do|da|no|na|para)\s+(.+)`),
	regexp.MustCompile(`(?i)previs[ãa]o\s+(?:em|de|do|da|no|na|para)\s+(.+)`),
}

var cityTrailWords = set("hoje", "agora", "amanhã", "amanha")

// ExtractCity returns the place named after "clima em", "tempo de",
// "previsão para" and similar phrases.
func ExtractCity(text string) (string, bool) {
	var m []string
	for _, p := range cityPatterns {
		if m = p.FindStringSubmatch(text); m != nil {
			break
		}
	}
	if m == nil {
		return "", false
	}

	words := strings.Fields(strings.TrimRightFunc(m[1], isTrailingPunct))
	for len(words) > 0 && cityTrailWords[normalizeToken(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	city := strings.TrimRightFunc(strings.Join(words, " "), isTrailingPunct)
	if city == "" {
		return "", false
	}
	return city, true
}

var currencyKeywords = []struct {
	keyword string
	code    string
}{
	{"dólar", "USD-BRL"},
	{"dolar", "USD-BRL"},
	{"dólares", "USD-BRL"},
	{"dolares", "USD-BRL"},
	{"euro", "EUR-BRL"},
	{"libra", "GBP-BRL"},
	{"peso argentino", "ARS-BRL"},
	{"bitcoin", "BTC-BRL"},
	{"btc", "BTC-BRL"},
	{"ethereum", "ETH-BRL"},
	{"iene", "JPY-BRL"},
	{"yuan", "CNY-BRL"},
}

var DefaultCurrencies = []string{"USD-BRL", "EUR-BRL", "BTC-BRL"}

func mentionsCurrency(lower string) bool {
	for _, ck := range currencyKeywords {
		if matchesAny(lower, []string{ck.keyword}) {
			return true
		}
	}
	return false
}

// ExtractCurrencies maps currency names to AwesomeAPI pairs, in table order
// and without duplicates. Nothing recognized yields DefaultCurrencies.
func ExtractCurrencies(text string) []string {
	lower := strings.ToLower(text)
	seen := map[string]bool{}
	var codes []string
	for _, ck := range currencyKeywords {
		if matchesAny(lower, []string{ck.keyword}) && !seen[ck.code] {
			seen[ck.code] = true
			codes = append(codes, ck.code)
		}
	}
	if len(codes) == 0 {
		return append([]string(nil), DefaultCurrencies...)
	}
	return codes
}

var cepPattern = regexp.MustCompile(`\b\d{5}-?\d{3}\b`)

// ExtractCEP returns the first substring shaped like a CEP (12345-678 or
// 12345678), exactly as written.
func ExtractCEP(text string) (string, bool) {
	m := cepPattern.FindString(text)
	return m, m != ""
}

var newsCategories = []struct {
	category string
	keywords []string
}{
	{"tecnologia", []string{"tecnologia", "tech"}},
	{"politica", []string{"política", "politica", "governo", "eleição"}},
	{"esportes", []string{"esporte", "futebol"}},
	{"economia", []string{"economia", "mercado"}},
	{"saude", []string{"saúde", "saude", "ciência", "ciencia"}},
	{"entretenimento", []string{"entretenimento", "famosos", "cinema"}},
}

const DefaultNewsCategory = "geral"

func NewsCategory(text string) string {
	lower := strings.ToLower(text)
	for _, nc := range newsCategories {
		if containsAny(lower, nc.keywords) {
			return nc.category
		}
	}
	return DefaultNewsCategory
}

// encodeComponent escapes s like JavaScript's encodeURIComponent.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func filterTokens(text string, drop map[string]bool) []string {
	var kept []string
	for _, tok := range strings.Fields(text) {
		norm := normalizeToken(tok)
		if norm == "" || drop[norm] {
			continue
		}
		kept = append(kept, strings.TrimFunc(tok, isTrailingPunct))
	}
	return kept
}

func normalizeToken(tok string) string {
	return strings.ToLower(strings.TrimFunc(tok, isTrailingPunct))
}

func isTrailingPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r)
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
