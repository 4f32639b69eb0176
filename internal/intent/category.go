package intent

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/iris-assistant/backend/internal/storage/models"
)

var categoryRules = []struct {
	category models.Category
	keywords []string
}{
	{models.CategoryWeather, []string{"clima", "tempo", "temperatura"}},
	{models.CategoryNews, []string{"notícia", "noticia", "manchete"}},
	{models.CategoryMaps, []string{"onde", "localização", "mapa"}},
	{models.CategoryMusic, []string{"música", "musica", "toca", "spotify"}},
}

var categoryCEPPattern = regexp.MustCompile(`\d{5}-?\d{3}`)

var economyCategoryKeywords = []string{"dólar", "dolar", "cotação", "bitcoin"}

// DetectCategory tags a conversation from its first message. It is total
// and deterministic: unmatched text is general.
func DetectCategory(text string) models.Category {
	lower := strings.ToLower(text)
	for _, r := range categoryRules {
		if containsAny(lower, r.keywords) {
			return r.category
		}
	}
	if categoryCEPPattern.MatchString(lower) {
		return models.CategoryCEP
	}
	if containsAny(lower, economyCategoryKeywords) {
		return models.CategoryEconomy
	}
	return models.CategoryGeneral
}

const (
	DefaultTitleLimit = 50
	UntitledTitle     = "Nova conversa"
)

var wakeWordPrefix = regexp.MustCompile(`(?i)^(hey\s+íris|íris|iris),?\s*`)

// GenerateTitle derives a conversation title from its first message: the
// wake word is dropped and the rest is cut to limit runes plus "...".
func GenerateTitle(text string, limit int) string {
	if limit <= 0 {
		limit = DefaultTitleLimit
	}

	cleaned := strings.TrimSpace(wakeWordPrefix.ReplaceAllString(strings.TrimSpace(text), ""))
	if cleaned == "" {
		return UntitledTitle
	}
	if utf8.RuneCountInString(cleaned) <= limit {
		return cleaned
	}
	return string([]rune(cleaned)[:limit]) + "..."
}
