package news

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/iris-assistant/backend/internal/providers/httpjson"
	"github.com/iris-assistant/backend/pkg/apperr"
)

const (
	maxItems       = 5
	maxDescription = 200
	source         = "G1"
)

// Feeds maps the news categories the classifier extracts to G1 RSS feeds.
var Feeds = map[string]string{
	"geral":          "https://g1.globo.com/rss/g1/",
	"politica":       "https://g1.globo.com/rss/g1/politica/",
	"tecnologia":     "https://g1.globo.com/rss/g1/tecnologia/",
	"esportes":       "https://g1.globo.com/rss/g1/esportes/",
	"economia":       "https://g1.globo.com/rss/g1/economia/",
	"saude":          "https://g1.globo.com/rss/g1/ciencia-e-saude/",
	"entretenimento": "https://g1.globo.com/rss/g1/pop-arte/",
}

type Item struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	Published   string    `json:"published"`
}

type Client struct {
	baseURL string
	http    *httpjson.Client
	now     func() time.Time
}

var statusMessages = apperr.StatusMessages{
	Default: "Erro ao buscar notícias",
	ByStatus: map[int]string{
		http.StatusUnprocessableEntity: "O serviço de notícias está temporariamente indisponível (Erro 422).",
	},
}

func NewClient(baseURL string, timeoutSec int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpjson.New("rss2json", time.Duration(timeoutSec)*time.Second),
		now:     time.Now,
	}
}

type apiResponse struct {
	Status string `json:"status"`
	Items  []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		PubDate     string `json:"pubDate"`
		Description string `json:"description"`
	} `json:"items"`
}

// Top returns the five latest headlines of a category; unknown categories
// read the general feed. A feed the converter could not read yields no items.
func (c *Client) Top(ctx context.Context, category string) ([]Item, error) {
	feed, ok := Feeds[category]
	if !ok {
		feed = Feeds["geral"]
	}

	now := c.now()
	params := url.Values{}
	params.Set("rss_url", feed)
	// rss2json caches feeds aggressively without a changing parameter.
	params.Set("t", strconv.FormatInt(now.UnixMilli(), 10))

	var resp apiResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/v1/api.json?"+params.Encode(), &resp, statusMessages); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return []Item{}, nil
	}

	items := make([]Item, 0, maxItems)
	for _, raw := range resp.Items {
		if len(items) == maxItems {
			break
		}
		title := strings.TrimSpace(raw.Title)
		if title == "" {
			title = "Sem título"
		}
		item := Item{
			Title:       title,
			Link:        raw.Link,
			Description: truncate(CleanHTML(raw.Description), maxDescription),
			Source:      source,
		}
		if pub, ok := parseDate(raw.PubDate); ok {
			item.PublishedAt = pub
			item.Published = RelativeLabel(pub, now)
		} else {
			item.Published = "Recente"
		}
		items = append(items, item)
	}
	return items, nil
}

// CleanHTML reduces an RSS description to its visible text.
func CleanHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RelativeLabel renders how long ago pub was, switching to dd/mm/yyyy after a week.
func RelativeLabel(pub, now time.Time) string {
	hours := int(now.Sub(pub).Hours())
	switch {
	case hours < 1:
		return "Agora"
	case hours < 24:
		return fmt.Sprintf("Há %dh", hours)
	}

	days := hours / 24
	switch {
	case days == 1:
		return "Ontem"
	case days < 7:
		return fmt.Sprintf("Há %d dias", days)
	default:
		return pub.In(now.Location()).Format("02/01/2006")
	}
}

// FormatForAssistant is the spoken summary of the headlines.
func FormatForAssistant(items []Item) string {
	if len(items) == 0 {
		return "Desculpe, não consegui encontrar notícias recentes no momento."
	}

	titles := make([]string, 0, len(items))
	for i, item := range items {
		titles = append(titles, fmt.Sprintf("%d: %s", i+1, item.Title))
	}
	return "Aqui estão as últimas notícias do G1: " + strings.Join(titles, ". ")
}
