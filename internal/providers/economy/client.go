package economy

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/iris-assistant/backend/internal/providers/httpjson"
	"github.com/iris-assistant/backend/pkg/apperr"
)

type Quote struct {
	Code       string  `json:"code"`
	CodeIn     string  `json:"codein"`
	Name       string  `json:"name"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	VarBid     float64 `json:"varBid"`
	PctChange  float64 `json:"pctChange"`
	Bid        float64 `json:"bid"`
	Ask        float64 `json:"ask"`
	Timestamp  string  `json:"timestamp"`
	CreateDate string  `json:"createDate"`
}

// QuotedAt parses Timestamp as unix seconds.
func (q Quote) QuotedAt() (time.Time, bool) {
	sec, err := strconv.ParseInt(strings.TrimSpace(q.Timestamp), 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// IsCrypto reports whether the base currency is a cryptocurrency.
func (q Quote) IsCrypto() bool {
	return q.Code == "BTC" || q.Code == "ETH"
}

type Client struct {
	baseURL string
	http    *httpjson.Client
}

var statusMessages = apperr.StatusMessages{
	NotFound: "Moeda não encontrada",
	Default:  "Desculpe, não consegui obter as cotações no momento. Tente novamente.",
}

var DefaultCodes = []string{"USD-BRL", "EUR-BRL", "BTC-BRL"}

var pairPattern = regexp.MustCompile(`^[A-Z]{3,4}-[A-Z]{3}$`)

func NewClient(baseURL string, timeoutSec int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpjson.New("awesomeapi", time.Duration(timeoutSec)*time.Second),
	}
}

type apiQuote struct {
	Code       string `json:"code"`
	CodeIn     string `json:"codein"`
	Name       string `json:"name"`
	High       string `json:"high"`
	Low        string `json:"low"`
	VarBid     string `json:"varBid"`
	PctChange  string `json:"pctChange"`
	Bid        string `json:"bid"`
	Ask        string `json:"ask"`
	Timestamp  string `json:"timestamp"`
	CreateDate string `json:"create_date"`
}

// Latest fetches the last quote of each pair ("USD-BRL"), preserving the
// requested order. An empty list asks for DefaultCodes.
func (c *Client) Latest(ctx context.Context, codes []string) ([]Quote, error) {
	codes, err := normalizeCodes(codes)
	if err != nil {
		return nil, err
	}

	var resp map[string]apiQuote
	if err := c.http.GetJSON(ctx, c.baseURL+"/json/last/"+strings.Join(codes, ","), &resp, statusMessages); err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, len(codes))
	for _, code := range codes {
		raw, ok := resp[strings.ReplaceAll(code, "-", "")]
		if !ok {
			continue
		}
		quotes = append(quotes, Quote{
			Code:       raw.Code,
			CodeIn:     raw.CodeIn,
			Name:       raw.Name,
			High:       parseFloat(raw.High),
			Low:        parseFloat(raw.Low),
			VarBid:     parseFloat(raw.VarBid),
			PctChange:  parseFloat(raw.PctChange),
			Bid:        parseFloat(raw.Bid),
			Ask:        parseFloat(raw.Ask),
			Timestamp:  raw.Timestamp,
			CreateDate: raw.CreateDate,
		})
	}

	if len(quotes) == 0 {
		return nil, apperr.NotFound("Moeda não encontrada")
	}
	return quotes, nil
}

// Available lists the pairs the API can quote, keyed by pair code.
func (c *Client) Available(ctx context.Context) (map[string]string, error) {
	var resp map[string]string
	if err := c.http.GetJSON(ctx, c.baseURL+"/json/available", &resp, statusMessages); err != nil {
		return nil, err
	}
	return resp, nil
}

func normalizeCodes(codes []string) ([]string, error) {
	if len(codes) == 0 {
		return append([]string(nil), DefaultCodes...), nil
	}

	seen := map[string]bool{}
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || seen[code] {
			continue
		}
		if !pairPattern.MatchString(code) {
			return nil, apperr.InvalidInput(fmt.Sprintf("Código de moeda inválido: %s", code))
		}
		seen[code] = true
		out = append(out, code)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultCodes...), nil
	}
	return out, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

var flags = map[string]string{
	"USD": "🇺🇸",
	"EUR": "🇪🇺",
	"GBP": "🇬🇧",
	"ARS": "🇦🇷",
	"BTC": "₿",
	"ETH": "Ξ",
	"JPY": "🇯🇵",
	"CAD": "🇨🇦",
	"AUD": "🇦🇺",
	"CNY": "🇨🇳",
}

func Flag(code string) string {
	if f, ok := flags[code]; ok {
		return f
	}
	return "💱"
}

// FormatQuote renders one currency block of the chat answer.
func FormatQuote(q Quote) string {
	trend := "📈"
	sign := "+"
	if q.PctChange < 0 {
		trend = "📉"
		sign = ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s **%s**\n", Flag(q.Code), q.Name)
	fmt.Fprintf(&b, "💵 Compra: R$ %.2f\n", q.Bid)
	fmt.Fprintf(&b, "%s Variação: %s%.2f%%\n", trend, sign, q.PctChange)
	fmt.Fprintf(&b, "📊 Máxima: R$ %.2f | Mínima: R$ %.2f", q.High, q.Low)
	return b.String()
}

// Format renders the full answer. The footer shows the first quote's own
// timestamp in updated's location, or updated when the quote has none.
func Format(quotes []Quote, updated time.Time) string {
	var b strings.Builder
	b.WriteString("💰 **Cotações:**\n\n")
	for _, q := range quotes {
		b.WriteString(FormatQuote(q))
		b.WriteString("\n\n")
	}
	if len(quotes) > 0 {
		if at, ok := quotes[0].QuotedAt(); ok {
			updated = at.In(updated.Location())
		}
	}
	b.WriteString("🕐 Atualizado: " + updated.Format("02/01/2006 15:04:05"))
	return b.String()
}
