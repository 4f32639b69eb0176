package weather

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/iris-assistant/backend/internal/providers/geo"
	"github.com/iris-assistant/backend/internal/providers/httpjson"
	"github.com/iris-assistant/backend/pkg/apperr"
)

type Weather struct {
	City        string  `json:"city"`
	Country     string  `json:"country"`
	Temp        int     `json:"temp"`
	FeelsLike   int     `json:"feelsLike"`
	TempMin     int     `json:"tempMin"`
	TempMax     int     `json:"tempMax"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	WindSpeed   float64 `json:"windSpeed"`
}

type Config struct {
	BaseURL    string
	APIKey     string
	Units      string
	Lang       string
	TimeoutSec int
}

type Client struct {
	cfg  Config
	http *httpjson.Client
}

var statusMessages = apperr.StatusMessages{
	NotFound: "Cidade não encontrada",
	Auth:     "Chave da API de clima inválida",
	Default:  "Erro ao buscar dados do clima",
}

func NewClient(cfg Config) *Client {
	if cfg.Units == "" {
		cfg.Units = "metric"
	}
	if cfg.Lang == "" {
		cfg.Lang = "pt_br"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:  cfg,
		http: httpjson.New("openweathermap", time.Duration(cfg.TimeoutSec)*time.Second),
	}
}

type apiResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (c *Client) ByCity(ctx context.Context, city string) (*Weather, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, apperr.InvalidInput("Informe uma cidade")
	}

	params := c.params()
	params.Set("q", city)
	return c.fetch(ctx, params)
}

func (c *Client) ByCoordinates(ctx context.Context, lat, lon float64) (*Weather, error) {
	if !geo.ValidCoordinates(lat, lon) {
		return nil, apperr.InvalidInput("Coordenadas inválidas")
	}

	params := c.params()
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return c.fetch(ctx, params)
}

func (c *Client) params() url.Values {
	params := url.Values{}
	params.Set("appid", c.cfg.APIKey)
	params.Set("units", c.cfg.Units)
	params.Set("lang", c.cfg.Lang)
	return params
}

func (c *Client) fetch(ctx context.Context, params url.Values) (*Weather, error) {
	if c.cfg.APIKey == "" {
		return nil, apperr.Auth("Chave da API de clima não configurada", nil)
	}

	var resp apiResponse
	if err := c.http.GetJSON(ctx, c.cfg.BaseURL+"/weather?"+params.Encode(), &resp, statusMessages); err != nil {
		return nil, err
	}

	w := &Weather{
		City:      resp.Name,
		Country:   resp.Sys.Country,
		Temp:      round(resp.Main.Temp),
		FeelsLike: round(resp.Main.FeelsLike),
		TempMin:   round(resp.Main.TempMin),
		TempMax:   round(resp.Main.TempMax),
		Humidity:  resp.Main.Humidity,
		WindSpeed: resp.Wind.Speed,
	}
	if len(resp.Weather) > 0 {
		w.Description = resp.Weather[0].Description
		w.Icon = resp.Weather[0].Icon
	}
	return w, nil
}

func round(v float64) int {
	return int(math.Round(v))
}

var iconEmoji = map[string]string{
	"01d": "☀️", "01n": "🌙",
	"02d": "⛅", "02n": "☁️",
	"03d": "☁️", "03n": "☁️",
	"04d": "☁️", "04n": "☁️",
	"09d": "🌧️", "09n": "🌧️",
	"10d": "🌦️", "10n": "🌧️",
	"11d": "⛈️", "11n": "⛈️",
	"13d": "❄️", "13n": "❄️",
	"50d": "🌫️", "50n": "🌫️",
}

func Emoji(icon string) string {
	if e, ok := iconEmoji[icon]; ok {
		return e
	}
	return "🌡️"
}

// Format renders the weather block shown in the chat.
func Format(w *Weather) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s Clima em %s, %s:\n", Emoji(w.Icon), w.City, w.Country)
	fmt.Fprintf(&b, "🌡️ Temperatura: %d°C (sensação de %d°C)\n", w.Temp, w.FeelsLike)
	fmt.Fprintf(&b, "📊 Mín: %d°C | Máx: %d°C\n", w.TempMin, w.TempMax)
	fmt.Fprintf(&b, "💧 Umidade: %d%%\n", w.Humidity)
	fmt.Fprintf(&b, "🌬️ Vento: %s m/s\n", strconv.FormatFloat(w.WindSpeed, 'f', -1, 64))
	fmt.Fprintf(&b, "☁️ %s", capitalize(w.Description))
	return b.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
