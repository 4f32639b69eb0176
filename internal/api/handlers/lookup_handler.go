package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/iris-assistant/backend/internal/providers/cep"
	"github.com/iris-assistant/backend/internal/providers/economy"
	"github.com/iris-assistant/backend/internal/providers/geo"
	"github.com/iris-assistant/backend/internal/providers/news"
	"github.com/iris-assistant/backend/internal/providers/weather"
)

type WeatherLookup interface {
	ByCity(ctx context.Context, city string) (*weather.Weather, error)
	ByCoordinates(ctx context.Context, lat, lon float64) (*weather.Weather, error)
}

type EconomyLookup interface {
	Latest(ctx context.Context, codes []string) ([]economy.Quote, error)
}

type CEPLookup interface {
	Lookup(ctx context.Context, cep string) (*cep.Address, error)
}

type PlaceLookup interface {
	Search(ctx context.Context, query string) ([]geo.Location, error)
	Reverse(ctx context.Context, lat, lon float64) (*geo.Location, error)
}

type NewsLookup interface {
	Top(ctx context.Context, category string) ([]news.Item, error)
}

// LookupDeps wires the data adapters behind the direct lookup endpoints.
type LookupDeps struct {
	Weather     WeatherLookup
	Economy     EconomyLookup
	CEP         CEPLookup
	Places      PlaceLookup
	News        NewsLookup
	DefaultCity string
	Location    *time.Location
}

type LookupHandler struct {
	deps LookupDeps
	now  func() time.Time
}

func NewLookupHandler(deps LookupDeps) *LookupHandler {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &LookupHandler{
		deps: deps,
		now:  time.Now,
	}
}

// Every lookup answers with the raw adapter data and the text the assistant
// would have shown for it.
func lookupResult(c *fiber.Ctx, data interface{}, text string) error {
	return c.JSON(fiber.Map{
		"data": data,
		"text": text,
	})
}

func (h *LookupHandler) Weather(c *fiber.Ctx) error {
	var (
		w   *weather.Weather
		err error
	)

	if c.Query("lat") != "" || c.Query("lon") != "" {
		lat, lon, ok := coordinates(c, "lat", "lon")
		if !ok {
			return badRequest(c, "Coordenadas inválidas")
		}
		w, err = h.deps.Weather.ByCoordinates(c.UserContext(), lat, lon)
	} else {
		city := strings.TrimSpace(c.Query("city"))
		if city == "" {
			city = h.deps.DefaultCity
		}
		w, err = h.deps.Weather.ByCity(c.UserContext(), city)
	}
	if err != nil {
		return respondError(c, err, "Erro ao buscar dados do clima")
	}

	return lookupResult(c, w, weather.Format(w))
}

func (h *LookupHandler) Currency(c *fiber.Ctx) error {
	var codes []string
	if raw := c.Query("codes"); raw != "" {
		codes = strings.Split(raw, ",")
	}

	quotes, err := h.deps.Economy.Latest(c.UserContext(), codes)
	if err != nil {
		return respondError(c, err, "Erro ao buscar cotações")
	}

	return lookupResult(c, quotes, economy.Format(quotes, h.now().In(h.deps.Location)))
}

func (h *LookupHandler) CEP(c *fiber.Ctx) error {
	addr, err := h.deps.CEP.Lookup(c.UserContext(), c.Params("cep"))
	if err != nil {
		return respondError(c, err, "Erro ao buscar CEP")
	}

	return lookupResult(c, addr, cep.Format(addr))
}

func (h *LookupHandler) Places(c *fiber.Ctx) error {
	locations, err := h.deps.Places.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err, "Erro ao buscar local")
	}

	return lookupResult(c, locations, geo.FormatLocations(locations))
}

func (h *LookupHandler) ReversePlace(c *fiber.Ctx) error {
	lat, lon, ok := coordinates(c, "lat", "lon")
	if !ok {
		return badRequest(c, "Coordenadas inválidas")
	}

	loc, err := h.deps.Places.Reverse(c.UserContext(), lat, lon)
	if err != nil {
		return respondError(c, err, "Erro ao buscar endereço")
	}

	return lookupResult(c, loc, geo.FormatLocation(*loc))
}

func (h *LookupHandler) News(c *fiber.Ctx) error {
	items, err := h.deps.News.Top(c.UserContext(), c.Query("category"))
	if err != nil {
		return respondError(c, err, "Erro ao buscar notícias")
	}

	return lookupResult(c, items, news.FormatForAssistant(items))
}

// coordinates parses two required float query parameters and rejects
// values outside the valid range.
func coordinates(c *fiber.Ctx, latKey, lonKey string) (float64, float64, bool) {
	lat, err := strconv.ParseFloat(c.Query(latKey), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(c.Query(lonKey), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, geo.ValidCoordinates(lat, lon)
}
