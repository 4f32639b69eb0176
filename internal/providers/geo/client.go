package geo

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iris-assistant/backend/internal/providers/httpjson"
	"github.com/iris-assistant/backend/pkg/apperr"
)

const DefaultUserAgent = "IrisAssistant/1.0"

type Address struct {
	Road     string `json:"road,omitempty"`
	Suburb   string `json:"suburb,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
	Postcode string `json:"postcode,omitempty"`
}

type Location struct {
	Name        string  `json:"name"`
	DisplayName string  `json:"displayName"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Type        string  `json:"type"`
	Address     Address `json:"address"`
}

type Config struct {
	BaseURL    string
	UserAgent  string
	TimeoutSec int
}

type Client struct {
	baseURL string
	http    *httpjson.Client
}

var (
	searchMessages  = apperr.StatusMessages{Default: "Erro ao buscar localização"}
	reverseMessages = apperr.StatusMessages{Default: "Erro ao buscar endereço"}
)

func NewClient(cfg Config) *Client {
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: httpjson.New("nominatim", time.Duration(cfg.TimeoutSec)*time.Second,
			httpjson.WithHeader("User-Agent", ua)),
	}
}

type place struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Type        string `json:"type"`
	Error       string `json:"error"`
	Address     struct {
		Road     string `json:"road"`
		Suburb   string `json:"suburb"`
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		State    string `json:"state"`
		Country  string `json:"country"`
		Postcode string `json:"postcode"`
	} `json:"address"`
}

func (p place) toLocation() Location {
	name := p.Name
	if name == "" {
		name = strings.TrimSpace(strings.SplitN(p.DisplayName, ",", 2)[0])
	}

	city := p.Address.City
	if city == "" {
		city = p.Address.Town
	}
	if city == "" {
		city = p.Address.Village
	}

	lat, _ := strconv.ParseFloat(p.Lat, 64)
	lon, _ := strconv.ParseFloat(p.Lon, 64)

	return Location{
		Name:        name,
		DisplayName: p.DisplayName,
		Lat:         lat,
		Lon:         lon,
		Type:        TranslateType(p.Type),
		Address: Address{
			Road:     p.Address.Road,
			Suburb:   p.Address.Suburb,
			City:     city,
			State:    p.Address.State,
			Country:  p.Address.Country,
			Postcode: p.Address.Postcode,
		},
	}
}

// Search returns up to five matches for a free text query.
func (c *Client) Search(ctx context.Context, query string) ([]Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.InvalidInput("Por favor, especifique o que você está procurando. Exemplo: 'onde fica a Torre Eiffel'")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", "5")
	params.Set("accept-language", "pt-BR")

	var resp []place
	if err := c.http.GetJSON(ctx, c.baseURL+"/search?"+params.Encode(), &resp, searchMessages); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, apperr.NotFound("Local não encontrado")
	}

	locations := make([]Location, 0, len(resp))
	for _, p := range resp {
		locations = append(locations, p.toLocation())
	}
	return locations, nil
}

// Reverse resolves coordinates to the nearest address.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Location, error) {
	if !ValidCoordinates(lat, lon) {
		return nil, apperr.InvalidInput("Coordenadas inválidas")
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("accept-language", "pt-BR")

	var resp place
	if err := c.http.GetJSON(ctx, c.baseURL+"/reverse?"+params.Encode(), &resp, reverseMessages); err != nil {
		return nil, err
	}
	// Nominatim reports "Unable to geocode" with a 200.
	if resp.Error != "" || resp.DisplayName == "" {
		return nil, apperr.NotFound("Endereço não encontrado")
	}

	loc := resp.toLocation()
	return &loc, nil
}

var placeTypes = map[string]string{
	"city":          "Cidade",
	"town":          "Cidade",
	"village":       "Vila",
	"restaurant":    "Restaurante",
	"cafe":          "Café",
	"hospital":      "Hospital",
	"school":        "Escola",
	"university":    "Universidade",
	"park":          "Parque",
	"museum":        "Museu",
	"theatre":       "Teatro",
	"cinema":        "Cinema",
	"bank":          "Banco",
	"pharmacy":      "Farmácia",
	"supermarket":   "Supermercado",
	"hotel":         "Hotel",
	"gas_station":   "Posto de Gasolina",
	"stadium":       "Estádio",
	"airport":       "Aeroporto",
	"train_station": "Estação de Trem",
	"bus_station":   "Estação de Ônibus",
}

func TranslateType(t string) string {
	if pt, ok := placeTypes[t]; ok {
		return pt
	}
	return t
}

func FormatLocation(l Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📍 %s\n", l.Name)
	fmt.Fprintf(&b, "🗺️ %s\n", l.DisplayName)
	fmt.Fprintf(&b, "📊 Tipo: %s\n", l.Type)
	fmt.Fprintf(&b, "🌐 Coordenadas: %.6f, %.6f", l.Lat, l.Lon)
	if l.Address.Postcode != "" {
		fmt.Fprintf(&b, "\n📮 CEP: %s", l.Address.Postcode)
	}
	return b.String()
}

// FormatLocations lists the first three matches and counts the rest.
func FormatLocations(locations []Location) string {
	if len(locations) == 0 {
		return "📍 Nenhum local encontrado."
	}
	if len(locations) == 1 {
		return FormatLocation(locations[0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📍 Encontrei %d %s:\n\n", len(locations), plural(len(locations)))
	for i, l := range locations {
		if i == 3 {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n   %s\n   🗺️ %s\n\n", i+1, l.Name, l.DisplayName, l.Type)
	}
	if rest := len(locations) - 3; rest > 0 {
		fmt.Fprintf(&b, "... e mais %d %s.", rest, plural(rest))
	}
	return strings.TrimSpace(b.String())
}

func plural(n int) string {
	if n > 1 {
		return "resultados"
	}
	return "resultado"
}

const earthRadiusKm = 6371.0

// ValidCoordinates reports whether lat and lon are finite and in range.
// NaN fails every comparison and is rejected.
func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
