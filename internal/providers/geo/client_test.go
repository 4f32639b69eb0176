package geo

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iris-assistant/backend/pkg/apperr"
)

const searchJSON = `[
	{"name":"Elevador Lacerda","display_name":"Elevador Lacerda, Praça Tomé de Souza, Salvador, Bahia, Brasil","lat":"-12.9744","lon":"-38.5130","type":"attraction","address":{"road":"Praça Tomé de Souza","town":"Salvador","state":"Bahia","country":"Brasil","postcode":"40020-010"}},
	{"name":"","display_name":"Mercado Modelo, Salvador, Bahia, Brasil","lat":"-12.9730","lon":"-38.5139","type":"supermarket","address":{"village":"Comércio"}}
]`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "elevador lacerda", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "pt-BR", r.URL.Query().Get("accept-language"))
		w.Write([]byte(searchJSON))
	}))
	defer srv.Close()

	locs, err := NewClient(Config{BaseURL: srv.URL}).Search(context.Background(), "elevador lacerda")
	require.NoError(t, err)
	require.Len(t, locs, 2)

	assert.Equal(t, "Elevador Lacerda", locs[0].Name)
	assert.Equal(t, "Salvador", locs[0].Address.City)
	assert.InDelta(t, -12.9744, locs[0].Lat, 1e-9)
	assert.Equal(t, "Mercado Modelo", locs[1].Name)
	assert.Equal(t, "Comércio", locs[1].Address.City)
	assert.Equal(t, "Supermercado", locs[1].Type)
}

func TestSearchEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Search(context.Background(), "lugar nenhum")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Local não encontrado", apperr.MessageOf(err, ""))

	_, err = c.Search(context.Background(), "  ")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestReverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		if r.URL.Query().Get("lat") == "0" {
			w.Write([]byte(`{"error":"Unable to geocode"}`))
			return
		}
		w.Write([]byte(`{"display_name":"Avenida Paulista, Bela Vista, São Paulo","lat":"-23.5614","lon":"-46.6559","type":"road","address":{"road":"Avenida Paulista","city":"São Paulo"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	loc, err := c.Reverse(context.Background(), -23.5614, -46.6559)
	require.NoError(t, err)
	assert.Equal(t, "Avenida Paulista", loc.Name)
	assert.Equal(t, "road", loc.Type)

	_, err = c.Reverse(context.Background(), 0, 0)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = c.Reverse(context.Background(), 100, 0)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(-12.9714, -38.5014))
	assert.True(t, ValidCoordinates(90, -180))
	assert.False(t, ValidCoordinates(90.1, 0))
	assert.False(t, ValidCoordinates(0, 180.5))
	assert.False(t, ValidCoordinates(math.NaN(), 0))
	assert.False(t, ValidCoordinates(0, math.NaN()))
	assert.False(t, ValidCoordinates(math.Inf(1), 0))
}

func TestFormatLocation(t *testing.T) {
	out := FormatLocation(Location{
		Name:        "Elevador Lacerda",
		DisplayName: "Elevador Lacerda, Salvador",
		Lat:         -12.9744,
		Lon:         -38.513,
		Type:        "Atração",
		Address:     Address{Postcode: "40020-010"},
	})
	assert.Equal(t, "📍 Elevador Lacerda\n🗺️ Elevador Lacerda, Salvador\n📊 Tipo: Atração\n🌐 Coordenadas: -12.974400, -38.513000\n📮 CEP: 40020-010", out)
}

func TestFormatLocations(t *testing.T) {
	assert.Equal(t, "📍 Nenhum local encontrado.", FormatLocations(nil))

	locs := make([]Location, 5)
	for i := range locs {
		locs[i] = Location{Name: "L", DisplayName: "D", Type: "T"}
	}
	out := FormatLocations(locs)
	assert.True(t, strings.HasPrefix(out, "📍 Encontrei 5 resultados:\n\n1. L\n   D\n   🗺️ T"))
	assert.Equal(t, 3, strings.Count(out, "🗺️ T"))
	assert.True(t, strings.HasSuffix(out, "... e mais 2 resultados."))

	out = FormatLocations(locs[:4])
	assert.True(t, strings.HasSuffix(out, "... e mais 1 resultado."))
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, Haversine(-23.5614, -46.6559, -23.5614, -46.6559), 1e-9)
	// São Paulo to Rio de Janeiro is roughly 360 km.
	assert.InDelta(t, 360, Haversine(-23.5505, -46.6333, -22.9068, -43.1729), 10)
	assert.InDelta(t, Haversine(1, 2, 3, 4), Haversine(3, 4, 1, 2), 1e-9)
}
