package weather

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iris-assistant/backend/pkg/apperr"
)

const salvadorJSON = `{
	"name": "Salvador",
	"sys": {"country": "BR"},
	"main": {"temp": 28.6, "feels_like": 31.2, "temp_min": 27.4, "temp_max": 29.5, "humidity": 74},
	"weather": [{"description": "nuvens dispersas", "icon": "03d"}],
	"wind": {"speed": 5.1}
}`

func TestByCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "Salvador", r.URL.Query().Get("q"))
		assert.Equal(t, "k", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "pt_br", r.URL.Query().Get("lang"))
		w.Write([]byte(salvadorJSON))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})
	w, err := c.ByCity(context.Background(), "Salvador")
	require.NoError(t, err)

	assert.Equal(t, "Salvador", w.City)
	assert.Equal(t, "BR", w.Country)
	assert.Equal(t, 29, w.Temp)
	assert.Equal(t, 31, w.FeelsLike)
	assert.Equal(t, 27, w.TempMin)
	assert.Equal(t, 30, w.TempMax)
	assert.Equal(t, 74, w.Humidity)
	assert.Equal(t, "03d", w.Icon)

	assert.Equal(t,
		"☁️ Clima em Salvador, BR:\n"+
			"🌡️ Temperatura: 29°C (sensação de 31°C)\n"+
			"📊 Mín: 27°C | Máx: 30°C\n"+
			"💧 Umidade: 74%\n"+
			"🌬️ Vento: 5.1 m/s\n"+
			"☁️ Nuvens dispersas",
		Format(w))
}

func TestByCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "-12.9714", r.URL.Query().Get("lat"))
		assert.Equal(t, "-38.5014", r.URL.Query().Get("lon"))
		w.Write([]byte(salvadorJSON))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k"}).ByCoordinates(context.Background(), -12.9714, -38.5014)
	require.NoError(t, err)

	_, err = NewClient(Config{BaseURL: srv.URL, APIKey: "k"}).ByCoordinates(context.Background(), 91, 0)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = NewClient(Config{BaseURL: srv.URL, APIKey: "k"}).ByCoordinates(context.Background(), math.NaN(), -38.5)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "Atlantida" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k"})

	_, err := c.ByCity(context.Background(), "Atlantida")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Cidade não encontrada", apperr.MessageOf(err, ""))

	_, err = c.ByCity(context.Background(), "Recife")
	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
	assert.Equal(t, "Erro ao buscar dados do clima", apperr.MessageOf(err, ""))

	_, err = NewClient(Config{BaseURL: srv.URL}).ByCity(context.Background(), "Recife")
	assert.Equal(t, apperr.KindAuth, apperr.KindOf(err))
}

func TestEmoji(t *testing.T) {
	assert.Equal(t, "☀️", Emoji("01d"))
	assert.Equal(t, "🌙", Emoji("01n"))
	assert.Equal(t, "🌧️", Emoji("10n"))
	assert.Equal(t, "🌡️", Emoji("99x"))
}
