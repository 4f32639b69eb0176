package httpjson

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iris-assistant/backend/pkg/apperr"
)

var msgs = apperr.StatusMessages{NotFound: "não achei", Auth: "sem chave", Default: "falhou"}

func TestGetJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "IrisAssistant/1.0", r.Header.Get("User-Agent"))
		json.NewEncoder(w).Encode(map[string]string{"name": "Salvador"})
	}))
	defer srv.Close()

	c := New("test", time.Second, WithHeader("User-Agent", "IrisAssistant/1.0"))
	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, &out, msgs))
	assert.Equal(t, "Salvador", out.Name)
}

func TestPostJSONSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		json.NewEncoder(w).Encode(map[string]string{"echo": in["q"]})
	}))
	defer srv.Close()

	var out map[string]string
	require.NoError(t, New("test", time.Second).PostJSON(context.Background(), srv.URL, map[string]string{"q": "oi"}, &out, msgs))
	assert.Equal(t, "oi", out["echo"])
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		kind   apperr.Kind
		msg    string
	}{
		{http.StatusNotFound, apperr.KindNotFound, "não achei"},
		{http.StatusUnauthorized, apperr.KindAuth, "sem chave"},
		{http.StatusInternalServerError, apperr.KindNetwork, "falhou"},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		err := New("test", time.Second).GetJSON(context.Background(), srv.URL, &struct{}{}, msgs)
		srv.Close()

		assert.Equal(t, tt.kind, apperr.KindOf(err))
		assert.Equal(t, tt.msg, apperr.MessageOf(err, ""))
	}
}

func TestMalformedBodyIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	err := New("test", time.Second).GetJSON(context.Background(), srv.URL, &struct{}{}, msgs)
	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New("flaky", time.Second)
	for i := 0; i < 7; i++ {
		err := c.GetJSON(context.Background(), srv.URL, nil, msgs)
		assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
		assert.Equal(t, "falhou", apperr.MessageOf(err, ""))
	}
	assert.Equal(t, 5, calls)
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New("lookup", time.Second)
	for i := 0; i < 7; i++ {
		_ = c.GetJSON(context.Background(), srv.URL, nil, msgs)
	}
	assert.Equal(t, 7, calls)
}
