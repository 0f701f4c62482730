package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfeed/internal/config"
)

func TestCurrentCachesDescription(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "Pollung", r.URL.Query().Get("q"))
		assert.Equal(t, "secret", r.URL.Query().Get("appid"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"weather":[{"main":"Clouds","description":"awan mendung"}]}`))
	}))
	defer srv.Close()

	client := NewClient(config.WeatherConfig{
		APIKey:   "secret",
		BaseURL:  srv.URL,
		Location: "Pollung",
		Timeout:  time.Second,
		CacheTTL: time.Minute,
	}, nil)

	assert.Equal(t, "awan mendung", client.Current(context.Background()))
	assert.Equal(t, "awan mendung", client.Current(context.Background()))
	assert.EqualValues(t, 1, calls.Load())
}

func TestCurrentFallsBackToUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
	}))
	defer srv.Close()

	client := NewClient(config.WeatherConfig{APIKey: "bad", BaseURL: srv.URL, Location: "Pollung", Timeout: time.Second}, nil)
	assert.Equal(t, Unknown, client.Current(context.Background()))

	_, err := client.fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestCurrentWithoutKey(t *testing.T) {
	client := NewClient(config.WeatherConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, nil)
	assert.Equal(t, Unknown, client.Current(context.Background()))
}
