package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "52.52", r.URL.Query().Get("latitude"))
		assert.Equal(t, "13.41", r.URL.Query().Get("longitude"))
		assert.Equal(t, "auto", r.URL.Query().Get("timezone"))
		fmt.Fprint(w, `{"current":{"temperature_2m":17.5}}`)
	}))
	defer srv.Close()

	w := NewWeather(srv.Client())
	w.baseURL = srv.URL

	out, err := w.Execute(context.Background(), Env{}, json.RawMessage(`{"latitude":52.52,"longitude":13.41}`))
	require.NoError(t, err)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"current":{"temperature_2m":17.5}}`, string(raw))
}

func TestWeatherRejectsBadInput(t *testing.T) {
	w := NewWeather(nil)

	_, err := w.Execute(context.Background(), Env{}, json.RawMessage(`{"latitude":10}`))
	assert.EqualError(t, err, "latitude and longitude are required")

	_, err = w.Execute(context.Background(), Env{}, json.RawMessage(`{"latitude":91,"longitude":0}`))
	assert.EqualError(t, err, "coordinates out of range")
}

func TestWeatherUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWeather(srv.Client())
	w.baseURL = srv.URL

	_, err := w.Execute(context.Background(), Env{}, json.RawMessage(`{"latitude":1,"longitude":2}`))
	assert.EqualError(t, err, "fetch weather: status 500")
}
