package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/set-night/mindchat/internal/config"
)

const openMeteoURL = "https://api.open-meteo.com/v1/forecast"

type Weather struct {
	baseURL    string
	httpClient *http.Client
}

func NewWeather(httpClient *http.Client) *Weather {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.ToolHTTPTimeout}
	}
	return &Weather{baseURL: openMeteoURL, httpClient: httpClient}
}

func (w *Weather) Name() string { return "getWeather" }

func (w *Weather) Description() string {
	return "Get the current weather at a location"
}

func (w *Weather) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"latitude":  map[string]any{"type": "number"},
			"longitude": map[string]any{"type": "number"},
		},
		"required": []string{"latitude", "longitude"},
	}
}

type weatherInput struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (w *Weather) Execute(ctx context.Context, _ Env, input json.RawMessage) (any, error) {
	var in weatherInput
	if err := decodeInput(input, &in); err != nil {
		return nil, err
	}
	if in.Latitude == nil || in.Longitude == nil {
		return nil, fmt.Errorf("latitude and longitude are required")
	}
	if *in.Latitude < -90 || *in.Latitude > 90 || *in.Longitude < -180 || *in.Longitude > 180 {
		return nil, fmt.Errorf("coordinates out of range")
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(*in.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(*in.Longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m")
	q.Set("hourly", "temperature_2m")
	q.Set("daily", "sunrise,sunset")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch weather: status %d", resp.StatusCode)
	}

	var forecast json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("parse weather: %w", err)
	}
	return forecast, nil
}
