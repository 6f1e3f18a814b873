// Package weather implements a weather lookup tool backed by the
// Open-Meteo geocoding and forecast APIs.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haasonsaas/concierge/internal/tools"
)

// Config holds configuration for the weather tool.
type Config struct {
	// GeocodeURL overrides the geocoding endpoint (used in tests).
	GeocodeURL string

	// ForecastURL overrides the forecast endpoint (used in tests).
	ForecastURL string

	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client
}

// Params are the tool's input parameters.
type Params struct {
	Location string `json:"location"`
}

// Report is the tool's JSON output payload.
type Report struct {
	Location    string  `json:"location"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Temperature float64 `json:"temperature_c"`
	WindSpeed   float64 `json:"wind_speed_kmh"`
	Condition   string  `json:"condition"`
}

// Tool implements tools.Tool for weather lookups.
type Tool struct {
	config     Config
	httpClient *http.Client
}

// New creates the weather tool.
func New(config Config) *Tool {
	if config.GeocodeURL == "" {
		config.GeocodeURL = "https://geocoding-api.open-meteo.com/v1/search"
	}
	if config.ForecastURL == "" {
		config.ForecastURL = "https://api.open-meteo.com/v1/forecast"
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Tool{config: config, httpClient: client}
}

// Name returns the tool name.
func (t *Tool) Name() string { return "weather" }

// Description returns the tool description.
func (t *Tool) Description() string {
	return "Look up current weather conditions for a named location."
}

// Schema returns the parameter schema.
func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"location": {
				"type": "string",
				"description": "City or place name, e.g. \"Berlin\""
			}
		},
		"required": ["location"],
		"additionalProperties": false
	}`)
}

// Execute resolves the location and fetches current conditions.
func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var p Params
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("decode weather params: %w", err)
	}
	if strings.TrimSpace(p.Location) == "" {
		return &tools.Result{Content: "location is empty", IsError: true}, nil
	}

	lat, lon, name, err := t.geocode(ctx, p.Location)
	if err != nil {
		return &tools.Result{Content: fmt.Sprintf("geocode failed: %v", err), IsError: true}, nil
	}

	report, err := t.current(ctx, lat, lon)
	if err != nil {
		return &tools.Result{Content: fmt.Sprintf("forecast failed: %v", err), IsError: true}, nil
	}
	report.Location = name

	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode weather report: %w", err)
	}
	return &tools.Result{Content: string(payload)}, nil
}

func (t *Tool) geocode(ctx context.Context, location string) (lat, lon float64, name string, err error) {
	endpoint := fmt.Sprintf("%s?name=%s&count=1", t.config.GeocodeURL, url.QueryEscape(location))
	var raw struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"results"`
	}
	if err := t.getJSON(ctx, endpoint, &raw); err != nil {
		return 0, 0, "", err
	}
	if len(raw.Results) == 0 {
		return 0, 0, "", fmt.Errorf("no match for %q", location)
	}
	r := raw.Results[0]
	return r.Latitude, r.Longitude, r.Name, nil
}

func (t *Tool) current(ctx context.Context, lat, lon float64) (*Report, error) {
	endpoint := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&current_weather=true",
		t.config.ForecastURL, lat, lon)
	var raw struct {
		CurrentWeather struct {
			Temperature float64 `json:"temperature"`
			WindSpeed   float64 `json:"windspeed"`
			WeatherCode int     `json:"weathercode"`
		} `json:"current_weather"`
	}
	if err := t.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, err
	}
	return &Report{
		Latitude:    lat,
		Longitude:   lon,
		Temperature: raw.CurrentWeather.Temperature,
		WindSpeed:   raw.CurrentWeather.WindSpeed,
		Condition:   conditionFromCode(raw.CurrentWeather.WeatherCode),
	}, nil
}

func (t *Tool) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	res, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("weather backend returned status %d", res.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// conditionFromCode maps WMO weather codes to short descriptions.
func conditionFromCode(code int) string {
	switch {
	case code == 0:
		return "clear"
	case code <= 3:
		return "partly cloudy"
	case code <= 48:
		return "fog"
	case code <= 57:
		return "drizzle"
	case code <= 67:
		return "rain"
	case code <= 77:
		return "snow"
	case code <= 82:
		return "rain showers"
	case code <= 86:
		return "snow showers"
	case code <= 99:
		return "thunderstorm"
	default:
		return "unknown"
	}
}
