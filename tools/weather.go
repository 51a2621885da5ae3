package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"soil-health-agent/metrics"
)

const (
	// DefaultWeatherURL is the OpenWeatherMap current-weather endpoint.
	DefaultWeatherURL = "http://api.openweathermap.org/data/2.5/weather"

	// WeatherToolName is the name the model uses to call the weather tool.
	WeatherToolName = "get_weather_info"

	weatherTimeout     = 15 * time.Second
	maxErrorBodyBytes  = 256
	missingKeyMessage  = "Error: OPENWEATHER_API_KEY environment variable not set."
	weatherDescription = `Gets the current weather for a specified location, including temperature,
humidity, rainfall (last hour), and light condition (weather description).`
)

// WeatherConfig configures the weather tool.
type WeatherConfig struct {
	APIKey     string
	BaseURL    string       // defaults to DefaultWeatherURL
	HTTPClient *http.Client // defaults to a client with a 15s timeout
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// WeatherReport is the normalized record handed to the model.
// Fields the provider omitted are encoded as null, except rainfall which
// defaults to zero.
type WeatherReport struct {
	Location           *string  `json:"location"`
	TemperatureCelsius *float64 `json:"temperature_celsius"`
	HumidityPercent    *float64 `json:"humidity_percent"`
	RainfallLast1hMM   float64  `json:"rainfall_last_1hr_mm"`
	LightCondition     *string  `json:"light_condition"`
}

// owmCurrent mirrors the parts of the OpenWeatherMap response we read.
type owmCurrent struct {
	Name *string `json:"name"`
	Main struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description *string `json:"description"`
	} `json:"weather"`
	Rain struct {
		OneHour *float64 `json:"1h"`
	} `json:"rain"`
}

// placeNotFoundError is returned when the provider answers without a usable
// record for the requested place.
type placeNotFoundError struct {
	status int
}

func (e *placeNotFoundError) Error() string {
	return fmt.Sprintf("place not found (status %d)", e.status)
}

// WeatherTool looks up current conditions for a place name.
type WeatherTool struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewWeatherTool creates a weather tool from cfg.
func NewWeatherTool(cfg WeatherConfig) *WeatherTool {
	w := &WeatherTool{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
	if w.baseURL == "" {
		w.baseURL = DefaultWeatherURL
	}
	if w.httpClient == nil {
		w.httpClient = &http.Client{Timeout: weatherTimeout}
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	w.logger = w.logger.With("component", "weather")
	return w
}

// AsTool exposes Fetch as the get_weather_info tool.
func (w *WeatherTool) AsTool() Tool {
	return NewLocationTool(WeatherToolName, weatherDescription, w.Fetch)
}

// Fetch returns the current weather for location as indented JSON, or a
// human-readable error message. It makes at most one request and none at
// all when no API key is configured.
func (w *WeatherTool) Fetch(ctx context.Context, location string) string {
	if w.apiKey == "" {
		w.logger.Warn("weather lookup skipped, no API key configured")
		return missingKeyMessage
	}

	report, err := w.current(ctx, location)
	if err != nil {
		w.metrics.WeatherRequest(metrics.OutcomeError)
		w.logger.Warn("weather lookup failed", "location", location, "err", err)

		var notFound *placeNotFoundError
		if errors.As(err, &notFound) {
			return fmt.Sprintf("Error: Could not find weather for %s. Status code: %d", location, notFound.status)
		}
		return fmt.Sprintf("Error: API request failed. %v", err)
	}
	w.metrics.WeatherRequest(metrics.OutcomeOK)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error: encoding weather report: %v", err)
	}
	return string(out)
}

func (w *WeatherTool) current(ctx context.Context, location string) (*WeatherReport, error) {
	endpoint, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid weather endpoint: %w", err)
	}
	query := endpoint.Query()
	query.Set("q", location)
	query.Set("appid", w.apiKey)
	query.Set("units", "metric")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	w.logger.Debug("requesting current weather", "location", location)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, redactKey(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, &placeNotFoundError{status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		return nil, &placeNotFoundError{status: resp.StatusCode}
	}

	var payload owmCurrent
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	report := &WeatherReport{
		Location:           payload.Name,
		TemperatureCelsius: payload.Main.Temp,
		HumidityPercent:    payload.Main.Humidity,
	}
	if len(payload.Weather) > 0 {
		report.LightCondition = payload.Weather[0].Description
	}
	if payload.Rain.OneHour != nil {
		report.RainfallLast1hMM = *payload.Rain.OneHour
	}
	return report, nil
}

// redactKey drops the query string, which carries the API key, from
// transport errors before they reach the model.
func redactKey(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	endpoint := "weather endpoint"
	if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
		u.RawQuery = ""
		endpoint = u.String()
	}
	return fmt.Errorf("%s %q: %w", urlErr.Op, endpoint, urlErr.Err)
}
