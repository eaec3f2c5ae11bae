package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Crop-Advisor/agent/contract"
)

const (
	kelvinOffset = 273.15

	WeatherNoData          = "No weather data available."
	WeatherFetchError      = "Error fetching data from OpenWeather API."
	WeatherProcessingError = "An error occurred while processing weather data."
	NoDescription          = "No description available."
)

// OpenWeather reports current conditions for a location. The date is ignored:
// the endpoint only serves current weather.
type OpenWeather struct {
	apiKey   string
	endpoint string
	http     *getter
}

type openWeatherResponse struct {
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Message string `json:"message"`
}

func NewOpenWeather(cfg Config, client *http.Client) *OpenWeather {
	return &OpenWeather{
		apiKey:   strings.TrimSpace(cfg.OpenWeatherAPIKey),
		endpoint: strings.TrimSpace(cfg.OpenWeatherURL),
		http:     newGetter(cfg, client),
	}
}

func (p *OpenWeather) Kind() contractx.ProviderKind {
	return contractx.ProviderWeather
}

func (p *OpenWeather) Fetch(ctx context.Context, q contractx.Query) contractx.ProviderResult {
	logger := log.With().Str("provider", string(p.Kind())).Logger()
	logger.Info().
		Float64("latitude", q.Location.Latitude).
		Float64("longitude", q.Location.Longitude).
		Msg("fetching weather data")

	status, body, err := p.http.get(ctx, p.endpoint, url.Values{
		"lat":   {formatCoord(q.Location.Latitude)},
		"lon":   {formatCoord(q.Location.Longitude)},
		"appid": {p.apiKey},
	})
	if err != nil {
		logger.Error().Err(err).Msg("weather request failed")
		return contractx.Failure(p.Kind(), WeatherProcessingError)
	}

	var parsed openWeatherResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if status != http.StatusOK {
		reason := WeatherFetchError
		if decodeErr == nil && strings.TrimSpace(parsed.Message) != "" {
			reason = strings.TrimSpace(parsed.Message)
		}
		logger.Error().Int("status", status).Str("reason", reason).Msg("weather api error")
		return contractx.Failure(p.Kind(), reason)
	}

	if decodeErr != nil {
		logger.Error().Err(decodeErr).Msg("decode weather response")
		return contractx.Failure(p.Kind(), WeatherProcessingError)
	}
	if parsed.Main == nil || parsed.Main.Temp == nil {
		logger.Error().Msg("weather response has no readings")
		return contractx.Failure(p.Kind(), WeatherNoData)
	}

	condition := NoDescription
	if len(parsed.Weather) > 0 && strings.TrimSpace(parsed.Weather[0].Description) != "" {
		condition = strings.TrimSpace(parsed.Weather[0].Description)
	}

	return contractx.Success(p.Kind(), contractx.WeatherData{
		TemperatureC: KelvinToCelsius(*parsed.Main.Temp),
		Condition:    condition,
		HumidityPct:  parsed.Main.Humidity,
	})
}

func KelvinToCelsius(k float64) float64 {
	return k - kelvinOffset
}
