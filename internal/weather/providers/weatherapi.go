package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		httpCfg: newHTTPConfig(client),
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, query string) (weather.Observation, error) {
	if p.apiKey == "" {
		return weather.Observation{}, fmt.Errorf("weatherapi api key is not configured")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		values.Set("q", query)
		// Today plus the forecast days.
		values.Set("days", strconv.Itoa(weather.ForecastDays+1))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Location struct {
			Name    string  `json:"name"`
			Region  string  `json:"region"`
			Country string  `json:"country"`
			Lat     float64 `json:"lat"`
			Lon     float64 `json:"lon"`
			TzID    string  `json:"tz_id"`
		} `json:"location"`
		Current struct {
			LastUpdatedEpoch int64   `json:"last_updated_epoch"`
			TempC            float64 `json:"temp_c"`
			Humidity         float64 `json:"humidity"`
			WindKph          float64 `json:"wind_kph"`
			PressureMb       float64 `json:"pressure_mb"`
			Condition        struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
		Forecast struct {
			Forecastday []struct {
				DateEpoch int64 `json:"date_epoch"`
				Day       struct {
					AvgTempC    float64 `json:"avgtemp_c"`
					AvgHumidity float64 `json:"avghumidity"`
					MaxWindKph  float64 `json:"maxwind_kph"`
					Condition   struct {
						Text string `json:"text"`
					} `json:"condition"`
				} `json:"day"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, fmt.Errorf("decode weatherapi response: %w", err)
	}
	if payload.Location.Name == "" {
		return weather.Observation{}, fmt.Errorf("weatherapi: empty location for %q: %w", query, weather.ErrLocationNotFound)
	}

	var forecast []weather.Conditions
	for i, fd := range payload.Forecast.Forecastday {
		if i == 0 {
			continue
		}
		if len(forecast) == weather.ForecastDays {
			break
		}
		forecast = append(forecast, weather.Conditions{
			Temperature: fd.Day.AvgTempC,
			Humidity:    fd.Day.AvgHumidity,
			WindSpeed:   fd.Day.MaxWindKph,
			Description: fd.Day.Condition.Text,
			DateTime:    time.Unix(fd.DateEpoch, 0).UTC(),
		})
	}

	name := payload.Location.Name
	for _, part := range []string{payload.Location.Region, payload.Location.Country} {
		if part != "" {
			name += ", " + part
		}
	}

	cur := payload.Current
	return weather.Observation{
		ResolvedName: name,
		Country:      payload.Location.Country,
		Latitude:     payload.Location.Lat,
		Longitude:    payload.Location.Lon,
		Timezone:     payload.Location.TzID,
		Current: weather.Conditions{
			Temperature: cur.TempC,
			Humidity:    cur.Humidity,
			Pressure:    cur.PressureMb,
			WindSpeed:   cur.WindKph,
			Description: cur.Condition.Text,
			DateTime:    time.Unix(cur.LastUpdatedEpoch, 0).UTC(),
		},
		Forecast: forecast,
	}, nil
}
