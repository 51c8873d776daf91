package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// VisualCrossingProvider implements weather.Provider on the Visual Crossing
// timeline API, which answers current conditions and daily forecast in one call.
type VisualCrossingProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewVisualCrossingProvider(client *http.Client, apiKey string) *VisualCrossingProvider {
	return &VisualCrossingProvider{
		name:    "visualcrossing",
		apiKey:  apiKey,
		baseURL: "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline",
		httpCfg: newHTTPConfig(client),
		circuit: newCircuitBreaker("visualcrossing"),
	}
}

func (p *VisualCrossingProvider) Name() string {
	return p.name
}

func (p *VisualCrossingProvider) Fetch(ctx context.Context, query string) (weather.Observation, error) {
	if p.apiKey == "" {
		return weather.Observation{}, fmt.Errorf("visualcrossing api key is not configured")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("unitGroup", "metric")
		values.Set("key", p.apiKey)
		values.Set("include", "current,days")

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, url.PathEscape(query), values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		ResolvedAddress   string      `json:"resolvedAddress"`
		Latitude          float64     `json:"latitude"`
		Longitude         float64     `json:"longitude"`
		Timezone          string      `json:"timezone"`
		CurrentConditions *vcReading  `json:"currentConditions"`
		Days              []vcReading `json:"days"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, fmt.Errorf("decode visualcrossing response: %w", err)
	}
	if payload.CurrentConditions == nil || len(payload.Days) == 0 {
		return weather.Observation{}, fmt.Errorf("visualcrossing: no current conditions for %q: %w", query, weather.ErrLocationNotFound)
	}

	// days[0] is today; the report carries the days after it.
	var forecast []weather.Conditions
	for i, d := range payload.Days {
		if i == 0 {
			continue
		}
		if len(forecast) == weather.ForecastDays {
			break
		}
		forecast = append(forecast, d.conditions())
	}

	return weather.Observation{
		ResolvedName: payload.ResolvedAddress,
		Country:      common.LastField(payload.ResolvedAddress, ","),
		Latitude:     payload.Latitude,
		Longitude:    payload.Longitude,
		Timezone:     payload.Timezone,
		Current:      payload.CurrentConditions.conditions(),
		Forecast:     forecast,
	}, nil
}

type vcReading struct {
	DatetimeEpoch int64   `json:"datetimeEpoch"`
	Temp          float64 `json:"temp"`
	Humidity      float64 `json:"humidity"`
	Pressure      float64 `json:"pressure"`
	WindSpeed     float64 `json:"windspeed"` // km/h with unitGroup=metric
	Conditions    string  `json:"conditions"`
}

func (r vcReading) conditions() weather.Conditions {
	var ts time.Time
	if r.DatetimeEpoch > 0 {
		ts = time.Unix(r.DatetimeEpoch, 0).UTC()
	}
	desc := r.Conditions
	if desc == "" {
		desc = "Unknown"
	}
	return weather.Conditions{
		Temperature: r.Temp,
		Humidity:    r.Humidity,
		Pressure:    r.Pressure,
		WindSpeed:   r.WindSpeed,
		Description: desc,
		DateTime:    ts,
	}
}
