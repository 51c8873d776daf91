package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
// Current conditions and the 3-hourly forecast are separate endpoints; the
// forecast is folded into one entry per local day.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5",
		httpCfg: newHTTPConfig(client),
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, query string) (weather.Observation, error) {
	if p.apiKey == "" {
		return weather.Observation{}, fmt.Errorf("openweather api key is not configured")
	}

	var current owCurrent
	if err := p.get(ctx, "weather", query, &current); err != nil {
		return weather.Observation{}, err
	}

	var forecast owForecast
	if err := p.get(ctx, "forecast", query, &forecast); err != nil {
		return weather.Observation{}, err
	}

	offset := time.Duration(current.Timezone) * time.Second
	name := current.Name
	if current.Sys.Country != "" {
		name = fmt.Sprintf("%s, %s", current.Name, current.Sys.Country)
	}

	return weather.Observation{
		ResolvedName: name,
		Country:      current.Sys.Country,
		Latitude:     current.Coord.Lat,
		Longitude:    current.Coord.Lon,
		Current: weather.Conditions{
			Temperature: current.Main.Temp,
			Humidity:    current.Main.Humidity,
			Pressure:    current.Main.Pressure,
			WindSpeed:   msToKmh(current.Wind.Speed),
			Description: describe(current.Weather),
			DateTime:    time.Unix(current.Dt, 0).UTC(),
		},
		Forecast: dailyForecast(forecast.List, current.Dt, offset),
	}, nil
}

func (p *OpenWeatherProvider) get(ctx context.Context, endpoint, query string, out any) error {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		if zip, ok := postalQuery(query); ok {
			values.Set("zip", zip)
		} else {
			values.Set("q", query)
		}

		u := fmt.Sprintf("%s/%s?%s", p.baseURL, endpoint, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode openweather %s response: %w", endpoint, err)
	}
	return nil
}

type owMain struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
	Pressure float64 `json:"pressure"`
}

type owWeather struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owCurrent struct {
	Dt       int64  `json:"dt"`
	Name     string `json:"name"`
	Timezone int64  `json:"timezone"` // seconds east of UTC
	Coord    struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main owMain `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []owWeather `json:"weather"`
}

type owEntry struct {
	Dt   int64  `json:"dt"`
	Main owMain `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []owWeather `json:"weather"`
}

type owForecast struct {
	List []owEntry `json:"list"`
}

// dailyForecast averages the 3-hourly entries of each local day after today.
// The description is taken from the entry closest to local noon.
func dailyForecast(entries []owEntry, nowUnix int64, offset time.Duration) []weather.Conditions {
	localDay := func(unix int64) string {
		return time.Unix(unix, 0).UTC().Add(offset).Format("2006-01-02")
	}
	today := localDay(nowUnix)

	byDay := make(map[string][]owEntry)
	for _, e := range entries {
		day := localDay(e.Dt)
		if day <= today {
			continue
		}
		byDay[day] = append(byDay[day], e)
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	var out []weather.Conditions
	for _, d := range days {
		if len(out) == weather.ForecastDays {
			break
		}
		group := byDay[d]

		var sumTemp, sumHumidity, sumPressure, sumWind float64
		noon := group[0]
		for _, e := range group {
			sumTemp += e.Main.Temp
			sumHumidity += e.Main.Humidity
			sumPressure += e.Main.Pressure
			sumWind += e.Wind.Speed
			if noonDistance(e.Dt, offset) < noonDistance(noon.Dt, offset) {
				noon = e
			}
		}
		n := float64(len(group))
		out = append(out, weather.Conditions{
			Temperature: sumTemp / n,
			Humidity:    sumHumidity / n,
			Pressure:    sumPressure / n,
			WindSpeed:   msToKmh(sumWind / n),
			Description: describe(noon.Weather),
			DateTime:    time.Unix(noon.Dt, 0).UTC(),
		})
	}
	return out
}

func noonDistance(unix int64, offset time.Duration) time.Duration {
	t := time.Unix(unix, 0).UTC().Add(offset)
	noon := time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
	d := t.Sub(noon)
	if d < 0 {
		return -d
	}
	return d
}

func describe(items []owWeather) string {
	if len(items) == 0 {
		return "Unknown"
	}
	if items[0].Description != "" {
		d := items[0].Description
		return strings.ToUpper(d[:1]) + d[1:]
	}
	return items[0].Main
}

func msToKmh(v float64) float64 {
	return v * 3.6
}

// postalQuery turns "10001,USA" into OpenWeatherMap's "10001,US" zip form.
func postalQuery(query string) (string, bool) {
	code, country, ok := strings.Cut(query, ",")
	if !ok {
		return "", false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	switch country {
	case "USA":
		return code + ",US", true
	case "India":
		return code + ",IN", true
	default:
		return "", false
	}
}
