package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/weather"
)

var fastBackoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

const visualCrossingBody = `{
  "resolvedAddress": "New York, NY, United States",
  "latitude": 40.7146,
  "longitude": -74.0071,
  "timezone": "America/New_York",
  "currentConditions": {"datetimeEpoch": 1714564800, "temp": 18.2, "humidity": 55, "pressure": 1015, "windspeed": 12.5, "conditions": "Partially cloudy"},
  "days": [
    {"datetimeEpoch": 1714536000, "temp": 17, "conditions": "Clear"},
    {"datetimeEpoch": 1714622400, "temp": 19, "conditions": "Rain"},
    {"datetimeEpoch": 1714708800, "temp": 20, "conditions": "Clear"},
    {"datetimeEpoch": 1714795200, "temp": 21, "conditions": "Clear"},
    {"datetimeEpoch": 1714881600, "temp": 22, "conditions": "Clear"},
    {"datetimeEpoch": 1714968000, "temp": 23, "conditions": "Overcast"},
    {"datetimeEpoch": 1715054400, "temp": 24, "conditions": "Clear"}
  ]
}`

func newVisualCrossing(t *testing.T, h http.HandlerFunc) *VisualCrossingProvider {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	p := NewVisualCrossingProvider(srv.Client(), "test-key")
	p.baseURL = srv.URL + "/timeline"
	p.httpCfg.Backoff = fastBackoff
	return p
}

func TestVisualCrossing_Fetch(t *testing.T) {
	var gotPath, gotKey string
	p := newVisualCrossing(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotKey = r.URL.Query().Get("key")
		_, _ = w.Write([]byte(visualCrossingBody))
	})

	obs, err := p.Fetch(context.Background(), "10001,USA")
	require.NoError(t, err)

	assert.Equal(t, "/timeline/10001%2CUSA", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "New York, NY, United States", obs.ResolvedName)
	assert.Equal(t, "United States", obs.Country)
	assert.Equal(t, "America/New_York", obs.Timezone)
	assert.InDelta(t, 18.2, obs.Current.Temperature, 1e-9)
	assert.Equal(t, "Partially cloudy", obs.Current.Description)
	assert.Equal(t, time.Unix(1714564800, 0).UTC(), obs.Current.DateTime)

	require.Len(t, obs.Forecast, weather.ForecastDays)
	assert.InDelta(t, 19, obs.Forecast[0].Temperature, 0, "today is skipped")
	assert.Equal(t, "Overcast", obs.Forecast[4].Description)
}

func TestVisualCrossing_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	p := newVisualCrossing(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "Bad API Request:Invalid location parameter value.", http.StatusBadRequest)
	})

	_, err := p.Fetch(context.Background(), "Nowhereville")
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestVisualCrossing_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newVisualCrossing(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(visualCrossingBody))
	})

	obs, err := p.Fetch(context.Background(), "New York")
	require.NoError(t, err)
	assert.Equal(t, "New York, NY, United States", obs.ResolvedName)
	assert.Equal(t, int32(3), calls.Load())
}

func TestVisualCrossing_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	p := newVisualCrossing(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := p.Fetch(context.Background(), "New York")
	assert.ErrorIs(t, err, errRateLimited)
	assert.Equal(t, int32(fastBackoff.MaxRetries+1), calls.Load())
}

func TestVisualCrossing_MissingKey(t *testing.T) {
	p := NewVisualCrossingProvider(http.DefaultClient, "")
	_, err := p.Fetch(context.Background(), "Paris")
	assert.Error(t, err)
}

func TestDoRequest_ContextCanceled(t *testing.T) {
	p := newVisualCrossing(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	p.httpCfg.Backoff = BackoffConfig{MaxRetries: 5, InitialInterval: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Fetch(ctx, "Paris")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenWeather_Fetch(t *testing.T) {
	// 2024-05-01 10:00 UTC, city offset +2h.
	const now = 1714557600
	mux := http.NewServeMux()
	var zipParam string
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		zipParam = r.URL.Query().Get("zip")
		_, _ = w.Write([]byte(`{
			"dt": 1714557600, "name": "Paris", "timezone": 7200,
			"coord": {"lat": 48.85, "lon": 2.35}, "sys": {"country": "FR"},
			"main": {"temp": 15, "humidity": 60, "pressure": 1012},
			"wind": {"speed": 5},
			"weather": [{"main": "Clouds", "description": "broken clouds"}]
		}`))
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"list": [
			{"dt": 1714568400, "main": {"temp": 99}, "weather": [{"description": "today"}]},
			{"dt": 1714640400, "main": {"temp": 10, "humidity": 50, "pressure": 1000}, "wind": {"speed": 2}, "weather": [{"description": "light rain"}]},
			{"dt": 1714651200, "main": {"temp": 20, "humidity": 70, "pressure": 1010}, "wind": {"speed": 4}, "weather": [{"description": "clear sky"}]}
		]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewOpenWeatherProvider(srv.Client(), "k")
	p.baseURL = srv.URL
	p.httpCfg.Backoff = fastBackoff

	obs, err := p.Fetch(context.Background(), "Paris")
	require.NoError(t, err)
	assert.Empty(t, zipParam)

	assert.Equal(t, "Paris, FR", obs.ResolvedName)
	assert.Equal(t, "FR", obs.Country)
	assert.Equal(t, "Broken clouds", obs.Current.Description)
	assert.InDelta(t, 18, obs.Current.WindSpeed, 1e-9)
	assert.Equal(t, time.Unix(now, 0).UTC(), obs.Current.DateTime)

	require.Len(t, obs.Forecast, 1)
	day := obs.Forecast[0]
	assert.InDelta(t, 15, day.Temperature, 1e-9)
	assert.InDelta(t, 60, day.Humidity, 1e-9)
	assert.InDelta(t, 10.8, day.WindSpeed, 1e-9)
	// 11:00 and 14:00 local; 11:00 is closer to noon.
	assert.Equal(t, "Light rain", day.Description)
}

func TestOpenWeather_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	p := NewOpenWeatherProvider(srv.Client(), "k")
	p.baseURL = srv.URL
	p.httpCfg.Backoff = fastBackoff

	_, err := p.Fetch(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)
}

func TestPostalQuery(t *testing.T) {
	zip, ok := postalQuery("10001,USA")
	assert.True(t, ok)
	assert.Equal(t, "10001,US", zip)

	zip, ok = postalQuery("110001,India")
	assert.True(t, ok)
	assert.Equal(t, "110001,IN", zip)

	_, ok = postalQuery("Paris,FR")
	assert.False(t, ok)
	_, ok = postalQuery("Paris")
	assert.False(t, ok)
}

func TestWeatherAPI_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "6", r.URL.Query().Get("days"))
		_, _ = w.Write([]byte(`{
			"location": {"name": "Delhi", "region": "Delhi", "country": "India", "lat": 28.6, "lon": 77.2, "tz_id": "Asia/Kolkata"},
			"current": {"last_updated_epoch": 1714557600, "temp_c": 35, "humidity": 20, "wind_kph": 9, "pressure_mb": 1005, "condition": {"text": "Sunny"}},
			"forecast": {"forecastday": [
				{"date_epoch": 1714521600, "day": {"avgtemp_c": 34, "condition": {"text": "Sunny"}}},
				{"date_epoch": 1714608000, "day": {"avgtemp_c": 36, "avghumidity": 18, "maxwind_kph": 14, "condition": {"text": "Patchy rain nearby"}}}
			]}
		}`))
	}))
	t.Cleanup(srv.Close)

	p := NewWeatherAPIProvider(srv.Client(), "k")
	p.baseURL = srv.URL
	p.httpCfg.Backoff = fastBackoff

	obs, err := p.Fetch(context.Background(), "110001,India")
	require.NoError(t, err)
	assert.Equal(t, "Delhi, Delhi, India", obs.ResolvedName)
	assert.Equal(t, "Asia/Kolkata", obs.Timezone)
	assert.InDelta(t, 35, obs.Current.Temperature, 0)
	require.Len(t, obs.Forecast, 1)
	assert.Equal(t, weather.ConditionRain, obs.Forecast[0].Condition())
}
