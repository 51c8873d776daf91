package details

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/weather"
)

type stubGeocoder struct {
	addr string
	err  error
}

func (s stubGeocoder) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return s.addr, s.err
}

type stubPlaces []Place

func (s stubPlaces) Nearby(context.Context, float64, float64) ([]Place, error) { return s, nil }

type stubWords struct{ err error }

func (s stubWords) ToWords(context.Context, float64, float64) (string, error) {
	return "index.home.raft", s.err
}

var delhi = weather.Location{
	ID:        4,
	Name:      "New Delhi, Delhi, India",
	Country:   "India",
	Latitude:  28.6139,
	Longitude: 77.209,
	Timezone:  "Asia/Kolkata",
}

func TestDetails_AllSources(t *testing.T) {
	svc := NewService(
		WithGeocoder(stubGeocoder{addr: "Rajpath, New Delhi, Delhi 110001, India"}),
		WithPlaceFinder(stubPlaces{{Name: "Cafe", Type: "cafe"}}),
		WithWords(stubWords{}),
		WithClock(clockwork.NewFakeClockAt(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))),
	)

	d := svc.Details(context.Background(), delhi)
	assert.Equal(t, int64(4), d.LocationID)
	assert.Equal(t, "Rajpath, New Delhi, Delhi 110001, India", d.FormattedAddress)
	assert.Equal(t, Timezone{Name: "Asia/Kolkata", OffsetString: "UTC+05:30"}, d.Timezone)
	assert.Equal(t, Currency{Name: "INR", Symbol: "₹"}, d.Currency)
	assert.Equal(t, []Place{{Name: "Cafe", Type: "cafe"}}, d.NearbyPlaces)
	assert.Equal(t, "index.home.raft", d.What3Words)
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=28.613900,77.209000", d.MapURL)
}

func TestDetails_FailuresLeaveDefaults(t *testing.T) {
	svc := NewService(
		WithGeocoder(stubGeocoder{err: errors.New("quota")}),
		WithWords(stubWords{err: errors.New("bad key")}),
	)

	d := svc.Details(context.Background(), delhi)
	assert.Equal(t, delhi.Name, d.FormattedAddress)
	assert.Empty(t, d.What3Words)
	assert.NotNil(t, d.NearbyPlaces)
	assert.Empty(t, d.NearbyPlaces)
}

func TestZoneAt(t *testing.T) {
	winter := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	summer := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "UTC-05:00", zoneAt("America/New_York", winter).OffsetString)
	assert.Equal(t, "UTC-04:00", zoneAt("America/New_York", summer).OffsetString)
	assert.Equal(t, "UTC+05:45", zoneAt("Asia/Kathmandu", winter).OffsetString)
	assert.Equal(t, Timezone{Name: "UTC", OffsetString: "UTC+00:00"}, zoneAt("", winter))
	assert.Equal(t, Timezone{Name: "UTC", OffsetString: "UTC+00:00"}, zoneAt("Mars/Olympus", winter))
}

func TestCurrencyFor(t *testing.T) {
	tests := map[string]Currency{
		"United States": {Name: "USD", Symbol: "$"},
		"USA":           {Name: "USD", Symbol: "$"},
		"FR":            {Name: "EUR", Symbol: "€"},
		"India":         {Name: "INR", Symbol: "₹"},
		"Norway":        {},
		"":              {},
	}
	for country, want := range tests {
		assert.Equal(t, want, currencyFor(country), country)
	}
	assert.Equal(t, Currency{Name: "GBP", Symbol: "£"}, currencyFor("United Kingdom"))
	assert.Equal(t, Currency{Name: "NOK", Symbol: "kr"}, currencyFor("NO"))
}

func TestOverpassClient_Nearby(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), "around:1000,28.613900,77.209000")
		_, _ = w.Write([]byte(`{"elements": [
			{"tags": {"name": "India Gate Cafe", "amenity": "fast_food"}},
			{"tags": {"amenity": "bench"}},
			{"tags": {"name": "Central Library", "amenity": "library"}}
		]}`))
	}))
	t.Cleanup(srv.Close)

	places, err := NewOverpassClient(srv.URL, time.Second).Nearby(context.Background(), delhi.Latitude, delhi.Longitude)
	require.NoError(t, err)
	assert.Equal(t, []Place{
		{Name: "India Gate Cafe", Type: "fast food"},
		{Name: "Central Library", Type: "library"},
	}, places)
}

func TestWhat3WordsClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/convert-to-3wa", r.URL.Path)
		if r.URL.Query().Get("key") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": {"code": "InvalidKey", "message": "Authentication failed"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"words": "filled.count.soap"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewWhat3WordsClient("good", time.Second)
	c.baseURL = srv.URL
	words, err := c.ToWords(context.Background(), 51.52, -0.19)
	require.NoError(t, err)
	assert.Equal(t, "filled.count.soap", words)

	c.apiKey = "bad"
	_, err = c.ToWords(context.Background(), 51.52, -0.19)
	assert.ErrorContains(t, err, "InvalidKey")
}

func TestGoogleGeocoder_ReverseGeocode(t *testing.T) {
	g := &GoogleGeocoder{reverse: func(loc geocoder.Location) ([]geocoder.Address, error) {
		assert.InDelta(t, 28.6139, loc.Latitude, 1e-9)
		return []geocoder.Address{{FormattedAddress: "New Delhi, India"}}, nil
	}}
	addr, err := g.ReverseGeocode(context.Background(), 28.6139, 77.209)
	require.NoError(t, err)
	assert.Equal(t, "New Delhi, India", addr)

	g.reverse = func(geocoder.Location) ([]geocoder.Address, error) { return nil, nil }
	addr, err = g.ReverseGeocode(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, addr)
}

func TestGoogleGeocoder_ContextCanceled(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	g := &GoogleGeocoder{reverse: func(geocoder.Location) ([]geocoder.Address, error) {
		<-block
		return nil, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.ReverseGeocode(ctx, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
