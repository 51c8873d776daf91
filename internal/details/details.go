// Package details enriches a stored location with address, timezone,
// currency, nearby places, a what3words address and a map link.
package details

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	_ "time/tzdata" // zone data for hosts without a system database

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// Details is the response of GET /api/locations/details/{id}.
type Details struct {
	LocationID       int64    `json:"location_id"`
	FormattedAddress string   `json:"formatted_address"`
	Timezone         Timezone `json:"timezone"`
	NearbyPlaces     []Place  `json:"nearby_places"`
	Currency         Currency `json:"currency"`
	What3Words       string   `json:"what3words"`
	MapURL           string   `json:"map_url"`
}

type Timezone struct {
	Name         string `json:"name"`
	OffsetString string `json:"offset_string"`
}

type Place struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Currency struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Geocoder resolves coordinates to a postal address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// PlaceFinder lists named places around a point.
type PlaceFinder interface {
	Nearby(ctx context.Context, lat, lon float64) ([]Place, error)
}

// WordsConverter turns coordinates into a three-word address.
type WordsConverter interface {
	ToWords(ctx context.Context, lat, lon float64) (string, error)
}

// Service assembles Details. Every collaborator is optional.
type Service struct {
	geocoder Geocoder
	places   PlaceFinder
	words    WordsConverter
	clock    clockwork.Clock
	logger   *slog.Logger
}

type Option func(*Service)

func WithGeocoder(g Geocoder) Option { return func(s *Service) { s.geocoder = g } }
func WithPlaceFinder(p PlaceFinder) Option { return func(s *Service) { s.places = p } }
func WithWords(w WordsConverter) Option { return func(s *Service) { s.words = w } }
func WithClock(c clockwork.Clock) Option { return func(s *Service) { s.clock = c } }
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

func NewService(opts ...Option) *Service {
	s := &Service{
		clock:  clockwork.NewRealClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Details never fails: enrichments that error are logged and left empty.
func (s *Service) Details(ctx context.Context, loc weather.Location) Details {
	d := Details{
		LocationID:       loc.ID,
		FormattedAddress: loc.Name,
		Timezone:         zoneAt(loc.Timezone, s.clock.Now()),
		NearbyPlaces:     []Place{},
		Currency:         currencyFor(loc.Country),
		MapURL:           MapURL(loc.Latitude, loc.Longitude),
	}

	if loc.Latitude == 0 && loc.Longitude == 0 {
		return d
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				s.logger.Warn("location enrichment failed", "source", name, "location_id", loc.ID, "error", err)
			}
		}()
	}

	if s.geocoder != nil {
		run("geocoder", func() error {
			addr, err := s.geocoder.ReverseGeocode(ctx, loc.Latitude, loc.Longitude)
			if err != nil || addr == "" {
				return err
			}
			mu.Lock()
			d.FormattedAddress = addr
			mu.Unlock()
			return nil
		})
	}
	if s.places != nil {
		run("places", func() error {
			places, err := s.places.Nearby(ctx, loc.Latitude, loc.Longitude)
			if err != nil {
				return err
			}
			mu.Lock()
			d.NearbyPlaces = append(d.NearbyPlaces, places...)
			mu.Unlock()
			return nil
		})
	}
	if s.words != nil {
		run("what3words", func() error {
			words, err := s.words.ToWords(ctx, loc.Latitude, loc.Longitude)
			if err != nil {
				return err
			}
			mu.Lock()
			d.What3Words = words
			mu.Unlock()
			return nil
		})
	}

	wg.Wait()
	return d
}

// MapURL links to the coordinates on Google Maps.
func MapURL(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps/search/?api=1&query=%.6f,%.6f", lat, lon)
}

// zoneAt names the zone and its UTC offset at t. Unknown zones read as UTC.
func zoneAt(name string, t time.Time) Timezone {
	tz, err := time.LoadLocation(name)
	if name == "" || err != nil {
		return Timezone{Name: "UTC", OffsetString: "UTC+00:00"}
	}
	_, offset := t.In(tz).Zone()

	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	return Timezone{
		Name:         name,
		OffsetString: fmt.Sprintf("UTC%c%02d:%02d", sign, offset/3600, (offset%3600)/60),
	}
}
