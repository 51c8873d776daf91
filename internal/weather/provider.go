package weather

import (
	"context"
	"errors"
)

var (
	// ErrLocationNotFound means no provider could resolve the query.
	ErrLocationNotFound = errors.New("location not found")
	// ErrRecordNotFound is returned when a history record or location id is unknown.
	ErrRecordNotFound = errors.New("record not found")
	// ErrNoProviders is returned by Lookup when nothing is configured.
	ErrNoProviders = errors.New("no weather providers configured")
)

// ForecastDays is how many days after today a report carries.
const ForecastDays = 5

// Provider abstracts a weather data source (e.g. Visual Crossing, OpenWeatherMap).
// Fetch returns ErrLocationNotFound (possibly wrapped) when the query does not
// resolve, so the service can tell it apart from transport failures.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, query string) (Observation, error)
}

// Store persists locations and their history.
type Store interface {
	UpsertLocation(ctx context.Context, loc Location) (Location, error)
	GetLocation(ctx context.Context, id int64) (Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	SaveRecord(ctx context.Context, rec Record) (Record, error)
	// ListRecords returns a location's records, newest first.
	ListRecords(ctx context.Context, locationID int64) ([]Record, error)
	DeleteRecord(ctx context.Context, id int64) error
}

// Publisher receives every stored record. It is optional.
type Publisher interface {
	Publish(ctx context.Context, loc Location, rec Record) error
}
