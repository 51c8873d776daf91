package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-lookup/internal/locquery"
	"github.com/i474232898/weather-lookup/internal/observability"
)

// ErrProvidersUnavailable is returned when every provider failed for reasons
// other than an unknown location.
var ErrProvidersUnavailable = errors.New("weather providers unavailable")

// ValidationError is returned by Lookup when the query is rejected before
// any provider is called. Its message is the user-facing reason.
type ValidationError struct {
	Result locquery.Result
}

func (e *ValidationError) Error() string { return e.Result.Reason() }

func (e *ValidationError) Unwrap() error { return e.Result.Err() }

// Service orchestrates providers, the history store and the optional publisher.
type Service struct {
	store     Store
	providers []Provider
	publisher Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher forwards every saved record to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new Service. Providers are tried in the given order.
func NewService(store Store, providers []Provider, opts ...Option) *Service {
	s := &Service{
		store:     store,
		providers: providers,
		clock:     clockwork.NewRealClock(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup validates input, fetches the current weather and forecast for it,
// and records the result in the location's history.
func (s *Service) Lookup(ctx context.Context, input string) (Report, error) {
	q := locquery.Classify(input)
	if !q.Valid() {
		s.metrics.ObserveRejection(rejectionLabel(q.Err()))
		return Report{}, &ValidationError{Result: q}
	}

	obs, err := s.fetch(ctx, q.UpstreamQuery())
	if err != nil {
		s.metrics.ObserveLookup(lookupOutcome(err))
		return Report{}, err
	}

	loc, err := s.store.UpsertLocation(ctx, Location{
		Name:      resolvedName(q, obs),
		Country:   resolvedCountry(q, obs),
		Latitude:  obs.Latitude,
		Longitude: obs.Longitude,
		Timezone:  obs.Timezone,
		CreatedAt: s.clock.Now().UTC(),
	})
	if err != nil {
		s.metrics.ObserveLookup("error")
		return Report{}, fmt.Errorf("save location: %w", err)
	}

	rec, err := s.saveRecord(ctx, loc, obs)
	if err != nil {
		s.metrics.ObserveLookup("error")
		return Report{}, err
	}

	s.metrics.ObserveLookup("success")
	s.logger.Debug("lookup complete", "query", q.Query, "kind", q.Kind, "location", loc.Name, "location_id", loc.ID)

	forecast := obs.Forecast
	if forecast == nil {
		forecast = []Conditions{}
	}
	return Report{
		Location: loc,
		Current:  rec.Conditions,
		Forecast: forecast,
	}, nil
}

// Refresh re-fetches a stored location by name and appends a history record.
func (s *Service) Refresh(ctx context.Context, loc Location) (Record, error) {
	obs, err := s.fetch(ctx, loc.Name)
	if err != nil {
		return Record{}, err
	}
	return s.saveRecord(ctx, loc, obs)
}

// Locations lists every location that has been looked up.
func (s *Service) Locations(ctx context.Context) ([]Location, error) {
	return s.store.ListLocations(ctx)
}

// Location returns one stored location.
func (s *Service) Location(ctx context.Context, id int64) (Location, error) {
	return s.store.GetLocation(ctx, id)
}

// History returns the records of a location, newest first.
func (s *Service) History(ctx context.Context, locationID int64) ([]Record, error) {
	if _, err := s.store.GetLocation(ctx, locationID); err != nil {
		return nil, err
	}
	return s.store.ListRecords(ctx, locationID)
}

// DeleteRecord removes one history record.
func (s *Service) DeleteRecord(ctx context.Context, id int64) error {
	return s.store.DeleteRecord(ctx, id)
}

func (s *Service) saveRecord(ctx context.Context, loc Location, obs Observation) (Record, error) {
	now := s.clock.Now().UTC()

	current := obs.Current
	if current.DateTime.IsZero() {
		current.DateTime = now
	}

	rec, err := s.store.SaveRecord(ctx, Record{
		LocationID: loc.ID,
		Conditions: current,
		Forecast:   obs.Forecast,
		CreatedAt:  now,
	})
	if err != nil {
		return Record{}, fmt.Errorf("save record: %w", err)
	}

	if s.publisher != nil {
		// The history is already stored; a failed publish only loses the event.
		if err := s.publisher.Publish(ctx, loc, rec); err != nil {
			s.logger.Warn("publish record failed", "location_id", loc.ID, "record_id", rec.ID, "error", err)
		}
	}
	return rec, nil
}

// fetch tries each provider in order and returns the first success.
func (s *Service) fetch(ctx context.Context, query string) (Observation, error) {
	if len(s.providers) == 0 {
		s.logger.Error("no providers available to fetch weather data", "query", query)
		return Observation{}, ErrNoProviders
	}

	var (
		errs     []error
		notFound int
	)
	for _, p := range s.providers {
		start := s.clock.Now()
		obs, err := p.Fetch(ctx, query)
		s.metrics.ObserveProvider(p.Name(), err == nil, s.clock.Since(start))
		if err == nil {
			return obs, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Observation{}, ctxErr
		}

		s.logger.Warn("provider fetch failed", "provider", p.Name(), "query", query, "error", err)
		if errors.Is(err, ErrLocationNotFound) {
			notFound++
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	if notFound == len(s.providers) {
		return Observation{}, fmt.Errorf("%q: %w", query, ErrLocationNotFound)
	}
	return Observation{}, fmt.Errorf("%w: %w", ErrProvidersUnavailable, errors.Join(errs...))
}

func resolvedName(q locquery.Result, obs Observation) string {
	name := obs.ResolvedName
	if name != "" && name != q.UpstreamQuery() {
		return name
	}
	if q.Kind == locquery.KindUSZip || q.Kind == locquery.KindIndianPIN {
		return fmt.Sprintf("ZIP %s, %s", q.Query, q.Country())
	}
	return q.Query
}

func resolvedCountry(q locquery.Result, obs Observation) string {
	if obs.Country != "" {
		return obs.Country
	}
	return q.Country()
}

func lookupOutcome(err error) string {
	switch {
	case errors.Is(err, ErrLocationNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func rejectionLabel(err error) string {
	switch {
	case errors.Is(err, locquery.ErrEmpty):
		return "empty"
	case errors.Is(err, locquery.ErrPostalFormat):
		return "postal_format"
	default:
		return "city_or_postal"
	}
}
