package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const schema = `
CREATE TABLE IF NOT EXISTS locations (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	country    TEXT NOT NULL DEFAULT '',
	latitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude  DOUBLE PRECISION NOT NULL DEFAULT 0,
	timezone   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS weather_records (
	id            BIGSERIAL PRIMARY KEY,
	location_id   BIGINT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
	temperature   DOUBLE PRECISION NOT NULL,
	humidity      DOUBLE PRECISION NOT NULL,
	pressure      DOUBLE PRECISION NOT NULL,
	description   TEXT NOT NULL,
	wind_speed    DOUBLE PRECISION NOT NULL,
	date_time     TIMESTAMPTZ NOT NULL,
	forecast_data JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS weather_records_location_idx ON weather_records (location_id, date_time DESC);
`

// PostgresStore implements weather.Store on PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool

	// max number of records kept per location (0 = unlimited)
	maxHistory int
}

// NewPostgresStore wraps an open pool. Call EnsureSchema once before use.
// Retention and ordering match MemoryStore: history is ordered by record id
// and only the newest maxHistory records of a location are kept.
func NewPostgresStore(pool *pgxpool.Pool, maxHistory int) *PostgresStore {
	return &PostgresStore{pool: pool, maxHistory: maxHistory}
}

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertLocation(ctx context.Context, loc weather.Location) (weather.Location, error) {
	query := `
		INSERT INTO locations (name, country, latitude, longitude, timezone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			country = EXCLUDED.country,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			timezone = EXCLUDED.timezone
		RETURNING id, name, country, latitude, longitude, timezone, created_at
	`

	row := s.pool.QueryRow(ctx, query,
		loc.Name, loc.Country, loc.Latitude, loc.Longitude, loc.Timezone, loc.CreatedAt,
	)
	out, err := scanLocation(row)
	if err != nil {
		return weather.Location{}, fmt.Errorf("postgres: failed to upsert location: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetLocation(ctx context.Context, id int64) (weather.Location, error) {
	query := `
		SELECT id, name, country, latitude, longitude, timezone, created_at
		FROM locations
		WHERE id = $1
	`

	loc, err := scanLocation(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return weather.Location{}, ErrNotFound
	}
	if err != nil {
		return weather.Location{}, fmt.Errorf("postgres: failed to get location: %w", err)
	}
	return loc, nil
}

func (s *PostgresStore) ListLocations(ctx context.Context) ([]weather.Location, error) {
	query := `
		SELECT id, name, country, latitude, longitude, timezone, created_at
		FROM locations
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query locations: %w", err)
	}
	defer rows.Close()

	locs := []weather.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan location: %w", err)
		}
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}

func (s *PostgresStore) SaveRecord(ctx context.Context, rec weather.Record) (weather.Record, error) {
	var forecast []byte
	if len(rec.Forecast) > 0 {
		b, err := json.Marshal(rec.Forecast)
		if err != nil {
			return weather.Record{}, fmt.Errorf("postgres: failed to encode forecast: %w", err)
		}
		forecast = b
	}

	insert := `
		INSERT INTO weather_records (
			location_id, temperature, humidity, pressure, description,
			wind_speed, date_time, forecast_data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	prune := `
		DELETE FROM weather_records
		WHERE location_id = $1 AND id NOT IN (
			SELECT id FROM weather_records
			WHERE location_id = $1
			ORDER BY id DESC
			LIMIT $2
		)
	`

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, insert,
			rec.LocationID, rec.Temperature, rec.Humidity, rec.Pressure, rec.Description,
			rec.WindSpeed, rec.DateTime, forecast, rec.CreatedAt,
		).Scan(&rec.ID)
		if err != nil {
			return err
		}
		if s.maxHistory > 0 {
			_, err = tx.Exec(ctx, prune, rec.LocationID, s.maxHistory)
		}
		return err
	})
	if err != nil {
		return weather.Record{}, fmt.Errorf("postgres: failed to save weather record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, locationID int64) ([]weather.Record, error) {
	query := `
		SELECT id, location_id, temperature, humidity, pressure, description,
			   wind_speed, date_time, forecast_data, created_at
		FROM weather_records
		WHERE location_id = $1
		ORDER BY id DESC
	`

	rows, err := s.pool.Query(ctx, query, locationID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query weather records: %w", err)
	}
	defer rows.Close()

	records := []weather.Record{}
	for rows.Next() {
		var (
			r        weather.Record
			forecast []byte
		)
		err := rows.Scan(
			&r.ID, &r.LocationID, &r.Temperature, &r.Humidity, &r.Pressure, &r.Description,
			&r.WindSpeed, &r.DateTime, &forecast, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan weather record: %w", err)
		}
		if len(forecast) > 0 {
			if err := json.Unmarshal(forecast, &r.Forecast); err != nil {
				return nil, fmt.Errorf("postgres: failed to decode forecast of record %d: %w", r.ID, err)
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *PostgresStore) DeleteRecord(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM weather_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete weather record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLocation(row pgx.Row) (weather.Location, error) {
	var loc weather.Location
	err := row.Scan(&loc.ID, &loc.Name, &loc.Country, &loc.Latitude, &loc.Longitude, &loc.Timezone, &loc.CreatedAt)
	return loc, err
}
