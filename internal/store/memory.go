package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/i474232898/weather-lookup/internal/weather"
)

var (
	// ErrNotFound is returned when a location or record id is unknown.
	// It matches weather.ErrRecordNotFound under errors.Is.
	ErrNotFound = fmt.Errorf("store: %w", weather.ErrRecordNotFound)
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
type MemoryStore struct {
	mu sync.RWMutex

	locations map[int64]weather.Location
	byName    map[string]int64

	// key: location id, value: records oldest first
	records  map[int64][]weather.Record
	recordOf map[int64]int64 // record id -> location id

	nextLocationID int64
	nextRecordID   int64

	// max number of records kept per location (0 = unlimited)
	maxHistory int
}

// NewMemoryStore creates a new MemoryStore.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int) *MemoryStore {
	return &MemoryStore{
		locations:  make(map[int64]weather.Location),
		byName:     make(map[string]int64),
		records:    make(map[int64][]weather.Record),
		recordOf:   make(map[int64]int64),
		maxHistory: maxHistory,
	}
}

// UpsertLocation stores loc under its name, or refreshes the coordinates and
// timezone of the existing location with that name. The stored id and
// creation time are kept.
func (s *MemoryStore) UpsertLocation(_ context.Context, loc weather.Location) (weather.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byName[loc.Name]; ok {
		existing := s.locations[id]
		loc.ID = existing.ID
		loc.CreatedAt = existing.CreatedAt
		s.locations[id] = loc
		return loc, nil
	}

	s.nextLocationID++
	loc.ID = s.nextLocationID
	s.locations[loc.ID] = loc
	s.byName[loc.Name] = loc.ID
	return loc, nil
}

// GetLocation returns the location with the given id.
func (s *MemoryStore) GetLocation(_ context.Context, id int64) (weather.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.locations[id]
	if !ok {
		return weather.Location{}, ErrNotFound
	}
	return loc, nil
}

// ListLocations returns all locations ordered by id.
func (s *MemoryStore) ListLocations(_ context.Context) ([]weather.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	locs := make([]weather.Location, 0, len(s.locations))
	for _, loc := range s.locations {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].ID < locs[j].ID })
	return locs, nil
}

// SaveRecord appends a record to its location's history and enforces retention.
func (s *MemoryStore) SaveRecord(_ context.Context, rec weather.Record) (weather.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[rec.LocationID]; !ok {
		return weather.Record{}, fmt.Errorf("location %d: %w", rec.LocationID, ErrNotFound)
	}

	s.nextRecordID++
	rec.ID = s.nextRecordID

	history := append(s.records[rec.LocationID], rec)
	s.recordOf[rec.ID] = rec.LocationID

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history) > s.maxHistory {
		over := len(history) - s.maxHistory
		for _, dropped := range history[:over] {
			delete(s.recordOf, dropped.ID)
		}
		history = append([]weather.Record(nil), history[over:]...)
	}
	s.records[rec.LocationID] = history

	return rec, nil
}

// ListRecords returns the records of a location, newest first.
func (s *MemoryStore) ListRecords(_ context.Context, locationID int64) ([]weather.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.records[locationID]
	result := make([]weather.Record, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		result = append(result, history[i])
	}
	return result, nil
}

// DeleteRecord removes one record.
func (s *MemoryStore) DeleteRecord(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locID, ok := s.recordOf[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.recordOf, id)

	history := s.records[locID]
	for i, rec := range history {
		if rec.ID == id {
			s.records[locID] = append(history[:i:i], history[i+1:]...)
			break
		}
	}
	return nil
}
