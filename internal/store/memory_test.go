package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/weather"
)

func record(locID int64, temp float64) weather.Record {
	return weather.Record{
		LocationID: locID,
		Conditions: weather.Conditions{
			Temperature: temp,
			Description: "Clear",
			DateTime:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestMemoryStore_UpsertLocationKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	first, err := s.UpsertLocation(ctx, weather.Location{Name: "Paris, France", Country: "France", CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)

	second, err := s.UpsertLocation(ctx, weather.Location{Name: "Paris, France", Latitude: 48.85, CreatedAt: created.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, created, second.CreatedAt)
	assert.InDelta(t, 48.85, second.Latitude, 1e-9)

	other, err := s.UpsertLocation(ctx, weather.Location{Name: "Berlin, Germany"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), other.ID)

	locs, err := s.ListLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "Paris, France", locs[0].Name)
	assert.Equal(t, "Berlin, Germany", locs[1].Name)
}

func TestMemoryStore_GetLocationNotFound(t *testing.T) {
	_, err := NewMemoryStore(0).GetLocation(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, weather.ErrRecordNotFound)
}

func TestMemoryStore_RecordsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	loc, err := s.UpsertLocation(ctx, weather.Location{Name: "Paris"})
	require.NoError(t, err)

	for _, temp := range []float64{10, 11, 12} {
		_, err := s.SaveRecord(ctx, record(loc.ID, temp))
		require.NoError(t, err)
	}

	recs, err := s.ListRecords(ctx, loc.ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.InDelta(t, 12, recs[0].Temperature, 0)
	assert.InDelta(t, 10, recs[2].Temperature, 0)
	assert.Equal(t, int64(3), recs[0].ID)
}

func TestMemoryStore_SaveRecordUnknownLocation(t *testing.T) {
	_, err := NewMemoryStore(0).SaveRecord(context.Background(), record(7, 1))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_Retention(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	loc, _ := s.UpsertLocation(ctx, weather.Location{Name: "Paris"})

	first, err := s.SaveRecord(ctx, record(loc.ID, 1))
	require.NoError(t, err)
	_, _ = s.SaveRecord(ctx, record(loc.ID, 2))
	_, _ = s.SaveRecord(ctx, record(loc.ID, 3))

	recs, err := s.ListRecords(ctx, loc.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.InDelta(t, 3, recs[0].Temperature, 0)
	assert.InDelta(t, 2, recs[1].Temperature, 0)

	assert.ErrorIs(t, s.DeleteRecord(ctx, first.ID), ErrNotFound, "evicted record is gone")
}

func TestMemoryStore_DeleteRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	loc, _ := s.UpsertLocation(ctx, weather.Location{Name: "Paris"})
	a, _ := s.SaveRecord(ctx, record(loc.ID, 1))
	b, _ := s.SaveRecord(ctx, record(loc.ID, 2))

	require.NoError(t, s.DeleteRecord(ctx, a.ID))
	assert.ErrorIs(t, s.DeleteRecord(ctx, a.ID), ErrNotFound)

	recs, err := s.ListRecords(ctx, loc.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, b.ID, recs[0].ID)
}

func TestMemoryStore_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	loc, _ := s.UpsertLocation(ctx, weather.Location{Name: "Paris"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SaveRecord(ctx, record(loc.ID, float64(i)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	recs, err := s.ListRecords(ctx, loc.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 50)
}

func TestMemoryStore_OrderFollowsInsertionNotObservationTime(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	loc, err := s.UpsertLocation(ctx, weather.Location{Name: "Oslo, Norway"})
	require.NoError(t, err)

	late := record(loc.ID, 1)
	late.DateTime = late.DateTime.Add(2 * time.Hour)
	first, err := s.SaveRecord(ctx, late)
	require.NoError(t, err)
	second, err := s.SaveRecord(ctx, record(loc.ID, 2))
	require.NoError(t, err)

	recs, err := s.ListRecords(ctx, loc.ID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, []int64{second.ID, first.ID}, []int64{recs[0].ID, recs[1].ID})
}
