package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-lookup/internal/locquery"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// slowServer blocks lookups of "Slow" until the request is canceled or
// release is closed.
func slowServer(t *testing.T) (*Client, chan struct{}, chan struct{}) {
	t.Helper()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/weather/{location}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("location")
		if name == "Slow" {
			started <- struct{}{}
			select {
			case <-r.Context().Done():
				return
			case <-release:
			}
		}
		writeJSON(w, http.StatusOK, weather.Report{Location: weather.Location{Name: name}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
		srv.Close()
	})
	return New(srv.URL), started, release
}

func TestSearcher_NewerSearchWins(t *testing.T) {
	c, started, _ := slowServer(t)
	s := NewSearcher(c)

	type result struct {
		report weather.Report
		err    error
	}
	first := make(chan result, 1)
	go func() {
		r, err := s.Search(context.Background(), "Slow")
		first <- result{r, err}
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first search never reached the server")
	}
	assert.True(t, s.Loading())

	report, err := s.Search(context.Background(), "Fast")
	require.NoError(t, err)
	assert.Equal(t, "Fast", report.Location.Name)
	assert.False(t, s.Loading())
	assert.Equal(t, uint64(2), s.Generation())

	select {
	case r := <-first:
		assert.ErrorIs(t, r.err, ErrStale)
		assert.Empty(t, r.report.Location.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("superseded search was not canceled")
	}
	assert.False(t, s.Loading(), "a stale finish leaves the newer state alone")
}

func TestSearcher_LoadingClearedOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	s := NewSearcher(New(srv.URL))

	_, err := s.Search(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.Equal(t, MsgNotFound, UserMessage(err))
	assert.False(t, s.Loading())

	_, err = s.Search(context.Background(), "1")
	require.ErrorIs(t, err, locquery.ErrPostalFormat)
	assert.False(t, s.Loading())
}

func TestSearcher_Cancel(t *testing.T) {
	c, started, _ := slowServer(t)
	s := NewSearcher(c)

	done := make(chan error, 1)
	go func() {
		_, err := s.Search(context.Background(), "Slow")
		done <- err
	}()
	<-started

	s.Cancel()
	assert.False(t, s.Loading())

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ErrStale))
	case <-time.After(5 * time.Second):
		t.Fatal("canceled search did not return")
	}
}

func TestSearcher_GoDeliversOnlyTheLatest(t *testing.T) {
	c, started, _ := slowServer(t)
	s := NewSearcher(c)

	var (
		mu        sync.Mutex
		delivered []string
	)
	record := func(r weather.Report, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			delivered = append(delivered, "error: "+err.Error())
			return
		}
		delivered = append(delivered, r.Location.Name)
	}

	slow := s.Go(context.Background(), "Slow", record)
	<-started
	fast := s.Go(context.Background(), "Fast", record)

	for _, ch := range []<-chan struct{}{slow, fast} {
		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatal("search did not finish")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Fast"}, delivered)
	assert.False(t, s.Loading())
}
