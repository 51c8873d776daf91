package client

import (
	"context"
	"errors"
	"sync"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// ErrStale is returned by Searcher.Search when a newer search started
// before this one finished. Its result must be dropped.
var ErrStale = errors.New("search superseded by a newer search")

// Searcher runs searches one at a time from the caller's point of view:
// starting a search cancels the previous one, and only the latest search
// ever delivers a result.
type Searcher struct {
	client *Client

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	loading bool
}

func NewSearcher(c *Client) *Searcher {
	return &Searcher{client: c}
}

// Search looks up input as the newest generation.
func (s *Searcher) Search(ctx context.Context, input string) (weather.Report, error) {
	ctx, cancel, gen := s.begin(ctx)
	defer cancel()

	report, err := s.client.Search(ctx, input)
	return s.finish(gen, report, err)
}

// Go starts a search in the background. The generation is taken before Go
// returns, so calls made in order supersede each other in that order. done
// runs with the outcome unless a newer search superseded this one. The
// returned channel is closed once the search has finished either way.
func (s *Searcher) Go(ctx context.Context, input string, done func(weather.Report, error)) <-chan struct{} {
	ctx, cancel, gen := s.begin(ctx)
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		defer cancel()

		report, err := s.client.Search(ctx, input)
		report, err = s.finish(gen, report, err)
		if errors.Is(err, ErrStale) {
			return
		}
		done(report, err)
	}()
	return finished
}

func (s *Searcher) begin(ctx context.Context) (context.Context, context.CancelFunc, uint64) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.cancel = cancel
	s.loading = true
	return ctx, cancel, s.gen
}

func (s *Searcher) finish(gen uint64, report weather.Report, err error) (weather.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return weather.Report{}, ErrStale
	}
	s.cancel = nil
	s.loading = false
	return report, err
}

// Cancel aborts the in-flight search, if any. Its Search call returns ErrStale.
func (s *Searcher) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.loading = false
}

// Loading reports whether the latest search is still running.
func (s *Searcher) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Generation is the number of the latest search.
func (s *Searcher) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}
