package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-lookup/internal/observability"
	"github.com/i474232898/weather-lookup/internal/weather"
)

// Refresher is the part of weather.Service the scheduler drives.
type Refresher interface {
	Locations(ctx context.Context) ([]weather.Location, error)
	Refresh(ctx context.Context, loc weather.Location) (weather.Record, error)
}

// Scheduler periodically re-fetches the weather of every stored location,
// adding one history record per location per run.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a new Scheduler. timeout bounds each location's refresh.
func New(service Refresher, interval, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run happens one interval after Start.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := s.scheduler.Every(interval).SingletonMode().WaitForSchedule().Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", interval)
	return nil
}

// RunOnce refreshes every stored location concurrently and returns how
// many refreshes succeeded.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	s.logger.Debug("scheduler: running weather refresh job")

	locs, err := s.service.Locations(ctx)
	if err != nil {
		s.logger.Error("scheduler: list locations failed", "error", err)
		return 0
	}
	if len(locs) == 0 {
		s.logger.Debug("scheduler: no locations stored; nothing to refresh")
		return 0
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, loc := range locs {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			if _, err := s.service.Refresh(ctx, loc); err != nil {
				s.logger.Warn("scheduler: refresh failed", "location", loc.Name, "location_id", loc.ID, "error", err)
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.metrics.ObserveRefresh()
	s.logger.Info("scheduler: completed weather refresh job", "locations", len(locs), "refreshed", ok)
	return ok
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
