package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/weather-lookup/internal/api/http"
	"github.com/i474232898/weather-lookup/internal/config"
	"github.com/i474232898/weather-lookup/internal/details"
	"github.com/i474232898/weather-lookup/internal/events"
	"github.com/i474232898/weather-lookup/internal/observability"
	"github.com/i474232898/weather-lookup/internal/scheduler"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Providers with resilience (backoff + circuit breaker), in configured order.
	provs := newProviders(cfg, httpClient, log)

	historyStore, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	opts := []weather.Option{
		weather.WithLogger(log),
		weather.WithMetrics(metrics),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer publisher.Close()
		opts = append(opts, weather.WithPublisher(publisher))
		log.Info("publishing records to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	// Core service orchestrating providers and store.
	service := weather.NewService(historyStore, provs, opts...)

	info := details.NewService(newEnrichers(cfg, log)...)

	// Scheduler that periodically refreshes every stored location.
	if cfg.RefreshEnabled {
		sched := scheduler.New(service, cfg.RefreshInterval, cfg.HTTPTimeout*2, log, metrics)
		if err := sched.Start(); err != nil {
			log.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
		defer sched.Stop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "weather-lookup",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.CORSOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "weather-lookup",
			"providers": len(provs),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, service, info, metrics)

	go func() {
		log.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

func newProviders(cfg *config.AppConfig, client *http.Client, log *slog.Logger) []weather.Provider {
	var provs []weather.Provider
	for _, name := range cfg.Providers {
		key := cfg.APIKey(name)
		if key == "" {
			log.Warn("provider disabled: no API key", "provider", name)
			continue
		}
		switch name {
		case "visualcrossing":
			provs = append(provs, providers.NewVisualCrossingProvider(client, key))
		case "openweather":
			provs = append(provs, providers.NewOpenWeatherProvider(client, key))
		case "weatherapi":
			provs = append(provs, providers.NewWeatherAPIProvider(client, key))
		}
	}
	if len(provs) == 0 {
		log.Warn("no weather providers configured; lookups will fail")
	}
	return provs
}

// openStore returns PostgreSQL when DATABASE_URL is set and memory otherwise.
func openStore(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (weather.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory store", "max_history", cfg.StoreMaxHistory)
		return store.NewMemoryStore(cfg.StoreMaxHistory), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	pg := store.NewPostgresStore(pool, cfg.StoreMaxHistory)
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info("using postgres store", "max_history", cfg.StoreMaxHistory)
	return pg, pool.Close, nil
}

func newEnrichers(cfg *config.AppConfig, log *slog.Logger) []details.Option {
	opts := []details.Option{details.WithLogger(log)}
	if cfg.GoogleMapsAPIKey != "" {
		opts = append(opts, details.WithGeocoder(details.NewGoogleGeocoder(cfg.GoogleMapsAPIKey)))
	}
	if cfg.NearbyEnabled {
		opts = append(opts, details.WithPlaceFinder(details.NewOverpassClient(cfg.OverpassURL, cfg.HTTPTimeout)))
	}
	if cfg.What3WordsAPIKey != "" {
		opts = append(opts, details.WithWords(details.NewWhat3WordsClient(cfg.What3WordsAPIKey, cfg.HTTPTimeout)))
	}
	return opts
}
