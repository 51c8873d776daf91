package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port        string   `validate:"required,numeric"`
	CORSOrigins []string `validate:"dive,url"`

	// Providers lists the weather providers in the order they are tried.
	Providers            []string `validate:"min=1,dive,oneof=visualcrossing openweather weatherapi"`
	VisualCrossingAPIKey string
	OpenWeatherAPIKey    string
	WeatherAPIKey        string
	HTTPTimeout          time.Duration `validate:"gt=0"`

	// Location details enrichment.
	GoogleMapsAPIKey string
	What3WordsAPIKey string
	NearbyEnabled    bool
	OverpassURL      string `validate:"omitempty,url"`

	// Storage. An empty DatabaseURL selects the in-memory store.
	DatabaseURL     string
	StoreMaxHistory int `validate:"gte=0"` // max records per location in memory (0 = unlimited)

	RefreshEnabled  bool
	RefreshInterval time.Duration `validate:"gte=1m"`

	KafkaBrokers []string
	KafkaTopic   string `validate:"required_with=KafkaBrokers"`

	LogLevel        string        `validate:"oneof=debug info warn error"`
	LogFormat       string        `validate:"oneof=text json"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8000")
	cfg.CORSOrigins = splitList(getenvDefault("CORS_ORIGINS", "http://localhost:3000"))

	cfg.Providers = splitList(getenvDefault("WEATHER_PROVIDERS", "visualcrossing,openweather,weatherapi"))
	cfg.VisualCrossingAPIKey = os.Getenv("VISUAL_CROSSING_API_KEY")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.GoogleMapsAPIKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	cfg.What3WordsAPIKey = os.Getenv("WHAT3WORDS_API_KEY")
	cfg.NearbyEnabled = getenvBool("NEARBY_ENABLED", true)
	cfg.OverpassURL = os.Getenv("OVERPASS_URL")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.StoreMaxHistory, err = getenvInt("STORE_MAX_HISTORY", 0); err != nil {
		return nil, err
	}

	cfg.RefreshEnabled = getenvBool("REFRESH_ENABLED", false)
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "1h"); err != nil {
		return nil, err
	}

	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaTopic = getenvDefault("KAFKA_TOPIC", "weather-records")

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "text"))
	if cfg.ShutdownTimeout, err = getenvDuration("SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// APIKey returns the configured key of a provider by name.
func (c *AppConfig) APIKey(provider string) string {
	switch provider {
	case "visualcrossing":
		return c.VisualCrossingAPIKey
	case "openweather":
		return c.OpenWeatherAPIKey
	case "weatherapi":
		return c.WeatherAPIKey
	default:
		return ""
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
