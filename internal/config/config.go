// Package config loads TripRoute configuration from defaults, an optional
// config.yaml and TRIPROUTE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // planner time zones must resolve on minimal images

	"github.com/spf13/viper"

	"github.com/triproute/triproute/internal/routing"
)

// Provider timeout bounds.
const (
	MinProviderTimeout = 10 * time.Second
	MaxProviderTimeout = 30 * time.Second
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Planner   PlannerConfig   `mapstructure:"planner"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Worker    WorkerConfig    `mapstructure:"worker"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	Port               int           `mapstructure:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	RequireTLS         bool          `mapstructure:"require_tls"`
}

// ProviderConfig configures the AMap client. The key is passed explicitly to
// the client; nothing reads it from the process environment directly.
type ProviderConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type PlannerConfig struct {
	ChainConcurrency int                `mapstructure:"chain_concurrency"`
	Timezone         string             `mapstructure:"timezone"`
	Fares            routing.FareConfig `mapstructure:"fares"`
}

// Location returns the planner time zone used for arrival times.
func (p PlannerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(p.Timezone)
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`

	// SampleRatio is the fraction of new traces recorded.
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type WorkerConfig struct {
	ProjectID    string        `mapstructure:"project_id"`
	Subscription string        `mapstructure:"subscription"`
	ResultsTopic string        `mapstructure:"results_topic"`
	JobTimeout   time.Duration `mapstructure:"job_timeout"`
	ProbeTrips   []ProbeTrip   `mapstructure:"probe_trips"`

	// ProbeInterval schedules provider probes when no project is
	// configured. Zero disables scheduled probes.
	ProbeInterval time.Duration `mapstructure:"probe_interval"`
}

// ProbeTrip is a known-good trip the worker plans to check provider health.
type ProbeTrip struct {
	Origin      string `mapstructure:"origin"`
	Destination string `mapstructure:"destination"`
	Mode        string `mapstructure:"mode"`
	City        string `mapstructure:"city"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	fares := routing.DefaultFareConfig()

	// Defaults
	v.SetDefault("app.env", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.rate_limit_per_minute", 60)
	v.SetDefault("server.require_tls", false)
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.base_url", "https://restapi.amap.com")
	v.SetDefault("provider.timeout", "15s")
	v.SetDefault("provider.requests_per_second", 3)
	v.SetDefault("planner.chain_concurrency", routing.DefaultChainConcurrency)
	v.SetDefault("planner.timezone", "Asia/Shanghai")
	v.SetDefault("planner.fares.taxi_base_fare", fares.TaxiBaseFare)
	v.SetDefault("planner.fares.taxi_base_distance_km", fares.TaxiBaseDistanceKm)
	v.SetDefault("planner.fares.taxi_per_km", fares.TaxiPerKm)
	v.SetDefault("planner.fares.fuel_per_km", fares.FuelPerKm)
	v.SetDefault("planner.fares.walking_threshold_m", fares.WalkingThresholdM)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("worker.project_id", "")
	v.SetDefault("worker.subscription", "triproute-jobs")
	v.SetDefault("worker.results_topic", "")
	v.SetDefault("worker.job_timeout", "2m")
	v.SetDefault("worker.probe_interval", "5m")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: TRIPROUTE_PROVIDER_API_KEY → provider.api_key
	v.SetEnvPrefix("TRIPROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, errors.New("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server.write_timeout must be positive"))
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("server.rate_limit_per_minute must not be negative"))
	}

	if c.Provider.APIKey == "" {
		errs = append(errs, errors.New("provider.api_key is required"))
	}
	if c.Provider.BaseURL == "" {
		errs = append(errs, errors.New("provider.base_url is required"))
	}
	if c.Provider.Timeout < MinProviderTimeout || c.Provider.Timeout > MaxProviderTimeout {
		errs = append(errs, fmt.Errorf("provider.timeout must be between %s and %s, got %s",
			MinProviderTimeout, MaxProviderTimeout, c.Provider.Timeout))
	}
	if c.Provider.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("provider.requests_per_second must not be negative"))
	}

	if c.Planner.ChainConcurrency < 1 {
		errs = append(errs, fmt.Errorf("planner.chain_concurrency must be at least 1, got %d", c.Planner.ChainConcurrency))
	}
	if _, err := c.Planner.Location(); err != nil {
		errs = append(errs, fmt.Errorf("planner.timezone: %w", err))
	}
	f := c.Planner.Fares
	if f.TaxiBaseFare < 0 || f.TaxiBaseDistanceKm < 0 || f.TaxiPerKm < 0 || f.FuelPerKm < 0 || f.WalkingThresholdM < 0 {
		errs = append(errs, errors.New("planner.fares values must not be negative"))
	}

	for i, trip := range c.Worker.ProbeTrips {
		if trip.Origin == "" || trip.Destination == "" {
			errs = append(errs, fmt.Errorf("worker.probe_trips[%d] needs origin and destination", i))
		}
		if _, err := routing.ParseMode(trip.Mode); err != nil {
			errs = append(errs, fmt.Errorf("worker.probe_trips[%d]: %w", i, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
