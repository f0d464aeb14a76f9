// Package config loads settings from defaults, an optional YAML file and
// SKYWATCH_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/ephem"
	"github.com/litescript/ls-skywatch/internal/fetch"
	"github.com/litescript/ls-skywatch/internal/weather"
)

const (
	// EnvPrefix prefixes every environment override: location.lat is
	// read from SKYWATCH_LOCATION_LAT.
	EnvPrefix = "SKYWATCH"

	// FileName is the config file looked up in the home directory.
	FileName = ".ls-skywatch"
)

// ErrNoLocation is returned when no observer coordinates are configured.
var ErrNoLocation = errors.New("no location configured (set --lat/--lon or location.lat/location.lon)")

// Config is the resolved application configuration.
type Config struct {
	Lat, Lon  string // validated by Observer
	AltitudeM float64
	Name      string

	HorizonsURL  string
	SatelliteURL string
	WeatherURL   string

	Stagger         time.Duration
	RetryUnit       time.Duration
	RequestTimeout  time.Duration
	ResourceTimeout time.Duration
	MaxAttempts     int

	CachePath   string // empty keeps sessions in memory
	LogLevel    string
	MetricsAddr string
	Refresh     time.Duration

	File string // config file that was read, if any
}

// New returns a viper instance with every key defaulted and env
// overrides enabled.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("location.lat", "")
	v.SetDefault("location.lon", "")
	v.SetDefault("location.altitude", 0.0)
	v.SetDefault("location.name", "")

	v.SetDefault("horizons.url", ephem.HorizonsAPIURL)
	v.SetDefault("satellite.url", ephem.PassFeedURL)
	v.SetDefault("weather.url", weather.ForecastURL)

	v.SetDefault("fetch.stagger", ephem.DefaultStagger)
	v.SetDefault("fetch.retry_unit", fetch.DefaultRetryUnit)
	v.SetDefault("fetch.request_timeout", fetch.DefaultRequestTimeout)
	v.SetDefault("fetch.resource_timeout", fetch.DefaultResourceTimeout)
	v.SetDefault("fetch.max_attempts", fetch.DefaultMaxAttempts)

	v.SetDefault("cache.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("refresh", time.Minute)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, or ~/.ls-skywatch.yaml when path is empty, into v and
// resolves the configuration. A missing default file is not an error.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return Config{}, fmt.Errorf("find home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Lat:       v.GetString("location.lat"),
		Lon:       v.GetString("location.lon"),
		AltitudeM: v.GetFloat64("location.altitude"),
		Name:      v.GetString("location.name"),

		HorizonsURL:  v.GetString("horizons.url"),
		SatelliteURL: v.GetString("satellite.url"),
		WeatherURL:   v.GetString("weather.url"),

		Stagger:         v.GetDuration("fetch.stagger"),
		RetryUnit:       v.GetDuration("fetch.retry_unit"),
		RequestTimeout:  v.GetDuration("fetch.request_timeout"),
		ResourceTimeout: v.GetDuration("fetch.resource_timeout"),
		MaxAttempts:     v.GetInt("fetch.max_attempts"),

		LogLevel:    v.GetString("log.level"),
		MetricsAddr: v.GetString("metrics.addr"),
		Refresh:     v.GetDuration("refresh"),
		File:        v.ConfigFileUsed(),
	}

	if p := v.GetString("cache.path"); p != "" {
		expanded, err := homedir.Expand(p)
		if err != nil {
			return Config{}, fmt.Errorf("cache.path: %w", err)
		}
		cfg.CachePath = filepath.Clean(expanded)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Stagger < 0:
		return fmt.Errorf("fetch.stagger must not be negative, got %v", c.Stagger)
	case c.RetryUnit <= 0:
		return fmt.Errorf("fetch.retry_unit must be positive, got %v", c.RetryUnit)
	case c.RequestTimeout <= 0 || c.ResourceTimeout <= 0:
		return errors.New("fetch timeouts must be positive")
	case c.MaxAttempts < 1:
		return fmt.Errorf("fetch.max_attempts must be at least 1, got %d", c.MaxAttempts)
	case c.Refresh <= 0:
		return fmt.Errorf("refresh must be positive, got %v", c.Refresh)
	}
	return nil
}

// HasLocation reports whether coordinates were configured.
func (c Config) HasLocation() bool {
	return c.Lat != "" || c.Lon != ""
}

// Observer validates the configured coordinates.
func (c Config) Observer() (astro.Observer, error) {
	if !c.HasLocation() {
		return astro.Observer{}, ErrNoLocation
	}
	obs, err := astro.ParseObserver(c.Lat, c.Lon)
	if err != nil {
		return astro.Observer{}, err
	}
	obs.AltitudeM = c.AltitudeM
	obs.Name = c.Name
	return obs, nil
}
