package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/ephem"
	"github.com/litescript/ls-skywatch/internal/fetch"
)

func init() {
	// Tests point HOME at temp dirs.
	homedir.DisableCache = true
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skywatch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HorizonsURL != ephem.HorizonsAPIURL || cfg.SatelliteURL != ephem.PassFeedURL {
		t.Errorf("URLs = %q, %q", cfg.HorizonsURL, cfg.SatelliteURL)
	}
	if cfg.Stagger != 300*time.Millisecond || cfg.RetryUnit != fetch.DefaultRetryUnit || cfg.MaxAttempts != 5 {
		t.Errorf("fetch = %v %v %d", cfg.Stagger, cfg.RetryUnit, cfg.MaxAttempts)
	}
	if cfg.RequestTimeout != 10*time.Second || cfg.ResourceTimeout != 20*time.Second {
		t.Errorf("timeouts = %v %v", cfg.RequestTimeout, cfg.ResourceTimeout)
	}
	if cfg.CachePath != "" || cfg.LogLevel != "info" || cfg.File != "" {
		t.Errorf("cfg = %+v", cfg)
	}
	if _, err := cfg.Observer(); !errors.Is(err, ErrNoLocation) {
		t.Errorf("Observer() err = %v, want ErrNoLocation", err)
	}
}

func TestLoad_File(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := writeConfig(t, `
location:
  lat: 37.7749
  lon: -122.4194
  altitude: 52
  name: San Francisco
fetch:
  stagger: 500ms
  max_attempts: 3
cache:
  path: ~/skywatch.db
log:
  level: debug
`)

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.File != path {
		t.Errorf("File = %q", cfg.File)
	}
	if cfg.Stagger != 500*time.Millisecond || cfg.MaxAttempts != 3 || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.CachePath != filepath.Join(home, "skywatch.db") {
		t.Errorf("CachePath = %q, want expanded home", cfg.CachePath)
	}

	obs, err := cfg.Observer()
	if err != nil {
		t.Fatal(err)
	}
	want := astro.Observer{LatDeg: 37.7749, LonDeg: -122.4194, AltitudeM: 52, Name: "San Francisco"}
	if obs != want {
		t.Errorf("Observer() = %+v, want %+v", obs, want)
	}
}

func TestLoad_HomeFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, FileName+".yaml"), []byte("refresh: 5m\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Refresh != 5*time.Minute {
		t.Errorf("Refresh = %v, want 5m from home file", cfg.Refresh)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeConfig(t, "location:\n  lat: 10\n  lon: 20\n")
	t.Setenv("SKYWATCH_LOCATION_LAT", "-33.8688")
	t.Setenv("SKYWATCH_FETCH_MAX_ATTEMPTS", "2")

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatal(err)
	}
	obs, err := cfg.Observer()
	if err != nil {
		t.Fatal(err)
	}
	if obs.LatDeg != -33.8688 || obs.LonDeg != 20 {
		t.Errorf("Observer() = %+v, want env latitude", obs)
	}
	if cfg.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d, want 2", cfg.MaxAttempts)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("explicit missing file accepted")
	}
	if _, err := Load(New(), writeConfig(t, "fetch:\n  max_attempts: 0\n")); err == nil {
		t.Error("max_attempts 0 accepted")
	}
	if _, err := Load(New(), writeConfig(t, "refresh: -1s\n")); err == nil {
		t.Error("negative refresh accepted")
	}
}

func TestObserver_Validation(t *testing.T) {
	tests := []struct {
		lat, lon string
		wantErr  error
	}{
		{"91", "0", astro.ErrInvalidLatitude},
		{"north", "0", astro.ErrInvalidLatitude},
		{"45", "180.5", astro.ErrInvalidLongitude},
		{"", "10", astro.ErrInvalidLatitude},
	}
	for _, tt := range tests {
		_, err := Config{Lat: tt.lat, Lon: tt.lon}.Observer()
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Observer(%q, %q) err = %v, want %v", tt.lat, tt.lon, err, tt.wantErr)
		}
	}
}
