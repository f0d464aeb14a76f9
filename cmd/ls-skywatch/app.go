package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/viper"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/cache"
	"github.com/litescript/ls-skywatch/internal/catalog"
	"github.com/litescript/ls-skywatch/internal/config"
	"github.com/litescript/ls-skywatch/internal/ephem"
	"github.com/litescript/ls-skywatch/internal/fetch"
	"github.com/litescript/ls-skywatch/internal/logging"
	"github.com/litescript/ls-skywatch/internal/metrics"
	"github.com/litescript/ls-skywatch/internal/state"
	"github.com/litescript/ls-skywatch/internal/weather"
)

// app holds the wired components shared by every command.
type app struct {
	cfg     config.Config
	obs     astro.Observer
	log     *logging.Logger
	store   cache.Store
	manager *state.Manager
	weather *weather.Client

	metricsSrv *http.Server
}

func newApp(ctx context.Context, v *viper.Viper, path string) (*app, error) {
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, err
	}
	obs, err := cfg.Observer()
	if err != nil {
		return nil, err
	}

	log := logging.New(logging.ParseLevel(cfg.LogLevel))
	if cfg.File != "" {
		log.Debug("using config file %s", cfg.File)
	}

	client := fetch.NewClient(
		fetch.WithRetryUnit(cfg.RetryUnit),
		fetch.WithMaxAttempts(cfg.MaxAttempts),
		fetch.WithTimeouts(cfg.RequestTimeout, cfg.ResourceTimeout),
		fetch.WithLogger(log.WithField("component", "fetch")),
	)

	dispatcher := ephem.NewDispatcher(
		ephem.NewLocalProvider(),
		ephem.NewHorizonsProvider(client, ephem.WithHorizonsURL(cfg.HorizonsURL)),
		ephem.NewSatelliteProvider(client, ephem.WithPassFeedURL(cfg.SatelliteURL)),
		log.WithField("component", "ephem"),
	)
	dispatcher.Stagger = cfg.Stagger

	var store cache.Store
	if cfg.CachePath != "" {
		sq, err := cache.OpenSQLite(cfg.CachePath)
		if err != nil {
			return nil, err
		}
		store = sq
	} else {
		store = cache.NewMemoryStore()
	}

	stateCfg := state.DefaultConfig()
	stateCfg.RefreshInterval = cfg.Refresh

	a := &app{
		cfg:   cfg,
		obs:   obs,
		log:   log,
		store: store,
		manager: state.NewManager(stateCfg, dispatcher,
			state.WithCache(store),
			state.WithLogger(log.WithField("component", "state")),
		),
		weather: weather.NewClient(client, weather.WithURL(cfg.WeatherURL)),
	}

	if cfg.MetricsAddr != "" {
		a.serveMetrics(ctx)
	}
	return a, nil
}

func (a *app) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.metricsSrv = &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	go func() {
		a.log.Info("serving metrics on %s/metrics", a.cfg.MetricsAddr)
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server: %v", err)
		}
	}()
}

// Close releases the cache and stops the metrics server.
func (a *app) Close() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metricsSrv.Shutdown(ctx)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing cache: %v", err)
	}
}

// refresh computes the night of date. A partial failure is logged and the
// snapshot returned; only a refresh that produced nothing is an error.
func (a *app) refresh(ctx context.Context, date time.Time) (state.Snapshot, []catalog.ObjectID, error) {
	snap, err := a.manager.Refresh(ctx, date, a.obs)

	var fe *state.FetchError
	switch {
	case err == nil:
		return snap, nil, nil
	case errors.As(err, &fe) && !fe.AllFailed():
		failed := make([]catalog.ObjectID, 0, len(fe.Causes))
		for id, cause := range fe.Causes {
			a.log.WithField("object", id).Warn("ephemeris unavailable: %v", cause)
			failed = append(failed, id)
		}
		return snap, failed, nil
	case errors.As(err, &fe):
		return snap, nil, fmt.Errorf("no ephemeris could be fetched (is the network up?): %w", err)
	default:
		return snap, nil, err
	}
}

// rating fetches the forecast for the night. Weather never fails a command.
func (a *app) rating(ctx context.Context, w astro.Window) (*weather.Rating, *weather.Conditions) {
	f, err := a.weather.Forecast(ctx, a.obs.LatDeg, a.obs.LonDeg)
	if err != nil {
		a.log.Warn("weather unavailable: %v", err)
		return nil, nil
	}
	r := weather.Rate(f, w)
	return &r, &f.Current
}

// currentNight returns the date of the night in progress at now. Until the
// previous evening's window ends at dawn, that is yesterday's date.
func currentNight(now time.Time, obs astro.Observer, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	prev := today.AddDate(0, 0, -1)
	if now.Before(astro.PlanNight(prev, obs).Window.End) {
		return prev
	}
	return today
}

// parseDate reads a YYYY-MM-DD date in loc; empty means today.
func parseDate(s string, now time.Time, loc *time.Location) (time.Time, error) {
	if s == "" {
		y, m, d := now.In(loc).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}
