// Package weather fetches cloud forecasts from Open-Meteo and rates how
// good a night is for observing.
package weather

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/fetch"
)

// ForecastURL is the Open-Meteo forecast endpoint.
const ForecastURL = "https://api.open-meteo.com/v1/forecast"

var fields = []string{
	"cloud_cover",
	"cloud_cover_low",
	"cloud_cover_mid",
	"cloud_cover_high",
	"visibility",
	"relative_humidity_2m",
	"wind_speed_10m",
}

// Conditions is the weather at one instant.
type Conditions struct {
	Time         time.Time `json:"time"`
	CloudCover   float64   `json:"cloud_cover"` // percent, all layers
	CloudLow     float64   `json:"cloud_low"`
	CloudMid     float64   `json:"cloud_mid"`
	CloudHigh    float64   `json:"cloud_high"`
	VisibilityM  float64   `json:"visibility_m"`
	HumidityPct  float64   `json:"humidity_pct"`
	WindSpeedKmh float64   `json:"wind_speed_kmh"`
}

// Forecast is the current conditions plus an hourly outlook.
type Forecast struct {
	Current Conditions   `json:"current"`
	Hourly  []Conditions `json:"hourly"`
}

// Client talks to Open-Meteo.
type Client struct {
	client  *fetch.Client
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithURL sets a custom forecast endpoint.
func WithURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// NewClient creates a forecast client on top of client.
func NewClient(client *fetch.Client, opts ...Option) *Client {
	c := &Client{client: client, baseURL: ForecastURL}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = fetch.NewClient()
	}
	return c
}

// Forecast fetches current and hourly conditions for the next two days.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (Forecast, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("current", strings.Join(fields, ","))
	params.Set("hourly", strings.Join(fields, ","))
	params.Set("timeformat", "unixtime")
	params.Set("forecast_days", "2")

	body, err := c.client.Get(ctx, c.baseURL+"?"+params.Encode(), "application/json")
	if err != nil {
		return Forecast{}, fmt.Errorf("weather: %w", err)
	}
	return Parse(body)
}

// Parse decodes an Open-Meteo response with unixtime timestamps.
func Parse(body []byte) (Forecast, error) {
	if !gjson.ValidBytes(body) {
		return Forecast{}, errors.New("weather: invalid JSON response")
	}
	root := gjson.ParseBytes(body)
	if root.Get("error").Bool() {
		return Forecast{}, fmt.Errorf("weather: %s", root.Get("reason").String())
	}

	var f Forecast
	if cur := root.Get("current"); cur.Exists() {
		f.Current = conditionsFrom(func(field string) gjson.Result { return cur.Get(field) }, cur.Get("time"))
	}

	hourly := root.Get("hourly")
	times := hourly.Get("time").Array()
	columns := make(map[string][]gjson.Result, len(fields))
	for _, name := range fields {
		columns[name] = hourly.Get(name).Array()
	}
	for i, ts := range times {
		f.Hourly = append(f.Hourly, conditionsFrom(func(field string) gjson.Result {
			col := columns[field]
			if i < len(col) {
				return col[i]
			}
			return gjson.Result{}
		}, ts))
	}
	return f, nil
}

func conditionsFrom(get func(string) gjson.Result, ts gjson.Result) Conditions {
	return Conditions{
		Time:         time.Unix(ts.Int(), 0).UTC(),
		CloudCover:   get("cloud_cover").Float(),
		CloudLow:     get("cloud_cover_low").Float(),
		CloudMid:     get("cloud_cover_mid").Float(),
		CloudHigh:    get("cloud_cover_high").Float(),
		VisibilityM:  get("visibility").Float(),
		HumidityPct:  get("relative_humidity_2m").Float(),
		WindSpeedKmh: get("wind_speed_10m").Float(),
	}
}

// Quality is an observing-conditions grade.
type Quality int

const (
	QualityUnknown Quality = iota
	QualityExcellent
	QualityGood
	QualityFair
	QualityPoor
)

// String returns the grade name.
func (q Quality) String() string {
	switch q {
	case QualityExcellent:
		return "excellent"
	case QualityGood:
		return "good"
	case QualityFair:
		return "fair"
	case QualityPoor:
		return "poor"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// Rating is the grade of one night.
type Rating struct {
	Quality       Quality `json:"quality"`
	MeanCloud     float64 `json:"mean_cloud_pct"`
	MeanHumidity  float64 `json:"mean_humidity_pct"`
	MaxWindKmh    float64 `json:"max_wind_kmh"`
	HoursInWindow int     `json:"hours"`
}

// Cloud cover thresholds, percent.
const (
	excellentMax = 10.0
	goodMax      = 30.0
	fairMax      = 60.0
)

// Rate grades the hours of f inside w by mean total cloud cover. Without
// any forecast hour in the window the quality is unknown.
func Rate(f Forecast, w astro.Window) Rating {
	var r Rating
	var cloud, humidity float64
	for _, h := range f.Hourly {
		if !w.Contains(h.Time) {
			continue
		}
		r.HoursInWindow++
		cloud += h.CloudCover
		humidity += h.HumidityPct
		if h.WindSpeedKmh > r.MaxWindKmh {
			r.MaxWindKmh = h.WindSpeedKmh
		}
	}
	if r.HoursInWindow == 0 {
		return r
	}

	r.MeanCloud = cloud / float64(r.HoursInWindow)
	r.MeanHumidity = humidity / float64(r.HoursInWindow)
	switch {
	case r.MeanCloud <= excellentMax:
		r.Quality = QualityExcellent
	case r.MeanCloud <= goodMax:
		r.Quality = QualityGood
	case r.MeanCloud <= fairMax:
		r.Quality = QualityFair
	default:
		r.Quality = QualityPoor
	}
	return r
}
