// Package ephem produces per-object ephemerides from the three sources of a
// night plan: JPL Horizons for solar-system bodies, local calculation for
// fixed coordinates and a pass feed for satellites.
package ephem

import (
	"context"
	"errors"
	"time"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/catalog"
)

// Provider errors.
var (
	ErrUnsupported = errors.New("object not supported by provider")
	ErrNoData      = errors.New("provider returned no usable data")
)

// Provider defines the interface for ephemeris data sources.
type Provider interface {
	// Name returns the provider name for display/logging.
	Name() string

	// Supports reports whether this provider can supply data for obj.
	Supports(obj catalog.Object) bool

	// FetchEphemeris computes obj's ephemeris over the window as seen
	// from obs. An empty result with a nil error is valid (no data points).
	FetchEphemeris(ctx context.Context, obj catalog.Object, obs astro.Observer, w astro.Window, now time.Time) (astro.EphemerisResult, error)
}

// Batch collects the outcome of fetching many objects. Every object appears
// in exactly one of Results or Failures.
type Batch struct {
	Results  map[catalog.ObjectID]astro.EphemerisResult
	Failures map[catalog.ObjectID]error

	// Optional holds failures of providers allowed to be silently absent.
	// They are reported here instead of Failures.
	Optional map[catalog.ObjectID]error
}

// NewBatch returns an empty batch.
func NewBatch() Batch {
	return Batch{
		Results:  make(map[catalog.ObjectID]astro.EphemerisResult),
		Failures: make(map[catalog.ObjectID]error),
		Optional: make(map[catalog.ObjectID]error),
	}
}

// Merge adds other's entries into b.
func (b Batch) Merge(other Batch) {
	for id, r := range other.Results {
		b.Results[id] = r
	}
	for id, err := range other.Failures {
		b.Failures[id] = err
	}
	for id, err := range other.Optional {
		b.Optional[id] = err
	}
}

// Len returns the number of objects accounted for.
func (b Batch) Len() int {
	return len(b.Results) + len(b.Failures) + len(b.Optional)
}
