package ephem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/catalog"
	"github.com/litescript/ls-skywatch/internal/logging"
	"github.com/litescript/ls-skywatch/internal/metrics"
)

// DefaultStagger is the launch delay added per object in a remote batch.
const DefaultStagger = 300 * time.Millisecond

// FetchAll fetches every object from p concurrently. The i-th fetch starts
// i*stagger after the first. It returns once every fetch has finished;
// one object's failure never affects another.
func FetchAll(ctx context.Context, p Provider, objects []catalog.Object, obs astro.Observer, w astro.Window, now time.Time, stagger time.Duration) Batch {
	batch := NewBatch()
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for i, obj := range objects {
		wg.Add(1)
		go func(i int, obj catalog.Object) {
			defer wg.Done()

			res, err := fetchOne(ctx, p, obj, obs, w, now, time.Duration(i)*stagger)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				batch.Failures[obj.ID] = err
				metrics.ObserveFetch(p.Name(), metrics.OutcomeError)
				return
			}
			batch.Results[obj.ID] = res
			if res.IsEmpty() {
				metrics.ObserveFetch(p.Name(), metrics.OutcomeEmpty)
			} else {
				metrics.ObserveFetch(p.Name(), metrics.OutcomeOK)
			}
		}(i, obj)
	}

	wg.Wait()
	return batch
}

func fetchOne(ctx context.Context, p Provider, obj catalog.Object, obs astro.Observer, w astro.Window, now time.Time, delay time.Duration) (astro.EphemerisResult, error) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return astro.EphemerisResult{}, ctx.Err()
		case <-timer.C:
		}
	}
	return p.FetchEphemeris(ctx, obj, obs, w, now)
}

// Dispatcher routes each catalog object to the provider that serves it and
// merges the outcomes into one Batch.
type Dispatcher struct {
	Local     Provider
	Remote    Provider // solar-system bodies
	Satellite Provider // may be nil; failures are optional
	Stagger   time.Duration
	Log       *logging.Logger
}

// NewDispatcher creates a dispatcher with the default stagger.
func NewDispatcher(local, remote, satellite Provider, log *logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.Discard()
	}
	return &Dispatcher{
		Local:     local,
		Remote:    remote,
		Satellite: satellite,
		Stagger:   DefaultStagger,
		Log:       log,
	}
}

// Fetch computes every object. Local objects are computed inline; remote and
// satellite fetches run concurrently. Fetch returns only after all of them
// have finished, successful or not.
func (d *Dispatcher) Fetch(ctx context.Context, objects []catalog.Object, obs astro.Observer, w astro.Window, now time.Time) Batch {
	batch := NewBatch()

	var local, remote, sats []catalog.Object
	for _, obj := range objects {
		switch {
		case obj.Kind == catalog.KindSatellite:
			if d.Satellite != nil && d.Satellite.Supports(obj) {
				sats = append(sats, obj)
			} else {
				batch.Optional[obj.ID] = fmt.Errorf("%s: %w", obj.ID, ErrUnsupported)
			}
		case d.Local != nil && d.Local.Supports(obj):
			local = append(local, obj)
		case d.Remote != nil && d.Remote.Supports(obj):
			remote = append(remote, obj)
		default:
			batch.Failures[obj.ID] = fmt.Errorf("%s: %w", obj.ID, ErrUnsupported)
		}
	}

	var (
		wg          sync.WaitGroup
		remoteBatch Batch
		satBatch    Batch
	)
	if len(remote) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			remoteBatch = FetchAll(ctx, d.Remote, remote, obs, w, now, d.Stagger)
		}()
	}
	if len(sats) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			satBatch = FetchAll(ctx, d.Satellite, sats, obs, w, now, d.Stagger)
		}()
	}

	for _, obj := range local {
		res, err := d.Local.FetchEphemeris(ctx, obj, obs, w, now)
		if err != nil {
			batch.Failures[obj.ID] = err
			continue
		}
		batch.Results[obj.ID] = res
	}

	wg.Wait()

	if remoteBatch.Results != nil {
		batch.Merge(remoteBatch)
	}
	if satBatch.Results != nil {
		for id, r := range satBatch.Results {
			batch.Results[id] = r
		}
		for id, err := range satBatch.Failures {
			d.Log.WithField("object", id).Warn("satellite passes unavailable: %v", err)
			batch.Optional[id] = err
		}
	}

	for id, err := range batch.Failures {
		d.Log.WithField("object", id).Warn("ephemeris fetch failed: %v", err)
	}
	d.Log.Debug("fetched %d objects: %d ok, %d failed, %d optional missing",
		batch.Len(), len(batch.Results), len(batch.Failures), len(batch.Optional))
	return batch
}
