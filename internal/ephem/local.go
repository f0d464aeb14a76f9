package ephem

import (
	"context"
	"fmt"
	"time"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/catalog"
)

// LocalProvider computes fixed-coordinate objects without network access.
type LocalProvider struct{}

// NewLocalProvider creates a LocalProvider.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{}
}

// Name implements Provider.
func (p *LocalProvider) Name() string {
	return "local"
}

// Supports implements Provider.
func (p *LocalProvider) Supports(obj catalog.Object) bool {
	return obj.Kind == catalog.KindDeepSky
}

// FetchEphemeris implements Provider.
func (p *LocalProvider) FetchEphemeris(_ context.Context, obj catalog.Object, obs astro.Observer, w astro.Window, now time.Time) (astro.EphemerisResult, error) {
	if !p.Supports(obj) {
		return astro.EphemerisResult{}, fmt.Errorf("%s: %w", obj.ID, ErrUnsupported)
	}
	return astro.CalculateEphemeris(obj.Source.RAHours, obj.Source.DecDeg, obs, w, now), nil
}
