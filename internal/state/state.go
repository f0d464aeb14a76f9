// Package state owns the observation session and runs refresh cycles
// against it with thread-safe access.
package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/cache"
	"github.com/litescript/ls-skywatch/internal/catalog"
	"github.com/litescript/ls-skywatch/internal/ephem"
	"github.com/litescript/ls-skywatch/internal/logging"
	"github.com/litescript/ls-skywatch/internal/metrics"
	"github.com/litescript/ls-skywatch/internal/visibility"
)

// ErrSuperseded is returned by a refresh that was replaced by a newer one
// before it could commit. Nothing from it was applied.
var ErrSuperseded = errors.New("refresh superseded by a newer request")

// FetchError summarizes the objects whose ephemeris could not be fetched
// in one cycle. The cycle's other results were still committed.
type FetchError struct {
	Failed int
	Total  int
	Causes map[catalog.ObjectID]error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %d objects", e.Failed)
}

// Unwrap returns the per-object causes in id order.
func (e *FetchError) Unwrap() []error {
	ids := make([]string, 0, len(e.Causes))
	for id := range e.Causes {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, e.Causes[catalog.ObjectID(id)])
	}
	return errs
}

// AllFailed reports whether every attempted object failed, which usually
// means the network is unreachable.
func (e *FetchError) AllFailed() bool { return e.Failed == e.Total }

// EventType represents the type of state change event.
type EventType string

const (
	EventStatusChanged EventType = "STATUS_CHANGED"
	EventStaleData     EventType = "STALE_DATA"
	EventInconsistent  EventType = "INCONSISTENT_DATA"
)

// Event represents a change in the session.
type Event struct {
	Type      EventType        `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Object    catalog.ObjectID `json:"object"`
	From      string           `json:"from,omitempty"`
	To        string           `json:"to,omitempty"`
	Detail    string           `json:"detail,omitempty"`
}

// Fetcher computes ephemerides for a set of objects. ephem.Dispatcher
// implements it.
type Fetcher interface {
	Fetch(ctx context.Context, objects []catalog.Object, obs astro.Observer, w astro.Window, now time.Time) ephem.Batch
}

// cycle is one running refresh.
type cycle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager handles the session with thread-safe access. At most one refresh
// cycle runs at a time; a new Refresh cancels and waits for the previous one.
type Manager struct {
	mu sync.RWMutex

	// Current state
	session         catalog.Session
	hasSession      bool
	fromCache       bool
	lastRefresh     time.Time
	lastError       error
	refreshDuration time.Duration

	// Event log (ring buffer)
	events       []Event
	maxEvents    int
	eventWriteAt int

	// Configuration
	refreshInterval time.Duration

	cycleMu  sync.Mutex
	inFlight *cycle

	fetcher Fetcher
	store   cache.Store
	seed    func() []catalog.Object
	now     func() time.Time
	log     *logging.Logger
}

// Config holds configuration for the state manager.
type Config struct {
	MaxEvents       int
	RefreshInterval time.Duration
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxEvents:       50,
		RefreshInterval: time.Minute,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithCache sets the session store consulted before fetching.
func WithCache(s cache.Store) Option {
	return func(m *Manager) {
		m.store = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithCatalog sets the catalog a fresh session starts from.
func WithCatalog(seed func() []catalog.Object) Option {
	return func(m *Manager) {
		m.seed = seed
	}
}

// NewManager creates a new state manager.
func NewManager(cfg Config, fetcher Fetcher, opts ...Option) *Manager {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 50
	}
	m := &Manager{
		maxEvents:       maxEvents,
		events:          make([]Event, 0, maxEvents),
		refreshInterval: cfg.RefreshInterval,
		fetcher:         fetcher,
		seed:            catalog.Default,
		now:             time.Now,
		log:             logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Refresh computes the session for the night of date at obs. Any refresh
// still running is cancelled and awaited first, so cycles never overlap.
//
// The new session is committed atomically after every fetch has finished.
// Per-object failures yield a *FetchError alongside the committed snapshot;
// a cycle replaced by a newer Refresh returns ErrSuperseded.
func (m *Manager) Refresh(ctx context.Context, date time.Time, obs astro.Observer) (Snapshot, error) {
	cctx, cancel := context.WithCancel(ctx)
	cur := &cycle{cancel: cancel, done: make(chan struct{})}

	m.cycleMu.Lock()
	prev := m.inFlight
	m.inFlight = cur
	m.cycleMu.Unlock()

	defer func() {
		m.cycleMu.Lock()
		if m.inFlight == cur {
			m.inFlight = nil
		}
		m.cycleMu.Unlock()
		cancel()
		close(cur.done)
	}()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}
	if cctx.Err() != nil {
		return m.Snapshot(), m.abortErr(cur, cctx)
	}

	start := m.now()
	snap, err := m.runCycle(cctx, cur, date, obs)
	if errors.Is(err, ErrSuperseded) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return snap, err
	}
	metrics.ObserveCycle(m.now().Sub(start))
	return snap, err
}

func (m *Manager) runCycle(ctx context.Context, cur *cycle, date time.Time, obs astro.Observer) (Snapshot, error) {
	start := m.now()
	plan := astro.PlanNight(date, obs)
	key := catalog.KeyFor(date, obs)
	log := m.log.WithField("session", key.String())

	if m.store != nil {
		sess, ok, err := m.store.Get(ctx, key)
		switch {
		case err != nil:
			log.Warn("session cache read failed: %v", err)
		case ok:
			log.Debug("session cache hit (computed %s)", sess.ComputedAt.Format(time.RFC3339))
			objects, sum := visibility.Advance(sess.Objects, start)
			sess.Objects = objects
			if !m.commit(cur, sess, sum, true, nil, m.now().Sub(start)) {
				return m.Snapshot(), ErrSuperseded
			}
			return m.Snapshot(), nil
		}
	}

	previous := m.previousObjects(key)
	log.Info("refreshing %d objects, night %s to %s (%s)",
		len(previous), plan.Window.Start.Format(time.RFC3339), plan.Window.End.Format(time.RFC3339), plan.Condition)

	batch := m.fetcher.Fetch(ctx, previous, obs, plan.Window, start)
	if ctx.Err() != nil {
		return m.Snapshot(), m.abortErr(cur, ctx)
	}

	objects, sum := visibility.Reconcile(previous, batch.Results, start)
	sess := catalog.Session{
		Date:       date,
		Observer:   obs,
		Night:      plan,
		Objects:    objects,
		ComputedAt: start,
	}

	var fetchErr error
	if len(batch.Failures) > 0 {
		fetchErr = &FetchError{
			Failed: len(batch.Failures),
			Total:  batch.Len() - len(batch.Optional),
			Causes: batch.Failures,
		}
	}

	if !m.commit(cur, sess, sum, false, fetchErr, m.now().Sub(start)) {
		return m.Snapshot(), ErrSuperseded
	}

	// A partial session is not cached so the next refresh retries the gaps.
	if m.store != nil && fetchErr == nil {
		if err := m.store.Put(ctx, sess); err != nil {
			log.Warn("session cache write failed: %v", err)
		}
	}
	return m.Snapshot(), fetchErr
}

func (m *Manager) abortErr(cur *cycle, ctx context.Context) error {
	if m.superseded(cur) {
		return ErrSuperseded
	}
	return ctx.Err()
}

func (m *Manager) superseded(cur *cycle) bool {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()
	return m.inFlight != cur
}

// previousObjects returns the objects the next merge starts from: the
// current session's when it is for the same key, a fresh catalog otherwise.
func (m *Manager) previousObjects(key catalog.SessionKey) []catalog.Object {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.hasSession && m.session.Key() == key {
		return m.session.Clone().Objects
	}
	return m.seed()
}

// commit applies a finished cycle. It returns false, applying nothing, when
// cur is no longer the current cycle.
func (m *Manager) commit(cur *cycle, sess catalog.Session, sum visibility.Summary, fromCache bool, fetchErr error, took time.Duration) bool {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()
	if m.inFlight != cur {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.session = sess
	m.hasSession = true
	m.fromCache = fromCache
	m.lastRefresh = m.now()
	m.lastError = fetchErr
	m.refreshDuration = took
	m.recordSummary(sum)
	m.publishCounts()
	return true
}

// Tick re-derives every object's position and status for now.
func (m *Manager) Tick(now time.Time) Snapshot {
	m.mu.Lock()
	if m.hasSession {
		objects, sum := visibility.Advance(m.session.Objects, now)
		m.session.Objects = objects
		m.recordSummary(sum)
		m.publishCounts()
	}
	m.mu.Unlock()
	return m.Snapshot()
}

// recordSummary turns a merge summary into events. Callers hold mu.
func (m *Manager) recordSummary(sum visibility.Summary) {
	now := m.now()
	for _, tr := range sum.Transitions {
		m.addEvent(Event{
			Type:      EventStatusChanged,
			Timestamp: now,
			Object:    tr.ID,
			From:      tr.From.String(),
			To:        tr.To.String(),
		})
	}
	for _, id := range sum.Stale {
		m.addEvent(Event{Type: EventStaleData, Timestamp: now, Object: id})
	}

	ids := make([]string, 0, len(sum.Findings))
	for id := range sum.Findings {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	for _, id := range ids {
		f := sum.Findings[catalog.ObjectID(id)]
		m.log.WithField("object", id).Warn("inconsistent ephemeris: %s", f)
		m.addEvent(Event{Type: EventInconsistent, Timestamp: now, Object: catalog.ObjectID(id), Detail: f.String()})
	}
}

func (m *Manager) publishCounts() {
	counts := make(map[string]int)
	for status, n := range visibility.Counts(m.session.Objects) {
		counts[status.String()] = n
	}
	metrics.SetObjectCounts(counts)
}

// addEvent adds an event to the ring buffer.
func (m *Manager) addEvent(e Event) {
	if len(m.events) < m.maxEvents {
		m.events = append(m.events, e)
	} else {
		m.events[m.eventWriteAt] = e
		m.eventWriteAt = (m.eventWriteAt + 1) % m.maxEvents
	}
}

// Snapshot represents an immutable snapshot of current state.
type Snapshot struct {
	Session         catalog.Session
	HasData         bool
	FromCache       bool
	LastRefresh     time.Time
	LastError       error
	RefreshDuration time.Duration
	Events          []Event
}

// Snapshot returns a consistent snapshot of current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		Session:         m.session.Clone(),
		HasData:         m.hasSession,
		FromCache:       m.fromCache,
		LastRefresh:     m.lastRefresh,
		LastError:       m.lastError,
		RefreshDuration: m.refreshDuration,
		Events:          m.getEventsOrdered(),
	}
}

// getEventsOrdered returns events in chronological order.
func (m *Manager) getEventsOrdered() []Event {
	if len(m.events) == 0 {
		return nil
	}

	// If buffer isn't full yet, just copy
	if len(m.events) < m.maxEvents {
		result := make([]Event, len(m.events))
		copy(result, m.events)
		return result
	}

	// Ring buffer is full, reorder from oldest to newest
	result := make([]Event, m.maxEvents)
	for i := 0; i < m.maxEvents; i++ {
		idx := (m.eventWriteAt + i) % m.maxEvents
		result[i] = m.events[idx]
	}
	return result
}

// RecentEvents returns the last n events.
func (m *Manager) RecentEvents(n int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.getEventsOrdered()
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// RefreshInterval returns the configured refresh interval.
func (m *Manager) RefreshInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshInterval
}

// SetRefreshInterval updates the refresh interval.
func (m *Manager) SetRefreshInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshInterval = d
}

// HasData returns true once a session has been committed.
func (m *Manager) HasData() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasSession
}

// Counts tallies the snapshot's objects by status.
func (s Snapshot) Counts() map[catalog.Status]int {
	return visibility.Counts(s.Session.Objects)
}
