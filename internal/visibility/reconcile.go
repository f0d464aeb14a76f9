package visibility

import (
	"time"

	"github.com/litescript/ls-skywatch/internal/astro"
	"github.com/litescript/ls-skywatch/internal/catalog"
)

// Transition records a status change of one object.
type Transition struct {
	ID   catalog.ObjectID
	From catalog.Status
	To   catalog.Status
}

// Summary describes what a merge did to each object.
type Summary struct {
	Updated     []catalog.ObjectID // new result applied
	Stale       []catalog.ObjectID // no result; previous projection kept
	Defaulted   []catalog.ObjectID // no result and never fetched
	Findings    map[catalog.ObjectID]Finding
	Transitions []Transition
}

func newSummary() Summary {
	return Summary{Findings: make(map[catalog.ObjectID]Finding)}
}

// Reconcile merges the results of one fetch cycle into the previous
// catalog and returns a new catalog; previous is not modified.
//
// An object with a result takes it and is re-classified. An object
// without one keeps its previous projection and status, marked stale, if
// it was ever fetched; otherwise it defaults to below-horizon. A failed
// refresh therefore never downgrades a known status.
func Reconcile(previous []catalog.Object, current map[catalog.ObjectID]astro.EphemerisResult, now time.Time) ([]catalog.Object, Summary) {
	sum := newSummary()
	merged := make([]catalog.Object, len(previous))

	for i, prev := range previous {
		obj := prev.Clone()

		res, ok := current[obj.ID]
		switch {
		case ok:
			res = res.At(now)
			obj.Ephemeris = &res
			obj.Phase = PhaseFor(res.Lunar)
			obj.Fetched = true
			obj.Stale = false
			obj.UpdatedAt = now
			sum.Updated = append(sum.Updated, obj.ID)

			status, finding := Classify(obj.Ephemeris, now)
			sum.record(obj.ID, prev.Status, status, finding)
			obj.Status = status

		case obj.Fetched:
			obj.Stale = true
			sum.Stale = append(sum.Stale, obj.ID)

		default:
			obj = obj.ResetProjection()
			sum.Defaulted = append(sum.Defaulted, obj.ID)
			sum.record(obj.ID, prev.Status, obj.Status, FindingNone)
		}

		merged[i] = obj
	}
	return merged, sum
}

// Advance re-derives every object's current position for now and
// re-classifies it. Staleness and fetch bookkeeping are left alone.
func Advance(objects []catalog.Object, now time.Time) ([]catalog.Object, Summary) {
	sum := newSummary()
	out := make([]catalog.Object, len(objects))

	for i, prev := range objects {
		obj := prev.Clone()
		if obj.Ephemeris != nil {
			res := obj.Ephemeris.At(now)
			obj.Ephemeris = &res

			status, finding := Classify(obj.Ephemeris, now)
			sum.record(obj.ID, prev.Status, status, finding)
			obj.Status = status
		}
		out[i] = obj
	}
	return out, sum
}

func (s *Summary) record(id catalog.ObjectID, from, to catalog.Status, f Finding) {
	if f != FindingNone {
		s.Findings[id] = f
	}
	if from != to {
		s.Transitions = append(s.Transitions, Transition{ID: id, From: from, To: to})
	}
}

// Counts tallies objects per status.
func Counts(objects []catalog.Object) map[catalog.Status]int {
	counts := make(map[catalog.Status]int)
	for _, o := range objects {
		counts[o.Status]++
	}
	return counts
}
