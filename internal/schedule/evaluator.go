package schedule

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// windowCacheDays bounds the per-day window cache; entries for days this
// far behind the last lookup are evicted.
const windowCacheDays = 4

// Evaluator resolves schedule windows against an anchor source, caching
// per (schedule, day).
type Evaluator struct {
	sun  AnchorSource
	tz   *time.Location
	defs []Definition

	mu    sync.Mutex
	cache map[string]Window
}

func NewEvaluator(sun AnchorSource, tz *time.Location, defs []Definition) *Evaluator {
	return &Evaluator{
		sun:   sun,
		tz:    tz,
		defs:  defs,
		cache: make(map[string]Window),
	}
}

// Definitions returns all loaded schedules, disabled ones included.
func (e *Evaluator) Definitions() []Definition {
	return e.defs
}

// Lookup finds a schedule by name.
func (e *Evaluator) Lookup(name string) (Definition, bool) {
	for _, d := range e.defs {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// ResolveWindow resolves the window a schedule opens on the given
// calendar day. A solar window may extend past midnight; it still
// belongs to the anchor's day.
func (e *Evaluator) ResolveWindow(d Definition, day time.Time) (Window, error) {
	local := day.In(e.tz)
	key := d.Name + "|" + local.Format("2006-01-02")

	e.mu.Lock()
	if w, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return w, nil
	}
	e.mu.Unlock()

	w, err := e.resolve(d, local)
	if err != nil {
		return Window{}, err
	}

	e.mu.Lock()
	e.evictBefore(local.AddDate(0, 0, -windowCacheDays))
	e.cache[key] = w
	e.mu.Unlock()

	return w, nil
}

func (e *Evaluator) resolve(d Definition, local time.Time) (Window, error) {
	switch d.Kind {
	case KindTimeOfDay:
		startMin, err := parseClock(d.Start)
		if err != nil {
			return Window{}, err
		}
		endMin, err := parseClock(d.End)
		if err != nil {
			return Window{}, err
		}
		midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.tz)
		start := midnight.Add(time.Duration(startMin) * time.Minute)
		end := midnight.Add(time.Duration(endMin) * time.Minute)
		return Window{Start: start, End: end, Anchor: start}, nil

	case KindSolarRelative:
		sun, err := e.sun.SunTimes(local)
		if err != nil {
			return Window{}, fmt.Errorf("schedule %s: %w", d.Name, err)
		}
		anchor := sun.Sunrise
		if d.Anchor == AnchorSunset {
			anchor = sun.Sunset
		}
		start := anchor.Add(time.Duration(d.OffsetMinutes) * time.Minute)
		end := start.Add(time.Duration(d.DurationMinutes) * time.Minute)
		return Window{Start: start, End: end, Anchor: anchor}, nil

	default:
		return Window{}, fmt.Errorf("schedule %s: unknown kind %q", d.Name, d.Kind)
	}
}

// evictBefore drops cache entries for days before cutoff. Caller holds e.mu.
func (e *Evaluator) evictBefore(cutoff time.Time) {
	cutoffKey := cutoff.Format("2006-01-02")
	for key := range e.cache {
		if i := len(key) - len("2006-01-02"); i > 0 && key[i:] < cutoffKey {
			delete(e.cache, key)
		}
	}
}

// ActiveAt returns every enabled schedule whose window contains now.
// Yesterday's window is checked too: a solar window with a large offset
// can wrap past midnight into today. Active schedules are independent;
// no priority ordering is applied.
func (e *Evaluator) ActiveAt(now time.Time) []Active {
	local := now.In(e.tz)
	var active []Active
	for _, d := range e.defs {
		if d.Disabled {
			continue
		}
		for _, day := range []time.Time{local, local.AddDate(0, 0, -1)} {
			w, err := e.ResolveWindow(d, day)
			if err != nil {
				slog.Warn("window resolution failed", "schedule", d.Name, "day", day.Format("2006-01-02"), "error", err)
				continue
			}
			if w.Contains(local) {
				active = append(active, Active{
					Definition:      d,
					Window:          w,
					AnchorOffsetMin: local.Sub(w.Anchor).Minutes(),
				})
				break
			}
		}
	}
	return active
}
