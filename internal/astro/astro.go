// Package astro resolves sunrise/sunset instants for a fixed location,
// cached per calendar day so the orchestrator's tick never recomputes
// solar geometry.
package astro

import (
	"fmt"
	"sync"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// Location is the observer position, loaded once at startup.
type Location struct {
	Latitude  float64
	Longitude float64
	Timezone  string

	tz *time.Location
}

// ResolveLocation validates the coordinates and resolves the IANA
// timezone. Failures here are configuration errors and should be fatal
// at startup.
func ResolveLocation(lat, lon float64, timezone string) (Location, error) {
	if lat < -90 || lat > 90 {
		return Location{}, fmt.Errorf("latitude %.4f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return Location{}, fmt.Errorf("longitude %.4f out of range [-180, 180]", lon)
	}
	tz, err := time.LoadLocation(timezone)
	if err != nil {
		return Location{}, fmt.Errorf("resolve timezone %q: %w", timezone, err)
	}
	return Location{Latitude: lat, Longitude: lon, Timezone: timezone, tz: tz}, nil
}

// TZ returns the resolved timezone.
func (l Location) TZ() *time.Location {
	if l.tz != nil {
		return l.tz
	}
	return time.UTC
}

// SunTimes is one day's resolved solar anchors, in the location's
// timezone.
type SunTimes struct {
	Sunrise time.Time
	Sunset  time.Time
}

type cacheEntry struct {
	times    SunTimes
	resolved time.Time
}

// Calculator computes and caches per-day sun times.
type Calculator struct {
	loc Location

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// maxCacheAge bounds the per-day cache; entries resolved longer ago than
// this are evicted on the next lookup.
const maxCacheAge = 72 * time.Hour

func NewCalculator(loc Location) *Calculator {
	return &Calculator{
		loc:   loc,
		cache: make(map[string]cacheEntry),
	}
}

// SunTimes returns sunrise and sunset for the calendar day containing
// date, in the configured timezone. Polar day/night (the sun never
// rises or never sets) is reported as an error for that day.
func (c *Calculator) SunTimes(date time.Time) (SunTimes, error) {
	local := date.In(c.loc.TZ())
	key := local.Format("2006-01-02")

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return entry.times, nil
	}
	c.mu.Unlock()

	rise, set := sunrise.SunriseSunset(
		c.loc.Latitude, c.loc.Longitude,
		local.Year(), local.Month(), local.Day(),
	)
	if rise.IsZero() || set.IsZero() || !set.After(rise) {
		return SunTimes{}, fmt.Errorf("no sunrise/sunset on %s at %.4f,%.4f",
			key, c.loc.Latitude, c.loc.Longitude)
	}

	times := SunTimes{
		Sunrise: rise.In(c.loc.TZ()),
		Sunset:  set.In(c.loc.TZ()),
	}

	c.mu.Lock()
	c.evictStale()
	c.cache[key] = cacheEntry{times: times, resolved: time.Now()}
	c.mu.Unlock()

	return times, nil
}

// evictStale removes entries past maxCacheAge. Caller holds c.mu.
func (c *Calculator) evictStale() {
	cutoff := time.Now().Add(-maxCacheAge)
	for key, entry := range c.cache {
		if entry.resolved.Before(cutoff) {
			delete(c.cache, key)
		}
	}
}

// CachedDays reports how many days are currently cached.
func (c *Calculator) CachedDays() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
