// Package exposure turns a metered scene and a capture profile into
// concrete sensor settings. Everything here is pure: the same functions
// run on the brain during live orchestration and on the edge against a
// deployed profile, so the two sides can never disagree about a curve.
package exposure

import (
	"fmt"
	"math"

	"github.com/your-org/skycam/internal/models"
)

// Input is the per-capture context fed into Compute.
type Input struct {
	ScheduleName    string
	Phase           models.Phase
	AnchorOffsetMin float64
	Lux             float64
}

// InterpolateWhiteBalance maps brightness to a target colour temperature
// by linear interpolation between the two bracketing control points.
// Outside the table's domain the nearest endpoint wins; there is no
// extrapolation. The table must be ordered by lux.
func InterpolateWhiteBalance(table []models.WBPoint, lux float64) int {
	if len(table) == 0 {
		return 0
	}
	if lux <= table[0].Lux {
		return table[0].Temp
	}
	last := table[len(table)-1]
	if lux >= last.Lux {
		return last.Temp
	}
	for i := 1; i < len(table); i++ {
		lo, hi := table[i-1], table[i]
		if lux <= hi.Lux {
			frac := (lux - lo.Lux) / (hi.Lux - lo.Lux)
			return lo.Temp + int(math.Round(frac*float64(hi.Temp-lo.Temp)))
		}
	}
	return last.Temp
}

// selectBucket picks the first phase bucket whose MaxOffsetMin exceeds
// the offset. Buckets are ordered; no match means no phase adjustment.
func selectBucket(buckets []models.PhaseBucket, offsetMin float64) (models.PhaseBucket, bool) {
	for _, b := range buckets {
		if offsetMin < b.MaxOffsetMin {
			return b, true
		}
	}
	return models.PhaseBucket{}, false
}

// Compute resolves one CaptureSettings record:
//
//  1. start from the profile's base settings
//  2. solar phases apply the matching phase-bias bucket (bias delta plus
//     warm-cap/cool-floor bounds on the adaptive temperature)
//  3. adaptive white balance interpolates a temperature from lux
//  4. the schedule's override delta lands on top
//
// Bracket expansion is a separate step (ExpandBracket / ComputeBracket).
func Compute(p *models.CaptureProfile, in Input) (models.CaptureSettings, error) {
	if p == nil {
		return models.CaptureSettings{}, fmt.Errorf("nil profile")
	}

	out := p.Base
	out.ProfileTag = p.ID

	var bucket models.PhaseBucket
	var haveBucket bool
	if in.Phase == models.PhaseSunrise || in.Phase == models.PhaseSunset {
		bucket, haveBucket = selectBucket(p.PhaseBias[in.Phase], in.AnchorOffsetMin)
		if haveBucket {
			out.ExposureBias += bucket.BiasDelta
		}
	}

	if p.AdaptiveWB.Enabled {
		if err := p.AdaptiveWB.Validate(); err != nil {
			return models.CaptureSettings{}, err
		}
		temp := InterpolateWhiteBalance(p.AdaptiveWB.Table, in.Lux)
		if haveBucket {
			if bucket.WarmCap > 0 && temp > bucket.WarmCap {
				temp = bucket.WarmCap
			}
			if bucket.CoolFloor > 0 && temp < bucket.CoolFloor {
				temp = bucket.CoolFloor
			}
		}
		out.WhiteBalanceMode = models.WBManual
		out.WhiteBalanceTemp = temp
	}

	if delta, ok := p.ScheduleOverrides[in.ScheduleName]; ok {
		out = delta.Apply(out)
	}

	if out.BracketCount > 1 && len(out.BracketOffsets) == 0 {
		out.BracketOffsets = p.BracketOffsets
	}

	return out, nil
}

// ExpandBracket fans one settings record out into its bracket members,
// each shifted by the corresponding EV offset with every other field
// preserved. A non-bracket record passes through as a single element.
func ExpandBracket(s models.CaptureSettings, offsets []float64) ([]models.CaptureSettings, error) {
	if s.BracketCount <= 1 {
		single := s
		single.BracketCount = 1
		single.BracketOffsets = nil
		return []models.CaptureSettings{single}, nil
	}
	if len(offsets) == 0 {
		offsets = s.BracketOffsets
	}
	if len(offsets) != s.BracketCount {
		return nil, fmt.Errorf("bracket_count %d does not match %d offsets", s.BracketCount, len(offsets))
	}
	out := make([]models.CaptureSettings, 0, s.BracketCount)
	for _, off := range offsets {
		member := s
		member.ExposureBias += off
		out = append(out, member)
	}
	return out, nil
}

// ComputeBracket runs Compute and expands the result into its ordered
// exposure list.
func ComputeBracket(p *models.CaptureProfile, in Input) ([]models.CaptureSettings, error) {
	settings, err := Compute(p, in)
	if err != nil {
		return nil, err
	}
	return ExpandBracket(settings, nil)
}
