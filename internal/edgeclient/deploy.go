package edgeclient

import (
	"time"

	"github.com/your-org/skycam/internal/models"
	"github.com/your-org/skycam/pkg/dto"
)

// BuildDeployRequest packages a domain profile for the wire. The
// adaptive table is embedded so brain and edge share one curve.
func BuildDeployRequest(p *models.CaptureProfile, schedules []string) dto.ProfileDeployRequest {
	req := dto.ProfileDeployRequest{
		ProfileID:  p.ID,
		Version:    p.Version,
		Schedules:  schedules,
		DeployedAt: time.Now(),
		Settings: dto.ProfileSettings{
			Base: dto.BaseSettings{
				Sensitivity:      p.Base.Sensitivity,
				Shutter:          p.Base.Shutter,
				ExposureBias:     p.Base.ExposureBias,
				WhiteBalanceMode: string(p.Base.WhiteBalanceMode),
				WhiteBalanceTemp: p.Base.WhiteBalanceTemp,
				BracketCount:     p.Base.BracketCount,
			},
			BracketOffsets: p.BracketOffsets,
		},
	}

	req.Settings.AdaptiveWhiteBalance.Enabled = p.AdaptiveWB.Enabled
	for _, point := range p.AdaptiveWB.Table {
		req.Settings.AdaptiveWhiteBalance.LookupTable = append(
			req.Settings.AdaptiveWhiteBalance.LookupTable,
			[2]float64{point.Lux, float64(point.Temp)},
		)
	}

	if len(p.PhaseBias) > 0 {
		req.Settings.PhaseBias = make(map[string][]dto.PhaseBucket, len(p.PhaseBias))
		for phase, buckets := range p.PhaseBias {
			out := make([]dto.PhaseBucket, 0, len(buckets))
			for _, b := range buckets {
				out = append(out, dto.PhaseBucket{
					MaxOffsetMin: b.MaxOffsetMin,
					BiasDelta:    b.BiasDelta,
					WarmCap:      b.WarmCap,
					CoolFloor:    b.CoolFloor,
				})
			}
			req.Settings.PhaseBias[string(phase)] = out
		}
	}

	if len(p.ScheduleOverrides) > 0 {
		req.Settings.ScheduleOverrides = make(map[string]dto.CaptureOverride, len(p.ScheduleOverrides))
		for name, delta := range p.ScheduleOverrides {
			ov := dto.CaptureOverride{
				Sensitivity:      delta.Sensitivity,
				Shutter:          delta.Shutter,
				ExposureBias:     delta.ExposureBias,
				WhiteBalanceTemp: delta.WhiteBalanceTemp,
				BracketCount:     delta.BracketCount,
			}
			if delta.WhiteBalanceMode != nil {
				mode := string(*delta.WhiteBalanceMode)
				ov.WhiteBalanceMode = &mode
			}
			req.Settings.ScheduleOverrides[name] = ov
		}
	}

	return req
}
