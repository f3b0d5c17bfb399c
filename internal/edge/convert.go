package edge

import (
	"github.com/your-org/skycam/internal/models"
	"github.com/your-org/skycam/pkg/dto"
)

// ProfileFromDeployRequest decodes the wire deploy payload into the
// domain profile. The adaptive table travels inside the payload so the
// edge evaluates exactly the curve the brain built.
func ProfileFromDeployRequest(req dto.ProfileDeployRequest) *models.CaptureProfile {
	base := req.Settings.Base
	p := &models.CaptureProfile{
		ID:      req.ProfileID,
		Version: req.Version,
		Base: models.CaptureSettings{
			Sensitivity:      base.Sensitivity,
			Shutter:          base.Shutter,
			ExposureBias:     base.ExposureBias,
			WhiteBalanceMode: models.WhiteBalanceMode(base.WhiteBalanceMode),
			WhiteBalanceTemp: base.WhiteBalanceTemp,
			BracketCount:     base.BracketCount,
		},
		BracketOffsets: req.Settings.BracketOffsets,
	}

	awb := req.Settings.AdaptiveWhiteBalance
	p.AdaptiveWB.Enabled = awb.Enabled
	for _, row := range awb.LookupTable {
		p.AdaptiveWB.Table = append(p.AdaptiveWB.Table, models.WBPoint{
			Lux:  row[0],
			Temp: int(row[1]),
		})
	}

	if len(req.Settings.PhaseBias) > 0 {
		p.PhaseBias = make(map[models.Phase][]models.PhaseBucket, len(req.Settings.PhaseBias))
		for phase, buckets := range req.Settings.PhaseBias {
			out := make([]models.PhaseBucket, 0, len(buckets))
			for _, b := range buckets {
				out = append(out, models.PhaseBucket{
					MaxOffsetMin: b.MaxOffsetMin,
					BiasDelta:    b.BiasDelta,
					WarmCap:      b.WarmCap,
					CoolFloor:    b.CoolFloor,
				})
			}
			p.PhaseBias[models.Phase(phase)] = out
		}
	}

	if len(req.Settings.ScheduleOverrides) > 0 {
		p.ScheduleOverrides = make(map[string]models.SettingsDelta, len(req.Settings.ScheduleOverrides))
		for name, ov := range req.Settings.ScheduleOverrides {
			p.ScheduleOverrides[name] = DeltaFromOverride(&ov)
		}
	}

	return p
}

// DeltaFromOverride converts the wire partial-settings shape into a
// domain delta. A nil override yields the zero delta.
func DeltaFromOverride(ov *dto.CaptureOverride) models.SettingsDelta {
	var d models.SettingsDelta
	if ov == nil {
		return d
	}
	d.Sensitivity = ov.Sensitivity
	d.Shutter = ov.Shutter
	d.ExposureBias = ov.ExposureBias
	if ov.WhiteBalanceMode != nil {
		mode := models.WhiteBalanceMode(*ov.WhiteBalanceMode)
		d.WhiteBalanceMode = &mode
	}
	d.WhiteBalanceTemp = ov.WhiteBalanceTemp
	d.BracketCount = ov.BracketCount
	return d
}

// SettingsFromRequest builds explicit capture settings from the wire
// request (explicit shape only).
func SettingsFromRequest(req dto.CaptureRequest) models.CaptureSettings {
	return models.CaptureSettings{
		Sensitivity:      req.Sensitivity,
		Shutter:          req.Shutter,
		ExposureBias:     req.ExposureBias,
		WhiteBalanceMode: models.WhiteBalanceMode(req.WhiteBalanceMode),
		WhiteBalanceTemp: req.WhiteBalanceTemp,
		MeteringMode:     models.MeteringMode(req.MeteringMode),
		BracketCount:     req.BracketCount,
		BracketOffsets:   req.BracketOffsets,
		ProfileTag:       req.ProfileTag,
	}
}
