package exposure

import (
	"testing"

	"github.com/your-org/skycam/internal/models"
)

func goldenTable() []models.WBPoint {
	return []models.WBPoint{
		{Lux: 10, Temp: 3200},
		{Lux: 100, Temp: 4500},
		{Lux: 1000, Temp: 5600},
	}
}

func TestInterpolateWhiteBalance(t *testing.T) {
	table := goldenTable()

	tests := []struct {
		name string
		lux  float64
		want int
	}{
		{"below domain clamps to first point", 1, 3200},
		{"exactly first point", 10, 3200},
		{"midway between first pair", 55, 3850},
		{"exactly interior point", 100, 4500},
		{"midway between second pair", 550, 5050},
		{"exactly last point", 1000, 5600},
		{"above domain clamps to last point", 50000, 5600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InterpolateWhiteBalance(table, tt.lux)
			if got != tt.want {
				t.Errorf("InterpolateWhiteBalance(%.0f) = %d, want %d", tt.lux, got, tt.want)
			}
		})
	}
}

func TestInterpolateWhiteBalanceDecreasingTemps(t *testing.T) {
	// A table may cool as the scene brightens. Rounding must stay
	// unbiased when the interpolated delta is negative.
	table := []models.WBPoint{
		{Lux: 10, Temp: 6000},
		{Lux: 1000, Temp: 3000},
	}

	tests := []struct {
		name string
		lux  float64
		want int
	}{
		{"quarter of the way down", 257.5, 5250},
		{"midway down", 505, 4500},
		{"endpoints hold", 1000, 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InterpolateWhiteBalance(table, tt.lux)
			if got != tt.want {
				t.Errorf("InterpolateWhiteBalance(%.1f) = %d, want %d", tt.lux, got, tt.want)
			}
		})
	}
}

func TestInterpolateWhiteBalanceEmptyTable(t *testing.T) {
	if got := InterpolateWhiteBalance(nil, 100); got != 0 {
		t.Errorf("empty table should yield 0, got %d", got)
	}
}

func sunsetProfile() *models.CaptureProfile {
	return &models.CaptureProfile{
		ID:      "sunset-hdr",
		Version: "3",
		Base: models.CaptureSettings{
			Sensitivity:  100,
			Shutter:      "1/250",
			ExposureBias: 0,
		},
		AdaptiveWB: models.AdaptiveWB{
			Enabled: true,
			Table:   goldenTable(),
		},
		PhaseBias: map[models.Phase][]models.PhaseBucket{
			models.PhaseSunset: {
				{MaxOffsetMin: -10, BiasDelta: -0.3, CoolFloor: 5000},
				{MaxOffsetMin: 0, BiasDelta: 0},
				{MaxOffsetMin: 20, BiasDelta: 0.3, WarmCap: 4000},
				{MaxOffsetMin: 60, BiasDelta: 0.7, WarmCap: 3400},
			},
		},
	}
}

func TestComputePhaseBias(t *testing.T) {
	p := sunsetProfile()

	tests := []struct {
		name      string
		offsetMin float64
		wantBias  float64
	}{
		{"well before sunset", -25, -0.3},
		{"just before sunset", -5, 0},
		{"shortly after sunset", 10, 0.3},
		{"deep into dusk", 45, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(p, Input{
				ScheduleName:    "golden-hour",
				Phase:           models.PhaseSunset,
				AnchorOffsetMin: tt.offsetMin,
				Lux:             500,
			})
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if got.ExposureBias != tt.wantBias {
				t.Errorf("offset %.0f min: bias = %.2f, want %.2f", tt.offsetMin, got.ExposureBias, tt.wantBias)
			}
		})
	}
}

func TestComputeNoBucketBeyondRange(t *testing.T) {
	p := sunsetProfile()

	// Past the last bucket boundary no phase adjustment applies.
	got, err := Compute(p, Input{
		Phase:           models.PhaseSunset,
		AnchorOffsetMin: 90,
		Lux:             500,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.ExposureBias != 0 {
		t.Errorf("bias = %.2f, want 0 (no bucket)", got.ExposureBias)
	}
}

func TestComputeWarmCap(t *testing.T) {
	p := sunsetProfile()

	// Lux 500 interpolates to 5050K, but 45 min after sunset the bucket
	// caps the temperature at 3400K.
	got, err := Compute(p, Input{
		Phase:           models.PhaseSunset,
		AnchorOffsetMin: 45,
		Lux:             500,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.WhiteBalanceTemp != 3400 {
		t.Errorf("temp = %d, want warm cap 3400", got.WhiteBalanceTemp)
	}
	if got.WhiteBalanceMode != models.WBManual {
		t.Errorf("mode = %q, want manual", got.WhiteBalanceMode)
	}
}

func TestComputeCoolFloor(t *testing.T) {
	p := sunsetProfile()

	// Dim scene interpolates to 3200K, but well before sunset the bucket
	// floors the temperature at 5000K.
	got, err := Compute(p, Input{
		Phase:           models.PhaseSunset,
		AnchorOffsetMin: -25,
		Lux:             5,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.WhiteBalanceTemp != 5000 {
		t.Errorf("temp = %d, want cool floor 5000", got.WhiteBalanceTemp)
	}
}

func TestComputeScheduleOverrideAdditive(t *testing.T) {
	p := sunsetProfile()
	bias := -0.5
	p.ScheduleOverrides = map[string]models.SettingsDelta{
		"golden-hour": {ExposureBias: &bias},
	}

	// At offset -5 the matching bucket contributes 0, so the override's
	// additive delta lands exactly.
	got, err := Compute(p, Input{
		ScheduleName:    "golden-hour",
		Phase:           models.PhaseSunset,
		AnchorOffsetMin: -5,
		Lux:             500,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.ExposureBias != -0.5 {
		t.Errorf("bias = %.2f, want -0.5", got.ExposureBias)
	}

	// Deep into dusk the bucket's +0.7 stacks with the override.
	got, err = Compute(p, Input{
		ScheduleName:    "golden-hour",
		Phase:           models.PhaseSunset,
		AnchorOffsetMin: 45,
		Lux:             500,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if want := 0.7 - 0.5; got.ExposureBias != want {
		t.Errorf("bias = %.2f, want %.2f", got.ExposureBias, want)
	}
}

func TestComputeDaytimeSkipsPhaseBias(t *testing.T) {
	p := sunsetProfile()

	got, err := Compute(p, Input{
		Phase:           models.PhaseDaytime,
		AnchorOffsetMin: 10,
		Lux:             500,
	})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got.ExposureBias != 0 {
		t.Errorf("daytime bias = %.2f, want 0", got.ExposureBias)
	}
	// Adaptive WB still applies, unclamped.
	if got.WhiteBalanceTemp != 5050 {
		t.Errorf("daytime temp = %d, want 5050", got.WhiteBalanceTemp)
	}
}

func TestComputeMalformedTable(t *testing.T) {
	p := sunsetProfile()
	p.AdaptiveWB.Table = []models.WBPoint{{Lux: 100, Temp: 4500}}

	if _, err := Compute(p, Input{Lux: 500}); err == nil {
		t.Fatal("expected error for single-point table")
	}

	p.AdaptiveWB.Table = []models.WBPoint{
		{Lux: 100, Temp: 4500},
		{Lux: 100, Temp: 5000},
	}
	if _, err := Compute(p, Input{Lux: 500}); err == nil {
		t.Fatal("expected error for non-increasing table")
	}
}

func TestComputeNilProfile(t *testing.T) {
	if _, err := Compute(nil, Input{}); err == nil {
		t.Fatal("expected error for nil profile")
	}
}

func TestExpandBracket(t *testing.T) {
	base := models.CaptureSettings{
		Sensitivity:    200,
		Shutter:        "1/500",
		ExposureBias:   0.3,
		BracketCount:   3,
		BracketOffsets: []float64{-2, 0, 2},
	}

	members, err := ExpandBracket(base, nil)
	if err != nil {
		t.Fatalf("ExpandBracket: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("got %d members, want 3", len(members))
	}

	wantBias := []float64{-1.7, 0.3, 2.3}
	for i, m := range members {
		if m.ExposureBias != wantBias[i] {
			t.Errorf("member %d bias = %.2f, want %.2f", i, m.ExposureBias, wantBias[i])
		}
		if m.Sensitivity != 200 || m.Shutter != "1/500" {
			t.Errorf("member %d lost base fields: %+v", i, m)
		}
	}
}

func TestExpandBracketSingle(t *testing.T) {
	members, err := ExpandBracket(models.CaptureSettings{Sensitivity: 100, Shutter: "1s"}, nil)
	if err != nil {
		t.Fatalf("ExpandBracket: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("got %d members, want 1", len(members))
	}
	if members[0].BracketCount != 1 {
		t.Errorf("single member BracketCount = %d, want 1", members[0].BracketCount)
	}
}

func TestExpandBracketCountMismatch(t *testing.T) {
	_, err := ExpandBracket(models.CaptureSettings{
		BracketCount:   5,
		BracketOffsets: []float64{-1, 0, 1},
	}, nil)
	if err == nil {
		t.Fatal("expected error for count/offsets mismatch")
	}
}

func TestComputeBracketFillsProfileOffsets(t *testing.T) {
	p := sunsetProfile()
	p.Base.BracketCount = 3
	p.BracketOffsets = []float64{-2, 0, 2}

	members, err := ComputeBracket(p, Input{
		Phase:           models.PhaseSunset,
		AnchorOffsetMin: 10,
		Lux:             500,
	})
	if err != nil {
		t.Fatalf("ComputeBracket: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("got %d members, want 3", len(members))
	}
	// Bucket +0.3 applies to every member, then the per-member offset.
	wantBias := []float64{-1.7, 0.3, 2.3}
	for i, m := range members {
		if m.ExposureBias != wantBias[i] {
			t.Errorf("member %d bias = %.2f, want %.2f", i, m.ExposureBias, wantBias[i])
		}
	}
}
