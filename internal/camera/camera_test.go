package camera

import (
	"errors"
	"testing"

	"github.com/your-org/skycam/internal/models"
)

func validSettings() models.CaptureSettings {
	return models.CaptureSettings{
		Sensitivity:      400,
		Shutter:          "1/500",
		ExposureBias:     0.3,
		WhiteBalanceMode: models.WBAuto,
	}
}

func TestConstraintsValidate(t *testing.T) {
	c := DefaultConstraints()

	if err := c.Validate(validSettings()); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.CaptureSettings)
	}{
		{"off-step sensitivity", func(s *models.CaptureSettings) { s.Sensitivity = 450 }},
		{"bias too high", func(s *models.CaptureSettings) { s.ExposureBias = 2.5 }},
		{"bias too low", func(s *models.CaptureSettings) { s.ExposureBias = -2.5 }},
		{"shutter too long", func(s *models.CaptureSettings) { s.Shutter = "45s" }},
		{"shutter too short", func(s *models.CaptureSettings) { s.Shutter = "1/50000" }},
		{"unparseable shutter", func(s *models.CaptureSettings) { s.Shutter = "fast" }},
		{"manual wb temp too low", func(s *models.CaptureSettings) {
			s.WhiteBalanceMode = models.WBManual
			s.WhiteBalanceTemp = 1000
		}},
		{"manual wb temp too high", func(s *models.CaptureSettings) {
			s.WhiteBalanceMode = models.WBManual
			s.WhiteBalanceTemp = 15000
		}},
		{"unknown wb mode", func(s *models.CaptureSettings) { s.WhiteBalanceMode = "fluorescent" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(&s)
			err := c.Validate(s)
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("error %v does not wrap ErrInvalidSettings", err)
			}
		})
	}
}

func TestValidateBracketReportsMember(t *testing.T) {
	c := DefaultConstraints()
	members := []models.CaptureSettings{
		validSettings(),
		validSettings(),
	}
	members[1].ExposureBias = 3.0

	err := c.ValidateBracket(members)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("error %v does not wrap ErrInvalidSettings", err)
	}
}

func TestNearestSensitivityStep(t *testing.T) {
	c := DefaultConstraints()
	tests := []struct {
		raw, want int
	}{
		{100, 100},
		{150, 100},
		{400, 400},
		{799, 400},
		{5000, 3200},
		{50, 100}, // below the lowest step: lowest wins
	}
	for _, tt := range tests {
		if got := c.NearestSensitivityStep(tt.raw); got != tt.want {
			t.Errorf("NearestSensitivityStep(%d) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestFormatShutter(t *testing.T) {
	tests := []struct {
		us   int64
		want string
	}{
		{2000, "1/500"},
		{125, "1/8000"},
		{500000, "1/2"},
		{2000000, "2.0s"},
		{1500000, "1.5s"},
		{0, "0"},
	}
	for _, tt := range tests {
		if got := FormatShutter(tt.us); got != tt.want {
			t.Errorf("FormatShutter(%d) = %q, want %q", tt.us, got, tt.want)
		}
	}
}

func TestFormatShutterRoundTrips(t *testing.T) {
	for _, us := range []int64{125, 2000, 500000, 2000000} {
		formatted := FormatShutter(us)
		parsed, err := models.ParseShutter(formatted)
		if err != nil {
			t.Fatalf("ParseShutter(%q): %v", formatted, err)
		}
		if parsed != us {
			t.Errorf("round trip %d -> %q -> %d", us, formatted, parsed)
		}
	}
}

func TestKelvinToGainsMonotonic(t *testing.T) {
	// Warmer temperatures need more blue gain, cooler need more red.
	prevR, prevB := kelvinToGains(2500)
	for k := 3000; k <= 8000; k += 500 {
		r, b := kelvinToGains(k)
		if r < prevR {
			t.Errorf("red gain decreased at %dK: %.2f < %.2f", k, r, prevR)
		}
		if b > prevB {
			t.Errorf("blue gain increased at %dK: %.2f > %.2f", k, b, prevB)
		}
		prevR, prevB = r, b
	}

	// Out-of-range temperatures clamp to the table edges.
	r, b := kelvinToGains(1000)
	if r != 1.20 || b != 2.60 {
		t.Errorf("below-range gains = %.2f/%.2f", r, b)
	}
	r, b = kelvinToGains(20000)
	if r != 2.45 || b != 1.25 {
		t.Errorf("above-range gains = %.2f/%.2f", r, b)
	}
}
