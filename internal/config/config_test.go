package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/your-org/skycam/internal/models"
)

const sampleConfig = `
brain:
  port: 9090
  edge_url: http://edge:8081
  tick_seconds: 15
location:
  latitude: 52.52
  longitude: 13.405
  timezone: Europe/Berlin
schedules:
  - name: golden-hour
    kind: solar-relative
    anchor: sunset
    offset_minutes: -30
    duration_minutes: 60
    interval_seconds: 120
    profile: sunset-hdr
  - name: midday
    kind: time-of-day
    start: "11:00"
    end: "13:00"
    interval_seconds: 300
    profile: sunset-hdr
profiles:
  - id: sunset-hdr
    version: "3"
    base:
      sensitivity: 100
      shutter: 1/250
      bracket_count: 3
    adaptive_white_balance:
      enabled: true
      lookup_table:
        - { lux: 10, temp: 3200 }
        - { lux: 1000, temp: 5600 }
    bracket_offsets: [-2, 0, 2]
database:
  host: localhost
  name: skycam
  user: skycam
  password: secret
nats:
  url: nats://localhost:4222
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Brain.Port != 9090 || cfg.Brain.TickSeconds != 15 {
		t.Errorf("brain = %+v", cfg.Brain)
	}
	if cfg.Location.Timezone != "Europe/Berlin" {
		t.Errorf("timezone = %q", cfg.Location.Timezone)
	}

	if len(cfg.Schedules) != 2 {
		t.Fatalf("schedules = %d, want 2", len(cfg.Schedules))
	}
	gh := cfg.Schedules[0]
	if gh.OffsetMinutes != -30 || gh.DurationMinutes != 60 || gh.Disabled {
		t.Errorf("golden-hour = %+v", gh)
	}

	p, ok := cfg.Profile("sunset-hdr")
	if !ok {
		t.Fatal("profile sunset-hdr missing")
	}
	if len(p.AdaptiveWB.Table) != 2 || p.AdaptiveWB.Table[1].Temp != 5600 {
		t.Errorf("adaptive table = %+v", p.AdaptiveWB.Table)
	}
	if len(p.BracketOffsets) != 3 {
		t.Errorf("bracket offsets = %v", p.BracketOffsets)
	}

	if got := cfg.SchedulesForProfile("sunset-hdr"); len(got) != 2 {
		t.Errorf("schedules for profile = %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Brain.SettleDelayMs != 1500 || cfg.Brain.FailureThreshold != 3 {
		t.Errorf("brain defaults = %+v", cfg.Brain)
	}
	if cfg.Edge.Port != 8081 || cfg.Edge.CameraBackend != "rpicam" {
		t.Errorf("edge defaults = %+v", cfg.Edge)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("db port = %d", cfg.Database.Port)
	}
	if cfg.Fusion.Workers != 2 || cfg.Fusion.RetryLimit != 3 {
		t.Errorf("fusion defaults = %+v", cfg.Fusion)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %+v", cfg.Logging)
	}

	// Profiles without an explicit phase curve get the stock one.
	p, _ := cfg.Profile("sunset-hdr")
	if len(p.PhaseBias[models.PhaseSunset]) == 0 {
		t.Error("profile missing default phase bias")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SKYCAM_BRAIN_PORT", "7777")
	t.Setenv("SKYCAM_DB_PASSWORD", "env-secret")
	t.Setenv("SKYCAM_NATS_URL", "nats://elsewhere:4222")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Brain.Port != 7777 {
		t.Errorf("brain port = %d, want env override 7777", cfg.Brain.Port)
	}
	if cfg.Database.Password != "env-secret" {
		t.Errorf("db password not overridden")
	}
	if cfg.NATS.URL != "nats://elsewhere:4222" {
		t.Errorf("nats url = %q", cfg.NATS.URL)
	}
}

func TestLoadDisablesInvalidSchedule(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
schedules:
  - name: inverted
    kind: time-of-day
    start: "17:00"
    end: "09:00"
    interval_seconds: 60
    profile: day
  - name: fine
    kind: time-of-day
    start: "09:00"
    end: "17:00"
    interval_seconds: 60
    profile: day
profiles:
  - id: day
    version: "1"
    base:
      shutter: 1/500
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.Schedules[0].Disabled {
		t.Error("inverted schedule not disabled")
	}
	if cfg.Schedules[1].Disabled {
		t.Error("valid schedule disabled")
	}
	if got := cfg.SchedulesForProfile("day"); len(got) != 1 || got[0] != "fine" {
		t.Errorf("active schedules = %v", got)
	}
}

func TestLoadRejectsDuplicateScheduleNames(t *testing.T) {
	_, err := Load(writeConfig(t, `
schedules:
  - name: dup
    kind: time-of-day
    start: "09:00"
    end: "10:00"
    interval_seconds: 60
    profile: day
  - name: dup
    kind: time-of-day
    start: "11:00"
    end: "12:00"
    interval_seconds: 60
    profile: day
profiles:
  - id: day
    version: "1"
`))
	if err == nil {
		t.Fatal("expected error for duplicate schedule names")
	}
}

func TestLoadRejectsInvalidProfile(t *testing.T) {
	_, err := Load(writeConfig(t, `
profiles:
  - id: broken
    version: "1"
    base:
      shutter: not-a-shutter
`))
	if err == nil {
		t.Fatal("expected error for unparseable base shutter")
	}
}

func TestLoadRejectsUnknownProfileReference(t *testing.T) {
	_, err := Load(writeConfig(t, `
schedules:
  - name: orphan
    kind: time-of-day
    start: "09:00"
    end: "10:00"
    interval_seconds: 60
    profile: ghost
`))
	if err == nil {
		t.Fatal("expected error for schedule referencing unknown profile")
	}
}

func TestDefaultBracketOffsets(t *testing.T) {
	got := defaultBracketOffsets(3)
	want := []float64{-1, 0, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("offsets = %v, want %v", got, want)
			break
		}
	}

	got = defaultBracketOffsets(5)
	if got[0] != -2 || got[4] != 2 {
		t.Errorf("5-stop offsets = %v", got)
	}
}
