package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/your-org/skycam/internal/models"
	"github.com/your-org/skycam/internal/schedule"
)

type Config struct {
	Brain     BrainConfig              `yaml:"brain"`
	Edge      EdgeConfig               `yaml:"edge"`
	Location  LocationConfig           `yaml:"location"`
	Schedules []schedule.Definition    `yaml:"schedules"`
	Profiles  []*models.CaptureProfile `yaml:"profiles"`
	Database  DatabaseConfig           `yaml:"database"`
	NATS      NATSConfig               `yaml:"nats"`
	MinIO     MinIOConfig              `yaml:"minio"`
	Fusion    FusionConfig             `yaml:"fusion"`
	Logging   LoggingConfig            `yaml:"logging"`
}

type BrainConfig struct {
	Port             int    `yaml:"port"`
	APIKey           string `yaml:"api_key"`
	EdgeURL          string `yaml:"edge_url"`
	EdgeAPIKey       string `yaml:"edge_api_key"`
	TickSeconds      int    `yaml:"tick_seconds"`
	SettleDelayMs    int    `yaml:"settle_delay_ms"`
	FailureThreshold int    `yaml:"failure_threshold"`
	MeterTimeoutMs   int    `yaml:"meter_timeout_ms"`
	CaptureTimeoutMs int    `yaml:"capture_timeout_ms"`
}

func (b BrainConfig) Tick() time.Duration         { return time.Duration(b.TickSeconds) * time.Second }
func (b BrainConfig) SettleDelay() time.Duration  { return time.Duration(b.SettleDelayMs) * time.Millisecond }
func (b BrainConfig) MeterTimeout() time.Duration { return time.Duration(b.MeterTimeoutMs) * time.Millisecond }
func (b BrainConfig) CaptureTimeout() time.Duration {
	return time.Duration(b.CaptureTimeoutMs) * time.Millisecond
}

type EdgeConfig struct {
	Port          int     `yaml:"port"`
	APIKey        string  `yaml:"api_key"`
	OutputDir     string  `yaml:"output_dir"`
	StateDB       string  `yaml:"state_db"`
	CameraBackend string  `yaml:"camera_backend"` // rpicam or mock
	CameraBinary  string  `yaml:"camera_binary"`
	MockLux       float64 `yaml:"mock_lux"`
}

type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Timezone  string  `yaml:"timezone"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type FusionConfig struct {
	Workers       int  `yaml:"workers"`
	RetryLimit    int  `yaml:"retry_limit"`
	RetainSources bool `yaml:"retain_sources"`
	Archive       bool `yaml:"archive"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable
// overrides. Invalid schedules are disabled with a warning; invalid
// profiles are load errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	seen := make(map[string]bool)
	for i := range cfg.Schedules {
		d := &cfg.Schedules[i]
		if seen[d.Name] {
			return fmt.Errorf("duplicate schedule name %q", d.Name)
		}
		seen[d.Name] = true
		if err := d.Validate(); err != nil {
			// Misconfigured schedules are disabled, not fatal; the
			// capture loop keeps running without them.
			slog.Warn("schedule disabled", "schedule", d.Name, "error", err)
			d.Disabled = true
		}
	}

	ids := make(map[string]bool)
	for _, p := range cfg.Profiles {
		if ids[p.ID] {
			return fmt.Errorf("duplicate profile id %q", p.ID)
		}
		ids[p.ID] = true
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile config: %w", err)
		}
	}

	for _, d := range cfg.Schedules {
		if !d.Disabled && !ids[d.ProfileID] {
			return fmt.Errorf("schedule %s references unknown profile %q", d.Name, d.ProfileID)
		}
	}
	return nil
}

// Profile returns the configured profile with the given id.
func (c *Config) Profile(id string) (*models.CaptureProfile, bool) {
	for _, p := range c.Profiles {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// SchedulesForProfile lists schedule names assigned to a profile.
func (c *Config) SchedulesForProfile(id string) []string {
	var names []string
	for _, d := range c.Schedules {
		if d.ProfileID == id && !d.Disabled {
			names = append(names, d.Name)
		}
	}
	return names
}

func setDefaults(cfg *Config) {
	if cfg.Brain.Port == 0 {
		cfg.Brain.Port = 8080
	}
	if cfg.Brain.TickSeconds == 0 {
		cfg.Brain.TickSeconds = 30
	}
	if cfg.Brain.SettleDelayMs == 0 {
		cfg.Brain.SettleDelayMs = 1500
	}
	if cfg.Brain.FailureThreshold == 0 {
		cfg.Brain.FailureThreshold = 3
	}
	if cfg.Brain.MeterTimeoutMs == 0 {
		cfg.Brain.MeterTimeoutMs = 5000
	}
	if cfg.Brain.CaptureTimeoutMs == 0 {
		cfg.Brain.CaptureTimeoutMs = 45000
	}
	if cfg.Edge.Port == 0 {
		cfg.Edge.Port = 8081
	}
	if cfg.Edge.OutputDir == "" {
		cfg.Edge.OutputDir = "captures"
	}
	if cfg.Edge.StateDB == "" {
		cfg.Edge.StateDB = "skycam-edge.db"
	}
	if cfg.Edge.CameraBackend == "" {
		cfg.Edge.CameraBackend = "rpicam"
	}
	if cfg.Edge.MockLux == 0 {
		cfg.Edge.MockLux = 400
	}
	if cfg.Location.Timezone == "" {
		cfg.Location.Timezone = "UTC"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Fusion.Workers == 0 {
		cfg.Fusion.Workers = 2
	}
	if cfg.Fusion.RetryLimit == 0 {
		cfg.Fusion.RetryLimit = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	for _, p := range cfg.Profiles {
		applyProfileDefaults(p)
	}
}

// applyProfileDefaults fills in the parts of a profile most setups leave
// out. The phase-bias breakpoints are deliberately per-profile
// configuration; these values are only a starting point.
func applyProfileDefaults(p *models.CaptureProfile) {
	if p.Base.Sensitivity == 0 {
		p.Base.Sensitivity = 100
	}
	if p.Base.Shutter == "" {
		p.Base.Shutter = "1/250"
	}
	if p.Base.WhiteBalanceMode == "" {
		p.Base.WhiteBalanceMode = models.WBAuto
	}
	if p.Base.BracketCount == 0 {
		p.Base.BracketCount = 1
	}
	if p.Base.BracketCount > 1 && len(p.BracketOffsets) == 0 && len(p.Base.BracketOffsets) == 0 {
		p.BracketOffsets = defaultBracketOffsets(p.Base.BracketCount)
	}
	if p.PhaseBias == nil {
		p.PhaseBias = DefaultPhaseBias()
	}
}

// defaultBracketOffsets spreads exposures one stop apart around zero.
func defaultBracketOffsets(count int) []float64 {
	offsets := make([]float64, count)
	for i := range offsets {
		offsets[i] = float64(i) - float64(count-1)/2
	}
	return offsets
}

// DefaultPhaseBias is the stock phase curve: before the anchor lift
// shadows and keep colour warm, after it protect highlights and let the
// temperature cool off.
func DefaultPhaseBias() map[models.Phase][]models.PhaseBucket {
	return map[models.Phase][]models.PhaseBucket{
		models.PhaseSunrise: {
			{MaxOffsetMin: -15, BiasDelta: 0.7, WarmCap: 3600},
			{MaxOffsetMin: 0, BiasDelta: 0.3, WarmCap: 4300},
			{MaxOffsetMin: 30, BiasDelta: 0},
			{MaxOffsetMin: 90, BiasDelta: -0.3, CoolFloor: 5200},
		},
		models.PhaseSunset: {
			{MaxOffsetMin: -30, BiasDelta: -0.3, CoolFloor: 5000},
			{MaxOffsetMin: 0, BiasDelta: 0},
			{MaxOffsetMin: 20, BiasDelta: 0.3, WarmCap: 4000},
			{MaxOffsetMin: 60, BiasDelta: 0.7, WarmCap: 3400},
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SKYCAM_BRAIN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Brain.Port = port
		}
	}
	if v := os.Getenv("SKYCAM_BRAIN_API_KEY"); v != "" {
		cfg.Brain.APIKey = v
	}
	if v := os.Getenv("SKYCAM_EDGE_URL"); v != "" {
		cfg.Brain.EdgeURL = v
	}
	if v := os.Getenv("SKYCAM_EDGE_API_KEY"); v != "" {
		cfg.Brain.EdgeAPIKey = v
		cfg.Edge.APIKey = v
	}
	if v := os.Getenv("SKYCAM_EDGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Edge.Port = port
		}
	}
	if v := os.Getenv("SKYCAM_EDGE_OUTPUT_DIR"); v != "" {
		cfg.Edge.OutputDir = v
	}
	if v := os.Getenv("SKYCAM_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SKYCAM_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SKYCAM_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("SKYCAM_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SKYCAM_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SKYCAM_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("SKYCAM_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("SKYCAM_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("SKYCAM_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("SKYCAM_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
}
