package camera

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/your-org/skycam/internal/models"
)

// Mock is a deterministic in-process camera for tests and the
// simulation backend. Lux and failure behaviour are scriptable.
type Mock struct {
	mu sync.Mutex

	LuxValue    float64
	MeterErr    error
	CaptureErr  error
	InitErr     error
	CaptureData []byte

	ready    bool
	Applied  []models.CaptureSettings
	Metered  int
	Captured int
}

func NewMock(lux float64) *Mock {
	return &Mock{
		LuxValue:    lux,
		CaptureData: []byte("mock-frame"),
	}
}

func (m *Mock) Initialize(ctx context.Context) error {
	if m.InitErr != nil {
		return m.InitErr
	}
	m.mu.Lock()
	m.ready = true
	m.mu.Unlock()
	return nil
}

func (m *Mock) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *Mock) Constraints() Constraints {
	return DefaultConstraints()
}

func (m *Mock) Meter(ctx context.Context) (models.MeterReading, error) {
	if !m.Ready() {
		return models.MeterReading{}, ErrNotReady
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Metered++
	if m.MeterErr != nil {
		return models.MeterReading{}, m.MeterErr
	}
	gain := 1.0
	if m.LuxValue < 100 {
		gain = 8.0
	}
	us := int64(10000)
	return models.MeterReading{
		Lux:                  m.LuxValue,
		RawGain:              gain,
		RawExposureUs:        us,
		SuggestedSensitivity: m.Constraints().NearestSensitivityStep(int(gain * 100)),
		SuggestedShutter:     FormatShutter(us),
		MeasuredAt:           time.Now(),
	}, nil
}

func (m *Mock) Capture(ctx context.Context, s models.CaptureSettings, outPath string) error {
	if !m.Ready() {
		return ErrNotReady
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CaptureErr != nil {
		return m.CaptureErr
	}
	if err := os.WriteFile(outPath, m.CaptureData, 0o644); err != nil {
		return fmt.Errorf("mock capture write: %w", err)
	}
	m.Applied = append(m.Applied, s)
	m.Captured++
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	m.ready = false
	m.mu.Unlock()
	return nil
}
