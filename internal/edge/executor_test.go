package edge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/your-org/skycam/internal/astro"
	"github.com/your-org/skycam/internal/camera"
	"github.com/your-org/skycam/internal/schedule"
	"github.com/your-org/skycam/pkg/dto"
)

// fixedSun anchors sunset at 18:36 local regardless of day.
type fixedSun struct{}

func (fixedSun) SunTimes(date time.Time) (astro.SunTimes, error) {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return astro.SunTimes{
		Sunrise: midnight.Add(6*time.Hour + 12*time.Minute),
		Sunset:  midnight.Add(18*time.Hour + 36*time.Minute),
	}, nil
}

func testEvaluator() *schedule.Evaluator {
	return schedule.NewEvaluator(fixedSun{}, time.UTC, []schedule.Definition{
		{
			Name:            "golden-hour",
			Kind:            schedule.KindSolarRelative,
			Anchor:          schedule.AnchorSunset,
			OffsetMinutes:   -30,
			DurationMinutes: 60,
			IntervalSeconds: 120,
			ProfileID:       "sunset-hdr",
		},
	})
}

func newTestExecutor(t *testing.T, cam camera.Camera) (*Executor, *DeploymentManager, string) {
	t.Helper()
	deploy, err := NewDeploymentManager(nil)
	if err != nil {
		t.Fatalf("NewDeploymentManager: %v", err)
	}
	dir := t.TempDir()
	ex := NewExecutor(cam, deploy, testEvaluator(), nil, dir)
	// Pin time inside the golden-hour window, 10 min after sunset.
	ex.now = func() time.Time {
		return time.Date(2026, 3, 14, 18, 46, 0, 0, time.UTC)
	}
	return ex, deploy, dir
}

func readyMock(t *testing.T, lux float64) *camera.Mock {
	t.Helper()
	m := camera.NewMock(lux)
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("mock init: %v", err)
	}
	return m
}

func TestExecuteCaptureExplicit(t *testing.T) {
	cam := readyMock(t, 500)
	ex, _, dir := newTestExecutor(t, cam)

	exposures, _, err := ex.ExecuteCapture(context.Background(), dto.CaptureRequest{
		Sensitivity:      400,
		Shutter:          "1/500",
		ExposureBias:     0.3,
		WhiteBalanceMode: "auto",
		ProfileTag:       "sunset-hdr",
	})
	if err != nil {
		t.Fatalf("ExecuteCapture: %v", err)
	}
	if len(exposures) != 1 {
		t.Fatalf("got %d exposures, want 1", len(exposures))
	}

	// Single exposures land in the profile directory without a bracket suffix.
	path := exposures[0].FilePath
	if !strings.HasPrefix(path, filepath.Join(dir, "sunset-hdr")) {
		t.Errorf("path %q not under profile dir", path)
	}
	if strings.Contains(path, "_b0") {
		t.Errorf("single exposure carries bracket suffix: %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("capture file missing: %v", err)
	}
	if cam.Applied[0].Sensitivity != 400 {
		t.Errorf("applied sensitivity = %d", cam.Applied[0].Sensitivity)
	}
}

func TestExecuteCaptureBracketNaming(t *testing.T) {
	cam := readyMock(t, 500)
	ex, _, _ := newTestExecutor(t, cam)

	exposures, _, err := ex.ExecuteCapture(context.Background(), dto.CaptureRequest{
		Sensitivity:      100,
		Shutter:          "1/500",
		WhiteBalanceMode: "auto",
		BracketCount:     3,
		BracketOffsets:   []float64{-1.5, 0, 1.5},
		ProfileTag:       "sunset-hdr",
	})
	if err != nil {
		t.Fatalf("ExecuteCapture: %v", err)
	}
	if len(exposures) != 3 {
		t.Fatalf("got %d exposures, want 3", len(exposures))
	}

	for i, e := range exposures {
		wantSuffix := fmt.Sprintf("_b%d.jpg", i)
		if !strings.HasSuffix(e.FilePath, wantSuffix) {
			t.Errorf("member %d path %q missing %q", i, e.FilePath, wantSuffix)
		}
	}
	// Darkest first: member biases are base plus ordered offsets.
	if cam.Applied[0].ExposureBias != -1.5 || cam.Applied[2].ExposureBias != 1.5 {
		t.Errorf("applied biases = %.1f .. %.1f", cam.Applied[0].ExposureBias, cam.Applied[2].ExposureBias)
	}
}

func TestExecuteCaptureNotReady(t *testing.T) {
	cam := camera.NewMock(500) // never initialized
	ex, _, _ := newTestExecutor(t, cam)

	_, _, err := ex.ExecuteCapture(context.Background(), dto.CaptureRequest{
		Sensitivity: 100, Shutter: "1/500", WhiteBalanceMode: "auto",
	})
	if !errors.Is(err, camera.ErrNotReady) {
		t.Fatalf("err = %v, want ErrNotReady", err)
	}
	if cam.Captured != 0 {
		t.Error("capture attempted while not ready")
	}
}

func TestExecuteCaptureRejectsBeforeHardware(t *testing.T) {
	cam := readyMock(t, 500)
	ex, _, _ := newTestExecutor(t, cam)

	// Sensitivity 450 is not an allowed step; it must be rejected before
	// any shutter press.
	_, _, err := ex.ExecuteCapture(context.Background(), dto.CaptureRequest{
		Sensitivity: 450, Shutter: "1/500", WhiteBalanceMode: "auto",
	})
	if !errors.Is(err, camera.ErrInvalidSettings) {
		t.Fatalf("err = %v, want ErrInvalidSettings", err)
	}
	if cam.Captured != 0 {
		t.Errorf("hardware touched %d times for invalid request", cam.Captured)
	}
}

func TestExecuteCaptureBracketMemberOutOfRange(t *testing.T) {
	cam := readyMock(t, 500)
	ex, _, _ := newTestExecutor(t, cam)

	// Base bias 0.8 with +1.5 offset pushes the bright member past +2 EV;
	// the whole bracket is rejected up front.
	_, _, err := ex.ExecuteCapture(context.Background(), dto.CaptureRequest{
		Sensitivity:      100,
		Shutter:          "1/500",
		ExposureBias:     0.8,
		WhiteBalanceMode: "auto",
		BracketCount:     3,
		BracketOffsets:   []float64{-1.5, 0, 1.5},
	})
	if !errors.Is(err, camera.ErrInvalidSettings) {
		t.Fatalf("err = %v, want ErrInvalidSettings", err)
	}
	if cam.Captured != 0 {
		t.Errorf("hardware touched %d times for invalid bracket", cam.Captured)
	}
}

func TestExecuteCaptureDeployedProfileRequiresResident(t *testing.T) {
	cam := readyMock(t, 500)
	ex, _, _ := newTestExecutor(t, cam)

	_, _, err := ex.ExecuteCapture(context.Background(), dto.CaptureRequest{
		UseDeployedProfile: true,
		ScheduleName:       "golden-hour",
	})
	if !errors.Is(err, ErrNoProfile) {
		t.Fatalf("err = %v, want ErrNoProfile", err)
	}
}

func TestExecuteCaptureDeployedProfile(t *testing.T) {
	cam := readyMock(t, 500)
	ex, deploy, _ := newTestExecutor(t, cam)

	if _, err := deploy.Deploy(testProfile(), []string{"golden-hour"}); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	exposures, _, err := ex.ExecuteCapture(context.Background(), dto.CaptureRequest{
		UseDeployedProfile: true,
		ScheduleName:       "golden-hour",
		ProfileID:          "sunset-hdr",
	})
	if err != nil {
		t.Fatalf("ExecuteCapture: %v", err)
	}
	if len(exposures) != 1 {
		t.Fatalf("got %d exposures, want 1", len(exposures))
	}

	// Lux 500 interpolates on the profile's 10->3200K, 1000->5600K table.
	applied := cam.Applied[0]
	if applied.WhiteBalanceTemp == 0 {
		t.Error("deployed capture did not resolve an adaptive temperature")
	}
	if applied.Sensitivity != 100 {
		t.Errorf("applied sensitivity = %d, want profile base 100", applied.Sensitivity)
	}
	if cam.Metered != 1 {
		t.Errorf("local metering ran %d times, want 1", cam.Metered)
	}
}

func TestExecuteCaptureProfileMismatch(t *testing.T) {
	cam := readyMock(t, 500)
	ex, deploy, _ := newTestExecutor(t, cam)

	if _, err := deploy.Deploy(testProfile(), []string{"golden-hour"}); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	_, _, err := ex.ExecuteCapture(context.Background(), dto.CaptureRequest{
		UseDeployedProfile: true,
		ScheduleName:       "golden-hour",
		ProfileID:          "night-sky",
	})
	if !errors.Is(err, ErrProfileMismatch) {
		t.Fatalf("err = %v, want ErrProfileMismatch", err)
	}
}

func TestExecuteCaptureUnknownSchedule(t *testing.T) {
	cam := readyMock(t, 500)
	ex, deploy, _ := newTestExecutor(t, cam)

	if _, err := deploy.Deploy(testProfile(), nil); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	_, _, err := ex.ExecuteCapture(context.Background(), dto.CaptureRequest{
		UseDeployedProfile: true,
		ScheduleName:       "no-such-schedule",
	})
	if !errors.Is(err, ErrUnknownSchedule) {
		t.Fatalf("err = %v, want ErrUnknownSchedule", err)
	}
}

func TestExecuteCaptureDeployedOverride(t *testing.T) {
	cam := readyMock(t, 500)
	ex, deploy, _ := newTestExecutor(t, cam)

	if _, err := deploy.Deploy(testProfile(), []string{"golden-hour"}); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	iso := 800
	_, _, err := ex.ExecuteCapture(context.Background(), dto.CaptureRequest{
		UseDeployedProfile: true,
		ScheduleName:       "golden-hour",
		Override:           &dto.CaptureOverride{Sensitivity: &iso},
	})
	if err != nil {
		t.Fatalf("ExecuteCapture: %v", err)
	}
	if cam.Applied[0].Sensitivity != 800 {
		t.Errorf("override not applied: sensitivity = %d", cam.Applied[0].Sensitivity)
	}
}

func TestExecuteCaptureJournalsToStore(t *testing.T) {
	cam := readyMock(t, 500)
	store, err := OpenStateStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("OpenStateStore: %v", err)
	}
	defer store.Close()

	deploy, _ := NewDeploymentManager(nil)
	ex := NewExecutor(cam, deploy, testEvaluator(), store, t.TempDir())

	_, _, err = ex.ExecuteCapture(context.Background(), dto.CaptureRequest{
		Sensitivity: 100, Shutter: "1/500", WhiteBalanceMode: "auto",
		BracketCount: 3, BracketOffsets: []float64{-1, 0, 1},
	})
	if err != nil {
		t.Fatalf("ExecuteCapture: %v", err)
	}

	n, err := store.JournalCount(time.Time{})
	if err != nil {
		t.Fatalf("JournalCount: %v", err)
	}
	if n != 3 {
		t.Errorf("journal holds %d entries, want 3", n)
	}
}
