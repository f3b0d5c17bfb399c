package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/your-org/skycam/internal/astro"
	"github.com/your-org/skycam/internal/config"
	"github.com/your-org/skycam/internal/models"
	"github.com/your-org/skycam/internal/schedule"
	"github.com/your-org/skycam/pkg/dto"
)

type fakeEdge struct {
	meterErr   error
	captureErr error
	lux        float64

	meterCalls   int
	captureCalls int
	requests     []dto.CaptureRequest
}

func (f *fakeEdge) Meter(ctx context.Context) (dto.MeterResponse, error) {
	f.meterCalls++
	if f.meterErr != nil {
		return dto.MeterResponse{}, f.meterErr
	}
	return dto.MeterResponse{Status: dto.StatusSuccess, BrightnessLux: f.lux}, nil
}

func (f *fakeEdge) Capture(ctx context.Context, req dto.CaptureRequest) (dto.CaptureResponse, error) {
	f.captureCalls++
	f.requests = append(f.requests, req)
	if f.captureErr != nil {
		return dto.CaptureResponse{}, f.captureErr
	}
	paths := []string{"/data/p/x.jpg"}
	if req.BracketCount > 1 {
		paths = nil
		for i := 0; i < req.BracketCount; i++ {
			paths = append(paths, fmt.Sprintf("/data/p/x_b%d.jpg", i))
		}
	}
	return dto.CaptureResponse{Status: dto.StatusSuccess, FilePaths: paths, DurationMs: 120}, nil
}

type fakeRecorder struct {
	results []*models.CaptureResult
}

func (f *fakeRecorder) RecordResult(ctx context.Context, r *models.CaptureResult) error {
	f.results = append(f.results, r)
	return nil
}

type fakeFusion struct {
	jobs []interface{}
}

func (f *fakeFusion) PublishFusionJob(ctx context.Context, profileID string, job interface{}) error {
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeEvents struct {
	events []*dto.WSEvent
}

func (f *fakeEvents) BroadcastEvent(event *dto.WSEvent) {
	f.events = append(f.events, event)
}

type fixedSun struct{}

func (fixedSun) SunTimes(date time.Time) (astro.SunTimes, error) {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return astro.SunTimes{
		Sunrise: midnight.Add(6 * time.Hour),
		Sunset:  midnight.Add(18 * time.Hour),
	}, nil
}

func testProfiles() []*models.CaptureProfile {
	return []*models.CaptureProfile{
		{
			ID:      "day",
			Version: "1",
			Base: models.CaptureSettings{
				Sensitivity:      100,
				Shutter:          "1/500",
				WhiteBalanceMode: models.WBAuto,
			},
		},
		{
			ID:      "sunset-hdr",
			Version: "1",
			Base: models.CaptureSettings{
				Sensitivity:      100,
				Shutter:          "1/250",
				WhiteBalanceMode: models.WBAuto,
				BracketCount:     3,
			},
			BracketOffsets: []float64{-2, 0, 2},
		},
	}
}

func testDefs() []schedule.Definition {
	return []schedule.Definition{
		{
			Name: "midday", Kind: schedule.KindTimeOfDay,
			Start: "11:00", End: "13:00",
			IntervalSeconds: 60, ProfileID: "day",
		},
		{
			Name: "golden-hour", Kind: schedule.KindSolarRelative,
			Anchor: schedule.AnchorSunset, OffsetMinutes: -30, DurationMinutes: 60,
			IntervalSeconds: 120, ProfileID: "sunset-hdr",
		},
	}
}

func newTestOrchestrator(edge *fakeEdge) (*Orchestrator, *fakeRecorder, *fakeFusion, *fakeEvents) {
	cfg := config.BrainConfig{
		TickSeconds:      30,
		SettleDelayMs:    1500,
		FailureThreshold: 3,
	}
	evaluator := schedule.NewEvaluator(fixedSun{}, time.UTC, testDefs())

	recorder := &fakeRecorder{}
	fusion := &fakeFusion{}
	events := &fakeEvents{}

	o := New(cfg, evaluator, testProfiles(), edge, recorder, fusion, events)
	o.sleep = func(time.Duration) {}
	return o, recorder, fusion, events
}

func atNoon(o *Orchestrator) {
	o.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	}
}

func atGoldenHour(o *Orchestrator) {
	// 10 minutes after the 18:00 sunset.
	o.now = func() time.Time {
		return time.Date(2026, 3, 14, 18, 10, 0, 0, time.UTC)
	}
}

func TestTickCapturesActiveSchedule(t *testing.T) {
	edge := &fakeEdge{lux: 800}
	o, recorder, _, events := newTestOrchestrator(edge)
	atNoon(o)

	o.Tick(context.Background())

	if edge.meterCalls != 1 || edge.captureCalls != 1 {
		t.Fatalf("meter=%d capture=%d, want 1/1", edge.meterCalls, edge.captureCalls)
	}
	if len(recorder.results) != 1 {
		t.Fatalf("recorded %d results, want 1", len(recorder.results))
	}
	r := recorder.results[0]
	if r.ScheduleName != "midday" || r.ProfileID != "day" || !r.Success {
		t.Errorf("result = %+v", r)
	}

	var captureEvents int
	for _, e := range events.events {
		if e.Type == "capture" {
			captureEvents++
		}
	}
	if captureEvents != 1 {
		t.Errorf("broadcast %d capture events, want 1", captureEvents)
	}
}

func TestTickHonoursInterval(t *testing.T) {
	edge := &fakeEdge{lux: 800}
	o, _, _, _ := newTestOrchestrator(edge)
	atNoon(o)

	o.Tick(context.Background())
	o.Tick(context.Background()) // same instant: interval not elapsed

	if edge.captureCalls != 1 {
		t.Fatalf("capture ran %d times within one interval, want 1", edge.captureCalls)
	}

	// Advance past the 60s interval.
	o.now = func() time.Time {
		return time.Date(2026, 3, 14, 12, 1, 30, 0, time.UTC)
	}
	o.Tick(context.Background())
	if edge.captureCalls != 2 {
		t.Fatalf("capture ran %d times after interval elapsed, want 2", edge.captureCalls)
	}
}

func TestTickOutsideAllWindows(t *testing.T) {
	edge := &fakeEdge{lux: 800}
	o, _, _, _ := newTestOrchestrator(edge)
	o.now = func() time.Time {
		return time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC)
	}

	o.Tick(context.Background())
	if edge.meterCalls != 0 || edge.captureCalls != 0 {
		t.Errorf("idle tick touched edge: meter=%d capture=%d", edge.meterCalls, edge.captureCalls)
	}
}

func TestTickBracketEnqueuesFusion(t *testing.T) {
	edge := &fakeEdge{lux: 300}
	o, recorder, fusion, _ := newTestOrchestrator(edge)
	atGoldenHour(o)

	o.Tick(context.Background())

	if edge.captureCalls != 1 {
		t.Fatalf("capture calls = %d, want 1", edge.captureCalls)
	}
	req := edge.requests[0]
	if req.BracketCount != 3 || len(req.BracketOffsets) != 3 {
		t.Errorf("dispatched request lacks bracket settings: %+v", req)
	}

	// One record per bracket member, one fusion job for the group.
	if len(recorder.results) != 3 {
		t.Errorf("recorded %d results, want 3", len(recorder.results))
	}
	if len(fusion.jobs) != 1 {
		t.Fatalf("enqueued %d fusion jobs, want 1", len(fusion.jobs))
	}
	job, ok := fusion.jobs[0].(dto.FusionJob)
	if !ok {
		t.Fatalf("job type %T", fusion.jobs[0])
	}
	if len(job.SourcePaths) != 3 || len(job.SourceIDs) != 3 {
		t.Errorf("job = %+v", job)
	}
	for i, r := range recorder.results {
		if r.BracketGroup != job.BracketGroup {
			t.Errorf("result %d group %s != job group %s", i, r.BracketGroup, job.BracketGroup)
		}
	}
}

func TestMeterFailureSkipsCapture(t *testing.T) {
	edge := &fakeEdge{meterErr: fmt.Errorf("edge timeout")}
	o, recorder, _, _ := newTestOrchestrator(edge)
	atNoon(o)

	o.Tick(context.Background())
	if edge.captureCalls != 0 {
		t.Errorf("capture dispatched after meter failure")
	}
	if len(recorder.results) != 0 {
		t.Errorf("recorded %d results for failed tick", len(recorder.results))
	}
	if o.health.ConsecutiveFailures() != 1 {
		t.Errorf("failures = %d, want 1", o.health.ConsecutiveFailures())
	}
}

func TestHealthFlipAfterThresholdKeepsTrying(t *testing.T) {
	edge := &fakeEdge{captureErr: fmt.Errorf("edge unreachable")}
	o, _, _, events := newTestOrchestrator(edge)
	atNoon(o)
	// Let every tick retry regardless of interval.
	tickAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time {
		tickAt = tickAt.Add(2 * time.Minute)
		return tickAt
	}

	for i := 0; i < 5; i++ {
		o.Tick(context.Background())
	}

	// Threshold 3: unhealthy after the third failure, attempts continue.
	if o.health.Healthy() {
		t.Error("edge still healthy after 5 consecutive failures")
	}
	if edge.captureCalls != 5 {
		t.Errorf("capture attempts = %d, want 5 (loop never stops)", edge.captureCalls)
	}

	var unhealthyEvents int
	for _, e := range events.events {
		if e.Type == "edge_health" && !e.Healthy {
			unhealthyEvents++
		}
	}
	if unhealthyEvents != 1 {
		t.Errorf("broadcast %d unhealthy flips, want exactly 1", unhealthyEvents)
	}

	// Recovery flips back and announces it.
	edge.captureErr = nil
	o.Tick(context.Background())
	if !o.health.Healthy() {
		t.Error("edge not healthy after successful capture")
	}
	var recoveredEvents int
	for _, e := range events.events {
		if e.Type == "edge_health" && e.Healthy {
			recoveredEvents++
		}
	}
	if recoveredEvents != 1 {
		t.Errorf("broadcast %d recovery flips, want exactly 1", recoveredEvents)
	}
}

func TestTickUnknownProfileSkipped(t *testing.T) {
	edge := &fakeEdge{lux: 800}
	cfg := config.BrainConfig{TickSeconds: 30, FailureThreshold: 3}
	evaluator := schedule.NewEvaluator(fixedSun{}, time.UTC, []schedule.Definition{
		{Name: "orphan", Kind: schedule.KindTimeOfDay, Start: "11:00", End: "13:00",
			IntervalSeconds: 60, ProfileID: "missing"},
	})
	o := New(cfg, evaluator, nil, edge, &fakeRecorder{}, &fakeFusion{}, &fakeEvents{})
	o.sleep = func(time.Duration) {}
	atNoon(o)

	o.Tick(context.Background())
	if edge.meterCalls != 0 {
		t.Errorf("metered %d times for schedule with unknown profile", edge.meterCalls)
	}
}
