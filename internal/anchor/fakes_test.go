package anchor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/OCAP2/geoanchor/internal/promise"
	"github.com/OCAP2/geoanchor/internal/scene"
	"github.com/OCAP2/geoanchor/internal/scheduler"
	"github.com/OCAP2/geoanchor/internal/session"
	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"
)

// recordingHandler keeps every record at or above level.
type recordingHandler struct {
	mu      sync.Mutex
	level   slog.Level
	records []slog.Record
}

func (h *recordingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func (h *recordingHandler) count(level slog.Level) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Level == level {
			n++
		}
	}
	return n
}

func (h *recordingHandler) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func (h *recordingHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.records))
	for _, r := range h.records {
		out = append(out, r.Message)
	}
	return out
}

type fakeSession struct {
	valid    bool
	tracking core.TrackingState
	mgr      session.AnchorManager
}

func (s *fakeSession) IsValid() bool                          { return s.valid }
func (s *fakeSession) EarthTrackingState() core.TrackingState { return s.tracking }
func (s *fakeSession) AnchorManager() (session.AnchorManager, bool) {
	return s.mgr, s.mgr != nil
}

type managerCall struct {
	method   string
	lat, lon float64
	alt      float64
	rotation mgl64.Quat
}

type fakeManager struct {
	calls     []managerCall
	addResult scene.Node
	terrain   []*promise.Promise[session.TerrainResult]
	rooftop   []*promise.Promise[session.RooftopResult]
	nilAsync  bool
}

func (m *fakeManager) AddAnchor(lat, lon, alt float64, rot mgl64.Quat) scene.Node {
	m.calls = append(m.calls, managerCall{"AddAnchor", lat, lon, alt, rot})
	return m.addResult
}

func (m *fakeManager) ResolveOnTerrainAsync(lat, lon, off float64, rot mgl64.Quat) *promise.Promise[session.TerrainResult] {
	m.calls = append(m.calls, managerCall{"ResolveOnTerrainAsync", lat, lon, off, rot})
	if m.nilAsync {
		return nil
	}
	p := promise.New[session.TerrainResult](nil)
	m.terrain = append(m.terrain, p)
	return p
}

func (m *fakeManager) ResolveOnRooftopAsync(lat, lon, off float64, rot mgl64.Quat) *promise.Promise[session.RooftopResult] {
	m.calls = append(m.calls, managerCall{"ResolveOnRooftopAsync", lat, lon, off, rot})
	if m.nilAsync {
		return nil
	}
	p := promise.New[session.RooftopResult](nil)
	m.rooftop = append(m.rooftop, p)
	return p
}

type fakeJournal struct {
	records []core.ResolutionRecord
}

func (j *fakeJournal) Record(rec core.ResolutionRecord) { j.records = append(j.records, rec) }

// schedLogger discards scheduler logs.
type schedLogger struct{}

func (schedLogger) Debug(string, ...any) {}
func (schedLogger) Info(string, ...any)  {}
func (schedLogger) Error(string, ...any) {}

// liveFixture wires a live anchor to fakes. current is returned by the
// session provider and may be swapped between ticks.
type liveFixture struct {
	anchor  *Anchor
	node    *scene.Transform
	sched   *scheduler.Scheduler
	logs    *recordingHandler
	journal *fakeJournal
	mgr     *fakeManager
	current session.Session
}

func newLiveFixture(t *testing.T, cfg Config) *liveFixture {
	t.Helper()

	sched, err := scheduler.New(schedLogger{})
	require.NoError(t, err)

	f := &liveFixture{
		node:    scene.NewTransform("content"),
		sched:   sched,
		logs:    &recordingHandler{level: slog.LevelInfo},
		journal: &fakeJournal{},
		mgr:     &fakeManager{addResult: scene.NewTransform("geo-anchor-1")},
	}
	f.current = &fakeSession{valid: true, tracking: core.Tracking, mgr: f.mgr}

	cfg.Node = f.node
	cfg.Mode = core.Live
	f.anchor, err = New(cfg, Deps{
		Logger:    slog.New(f.logs),
		Sessions:  session.ProviderFunc(func() session.Session { return f.current }),
		Scheduler: sched,
		Journal:   f.journal,
	})
	require.NoError(t, err)
	return f
}

// tick runs one host tick: resume suspended work, then update the anchor.
func (f *liveFixture) tick() {
	ctx := context.Background()
	f.sched.Poll(ctx)
	f.anchor.Update(ctx)
}

func (f *liveFixture) String() string {
	return fmt.Sprintf("state=%s calls=%d logs=%v", f.anchor.State(), len(f.mgr.calls), f.logs.messages())
}
