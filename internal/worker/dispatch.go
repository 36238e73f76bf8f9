package worker

import (
	"errors"
	"fmt"

	"github.com/OCAP2/geoanchor/internal/dispatcher"
	"github.com/OCAP2/geoanchor/internal/influx"
	"github.com/OCAP2/geoanchor/pkg/core"
)

const (
	CommandResolution = ":RESOLUTION:RECORDED:"
	CommandHostTick   = ":HOST:TICK:"
)

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Resolutions are rare and must not be lost
	d.Register(CommandResolution, m.handleResolution, dispatcher.Buffered(1000), dispatcher.Blocking(), dispatcher.Logged())
	// One per tick, dropped under pressure
	d.Register(CommandHostTick, m.handleHostTick, dispatcher.Buffered(100))
}

func (m *Manager) handleResolution(e dispatcher.Event) (any, error) {
	rec, ok := e.Payload.(core.ResolutionRecord)
	if !ok {
		return nil, fmt.Errorf("resolution: unexpected payload %T", e.Payload)
	}
	if rec.Time.IsZero() {
		rec.Time = e.Timestamp
	}

	m.deps.Collector.ObserveResolution(rec)

	var errs []error
	if m.hasBackend() {
		if err := m.backend.RecordResolution(&rec); err != nil {
			errs = append(errs, fmt.Errorf("failed to store resolution for %s: %w", rec.AnchorName, err))
		}
	}
	if m.hasInflux() {
		if err := m.deps.Influx.WriteResolution(rec); err != nil {
			errs = append(errs, fmt.Errorf("failed to write resolution point: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	m.deps.LogManager.Logger().Info("anchor resolution recorded",
		"anchor", rec.AnchorName,
		"outcome", string(rec.Outcome),
		"altitudeType", rec.AltitudeType.String(),
		"state", rec.ResultState)
	return nil, nil
}

func (m *Manager) handleHostTick(e dispatcher.Event) (any, error) {
	s, ok := e.Payload.(HostSample)
	if !ok {
		return nil, fmt.Errorf("host tick: unexpected payload %T", e.Payload)
	}
	if !m.hasInflux() {
		return nil, nil
	}
	if s.Time.IsZero() {
		s.Time = e.Timestamp
	}
	if err := m.deps.Influx.WritePoint(influx.HostBucket, influx.HostPoint(s.Time, s.Tick, s.PendingTasks, s.Anchors)); err != nil {
		return nil, fmt.Errorf("failed to write host point: %w", err)
	}
	return nil, nil
}
