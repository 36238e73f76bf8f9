package worker

import (
	"time"

	"github.com/OCAP2/geoanchor/internal/influx"
	"github.com/OCAP2/geoanchor/internal/logging"
	"github.com/OCAP2/geoanchor/internal/monitor"
	"github.com/OCAP2/geoanchor/internal/storage"
)

// Dependencies holds all dependencies for the worker manager.
// Influx and Collector are optional.
type Dependencies struct {
	LogManager *logging.SlogManager
	Influx     *influx.Manager
	Collector  *monitor.Collector
}

// Manager owns the handlers that persist what the host and its anchors
// report through the dispatcher.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// HostSample is the host state reported once per tick.
type HostSample struct {
	Time         time.Time
	Tick         uint64
	PendingTasks int
	Anchors      int
}

func (m *Manager) hasBackend() bool { return m.backend != nil }
func (m *Manager) hasInflux() bool  { return m.deps.Influx != nil }
