package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/OCAP2/geoanchor/internal/cache"
	"github.com/OCAP2/geoanchor/internal/scheduler"
)

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger    *slog.Logger
	Anchors   *cache.AnchorCache
	Scheduler *scheduler.Scheduler
	Collector *Collector
	StatusDir string
	Interval  time.Duration
}

// AnchorStatus is one line of the status file.
type AnchorStatus struct {
	Name      string  `json:"name"`
	Mode      string  `json:"mode"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// Status is the host state captured at the end of a tick.
type Status struct {
	Time         time.Time      `json:"time"`
	Tick         uint64         `json:"tick"`
	PendingTasks int            `json:"pendingTasks"`
	Anchors      []AnchorStatus `json:"anchors"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	wg        sync.WaitGroup

	statusMu sync.Mutex
	last     Status
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Capture reads the anchors and scheduler, refreshes the Prometheus gauges
// and keeps the result for the status file. Call it from the goroutine that
// ticks the anchors.
func (s *Service) Capture() Status {
	status := Status{Time: time.Now()}

	if s.deps.Scheduler != nil {
		status.Tick = s.deps.Scheduler.Tick()
		status.PendingTasks = s.deps.Scheduler.Pending()
		s.deps.Collector.SetPendingTasks(status.PendingTasks)
	}

	if s.deps.Anchors != nil {
		for _, a := range s.deps.Anchors.All() {
			status.Anchors = append(status.Anchors, AnchorStatus{
				Name:      a.Name(),
				Mode:      a.Mode().String(),
				State:     a.State().String(),
				Latitude:  a.Latitude(),
				Longitude: a.Longitude(),
				Altitude:  a.Altitude(),
			})
		}
		s.deps.Collector.SetAnchorCounts(s.deps.Anchors.StateCounts())
	}

	s.statusMu.Lock()
	s.last = status
	s.statusMu.Unlock()
	return status
}

// GetProgramStatus returns the last captured status and its rendering.
func (s *Service) GetProgramStatus() (output []string, status Status) {
	s.statusMu.Lock()
	status = s.last
	s.statusMu.Unlock()

	summary := fmt.Sprintf("tick=%d pending=%d anchors=%d", status.Tick, status.PendingTasks, len(status.Anchors))
	output = append(output, summary)

	anchorsStr, err := json.MarshalIndent(status.Anchors, "", "  ")
	if err != nil {
		anchorsStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(anchorsStr))

	return output, status
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	var statusFile *os.File
	if s.deps.StatusDir != "" {
		f, err := os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
		if err != nil {
			s.deps.Logger.Error("Error creating status file", "error", err)
		} else {
			statusFile = f
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		if statusFile != nil {
			defer statusFile.Close()
		}

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				s.writeStatus(statusFile)
				return
			case <-ticker.C:
				s.writeStatus(statusFile)
			}
		}
	}()

	return nil
}

func (s *Service) writeStatus(statusFile *os.File) {
	lines, status := s.GetProgramStatus()
	if status.Time.IsZero() {
		return
	}
	s.deps.Logger.Debug(lines[0], "function", "statusMonitor")

	if statusFile == nil {
		return
	}
	if err := statusFile.Truncate(0); err != nil {
		s.deps.Logger.Error("Error truncating status file", "error", err)
		return
	}
	if _, err := statusFile.Seek(0, 0); err != nil {
		s.deps.Logger.Error("Error rewinding status file", "error", err)
		return
	}
	for _, line := range lines {
		statusFile.WriteString(line + "\n")
	}
}

// Stop stops the status monitor and waits for the final status write.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.isRunning {
		close(s.stopChan)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
