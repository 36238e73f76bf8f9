package worker

import (
	"log/slog"

	"github.com/OCAP2/geoanchor/internal/dispatcher"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// Journal hands anchor resolution records and host samples to the
// dispatcher. It satisfies anchor.Journal.
type Journal struct {
	d      *dispatcher.Dispatcher
	logger *slog.Logger
}

func NewJournal(d *dispatcher.Dispatcher, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{d: d, logger: logger}
}

// Record queues rec for storage. Failures are logged, the caller is never
// blocked on them.
func (j *Journal) Record(rec core.ResolutionRecord) {
	if _, err := j.d.Dispatch(dispatcher.Event{Command: CommandResolution, Payload: rec, Timestamp: rec.Time}); err != nil {
		j.logger.Error("failed to journal resolution", "anchor", rec.AnchorName, "outcome", string(rec.Outcome), "error", err)
	}
}

// Sample queues one host tick sample.
func (j *Journal) Sample(s HostSample) {
	if _, err := j.d.Dispatch(dispatcher.Event{Command: CommandHostTick, Payload: s, Timestamp: s.Time}); err != nil {
		j.logger.Debug("host sample dropped", "tick", s.Tick, "error", err)
	}
}
