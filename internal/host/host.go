// Package host drives the anchors. Every tick it resumes finished
// continuations, updates each anchor in registration order, then advances
// the tracking session, so an asynchronous answer is never consumed on the
// tick that issued it.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/OCAP2/geoanchor/internal/anchor"
	"github.com/OCAP2/geoanchor/internal/cache"
	"github.com/OCAP2/geoanchor/internal/monitor"
	"github.com/OCAP2/geoanchor/internal/scheduler"
	"github.com/OCAP2/geoanchor/internal/worker"
)

// Advancer is a session that moves with the host clock.
type Advancer interface {
	Advance()
}

// Sampler receives one sample per tick.
type Sampler interface {
	Sample(s worker.HostSample)
}

// Dependencies holds all dependencies for the host. Scheduler and Anchors
// are required, the rest is optional.
type Dependencies struct {
	Logger    *slog.Logger
	Scheduler *scheduler.Scheduler
	Anchors   *cache.AnchorCache
	Session   Advancer
	Monitor   *monitor.Service
	Collector *monitor.Collector
	Sampler   Sampler
	Interval  time.Duration
	// MaxTicks stops Run after that many ticks. Zero runs until the
	// context is cancelled.
	MaxTicks  uint64
}

// Host owns the tick loop.
type Host struct {
	deps  Dependencies
	ticks atomic.Uint64
}

func New(deps Dependencies) (*Host, error) {
	if deps.Scheduler == nil {
		return nil, errors.New("host: scheduler is required")
	}
	if deps.Anchors == nil {
		return nil, errors.New("host: anchor cache is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = 33 * time.Millisecond
	}
	return &Host{deps: deps}, nil
}

// Ticks returns the number of completed ticks.
func (h *Host) Ticks() uint64 { return h.ticks.Load() }

// Step runs one tick.
func (h *Host) Step(ctx context.Context) {
	h.deps.Scheduler.Poll(ctx)

	anchors := h.deps.Anchors.All()
	for _, a := range anchors {
		h.update(ctx, a)
	}

	if h.deps.Session != nil {
		h.deps.Session.Advance()
	}

	tick := h.ticks.Add(1)
	h.deps.Collector.IncTicks()

	sample := worker.HostSample{
		Time:         time.Now(),
		Tick:         tick,
		PendingTasks: h.deps.Scheduler.Pending(),
		Anchors:      len(anchors),
	}
	if h.deps.Monitor != nil {
		status := h.deps.Monitor.Capture()
		sample.Time = status.Time
		sample.PendingTasks = status.PendingTasks
	}
	if h.deps.Sampler != nil {
		h.deps.Sampler.Sample(sample)
	}
}

// update runs one anchor's tick. A panic is contained to that anchor.
func (h *Host) update(ctx context.Context, a *anchor.Anchor) {
	defer func() {
		if r := recover(); r != nil {
			h.deps.Logger.Error("anchor update panicked", "anchor", a.Name(), "panic", fmt.Sprint(r))
		}
	}()
	a.Update(ctx)
}

// Run ticks every Interval until ctx is done or MaxTicks is reached.
func (h *Host) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.deps.Interval)
	defer ticker.Stop()

	h.deps.Logger.Info("host started",
		"interval", h.deps.Interval,
		"maxTicks", h.deps.MaxTicks,
		"anchors", h.deps.Anchors.Len())

	for {
		select {
		case <-ctx.Done():
			h.deps.Logger.Info("host stopped", "ticks", h.Ticks(), "reason", ctx.Err())
			return nil
		case <-ticker.C:
			h.Step(ctx)
			if h.deps.MaxTicks > 0 && h.Ticks() >= h.deps.MaxTicks {
				h.deps.Logger.Info("host reached max ticks", "ticks", h.Ticks())
				return nil
			}
		}
	}
}

// Remove drops an anchor. A resolution still in flight is forgotten: its
// continuation never runs and nothing is journaled for it. Call it between
// ticks.
func (h *Host) Remove(name string) bool {
	if !h.deps.Anchors.Remove(name) {
		return false
	}
	if n := h.deps.Scheduler.Forget(name); n > 0 {
		h.deps.Logger.Debug("forgot pending resolution", "anchor", name, "tasks", n)
	}
	return true
}

// LogContext adds the current tick to every log record.
func (h *Host) LogContext() []slog.Attr {
	return []slog.Attr{slog.Uint64("tick", h.Ticks())}
}
