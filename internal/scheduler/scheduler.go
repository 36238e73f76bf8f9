// Package scheduler resumes work that waits on a promise. Continuations run
// inside Poll, which the host calls once per tick, so they never race with
// the rest of the tick.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/OCAP2/geoanchor/internal/promise"
	"github.com/OCAP2/geoanchor/internal/queue"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// task is one suspended continuation.
type task struct {
	owner  string
	issued uint64
	since  time.Time
	// poll runs the continuation if the promise is done and reports whether
	// the task is finished.
	poll   func() bool
}

// Scheduler holds suspended continuations until their promise completes.
type Scheduler struct {
	pending *queue.Queue[task]
	logger  Logger

	// tick counts Poll calls. A task issued after Poll n is first polled
	// by Poll n+1.
	tick atomic.Uint64

	// OTEL metrics
	pendingGauge metric.Int64ObservableGauge
	completed    metric.Int64Counter
}

// New creates a Scheduler. Uses the global OTel meter for metrics (no-op if
// not configured).
func New(logger Logger) (*Scheduler, error) {
	s := &Scheduler{
		pending: queue.New[task](),
		logger:  logger,
	}

	m := meter()

	var err error

	s.pendingGauge, err = m.Int64ObservableGauge(
		"scheduler.tasks.pending",
		metric.WithDescription("Continuations waiting on a promise"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pending gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(s.pendingGauge, int64(s.pending.Len()))
			return nil
		},
		s.pendingGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering pending callback: %w", err)
	}

	s.completed, err = m.Int64Counter(
		"scheduler.tasks.completed",
		metric.WithDescription("Continuations run to completion"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating completed counter: %w", err)
	}

	return s, nil
}

// Await suspends cont until p is no longer pending. cont receives the
// promise result, or promise.ErrCancelled if it was cancelled. owner labels
// the task in logs and metrics.
func Await[T any](s *Scheduler, owner string, p *promise.Promise[T], cont func(T, error)) {
	issued := s.tick.Load()
	s.pending.Push(task{
		owner:  owner,
		issued: issued,
		since:  time.Now(),
		poll: func() bool {
			if !p.Done() {
				return false
			}
			cont(p.Result())
			return true
		},
	})
	s.logger.Debug("task suspended", "owner", owner, "tick", issued)
}

// Poll advances the tick and runs every continuation whose promise has
// completed. Tasks issued by a continuation during this call wait for the
// next one. It returns the number of continuations that ran.
func (s *Scheduler) Poll(ctx context.Context) int {
	now := s.tick.Add(1)
	batch := s.pending.Drain()
	ran := 0

	for i, t := range batch {
		if ctx.Err() != nil {
			s.pending.Push(batch[i:]...)
			break
		}
		if t.issued >= now || !s.resume(t) {
			s.pending.Push(t)
			continue
		}
		ran++
		s.completed.Add(ctx, 1, metric.WithAttributes(attribute.String("owner", t.owner)))
		s.logger.Debug("task resumed", "owner", t.owner, "waited", time.Since(t.since), "ticks", now-t.issued)
	}

	return ran
}

// resume polls t. A continuation that panics is logged and counts as
// finished so it is not retried.
func (s *Scheduler) resume(t task) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("continuation panicked", "owner", t.owner, "panic", fmt.Sprint(r))
			done = true
		}
	}()
	return t.poll()
}

// Pending returns the number of suspended continuations.
func (s *Scheduler) Pending() int {
	return s.pending.Len()
}

// Tick returns the number of Poll calls so far.
func (s *Scheduler) Tick() uint64 {
	return s.tick.Load()
}

// Forget drops every suspended continuation for owner without running it.
// The promises themselves are left alone.
func (s *Scheduler) Forget(owner string) int {
	return s.pending.RemoveFunc(func(t task) bool { return t.owner == owner })
}
