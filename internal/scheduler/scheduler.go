// Package scheduler 负责以 tick 为单位的延迟任务与周期任务
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/atomic"
)

// DefaultTick is the length of one tick.
const DefaultTick = 50 * time.Millisecond

var ErrClosed = errors.New("scheduler closed")

// Scheduler runs work after a delay, once or repeatedly. Delays below one
// tick are rounded up to one tick.
type Scheduler interface {
	RunLater(work func(), delayTicks int64) Task
	RunTimer(work func(), delayTicks, periodTicks int64) Task
}

type Task interface {
	Cancel()
	Cancelled() bool
}

// TickScheduler times tasks with the wall clock and runs due work on a
// bounded worker pool.
type TickScheduler struct {
	tick   time.Duration
	pool   *ants.Pool
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
	wg     sync.WaitGroup
}

func New(tick time.Duration, workers int) (*TickScheduler, error) {
	if tick <= 0 {
		tick = DefaultTick
	}
	pool, err := ants.NewPool(workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(p any) {
			slog.Error("Scheduled task panicked", "panic", p)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduler pool: %w", err)
	}
	return &TickScheduler{tick: tick, pool: pool, done: make(chan struct{})}, nil
}

func (s *TickScheduler) RunLater(work func(), delayTicks int64) Task {
	return s.schedule(work, delayTicks, 0)
}

func (s *TickScheduler) RunTimer(work func(), delayTicks, periodTicks int64) Task {
	if periodTicks < 1 {
		periodTicks = 1
	}
	return s.schedule(work, delayTicks, periodTicks)
}

func (s *TickScheduler) schedule(work func(), delay, period int64) Task {
	t := &task{stop: make(chan struct{})}
	if s.closed.Load() {
		t.Cancel()
		return t
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(s.duration(delay))
		defer timer.Stop()
		select {
		case <-t.stop:
			return
		case <-s.done:
			return
		case <-timer.C:
		}
		s.run(t, work)
		if period == 0 {
			return
		}
		ticker := time.NewTicker(s.duration(period))
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.run(t, work)
			}
		}
	}()
	return t
}

func (s *TickScheduler) run(t *task, work func()) {
	if t.Cancelled() {
		return
	}
	if err := s.pool.Submit(work); err != nil {
		if !errors.Is(err, ants.ErrPoolOverload) {
			slog.Warn("Scheduled task dropped", "error", err)
			return
		}
		go func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Scheduled task panicked", "panic", r)
				}
			}()
			work()
		}()
	}
}

func (s *TickScheduler) duration(ticks int64) time.Duration {
	if ticks < 1 {
		ticks = 1
	}
	return time.Duration(ticks) * s.tick
}

// Close cancels every pending task and releases the pool. Work already
// running is not interrupted.
func (s *TickScheduler) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.wg.Wait()
		s.pool.Release()
	})
}

type task struct {
	cancelled atomic.Bool
	stop      chan struct{}
	once      sync.Once
}

func (t *task) Cancel() {
	t.once.Do(func() {
		t.cancelled.Store(true)
		close(t.stop)
	})
}

func (t *task) Cancelled() bool {
	return t.cancelled.Load()
}
