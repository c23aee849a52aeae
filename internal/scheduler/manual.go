package scheduler

import (
	"sync"

	"go.uber.org/atomic"
)

// Manual is a Scheduler driven by explicit Advance calls. Work runs on the
// goroutine calling Advance.
type Manual struct {
	mu    sync.Mutex
	now   int64
	tasks []*manualTask
}

type manualTask struct {
	due       int64
	period    int64
	work      func()
	cancelled atomic.Bool
}

func (t *manualTask) Cancel()         { t.cancelled.Store(true) }
func (t *manualTask) Cancelled() bool { return t.cancelled.Load() }

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) RunLater(work func(), delayTicks int64) Task {
	return m.add(work, delayTicks, 0)
}

func (m *Manual) RunTimer(work func(), delayTicks, periodTicks int64) Task {
	if periodTicks < 1 {
		periodTicks = 1
	}
	return m.add(work, delayTicks, periodTicks)
}

func (m *Manual) add(work func(), delay, period int64) Task {
	if delay < 1 {
		delay = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{due: m.now + delay, period: period, work: work}
	m.tasks = append(m.tasks, t)
	return t
}

// Advance moves the clock forward tick by tick, running what falls due.
// Work scheduled by running work is picked up on later ticks.
func (m *Manual) Advance(ticks int64) {
	for i := int64(0); i < ticks; i++ {
		m.mu.Lock()
		m.now++
		var due []*manualTask
		kept := m.tasks[:0]
		for _, t := range m.tasks {
			switch {
			case t.Cancelled():
			case t.due <= m.now:
				due = append(due, t)
				if t.period > 0 {
					t.due = m.now + t.period
					kept = append(kept, t)
				}
			default:
				kept = append(kept, t)
			}
		}
		m.tasks = kept
		m.mu.Unlock()

		for _, t := range due {
			if !t.Cancelled() {
				t.work()
			}
		}
	}
}

// Now is the number of ticks advanced so far.
func (m *Manual) Now() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending counts tasks that have not run to completion or been cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.Cancelled() {
			n++
		}
	}
	return n
}
