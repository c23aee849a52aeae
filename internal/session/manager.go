package session

import (
	"log/slog"
	"sync"

	"github.com/Versifine/hamster/internal/event"
	"github.com/Versifine/hamster/internal/scheduler"
	"github.com/Versifine/hamster/internal/symbol"
	"github.com/google/uuid"
)

// RetryPolicy bounds how a failed install is retried. Delays are in ticks.
type RetryPolicy struct {
	// Attempts is the number of retries after the first failure.
	Attempts int
	Delay    int64
	// ReconcileDelay schedules one reconcile pass after connect; zero disables it.
	ReconcileDelay int64
	// ReconcilePeriod repeats the pass; zero runs it once.
	ReconcilePeriod int64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 1, Delay: 5, ReconcileDelay: 10}
}

// Manager creates a session per connection and drives it through install,
// retries, reconcile passes and removal.
type Manager struct {
	registry *Registry
	resolver *symbol.Resolver
	sched    scheduler.Scheduler
	policy   RetryPolicy
	opts     []Option

	mu    sync.Mutex
	tasks map[uuid.UUID][]scheduler.Task
}

func NewManager(resolver *symbol.Resolver, sched scheduler.Scheduler, policy RetryPolicy, opts ...Option) *Manager {
	return &Manager{
		registry: NewRegistry(),
		resolver: resolver,
		sched:    sched,
		policy:   policy,
		opts:     opts,
		tasks:    make(map[uuid.UUID][]scheduler.Task),
	}
}

func (m *Manager) Registry() *Registry { return m.registry }

// Subscribe attaches the manager to the connection events on bus.
func (m *Manager) Subscribe(bus *event.Bus) {
	bus.Subscribe(event.EventConnected, func(raw any) {
		if evt, ok := raw.(event.ConnectEvent); ok {
			m.Connect(evt)
		}
	})
	bus.Subscribe(event.EventDisconnected, func(raw any) {
		if evt, ok := raw.(event.DisconnectEvent); ok {
			m.Disconnect(evt)
		}
	})
}

// Connect registers a new session for evt and tries to install it.
func (m *Manager) Connect(evt event.ConnectEvent) *Session {
	s := New(evt.Session, evt.Name, evt.Handle, m.resolver, m.opts...)
	if prev := m.registry.Add(s); prev != nil {
		m.cancelTasks(prev.ID())
		prev.Remove()
	}
	if !s.TryInstall() {
		m.retry(s, 1)
	}
	m.scheduleReconcile(s)
	return s
}

// Disconnect removes the session's stages and unregisters it.
func (m *Manager) Disconnect(evt event.DisconnectEvent) {
	s := m.registry.Get(evt.Session)
	if s == nil {
		return
	}
	m.registry.Remove(s.ID())
	m.cancelTasks(s.ID())
	s.Remove()
	s.log.Debug("Session closed", "error", evt.Err)
}

// Close removes every registered session's stages and forgets the sessions.
// The connections themselves stay open.
func (m *Manager) Close() {
	closed := 0
	m.registry.Range(func(s *Session) bool {
		m.registry.Remove(s.ID())
		m.cancelTasks(s.ID())
		s.Remove()
		closed++
		return true
	})
	slog.Info("Session manager closed", "sessions", closed)
}

func (m *Manager) retry(s *Session, attempt int) {
	if attempt > m.policy.Attempts {
		s.MarkFailed()
		s.log.Error("Interceptor install gave up, connection has an interception gap",
			"attempts", attempt, "state", s.State(), "degraded", true)
		return
	}
	m.track(s, m.sched.RunLater(func() {
		if m.registry.Get(s.ID()) != s {
			return
		}
		if s.TryInstall() {
			s.log.Info("Interceptor installed on retry", "attempt", attempt)
			return
		}
		m.retry(s, attempt+1)
	}, m.policy.Delay))
}

func (m *Manager) scheduleReconcile(s *Session) {
	if m.policy.ReconcileDelay <= 0 {
		return
	}
	pass := func() {
		if m.registry.Get(s.ID()) == s {
			s.Reconcile()
		}
	}
	if m.policy.ReconcilePeriod > 0 {
		m.track(s, m.sched.RunTimer(pass, m.policy.ReconcileDelay, m.policy.ReconcilePeriod))
		return
	}
	m.track(s, m.sched.RunLater(pass, m.policy.ReconcileDelay))
}

// track keeps t for cancellation on disconnect. A task scheduled for a
// session that is no longer registered is cancelled instead.
func (m *Manager) track(s *Session, t scheduler.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registry.Get(s.ID()) != s {
		t.Cancel()
		return
	}
	m.tasks[s.ID()] = append(m.tasks[s.ID()], t)
}

func (m *Manager) cancelTasks(id uuid.UUID) {
	m.mu.Lock()
	tasks := m.tasks[id]
	delete(m.tasks, id)
	m.mu.Unlock()
	for _, t := range tasks {
		t.Cancel()
	}
}
