package session

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/otec/internal/logging"
	"github.com/aretw0/otec/pkg/domain"
	"github.com/aretw0/otec/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// StateFactory creates the initial State of an entity.
type StateFactory func(entityID int) domain.State

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates entity access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store    ports.LogStore
	codec    ports.MutationCodec
	newState StateFactory
	engine   domain.Engine
	hooks    domain.LifecycleHooks

	mu    sync.Mutex         // Global lock for the map
	locks map[int]*lockEntry // Map of active locks

	smu      sync.Mutex
	sessions map[int]*Session

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock TTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHooks registers lifecycle callbacks fired by Session.Apply and Session.Publish.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithEngine sets the engine that replayed operations are attributed to.
func WithEngine(engine domain.Engine) Option {
	return func(m *Manager) {
		m.engine = engine
	}
}

// NewManager creates a new Manager over the given log store.
// codec decodes persisted mutations and newState builds the State of new entities.
func NewManager(store ports.LogStore, codec ports.MutationCodec, newState StateFactory, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		codec:    codec,
		newState: newState,
		engine:   replayEngine{},
		locks:    make(map[int]*lockEntry),
		sessions: make(map[int]*Session),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type replayEngine struct{}

func (replayEngine) ID() string { return "replay" }

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(entityID) after unlocking.
func (m *Manager) acquire(entityID int) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[entityID]
	if !exists {
		entry = &lockEntry{}
		m.locks[entityID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(entityID int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[entityID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, entityID)
	}
}

// WithLock executes a function while holding the lock for the entity.
func (m *Manager) WithLock(ctx context.Context, entityID int, fn func(context.Context) error) error {
	entry := m.acquire(entityID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(entityID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, ports.EntityLockKey(entityID), m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"entity_id", entityID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Open returns the entity's Session, replaying its persisted log on first use.
// Entities without a log start empty at revision 0.
// With a DistributedLocker other processes may append between locks, so the
// log is replayed on every Open.
// The caller MUST hold the entity lock (see WithLock).
func (m *Manager) Open(ctx context.Context, entityID int) (*Session, error) {
	m.smu.Lock()
	s, ok := m.sessions[entityID]
	m.smu.Unlock()
	if ok && !s.tainted && m.locker == nil {
		return s, nil
	}

	s, err := m.load(ctx, entityID)
	if err != nil {
		return nil, err
	}

	m.smu.Lock()
	m.sessions[entityID] = s
	m.smu.Unlock()
	return s, nil
}

// Apply opens the entity and applies op under its lock.
func (m *Manager) Apply(ctx context.Context, entityID int, op *domain.Operation, transiently bool) (domain.ApplyResult, error) {
	var res domain.ApplyResult
	err := m.WithLock(ctx, entityID, func(ctx context.Context) error {
		s, err := m.Open(ctx, entityID)
		if err != nil {
			return err
		}
		res, err = s.Apply(ctx, op, transiently)
		return err
	})
	return res, err
}

// View runs fn with the entity's Session under its lock. fn must not keep the Session.
func (m *Manager) View(ctx context.Context, entityID int, fn func(*Session) error) error {
	return m.WithLock(ctx, entityID, func(ctx context.Context) error {
		s, err := m.Open(ctx, entityID)
		if err != nil {
			return err
		}
		return fn(s)
	})
}

// Delete removes the entity's log and forgets its Session.
func (m *Manager) Delete(ctx context.Context, entityID int) error {
	return m.WithLock(ctx, entityID, func(ctx context.Context) error {
		m.smu.Lock()
		delete(m.sessions, entityID)
		m.smu.Unlock()
		return m.store.Delete(ctx, entityID)
	})
}

// List returns the IDs of persisted and currently open entities.
func (m *Manager) List(ctx context.Context) ([]int, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	m.smu.Lock()
	ids = append(ids, slices.Collect(maps.Keys(m.sessions))...)
	m.smu.Unlock()

	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Store returns the underlying log store.
func (m *Manager) Store() ports.LogStore {
	return m.store
}
