package otec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/otec/pkg/adapters/memory"
	"github.com/aretw0/otec/pkg/domain"
	"github.com/aretw0/otec/pkg/entity"
	"github.com/aretw0/otec/pkg/ports"
	"github.com/aretw0/otec/pkg/session"
	"github.com/aretw0/otec/pkg/text"
	"github.com/google/uuid"
)

// Engine is the high-level entry point of the library.
// It owns the sessions of every entity and integrates local and remote operations.
type Engine struct {
	manager     *session.Manager
	store       ports.LogStore
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	transformer ports.Transformer
	codec       ports.MutationCodec
	newState    session.StateFactory
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	Name        string
}

var _ domain.Engine = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the log store (default: in memory).
func WithStore(store ports.LogStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables distributed locking of entities.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithTransformer sets the operation transformer (default: text.Transformer).
func WithTransformer(t ports.Transformer) Option {
	return func(e *Engine) {
		e.transformer = t
	}
}

// WithCodec sets the mutation codec used for persistence (default: text.Codec).
func WithCodec(c ports.MutationCodec) Option {
	return func(e *Engine) {
		e.codec = c
	}
}

// WithStateFactory sets how new entities are initialised (default: empty text.State).
func WithStateFactory(f session.StateFactory) Option {
	return func(e *Engine) {
		e.newState = f
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithName sets the engine ID. Defaults to a random "otec-" name.
func WithName(name string) Option {
	return func(e *Engine) {
		e.Name = name
	}
}

// New initializes a new Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.transformer == nil {
		eng.transformer = text.NewTransformer()
	}
	if eng.codec == nil {
		eng.codec = text.NewCodec()
	}
	if eng.newState == nil {
		eng.newState = func(int) domain.State { return text.NewState("") }
	}
	if eng.Name == "" {
		eng.Name = "otec-" + uuid.NewString()[:8]
	}
	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	eng.logger = eng.logger.With("engine", eng.Name)

	managerOpts := []session.Option{
		session.WithEngine(eng),
		session.WithHooks(eng.hooks),
		session.WithLogger(eng.logger),
		session.WithLockTTL(eng.lockTTL),
	}
	if eng.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(eng.locker))
	}
	eng.manager = session.NewManager(eng.store, eng.codec, eng.newState, managerOpts...)

	return eng, nil
}

// ID implements domain.Engine.
func (e *Engine) ID() string {
	return e.Name
}

// Manager returns the session manager.
func (e *Engine) Manager() *session.Manager {
	return e.manager
}

// Submit creates a canonical operation at the entity's current revision and applies it.
// An empty mutation list yields a no-op operation that is returned but not applied.
func (e *Engine) Submit(ctx context.Context, entityID int, agentID string, mutations []domain.Mutation) (*domain.Operation, error) {
	return e.submit(ctx, entityID, func(doc *entity.Document) *domain.Operation {
		return domain.CreateOperation(e, agentID, mutations, doc.ID(), doc.Revision(), doc.State().Hash(), nil)
	})
}

// SubmitLocalOnly is Submit for an operation that must not be propagated.
func (e *Engine) SubmitLocalOnly(ctx context.Context, entityID int, agentID string, mutations []domain.Mutation) (*domain.Operation, error) {
	return e.submit(ctx, entityID, func(doc *entity.Document) *domain.Operation {
		return domain.CreateLocalOnlyOperation(e, agentID, mutations, doc, nil)
	})
}

func (e *Engine) submit(ctx context.Context, entityID int, create func(*entity.Document) *domain.Operation) (*domain.Operation, error) {
	var op *domain.Operation
	err := e.manager.WithLock(ctx, entityID, func(ctx context.Context) error {
		s, err := e.manager.Open(ctx, entityID)
		if err != nil {
			return err
		}
		op = create(s.Document())
		if op.IsNoop() {
			return nil
		}
		_, err = s.Apply(ctx, op, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

// Receive integrates an operation produced by another agent.
//
// The operation is resolved to its latest version, transformed against every
// canonical entry applied since its base revision, and applied. The applied
// operation is returned. An operation equal to a concurrent entry is a duplicate:
// it is removed from canonical history, linked to that entry, and the entry is
// returned without applying anything.
func (e *Engine) Receive(ctx context.Context, op *domain.Operation) (*domain.Operation, error) {
	if !op.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidOperation, op.ID())
	}

	var applied *domain.Operation
	err := e.manager.WithLock(ctx, op.EntityID(), func(ctx context.Context) error {
		s, err := e.manager.Open(ctx, op.EntityID())
		if err != nil {
			return err
		}
		doc := s.Document()

		cur, err := s.Lineage().ResolveActionable(op)
		if err != nil {
			return err
		}

		base := cur.Revision()
		if base == domain.UnassignedRevision {
			base = doc.Revision()
		}
		if base > doc.Revision() {
			return fmt.Errorf("%w: op %s at %d, entity %d at %d",
				domain.ErrRevisionAhead, cur.ID(), base, doc.ID(), doc.Revision())
		}

		for _, c := range doc.Log().Since(base) {
			if c.ID() == cur.ID() {
				applied = c
				return nil
			}
			if c.Equal(cur) {
				cur.RemoveFromCanonHistory()
				cur.MarkAsResolvedConflict()
				e.logger.Info("Duplicate operation dropped",
					"entity_id", doc.ID(),
					"op_id", cur.ID(),
					"existing_id", c.ID(),
				)
				applied = c
				return s.Publish(ctx, domain.LineageEvent{EntityID: doc.ID(), Superseded: cur, Successor: c})
			}

			pair, err := e.transformer.Transform(c, cur)
			if err != nil {
				return fmt.Errorf("failed to transform %s against %s: %w", cur.ID(), c.ID(), err)
			}
			next := pair.Remote
			next.MarkAsResolvedConflict()
			if e.hooks.OnTransform != nil {
				e.hooks.OnTransform(ctx, &domain.TransformEvent{
					EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTransform, EntityID: doc.ID()},
					Local:     c,
					Remote:    cur,
					Result:    &pair,
				})
			}
			if err := s.Publish(ctx, domain.LineageEvent{EntityID: doc.ID(), Superseded: cur, Successor: next}); err != nil {
				return err
			}
			cur = next
		}

		if _, err := s.Apply(ctx, cur, false); err != nil {
			return err
		}
		applied = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// Preview applies a copy of op to a snapshot of the entity and returns the resulting State.
// The entity, its log and op are left untouched.
func (e *Engine) Preview(ctx context.Context, entityID int, op *domain.Operation) (domain.State, error) {
	var state domain.State
	err := e.manager.View(ctx, entityID, func(s *session.Session) error {
		snap, ok := s.Document().Snapshot()
		if !ok {
			return domain.ErrSnapshotUnsupported
		}
		if _, err := op.BasedOn(op.Revision()).Apply(snap, true); err != nil {
			return err
		}
		state = snap.State()
		return nil
	})
	return state, err
}

// Rebase returns a copy of op based on revision.
func (e *Engine) Rebase(op *domain.Operation, revision int) *domain.Operation {
	return op.BasedOn(revision)
}

// Snapshot returns an independent copy of the entity.
func (e *Engine) Snapshot(ctx context.Context, entityID int) (*entity.Document, error) {
	var doc *entity.Document
	err := e.manager.View(ctx, entityID, func(s *session.Session) error {
		snap, ok := s.Document().Snapshot()
		if !ok {
			return domain.ErrSnapshotUnsupported
		}
		doc = snap
		return nil
	})
	return doc, err
}

// History returns every operation in the entity's transaction log, in apply order.
func (e *Engine) History(ctx context.Context, entityID int) ([]*domain.Operation, error) {
	var ops []*domain.Operation
	err := e.manager.View(ctx, entityID, func(s *session.Session) error {
		ops = s.Document().Log().Entries()
		return nil
	})
	return ops, err
}

// Resolve returns the latest version of op following its outer path.
func (e *Engine) Resolve(ctx context.Context, op *domain.Operation) (*domain.Operation, error) {
	var latest *domain.Operation
	err := e.manager.View(ctx, op.EntityID(), func(s *session.Session) error {
		latest = s.Lineage().Resolve(op)
		return nil
	})
	return latest, err
}

// Entities lists known entity IDs.
func (e *Engine) Entities(ctx context.Context) ([]int, error) {
	return e.manager.List(ctx)
}

// Delete drops an entity and its persisted log.
func (e *Engine) Delete(ctx context.Context, entityID int) error {
	return e.manager.Delete(ctx, entityID)
}

// Export converts op to the record form used by log stores, suitable for sending
// to another replica.
func (e *Engine) Export(op *domain.Operation) (domain.Record, error) {
	muts := op.Mutations()
	raws := make([]map[string]any, len(muts))
	for i, m := range muts {
		raw, err := e.codec.Encode(m)
		if err != nil {
			return domain.Record{}, fmt.Errorf("failed to encode mutation %d: %w", i, err)
		}
		raws[i] = raw
	}
	return domain.NewRecord(op, raws), nil
}

// Import rebuilds an operation exported by another replica. The operation keeps
// its ID so lineage and duplicate detection work across replicas.
func (e *Engine) Import(rec domain.Record) (*domain.Operation, error) {
	muts := make([]domain.Mutation, len(rec.Mutations))
	for i, raw := range rec.Mutations {
		m, err := e.codec.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode mutation %d: %w", i, err)
		}
		muts[i] = m
	}
	return domain.RestoreOperation(e, rec, muts)
}
