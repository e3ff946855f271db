package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/otec/pkg/domain"
	"github.com/aretw0/otec/pkg/entity"
	"github.com/aretw0/otec/pkg/lineage"
	"github.com/aretw0/otec/pkg/ports"
)

// Session is the live view of one entity: its Document and lineage Index.
// It is only valid while the entity lock is held.
type Session struct {
	doc     *entity.Document
	lineage *lineage.Index

	store  ports.LogStore
	codec  ports.MutationCodec
	hooks  domain.LifecycleHooks
	logger *slog.Logger

	// tainted sessions may have diverged from the store and are reloaded on next Open.
	tainted bool
}

// Document returns the entity.
func (s *Session) Document() *entity.Document { return s.doc }

// Lineage returns the entity's lineage index.
func (s *Session) Lineage() *lineage.Index { return s.lineage }

// Apply applies op to the entity.
//
// The operation is registered in the lineage index and any lineage it reports is
// published. Committed operations are appended to the log store; a failure to
// persist is returned and the Session is reloaded from the store on next use.
func (s *Session) Apply(ctx context.Context, op *domain.Operation, transiently bool) (domain.ApplyResult, error) {
	res, err := op.Apply(s.doc, transiently)
	if err != nil {
		s.tainted = true
		s.logger.Error("Operation apply failed",
			"entity_id", s.doc.ID(),
			"op_id", op.ID(),
			"err", err,
		)
		if s.hooks.OnApplyError != nil {
			s.hooks.OnApplyError(ctx, s.applyEvent(domain.EventApplyError, op, transiently, res, err))
		}
		return res, err
	}

	s.lineage.Register(op)
	if res.Lineage != nil {
		if err := s.Publish(ctx, *res.Lineage); err != nil {
			return res, err
		}
	}

	if res.Committed {
		if err := s.persist(ctx, op); err != nil {
			s.tainted = true
			return res, err
		}
	}

	s.logger.Debug("Operation applied",
		"entity_id", s.doc.ID(),
		"op_id", op.ID(),
		"agent_id", op.AgentID(),
		"revision", s.doc.Revision(),
		"transient", transiently,
		"committed", res.Committed,
	)
	if s.hooks.OnApply != nil {
		s.hooks.OnApply(ctx, s.applyEvent(domain.EventApply, op, transiently, res, nil))
	}
	return res, nil
}

// Publish records a lineage link in the index and fires the lineage hook.
func (s *Session) Publish(ctx context.Context, ev domain.LineageEvent) error {
	if err := s.lineage.Publish(ev); err != nil {
		return fmt.Errorf("failed to publish lineage: %w", err)
	}
	if s.hooks.OnLineage != nil {
		s.hooks.OnLineage(ctx, &ev)
	}
	return nil
}

func (s *Session) persist(ctx context.Context, op *domain.Operation) error {
	muts := op.Mutations()
	raws := make([]map[string]any, len(muts))
	for i, m := range muts {
		raw, err := s.codec.Encode(m)
		if err != nil {
			return fmt.Errorf("failed to encode mutation %d: %w", i, err)
		}
		raws[i] = raw
	}
	if err := s.store.Append(ctx, s.doc.ID(), domain.NewRecord(op, raws)); err != nil {
		return fmt.Errorf("failed to persist operation: %w", err)
	}
	return nil
}

func (s *Session) applyEvent(t domain.EventType, op *domain.Operation, transient bool, res domain.ApplyResult, err error) *domain.ApplyEvent {
	return &domain.ApplyEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      t,
			EntityID:  s.doc.ID(),
		},
		Operation: op,
		Transient: transient,
		Committed: res.Committed,
		Propagate: res.Propagate,
		Revision:  s.doc.Revision(),
		Err:       err,
	}
}

// load rebuilds a Session from the store.
func (m *Manager) load(ctx context.Context, entityID int) (*Session, error) {
	s := &Session{
		doc:     entity.New(entityID, m.newState(entityID)),
		lineage: lineage.New(),
		store:   m.store,
		codec:   m.codec,
		hooks:   m.hooks,
		logger:  m.logger,
	}

	recs, err := m.store.Load(ctx, entityID)
	if errors.Is(err, domain.ErrEntityNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %d: %w", entityID, err)
	}

	for i, rec := range recs {
		op, err := m.restore(rec)
		if err != nil {
			return nil, fmt.Errorf("entity %d record %d: %w", entityID, i, err)
		}
		if !op.IsCanon() {
			continue
		}
		if op.Revision() != s.doc.Revision() {
			return nil, fmt.Errorf("%w: entity %d record %d is based on revision %d, expected %d",
				domain.ErrCorruptLog, entityID, i, op.Revision(), s.doc.Revision())
		}
		if hash := s.doc.State().Hash(); op.RevisionHash() != "" && op.RevisionHash() != hash {
			return nil, fmt.Errorf("%w: entity %d record %d expects state %s, found %s",
				domain.ErrCorruptLog, entityID, i, op.RevisionHash(), hash)
		}
		if _, err := op.ApplyTo(s.doc); err != nil {
			return nil, fmt.Errorf("%w: entity %d record %d: %w", domain.ErrCorruptLog, entityID, i, err)
		}
		s.lineage.Register(op)
	}

	m.logger.Debug("Entity replayed",
		"entity_id", entityID,
		"records", len(recs),
		"revision", s.doc.Revision(),
	)
	return s, nil
}

func (m *Manager) restore(rec domain.Record) (*domain.Operation, error) {
	muts := make([]domain.Mutation, len(rec.Mutations))
	for i, raw := range rec.Mutations {
		mut, err := m.codec.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: mutation %d: %w", domain.ErrCorruptLog, i, err)
		}
		muts[i] = mut
	}
	return domain.RestoreOperation(m.engine, rec, muts)
}
