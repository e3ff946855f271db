package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// UnassignedRevision marks an operation that binds to the entity's revision on first Apply.
const UnassignedRevision = -1

// Operation binds an ordered sequence of Mutations to an entity, a revision and an agent.
//
// Identity (entity + mutations) is immutable. The lifecycle surface is narrow:
// the monotonic flags below, plus the revision/hash refresh performed by Apply.
type Operation struct {
	id              uuid.UUID
	engine          Engine
	agentID         string
	mutations       []Mutation
	entityID        int
	revision        int
	revisionHash    string
	propagate       bool
	transformedFrom *TransformPair
	flags           Flags
}

// ApplyResult reports the outcome of Operation.Apply.
type ApplyResult struct {
	// Propagate tells whether the operation should be sent to other agents.
	Propagate bool

	// Committed is true when the operation was appended to the transaction log
	// and the entity revision advanced.
	Committed bool

	// Lineage is set when the operation was derived from a transform. The owner
	// of the lineage index must publish it.
	Lineage *LineageEvent
}

func newOperation(engine Engine, agentID string, mutations []Mutation, entityID, revision int,
	revisionHash string, transformedFrom *TransformPair, propagate bool, flags Flags) *Operation {
	if mutations == nil {
		mutations = []Mutation{}
	}
	return &Operation{
		id:              uuid.New(),
		engine:          engine,
		agentID:         agentID,
		mutations:       mutations,
		entityID:        entityID,
		revision:        revision,
		revisionHash:    revisionHash,
		propagate:       propagate,
		transformedFrom: transformedFrom,
		flags:           flags,
	}
}

// CreateLocalOnlyOperation builds an operation bound to the entity's current revision
// that must not leave the local agent.
func CreateLocalOnlyOperation(engine Engine, agentID string, mutations []Mutation, entity Entity, pair *TransformPair) *Operation {
	return CreateLocalOnlyOperationAt(engine, agentID, mutations, entity, entity.Revision(), pair)
}

// CreateLocalOnlyOperationAt is CreateLocalOnlyOperation with an explicit revision.
func CreateLocalOnlyOperationAt(engine Engine, agentID string, mutations []Mutation, entity Entity, revision int, pair *TransformPair) *Operation {
	return newOperation(engine, agentID, mutations, entity.ID(), revision, entity.State().Hash(), pair, false, 0)
}

// CreateOperation builds a canonical, propagate-eligible operation at a known revision.
// transformedFrom may be nil for original edits.
func CreateOperation(engine Engine, agentID string, mutations []Mutation, entityID, revision int,
	revisionHash string, transformedFrom *TransformPair) *Operation {
	return newOperation(engine, agentID, mutations, entityID, revision, revisionHash, transformedFrom, true, 0)
}

// LocalOnlyCopy returns a local-only copy of op under the given engine.
// Revision, hash, lineage and the resolved-conflict flag are preserved.
func LocalOnlyCopy(engine Engine, op *Operation) *Operation {
	return newOperation(engine, op.agentID, op.mutations, op.entityID, op.revision, op.revisionHash,
		op.transformedFrom, false, op.flags&FlagResolvedConflict)
}

// CanonCopy returns a copy of op whose revision is reset to UnassignedRevision.
func CanonCopy(op *Operation) *Operation {
	return CanonCopyWithPair(op, op.transformedFrom)
}

// CanonCopyWithPair is CanonCopy with a replaced transform lineage.
func CanonCopyWithPair(op *Operation, pair *TransformPair) *Operation {
	return newOperation(op.engine, op.agentID, op.mutations, op.entityID, UnassignedRevision, op.revisionHash,
		pair, op.propagate, op.flags&FlagResolvedConflict)
}

// DeriveOperation returns a copy of op carrying a different mutation sequence, used by
// Transformers to build transformed operations. The revision is reset to UnassignedRevision;
// engine, agent, entity, hash, propagate and the resolved-conflict flag are kept.
func DeriveOperation(op *Operation, mutations []Mutation, pair *TransformPair) *Operation {
	return newOperation(op.engine, op.agentID, mutations, op.entityID, UnassignedRevision, op.revisionHash,
		pair, op.propagate, op.flags&FlagResolvedConflict)
}

// RestoreOperation rebuilds a persisted operation, keeping its identity and flags.
func RestoreOperation(engine Engine, rec Record, mutations []Mutation) (*Operation, error) {
	id, err := uuid.Parse(rec.OperationID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad operation id %q: %v", ErrCorruptLog, rec.OperationID, err)
	}
	op := newOperation(engine, rec.AgentID, mutations, rec.EntityID, rec.Revision, rec.RevisionHash, nil, rec.Propagate, 0)
	op.id = id
	if rec.ResolvedConflict {
		op.flags.set(FlagResolvedConflict)
	}
	if !rec.Canon {
		op.flags.set(FlagNonCanon)
	}
	return op, nil
}

// BasedOn returns a fresh copy targeting a different revision, for retries.
// Mutations, agent, hash, lineage and the resolved-conflict flag are carried over;
// the copy is canonical and valid.
func (o *Operation) BasedOn(revision int) *Operation {
	return newOperation(o.engine, o.agentID, o.mutations, o.entityID, revision, o.revisionHash,
		o.transformedFrom, o.propagate, o.flags&FlagResolvedConflict)
}

// ApplyTo applies the operation non-transiently.
func (o *Operation) ApplyTo(entity Entity) (ApplyResult, error) {
	return o.Apply(entity, false)
}

// Apply runs the operation's mutations against the entity's State.
//
// The revision hash is always refreshed and an unassigned revision is pinned to the
// entity's revision. Non-canon operations mutate nothing. Unless transiently is set,
// the operation is appended to the transaction log and the revision advances.
// Validity is not checked here: dispatch gating belongs to the caller.
func (o *Operation) Apply(entity Entity, transiently bool) (ApplyResult, error) {
	state := entity.State()
	o.revisionHash = state.Hash()
	if o.revision == UnassignedRevision {
		o.revision = entity.Revision()
	}

	if o.flags.Has(FlagNonCanon) {
		return ApplyResult{Propagate: o.propagate}, nil
	}

	for i, m := range o.mutations {
		if err := applyMutation(m, state); err != nil {
			return ApplyResult{}, &ApplyError{
				OperationID: o.id.String(),
				EntityID:    entity.ID(),
				Index:       i,
				Err:         err,
			}
		}
	}

	res := ApplyResult{Propagate: o.propagate}
	if o.transformedFrom != nil && o.transformedFrom.Remote != nil {
		res.Lineage = &LineageEvent{
			EntityID:   entity.ID(),
			Superseded: o.transformedFrom.Remote,
			Successor:  o,
		}
	}

	if !transiently {
		entity.TransactionLog().AppendLog(o)
		entity.IncrementRevision()
		res.Committed = true
	}

	return res, nil
}

func applyMutation(m Mutation, state State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mutation %s panicked: %v", m.Key(), r)
		}
	}()
	return m.Apply(state)
}

// ID returns the operation's identity in lineage indexes. It is not part of Equal.
func (o *Operation) ID() uuid.UUID { return o.id }

// Engine returns the engine the operation was created under.
func (o *Operation) Engine() Engine { return o.engine }

// AgentID returns the authoring agent.
func (o *Operation) AgentID() string { return o.agentID }

// Mutations returns a copy of the mutation sequence.
func (o *Operation) Mutations() []Mutation { return slices.Clone(o.mutations) }

// EntityID returns the target entity.
func (o *Operation) EntityID() int { return o.entityID }

// Revision returns the revision the operation is based on, or UnassignedRevision.
func (o *Operation) Revision() int { return o.revision }

// RevisionHash returns the State hash observed at the last Apply (or at creation).
func (o *Operation) RevisionHash() string { return o.revisionHash }

// TransformedFrom returns the pair this operation was derived from, or nil.
func (o *Operation) TransformedFrom() *TransformPair { return o.transformedFrom }

// ShouldPropagate reports whether the operation should be broadcast after local apply.
func (o *Operation) ShouldPropagate() bool { return o.propagate }

// IsNoop reports whether the mutation sequence is empty.
func (o *Operation) IsNoop() bool { return len(o.mutations) == 0 }

// Flags returns the lifecycle flags.
func (o *Operation) Flags() Flags { return o.flags }

// Status returns the lifecycle tag derived from the flags.
func (o *Operation) Status() Status { return o.flags.Status() }

// IsCanon reports whether the operation is part of canonical history.
func (o *Operation) IsCanon() bool { return !o.flags.Has(FlagNonCanon) }

// IsValid reports whether the operation may still be applied or propagated.
func (o *Operation) IsValid() bool { return !o.flags.Has(FlagInvalid) }

// IsResolvedConflict reports whether the operation is the output of conflict resolution.
func (o *Operation) IsResolvedConflict() bool { return o.flags.Has(FlagResolvedConflict) }

// RemoveFromCanonHistory excludes the operation from canonical history. Idempotent.
func (o *Operation) RemoveFromCanonHistory() { o.flags.set(FlagNonCanon) }

// MarkAsResolvedConflict tags the operation as produced by conflict resolution. Idempotent.
func (o *Operation) MarkAsResolvedConflict() { o.flags.set(FlagResolvedConflict) }

// Invalidate permanently marks the operation as never to be applied or sent again.
func (o *Operation) Invalidate() { o.flags.set(FlagInvalid) }

// Equal reports whether both operations target the same entity with an equal mutation sequence.
// Agent, revision and hash are ignored.
func (o *Operation) Equal(other *Operation) bool {
	if o == other {
		return true
	}
	if o == nil || other == nil {
		return false
	}
	if o.entityID != other.entityID || len(o.mutations) != len(other.mutations) {
		return false
	}
	for i := range o.mutations {
		if o.mutations[i].Key() != other.mutations[i].Key() {
			return false
		}
	}
	return true
}

// Hash returns a hash consistent with Equal.
func (o *Operation) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(strconv.Itoa(o.entityID))
	for _, m := range o.mutations {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(m.Key())
	}
	return d.Sum64()
}

// Compare orders operations by revision. Only meaningful once revisions are pinned.
func (o *Operation) Compare(other *Operation) int {
	return cmp.Compare(o.revision, other.revision)
}

// SortByRevision sorts ops in place by ascending revision, keeping log order for ties.
func SortByRevision(ops []*Operation) {
	slices.SortStableFunc(ops, func(a, b *Operation) int { return a.Compare(b) })
}

func (o *Operation) String() string {
	keys := make([]string, len(o.mutations))
	for i, m := range o.mutations {
		keys[i] = m.Key()
	}
	return "[" + strings.Join(keys, ", ") + "]"
}
