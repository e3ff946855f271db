package lineage

import (
	"fmt"
	"sync"

	"github.com/aretw0/otec/pkg/domain"
	"github.com/google/uuid"
)

// Index maps operations to their successors.
type Index struct {
	mu   sync.RWMutex
	ops  map[uuid.UUID]*domain.Operation
	next map[uuid.UUID]uuid.UUID
}

// New creates an empty index.
func New() *Index {
	return &Index{
		ops:  make(map[uuid.UUID]*domain.Operation),
		next: make(map[uuid.UUID]uuid.UUID),
	}
}

// Register makes op known to the index. Its outer path is itself until a successor is published.
func (x *Index) Register(op *domain.Operation) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.ops[op.ID()] = op
}

// Publish records that ev.Successor supersedes ev.Superseded.
// Publishing the same link twice is a no-op.
func (x *Index) Publish(ev domain.LineageEvent) error {
	if ev.Superseded == nil || ev.Successor == nil {
		return nil
	}
	return x.link(ev.Superseded, ev.Successor)
}

// SetOuterPath points op at successor.
func (x *Index) SetOuterPath(op, successor *domain.Operation) error {
	return x.link(op, successor)
}

func (x *Index) link(from, to *domain.Operation) error {
	if from.ID() == to.ID() {
		return fmt.Errorf("%w: %s to itself", domain.ErrLineageCycle, from.ID())
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if cur, ok := x.next[from.ID()]; ok && cur == to.ID() {
		return nil
	}
	for id, ok := to.ID(), true; ok; id, ok = x.next[id] {
		if id == from.ID() {
			return fmt.Errorf("%w: %s already leads to %s", domain.ErrLineageCycle, to.ID(), from.ID())
		}
	}

	x.ops[from.ID()] = from
	x.ops[to.ID()] = to
	x.next[from.ID()] = to.ID()
	return nil
}

// OuterPath returns the direct successor of op, or op itself.
func (x *Index) OuterPath(op *domain.Operation) *domain.Operation {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if id, ok := x.next[op.ID()]; ok {
		return x.ops[id]
	}
	return op
}

// Resolve follows the outer path to its fixed point: the most recent version of op.
// Visited links are compressed to point straight at the result.
func (x *Index) Resolve(op *domain.Operation) *domain.Operation {
	x.mu.Lock()
	defer x.mu.Unlock()

	final := op.ID()
	var visited []uuid.UUID
	for {
		id, ok := x.next[final]
		if !ok {
			break
		}
		visited = append(visited, final)
		final = id
	}
	if len(visited) == 0 {
		return op
	}
	for _, id := range visited[:len(visited)-1] {
		x.next[id] = final
	}
	return x.ops[final]
}

// ResolveActionable resolves op and fails with domain.ErrStaleLineage when the
// latest version has been invalidated.
func (x *Index) ResolveActionable(op *domain.Operation) (*domain.Operation, error) {
	latest := x.Resolve(op)
	if !latest.IsValid() {
		return nil, fmt.Errorf("%w: %s resolves to %s", domain.ErrStaleLineage, op.ID(), latest.ID())
	}
	return latest, nil
}

// Len returns the number of operations known to the index.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ops)
}
