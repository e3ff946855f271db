package text

import (
	"fmt"
	"slices"

	"github.com/aretw0/otec/pkg/domain"
)

// Transformer reconciles two concurrent text operations.
//
// For concurrent local and remote operations based on the same revision, applying
// local then the transformed remote yields the same State as applying remote then
// the transformed local. Concurrent inserts at the same offset are ordered by agent
// ID (lower first), then local first.
type Transformer struct{}

// NewTransformer creates a text transformer.
func NewTransformer() *Transformer {
	return &Transformer{}
}

// Transform returns (local', remote') where local' applies after remote and
// remote' applies after local. Each result's TransformedFrom has the operation
// it supersedes as Remote.
func (t *Transformer) Transform(local, remote *domain.Operation) (domain.TransformPair, error) {
	if local.EntityID() != remote.EntityID() {
		return domain.TransformPair{}, fmt.Errorf("%w: %d and %d", domain.ErrEntityMismatch, local.EntityID(), remote.EntityID())
	}

	localFirst := local.AgentID() <= remote.AgentID()
	lm, rm, err := transformSeq(local.Mutations(), remote.Mutations(), localFirst)
	if err != nil {
		return domain.TransformPair{}, err
	}

	pair := domain.NewTransformPair(local, remote)
	return domain.TransformPair{
		Local:  domain.DeriveOperation(local, lm, pair.Swap()),
		Remote: domain.DeriveOperation(remote, rm, pair),
	}, nil
}

// transformSeq transforms two mutation sequences against each other.
// The first result applies after bs, the second after as.
func transformSeq(as, bs []domain.Mutation, aFirst bool) ([]domain.Mutation, []domain.Mutation, error) {
	switch {
	case len(as) == 0 || len(bs) == 0:
		return as, bs, nil
	case len(as) == 1 && len(bs) == 1:
		return transformOne(as[0], bs[0], aFirst)
	case len(as) > 1:
		head, bs1, err := transformSeq(as[:1], bs, aFirst)
		if err != nil {
			return nil, nil, err
		}
		tail, bs2, err := transformSeq(as[1:], bs1, aFirst)
		if err != nil {
			return nil, nil, err
		}
		return slices.Concat(head, tail), bs2, nil
	default:
		as1, head, err := transformSeq(as, bs[:1], aFirst)
		if err != nil {
			return nil, nil, err
		}
		as2, tail, err := transformSeq(as1, bs[1:], aFirst)
		if err != nil {
			return nil, nil, err
		}
		return as2, slices.Concat(head, tail), nil
	}
}

func transformOne(a, b domain.Mutation, aFirst bool) ([]domain.Mutation, []domain.Mutation, error) {
	switch a := a.(type) {
	case Insert:
		switch b := b.(type) {
		case Insert:
			at, bt := insertInsert(a, b, aFirst)
			return at, bt, nil
		case Delete:
			at, bt := insertDelete(a, b)
			return at, bt, nil
		}
	case Delete:
		switch b := b.(type) {
		case Insert:
			bt, at := insertDelete(b, a)
			return at, bt, nil
		case Delete:
			return compact(deleteAfter(a, b)), compact(deleteAfter(b, a)), nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %T against %T", ErrUnsupportedMutation, a, b)
}

func insertInsert(a, b Insert, aFirst bool) ([]domain.Mutation, []domain.Mutation) {
	if a.Pos < b.Pos || (a.Pos == b.Pos && aFirst) {
		return []domain.Mutation{a}, []domain.Mutation{Insert{Pos: b.Pos + a.runeLen(), Text: b.Text}}
	}
	return []domain.Mutation{Insert{Pos: a.Pos + b.runeLen(), Text: a.Text}}, []domain.Mutation{b}
}

// insertDelete returns the insert rebased after the delete and the delete rebased
// after the insert. An insert inside the deleted range survives and splits the delete.
func insertDelete(a Insert, b Delete) ([]domain.Mutation, []domain.Mutation) {
	end := b.Pos + b.Len
	switch {
	case a.Pos <= b.Pos:
		return []domain.Mutation{a}, compact([]domain.Mutation{Delete{Pos: b.Pos + a.runeLen(), Len: b.Len}})
	case a.Pos >= end:
		return []domain.Mutation{Insert{Pos: a.Pos - b.Len, Text: a.Text}}, compact([]domain.Mutation{b})
	default:
		return []domain.Mutation{Insert{Pos: b.Pos, Text: a.Text}}, compact([]domain.Mutation{
			Delete{Pos: b.Pos, Len: a.Pos - b.Pos},
			Delete{Pos: b.Pos + a.runeLen(), Len: end - a.Pos},
		})
	}
}

// deleteAfter rebases x after y has been applied.
func deleteAfter(x, y Delete) []domain.Mutation {
	xs, xe := x.Pos, x.Pos+x.Len
	ys, ye := y.Pos, y.Pos+y.Len
	switch {
	case xe <= ys:
		return []domain.Mutation{x}
	case xs >= ye:
		return []domain.Mutation{Delete{Pos: xs - y.Len, Len: x.Len}}
	default:
		overlap := min(xe, ye) - max(xs, ys)
		return []domain.Mutation{Delete{Pos: min(xs, ys), Len: x.Len - overlap}}
	}
}

// compact drops mutations with no effect.
func compact(ms []domain.Mutation) []domain.Mutation {
	out := ms[:0:0]
	for _, m := range ms {
		switch m := m.(type) {
		case Delete:
			if m.Len <= 0 {
				continue
			}
		case Insert:
			if m.Text == "" {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}
