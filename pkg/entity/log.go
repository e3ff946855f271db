package entity

import (
	"slices"

	"github.com/aretw0/otec/pkg/domain"
)

// Log is an append-only list of applied operations.
type Log struct {
	entries []*domain.Operation
}

var _ domain.TransactionLog = (*Log)(nil)

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{entries: []*domain.Operation{}}
}

// AppendLog records an applied operation.
func (l *Log) AppendLog(op *domain.Operation) {
	l.entries = append(l.entries, op)
}

// Len returns the number of entries.
func (l *Log) Len() int { return len(l.entries) }

// Entries returns every entry in append order.
func (l *Log) Entries() []*domain.Operation {
	return slices.Clone(l.entries)
}

// Canon returns the entries that are still part of canonical history.
func (l *Log) Canon() []*domain.Operation {
	out := make([]*domain.Operation, 0, len(l.entries))
	for _, op := range l.entries {
		if op.IsCanon() {
			out = append(out, op)
		}
	}
	return out
}

// Since returns the canonical entries applied at or after revision, in order.
func (l *Log) Since(revision int) []*domain.Operation {
	var out []*domain.Operation
	for _, op := range l.entries {
		if op.IsCanon() && op.Revision() >= revision {
			out = append(out, op)
		}
	}
	return out
}

// Last returns the most recent entry, or nil.
func (l *Log) Last() *domain.Operation {
	if len(l.entries) == 0 {
		return nil
	}
	return l.entries[len(l.entries)-1]
}

func (l *Log) clone() *Log {
	return &Log{entries: slices.Clone(l.entries)}
}
