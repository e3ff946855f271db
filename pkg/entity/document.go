package entity

import "github.com/aretw0/otec/pkg/domain"

// Document is a versioned entity: a State, a revision counter and a transaction log.
type Document struct {
	id       int
	revision int
	state    domain.State
	log      *Log
}

var _ domain.Entity = (*Document)(nil)

// New creates a document at revision 0 with an empty log.
func New(id int, state domain.State) *Document {
	return &Document{
		id:    id,
		state: state,
		log:   NewLog(),
	}
}

func (d *Document) ID() int { return d.id }

func (d *Document) Revision() int { return d.revision }

func (d *Document) IncrementRevision() { d.revision++ }

func (d *Document) State() domain.State { return d.state }

func (d *Document) TransactionLog() domain.TransactionLog { return d.log }

// Log returns the concrete transaction log.
func (d *Document) Log() *Log { return d.log }

// Snapshot returns an independent copy for speculative application.
// It reports false when the State cannot be cloned.
func (d *Document) Snapshot() (*Document, bool) {
	c, ok := d.state.(domain.Cloner)
	if !ok {
		return nil, false
	}
	return &Document{
		id:       d.id,
		revision: d.revision,
		state:    c.Clone(),
		log:      d.log.clone(),
	}, true
}
