package domain

// State is the mutable document payload owned by an Entity.
type State interface {
	// Get returns the current payload.
	Get() any

	// Hash returns a content hash used for drift detection and debugging.
	Hash() string
}

// Cloner is implemented by States that can produce an independent copy.
// It enables speculative application against a snapshot.
type Cloner interface {
	Clone() State
}

// Mutation is an atomic edit applied to a State in place.
type Mutation interface {
	// Apply mutates the state. A returned error aborts the enclosing Operation.
	Apply(state State) error

	// Key is the value identity of the mutation. Two mutations with the same Key are equal.
	Key() string

	// Data returns a representable form of the mutation for logging and debugging.
	Data() any
}

// TransactionLog is the append-only ledger of operations applied to an Entity.
type TransactionLog interface {
	AppendLog(op *Operation)
}

// Entity is a versioned document. It is mutated only through Operation.Apply.
type Entity interface {
	ID() int
	Revision() int
	IncrementRevision()
	State() State
	TransactionLog() TransactionLog
}

// Engine identifies the OT session an operation belongs to.
// The core references it for identity and logging only.
type Engine interface {
	ID() string
}
