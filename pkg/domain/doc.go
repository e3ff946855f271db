/*
Package domain contains the core model of the otec Operational Transformation engine.

It defines the Operation record that binds an ordered sequence of Mutations to a
versioned Entity, together with the bookkeeping a correct OT core must maintain
around it: revision pinning, canonical vs non-canonical history, transform lineage
and conflict marking. This package is kept pure and free of I/O, following
Hexagonal Architecture principles; persistence and transport live in adapters.

# Key Entities

  - Mutation: an atomic edit applied to a State.
  - State: the mutable document payload plus a content hash.
  - Entity: a versioned document (State, revision counter, TransactionLog).
  - Operation: one agent's edit to one entity at one revision.
  - TransformPair: the two operations produced (or consumed) by a transform.
  - LineageEvent: emitted by Apply when a transformed operation supersedes another.

# Concurrency

Operations and Entities are not internally synchronized. Callers must serialize
every Apply against a given Entity and every flag update of a given Operation
(see package session).
*/
package domain
