// Package lineage tracks which operation supersedes which.
//
// When a Transformer derives a new operation from an old one, the old operation's
// outer path must point at the derived one so later lookups land on the latest
// version. Rather than mutating operations, an Index stores these links as an
// indirection table. Each entity owns one Index and, like the entity itself, it is
// written by a single session at a time.
package lineage
