/*
Package otec is an Operational Transformation engine for collaborative editing.

Agents edit shared entities concurrently. Each edit is an Operation: an ordered
list of Mutations bound to an entity and to the revision it was based on. When
two operations are concurrent, a Transformer rewrites each so that applying them
in either order converges to the same State.

# Concept

An Engine owns the entities of one replica. Local edits go through Submit and
are applied immediately. Edits from other replicas go through Receive, which
transforms them against every canonical operation applied since their base
revision before applying them. Transport between replicas is up to the host.

Every transformed operation supersedes the one it came from. The supersession
links form the operation's outer path, kept per entity in a lineage.Index, so
that stale references can be resolved to their latest version.

# Usage

	eng, err := otec.New(otec.WithStore(file.New(".otec")))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	op, err := eng.Submit(ctx, 1, "alice", []domain.Mutation{text.Insert{Pos: 0, Text: "hello"}})
	if err != nil {
		log.Fatal(err)
	}

	// Send op to other replicas; they call eng.Receive(ctx, op).

# Packages

  - pkg/domain: Operation, Mutation, State, Entity and lifecycle hooks.
  - pkg/text: reference plain-text State, mutations, Transformer and Codec.
  - pkg/entity: reference Entity and TransactionLog.
  - pkg/lineage: outer path index.
  - pkg/session: per-entity locking, replay and persistence.
  - pkg/adapters: memory, file and redis LogStores; read-only HTTP API.
  - pkg/observability: Prometheus metrics and logging hooks.
*/
package otec
