/*
Package ports defines the driven ports (interfaces) of the OT engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various storage backends, transformers and lock services.

# Key Interfaces

  - LogStore: Persists the committed transaction log of each entity.
  - MutationCodec: Converts mutations to the plain maps stored in records.
  - Transformer: Reconciles two concurrent operations.
  - DistributedLocker: Provides distributed locking for concurrent entity access.
*/
package ports
