/*
Package session implements per-entity access control and log persistence.

A Manager enforces the single-writer rule: every mutation of an entity, its
State and its lineage index happens while holding that entity's lock. The lock
is a reference-counted in-process mutex, optionally backed by a
ports.DistributedLocker to coordinate replicas.

Each entity is materialised as a Session: an entity.Document plus its
lineage.Index. Sessions are rebuilt lazily by replaying the records of a
ports.LogStore, and every committed canonical operation is appended back to it.
*/
package session
