// Package store provides SQLite-backed durable storage for Kinetic
// project action logs.
//
// The durable unit of a project is its ordered action log: replaying
// the log from scene.NewState() reproduces the project's current state
// exactly. Snapshots are version-keyed materialized checkpoints stored
// purely as a fast path - a checkpoint's state must equal the result
// of replaying the log prefix up to its recorded sequence.
//
// Ordering uses the coordinator-assigned seq INTEGER, never timestamps,
// so materialization is deterministic regardless of wall time. Appends
// are idempotent per (project_id, seq); a duplicate stamp is silently
// ignored.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
