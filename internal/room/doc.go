// Package room implements the server-side sync coordinator.
//
// One Room exists per project. The room owns the project's action log
// and its monotonic sequence counter - the sole source of total order
// for that project's edits.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Each room processes joins, leaves, and submitted actions in a single
// goroutine. Within a room the pipeline
//
//	assign sequence -> persist to log -> apply to room state -> broadcast
//
// is strictly serialized; it must never be parallelized, because the
// sequence assignment is what lets every client converge by applying
// actions in serverSequence order. Distinct rooms are independent and
// run concurrently.
//
// A joining member is registered and handed the SYNC_STATE snapshot
// inside the same loop, so no broadcast can slip between the snapshot
// and the first forwarded action.
//
// Members that cannot drain their outbound buffer are detached rather
// than waited on: a slow consumer must resynchronize via a fresh join,
// which is cheaper than stalling the room for everyone else.
package room
