// Package scene implements the Kinetic scene engine: a pure state-transition
// function over a 2D scene document.
//
// The engine is the heart of Kinetic - every mutation of the scene is a
// serializable Action, and Transition maps (State, Action) to a new State.
//
// ARCHITECTURE:
//
// Pure Transition Function:
// Transition never performs I/O, never reads the wall clock, and never
// generates identifiers. All identifiers arrive in the action payload.
// This ensures:
//   - Replaying the same action list yields bit-identical state everywhere
//   - The same function runs on clients and inside the sync coordinator
//   - History and collaboration layers can treat the log as the source of truth
//
// Copy-on-Write Snapshots:
// Each transition returns a fresh root State. Container headers (element map,
// selection slice, presence map) are copied up front and mutated entries are
// rebuilt, so snapshots handed to history or the network are never
// retroactively altered.
//
// Failure Semantics:
// Invalid targets (unknown id, locked element, cyclic group) and malformed
// payloads resolve as documented no-ops. Transition never panics on
// external input.
//
// Animation values are evaluated lazily by Interpolated; they are a
// presentation-time view and are never written back into State.
package scene
