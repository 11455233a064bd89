// Package server exposes the sync coordinator over HTTP.
//
// Two surfaces share one listener:
//
//   - REST endpoints under /api for project lifecycle: create, fetch,
//     checkpoint, and rollback.
//   - A WebSocket endpoint at /ws that joins a client to a project's
//     room. The first frame a client receives is the SYNC_STATE
//     snapshot; every later frame is a stamped action to apply in
//     serverSequence order.
//
// All inbound text is normalized to Unicode NFC before decoding, so
// two clients typing the same element name with different codepoint
// compositions converge on identical state bytes.
package server
