package room

import "github.com/kinetichq/kinetic/internal/scene"

// MessageSyncState is the type tag of the snapshot message a member
// receives on join. All other room messages are plain actions and carry
// their own action type tag.
const MessageSyncState = "SYNC_STATE"

// SyncMessage is the full-document snapshot sent once per join. After
// receiving it a client applies forwarded actions in serverSequence
// order; a gap means a missed message and calls for a rejoin.
type SyncMessage struct {
	Type    string      `json:"type"`
	Payload SyncPayload `json:"payload"`
}

// SyncPayload carries the authoritative state and the sequence it
// reflects.
type SyncPayload struct {
	State    scene.State `json:"state"`
	Sequence int64       `json:"sequence"`
}

// SyncState builds the join snapshot for the given state and sequence.
func SyncState(state scene.State, sequence int64) SyncMessage {
	return SyncMessage{
		Type: MessageSyncState,
		Payload: SyncPayload{
			State:    state,
			Sequence: sequence,
		},
	}
}
