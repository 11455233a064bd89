package scene

import (
	"encoding/json"
	"fmt"
)

// ActionType identifies one mutation kind on the wire.
type ActionType string

const (
	ActionAddElement       ActionType = "ADD_ELEMENT"
	ActionRemoveElement    ActionType = "REMOVE_ELEMENT"
	ActionMoveElement      ActionType = "MOVE_ELEMENT"
	ActionSetFill          ActionType = "SET_FILL"
	ActionSetView          ActionType = "SET_VIEW"
	ActionUpdatePresence   ActionType = "UPDATE_PRESENCE"
	ActionGroupElements    ActionType = "GROUP_ELEMENTS"
	ActionUngroupElements  ActionType = "UNGROUP_ELEMENTS"
	ActionSetTime          ActionType = "SET_TIME"
	ActionTogglePlayback   ActionType = "TOGGLE_PLAYBACK"
	ActionAddKeyframe      ActionType = "ADD_KEYFRAME"
	ActionUpdateElement    ActionType = "UPDATE_ELEMENT"
	ActionSetSelection     ActionType = "SET_SELECTION"
	ActionDuplicateElement ActionType = "DUPLICATE_ELEMENT"
	ActionReorderElements  ActionType = "REORDER_ELEMENTS"
	ActionLockElement      ActionType = "LOCK_ELEMENT"
	ActionUnlockElement    ActionType = "UNLOCK_ELEMENT"
	ActionToggleVisibility ActionType = "TOGGLE_VISIBILITY"
)

// Payload is the sealed interface over action payloads. A nil Payload
// means the action decodes to a no-op (unknown type or malformed body).
type Payload interface {
	payload() // Sealed - only the payload structs below implement it
}

// Action is one serializable scene mutation.
//
// ServerSequence and UserID are zero on locally created actions; the
// sync coordinator stamps them before persisting and rebroadcasting.
type Action struct {
	Type           ActionType
	Payload        Payload
	ServerSequence int64
	UserID         string
}

// AddElementPayload creates a new element. Optional visual fields fall
// back to engine defaults when absent.
type AddElementPayload struct {
	ID           string
	Name         string
	Shape        Shape
	Fill         string
	Stroke       string
	StrokeWidth  float64
	CornerRadius float64
	Shadow       *Shadow
	Opacity      *float64
}

func (AddElementPayload) payload() {}

// addElementWire carries AddElementPayload with the tagged shape form.
type addElementWire struct {
	ID           string        `json:"id"`
	Name         string        `json:"name,omitempty"`
	Shape        shapeEnvelope `json:"shape"`
	Fill         string        `json:"fill,omitempty"`
	Stroke       string        `json:"stroke,omitempty"`
	StrokeWidth  float64       `json:"strokeWidth,omitempty"`
	CornerRadius float64       `json:"cornerRadius,omitempty"`
	Shadow       *Shadow       `json:"shadow,omitempty"`
	Opacity      *float64      `json:"opacity,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p AddElementPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(addElementWire{
		ID:           p.ID,
		Name:         p.Name,
		Shape:        envelopeOf(p.Shape),
		Fill:         p.Fill,
		Stroke:       p.Stroke,
		StrokeWidth:  p.StrokeWidth,
		CornerRadius: p.CornerRadius,
		Shadow:       p.Shadow,
		Opacity:      p.Opacity,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *AddElementPayload) UnmarshalJSON(data []byte) error {
	var w addElementWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	shape, err := w.Shape.decode()
	if err != nil {
		return err
	}
	*p = AddElementPayload{
		ID:           w.ID,
		Name:         w.Name,
		Shape:        shape,
		Fill:         w.Fill,
		Stroke:       w.Stroke,
		StrokeWidth:  w.StrokeWidth,
		CornerRadius: w.CornerRadius,
		Shadow:       w.Shadow,
		Opacity:      w.Opacity,
	}
	return nil
}

// RemoveElementPayload deletes an element by id.
type RemoveElementPayload struct {
	ID string `json:"id"`
}

func (RemoveElementPayload) payload() {}

// MoveElementPayload translates an element (and, for groups, every
// descendant) by a world-space delta.
type MoveElementPayload struct {
	ID string  `json:"id"`
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (MoveElementPayload) payload() {}

// SetFillPayload sets an element's fill color.
type SetFillPayload struct {
	ID   string `json:"id"`
	Fill string `json:"fill"`
}

func (SetFillPayload) payload() {}

// SetViewPayload replaces the viewport transform.
type SetViewPayload struct {
	Transform Transform `json:"transform"`
}

func (SetViewPayload) payload() {}

// UpdatePresencePayload records a collaborator's cursor.
type UpdatePresencePayload struct {
	Presence Presence `json:"presence"`
}

func (UpdatePresencePayload) payload() {}

// GroupElementsPayload creates a group element over the listed children.
type GroupElementsPayload struct {
	GroupID  string   `json:"groupId"`
	Children []string `json:"children"`
}

func (GroupElementsPayload) payload() {}

// UngroupElementsPayload dissolves a group, keeping its children.
type UngroupElementsPayload struct {
	GroupID string `json:"groupId"`
}

func (UngroupElementsPayload) payload() {}

// SetTimePayload moves the playhead. Times past the document duration
// wrap to zero so playback loops instead of clamping.
type SetTimePayload struct {
	Time float64 `json:"time"`
}

func (SetTimePayload) payload() {}

// TogglePlaybackPayload flips the playing flag.
type TogglePlaybackPayload struct{}

func (TogglePlaybackPayload) payload() {}

// AddKeyframePayload inserts (or replaces, on equal time) a keyframe on
// one animated property.
type AddKeyframePayload struct {
	ElementID string   `json:"elementId"`
	Property  string   `json:"property"`
	Keyframe  Keyframe `json:"keyframe"`
}

func (AddKeyframePayload) payload() {}

// UpdateElementPayload applies a recursive partial merge to an element.
type UpdateElementPayload struct {
	ID      string         `json:"id"`
	Updates ElementUpdates `json:"updates"`
}

func (UpdateElementPayload) payload() {}

// SetSelectionPayload replaces the selection. Duplicate ids are dropped,
// first occurrence wins.
type SetSelectionPayload struct {
	IDs []string `json:"ids"`
}

func (SetSelectionPayload) payload() {}

// DuplicateElementPayload deep-copies an element under a caller-supplied
// new id.
type DuplicateElementPayload struct {
	SourceID string `json:"sourceId"`
	NewID    string `json:"newId"`
}

func (DuplicateElementPayload) payload() {}

// ReorderDirection selects a z-order move.
type ReorderDirection string

const (
	ReorderUp     ReorderDirection = "up"
	ReorderDown   ReorderDirection = "down"
	ReorderTop    ReorderDirection = "top"
	ReorderBottom ReorderDirection = "bottom"
)

// ReorderElementsPayload moves an element within the z-order.
type ReorderElementsPayload struct {
	ID        string           `json:"id"`
	Direction ReorderDirection `json:"direction"`
}

func (ReorderElementsPayload) payload() {}

// LockElementPayload marks an element immutable to move/update actions.
type LockElementPayload struct {
	ID string `json:"id"`
}

func (LockElementPayload) payload() {}

// UnlockElementPayload clears the locked flag.
type UnlockElementPayload struct {
	ID string `json:"id"`
}

func (UnlockElementPayload) payload() {}

// ToggleVisibilityPayload flips an element's visible flag.
type ToggleVisibilityPayload struct {
	ID string `json:"id"`
}

func (ToggleVisibilityPayload) payload() {}

// actionWire is the serialized form of an Action. The stamp fields are
// omitted until the coordinator assigns them.
type actionWire struct {
	Type           ActionType      `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	ServerSequence int64           `json:"serverSequence,omitempty"`
	UserID         string          `json:"userId,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (a Action) MarshalJSON() ([]byte, error) {
	var payload json.RawMessage
	if a.Payload != nil {
		data, err := json.Marshal(a.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", a.Type, err)
		}
		payload = data
	} else {
		payload = json.RawMessage("{}")
	}
	return json.Marshal(actionWire{
		Type:           a.Type,
		Payload:        payload,
		ServerSequence: a.ServerSequence,
		UserID:         a.UserID,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
//
// Unknown action types and malformed payload bodies decode successfully
// into an Action with a nil Payload, which Transition treats as a no-op.
// Only a broken outer envelope is an error: that indicates a corrupt
// message, not an unsupported mutation.
func (a *Action) UnmarshalJSON(data []byte) error {
	var w actionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal action: %w", err)
	}
	*a = Action{
		Type:           w.Type,
		ServerSequence: w.ServerSequence,
		UserID:         w.UserID,
	}
	if len(w.Payload) == 0 {
		return nil
	}
	payload, err := decodePayload(w.Type, w.Payload)
	if err != nil {
		// Reject the whole action: a partially decoded payload must
		// never be applied (documented malformed-payload policy).
		return nil
	}
	a.Payload = payload
	return nil
}

// decodePayload parses the payload body for a known action type.
func decodePayload(t ActionType, data json.RawMessage) (Payload, error) {
	unmarshal := func(v Payload) (Payload, error) {
		if err := json.Unmarshal(data, v); err != nil {
			return nil, err
		}
		return v, nil
	}

	switch t {
	case ActionAddElement:
		p, err := unmarshal(&AddElementPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*AddElementPayload), nil
	case ActionRemoveElement:
		p, err := unmarshal(&RemoveElementPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*RemoveElementPayload), nil
	case ActionMoveElement:
		p, err := unmarshal(&MoveElementPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*MoveElementPayload), nil
	case ActionSetFill:
		p, err := unmarshal(&SetFillPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*SetFillPayload), nil
	case ActionSetView:
		p, err := unmarshal(&SetViewPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*SetViewPayload), nil
	case ActionUpdatePresence:
		p, err := unmarshal(&UpdatePresencePayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*UpdatePresencePayload), nil
	case ActionGroupElements:
		p, err := unmarshal(&GroupElementsPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*GroupElementsPayload), nil
	case ActionUngroupElements:
		p, err := unmarshal(&UngroupElementsPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*UngroupElementsPayload), nil
	case ActionSetTime:
		p, err := unmarshal(&SetTimePayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*SetTimePayload), nil
	case ActionTogglePlayback:
		return TogglePlaybackPayload{}, nil
	case ActionAddKeyframe:
		p, err := unmarshal(&AddKeyframePayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*AddKeyframePayload), nil
	case ActionUpdateElement:
		p, err := unmarshal(&UpdateElementPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*UpdateElementPayload), nil
	case ActionSetSelection:
		p, err := unmarshal(&SetSelectionPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*SetSelectionPayload), nil
	case ActionDuplicateElement:
		p, err := unmarshal(&DuplicateElementPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*DuplicateElementPayload), nil
	case ActionReorderElements:
		p, err := unmarshal(&ReorderElementsPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*ReorderElementsPayload), nil
	case ActionLockElement:
		p, err := unmarshal(&LockElementPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*LockElementPayload), nil
	case ActionUnlockElement:
		p, err := unmarshal(&UnlockElementPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*UnlockElementPayload), nil
	case ActionToggleVisibility:
		p, err := unmarshal(&ToggleVisibilityPayload{})
		if err != nil {
			return nil, err
		}
		return *p.(*ToggleVisibilityPayload), nil
	default:
		return nil, fmt.Errorf("unknown action type %q", t)
	}
}
