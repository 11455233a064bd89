package scene

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionJSON_RoundTrip(t *testing.T) {
	original := Action{
		Type: ActionAddElement,
		Payload: AddElementPayload{
			ID:    "el-1",
			Name:  "Hero",
			Shape: Rect{Origin: Point{X: 1, Y: 2}, Width: 3, Height: 4},
			Fill:  "#ff0000",
		},
		ServerSequence: 7,
		UserID:         "u-1",
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Action
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestActionJSON_StampsOmittedWhenZero(t *testing.T) {
	data, err := json.Marshal(Action{
		Type:    ActionRemoveElement,
		Payload: RemoveElementPayload{ID: "el-1"},
	})
	require.NoError(t, err)

	assert.NotContains(t, string(data), "serverSequence")
	assert.NotContains(t, string(data), "userId")
}

func TestActionJSON_ExternallyTaggedShape(t *testing.T) {
	data, err := json.Marshal(Action{
		Type: ActionAddElement,
		Payload: AddElementPayload{
			ID:    "el-1",
			Shape: Circle{Center: Point{X: 5, Y: 6}, Radius: 7},
		},
	})
	require.NoError(t, err)

	var wire struct {
		Payload struct {
			Shape map[string]json.RawMessage `json:"shape"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &wire))
	require.Len(t, wire.Payload.Shape, 1)
	assert.Contains(t, wire.Payload.Shape, "Circle")
}

func TestActionJSON_UnknownTypeDecodesToNoOp(t *testing.T) {
	var action Action
	err := json.Unmarshal([]byte(`{"type":"TELEPORT_ELEMENT","payload":{"id":"el-1"}}`), &action)
	require.NoError(t, err)

	assert.Equal(t, ActionType("TELEPORT_ELEMENT"), action.Type)
	assert.Nil(t, action.Payload)

	s := Transition(NewState(), addRect("el-1", 0, 0, 10, 10))
	assert.Equal(t, s, Transition(s, action))
}

func TestActionJSON_MalformedPayloadDecodesToNoOp(t *testing.T) {
	// dx has the wrong JSON type; the whole action must degrade to a
	// no-op rather than apply a half-decoded payload.
	var action Action
	err := json.Unmarshal([]byte(`{"type":"MOVE_ELEMENT","payload":{"id":"el-1","dx":"oops"}}`), &action)
	require.NoError(t, err)
	assert.Nil(t, action.Payload)
}

func TestActionJSON_BrokenEnvelopeIsError(t *testing.T) {
	var action Action
	err := json.Unmarshal([]byte(`{"type":42}`), &action)
	assert.Error(t, err)
}

func TestActionJSON_StampSurvivesRoundTrip(t *testing.T) {
	stamped := Action{
		Type:           ActionSetFill,
		Payload:        SetFillPayload{ID: "el-1", Fill: "#00ff00"},
		ServerSequence: 42,
		UserID:         "u-9",
	}
	data, err := json.Marshal(stamped)
	require.NoError(t, err)

	var decoded Action
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, int64(42), decoded.ServerSequence)
	assert.Equal(t, "u-9", decoded.UserID)
}

func TestShapeJSON_ExactlyOneVariantRequired(t *testing.T) {
	_, err := UnmarshalShape([]byte(`{}`))
	assert.Error(t, err)

	_, err = UnmarshalShape([]byte(`{"Rect":{"origin":{"x":0,"y":0},"width":1,"height":1},"Circle":{"center":{"x":0,"y":0},"radius":1}}`))
	assert.Error(t, err)

	shape, err := UnmarshalShape([]byte(`{"Rect":{"origin":{"x":1,"y":2},"width":3,"height":4}}`))
	require.NoError(t, err)
	assert.Equal(t, Rect{Origin: Point{X: 1, Y: 2}, Width: 3, Height: 4}, shape)
}

func TestElementJSON_RoundTrip(t *testing.T) {
	el := Element{
		ID:      "el-1",
		Name:    "Hero",
		Shape:   Image{Src: "cat.png", Width: 64, Height: 64, Origin: Point{X: 8, Y: 8}},
		Fill:    DefaultFill,
		Stroke:  "transparent",
		Shadow:  Shadow{Color: "transparent"},
		Opacity: 1,
		Visible: true,
		ZIndex:  3,
		Animations: map[string][]Keyframe{
			"x": {{Time: 0, Value: 8.0, Easing: EasingLinear}},
		},
	}

	data, err := json.Marshal(el)
	require.NoError(t, err)

	var decoded Element
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, el, decoded)
}

func TestUpdatePayloadJSON_PartialFieldsStayNil(t *testing.T) {
	var action Action
	err := json.Unmarshal([]byte(`{"type":"UPDATE_ELEMENT","payload":{"id":"el-1","updates":{"shape":{"Rect":{"width":50}}}}}`), &action)
	require.NoError(t, err)

	p, ok := action.Payload.(UpdateElementPayload)
	require.True(t, ok)
	require.NotNil(t, p.Updates.Shape)
	require.NotNil(t, p.Updates.Shape.Rect)
	assert.Nil(t, p.Updates.Shape.Rect.Origin)
	assert.Nil(t, p.Updates.Shape.Rect.Height)
	require.NotNil(t, p.Updates.Shape.Rect.Width)
	assert.Equal(t, 50.0, *p.Updates.Shape.Rect.Width)
	assert.Nil(t, p.Updates.Name)
}
