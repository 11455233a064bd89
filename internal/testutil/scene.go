package testutil

import "github.com/kinetichq/kinetic/internal/scene"

// AddRect builds an ADD_ELEMENT action for a rectangle at (x, y).
func AddRect(id string, x, y, w, h float64) scene.Action {
	return scene.Action{
		Type: scene.ActionAddElement,
		Payload: scene.AddElementPayload{
			ID:    id,
			Shape: scene.Rect{Origin: scene.Point{X: x, Y: y}, Width: w, Height: h},
		},
	}
}

// AddCircle builds an ADD_ELEMENT action for a circle centered at (x, y).
func AddCircle(id string, x, y, r float64) scene.Action {
	return scene.Action{
		Type: scene.ActionAddElement,
		Payload: scene.AddElementPayload{
			ID:    id,
			Shape: scene.Circle{Center: scene.Point{X: x, Y: y}, Radius: r},
		},
	}
}

// Move builds a MOVE_ELEMENT action.
func Move(id string, dx, dy float64) scene.Action {
	return scene.Action{
		Type:    scene.ActionMoveElement,
		Payload: scene.MoveElementPayload{ID: id, DX: dx, DY: dy},
	}
}

// SetFill builds a SET_FILL action.
func SetFill(id, fill string) scene.Action {
	return scene.Action{
		Type:    scene.ActionSetFill,
		Payload: scene.SetFillPayload{ID: id, Fill: fill},
	}
}

// Remove builds a REMOVE_ELEMENT action.
func Remove(id string) scene.Action {
	return scene.Action{
		Type:    scene.ActionRemoveElement,
		Payload: scene.RemoveElementPayload{ID: id},
	}
}

// Select builds a SET_SELECTION action.
func Select(ids ...string) scene.Action {
	return scene.Action{
		Type:    scene.ActionSetSelection,
		Payload: scene.SetSelectionPayload{IDs: ids},
	}
}

// Group builds a GROUP_ELEMENTS action.
func Group(groupID string, children ...string) scene.Action {
	return scene.Action{
		Type:    scene.ActionGroupElements,
		Payload: scene.GroupElementsPayload{GroupID: groupID, Children: children},
	}
}
