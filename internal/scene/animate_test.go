package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func animatedRect(t *testing.T, keyframes ...Keyframe) State {
	t.Helper()
	s := Transition(NewState(), addRect("el-1", 0, 0, 10, 10))
	for _, kf := range keyframes {
		s = Transition(s, Action{Type: ActionAddKeyframe, Payload: AddKeyframePayload{
			ElementID: "el-1",
			Property:  "x",
			Keyframe:  kf,
		}})
	}
	return s
}

func atTime(s State, time float64) State {
	return Transition(s, Action{Type: ActionSetTime, Payload: SetTimePayload{Time: time}})
}

func TestInterpolated_LinearBlend(t *testing.T) {
	s := animatedRect(t,
		Keyframe{Time: 0, Value: 0.0, Easing: EasingLinear},
		Keyframe{Time: 1000, Value: 100.0, Easing: EasingLinear},
	)

	view := Interpolated(atTime(s, 250))
	assert.Equal(t, 25.0, view["el-1"].Shape.(Rect).Origin.X)

	view = Interpolated(atTime(s, 500))
	assert.Equal(t, 50.0, view["el-1"].Shape.(Rect).Origin.X)
}

func TestInterpolated_HoldsAtBoundaries(t *testing.T) {
	s := animatedRect(t,
		Keyframe{Time: 1000, Value: 10.0},
		Keyframe{Time: 2000, Value: 20.0},
	)

	// Before the first keyframe: hold the first value.
	view := Interpolated(atTime(s, 0))
	assert.Equal(t, 10.0, view["el-1"].Shape.(Rect).Origin.X)

	// Past the last keyframe: hold the last value, no extrapolation.
	view = Interpolated(atTime(s, 3000))
	assert.Equal(t, 20.0, view["el-1"].Shape.(Rect).Origin.X)
}

func TestInterpolated_SingleKeyframeHoldsEverywhere(t *testing.T) {
	s := animatedRect(t, Keyframe{Time: 500, Value: 42.0})

	for _, tm := range []float64{0, 500, 4000} {
		view := Interpolated(atTime(s, tm))
		assert.Equal(t, 42.0, view["el-1"].Shape.(Rect).Origin.X)
	}
}

func TestInterpolated_NonNumericHolds(t *testing.T) {
	s := Transition(NewState(), addRect("el-1", 0, 0, 10, 10))
	for _, kf := range []Keyframe{
		{Time: 0, Value: "#ff0000"},
		{Time: 1000, Value: "#0000ff"},
	} {
		s = Transition(s, Action{Type: ActionAddKeyframe, Payload: AddKeyframePayload{
			ElementID: "el-1",
			Property:  "fill",
			Keyframe:  kf,
		}})
	}

	view := Interpolated(atTime(s, 500))
	assert.Equal(t, "#ff0000", view["el-1"].Fill)

	view = Interpolated(atTime(s, 1000))
	assert.Equal(t, "#0000ff", view["el-1"].Fill)
}

func TestInterpolated_DoesNotTouchAuthoredState(t *testing.T) {
	s := animatedRect(t,
		Keyframe{Time: 0, Value: 0.0},
		Keyframe{Time: 1000, Value: 100.0},
	)
	s = atTime(s, 500)

	_ = Interpolated(s)

	// The document keeps the authored geometry; interpolation is a view.
	assert.Equal(t, 0.0, s.Elements["el-1"].Shape.(Rect).Origin.X)
}

func TestInterpolated_OpacityClamped(t *testing.T) {
	s := Transition(NewState(), addRect("el-1", 0, 0, 10, 10))
	for _, kf := range []Keyframe{
		{Time: 0, Value: 0.0},
		{Time: 1000, Value: 2.0},
	} {
		s = Transition(s, Action{Type: ActionAddKeyframe, Payload: AddKeyframePayload{
			ElementID: "el-1",
			Property:  "opacity",
			Keyframe:  kf,
		}})
	}

	view := Interpolated(atTime(s, 1000))
	assert.Equal(t, 1.0, view["el-1"].Opacity)
}

func TestInterpolated_UnknownPropertyIgnored(t *testing.T) {
	s := Transition(NewState(), addRect("el-1", 0, 0, 10, 10))
	s = Transition(s, Action{Type: ActionAddKeyframe, Payload: AddKeyframePayload{
		ElementID: "el-1",
		Property:  "wobble",
		Keyframe:  Keyframe{Time: 0, Value: 1.0},
	}})

	require.NotPanics(t, func() { _ = Interpolated(atTime(s, 0)) })
	view := Interpolated(atTime(s, 0))
	assert.Equal(t, s.Elements["el-1"].Shape, view["el-1"].Shape)
}

func TestInterpolated_ElementWithoutAnimationsSharedAsIs(t *testing.T) {
	s := Transition(NewState(), addRect("el-1", 3, 4, 10, 10))
	view := Interpolated(s)
	assert.Equal(t, s.Elements["el-1"], view["el-1"])
}

func TestInterpolated_RadiusTrack(t *testing.T) {
	s := Transition(NewState(), addCircle("el-1", 0, 0, 10))
	for _, kf := range []Keyframe{
		{Time: 0, Value: 10.0},
		{Time: 1000, Value: 30.0},
	} {
		s = Transition(s, Action{Type: ActionAddKeyframe, Payload: AddKeyframePayload{
			ElementID: "el-1",
			Property:  "radius",
			Keyframe:  kf,
		}})
	}

	view := Interpolated(atTime(s, 500))
	assert.Equal(t, 20.0, view["el-1"].Shape.(Circle).Radius)
}
