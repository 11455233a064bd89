package scene

import (
	"encoding/json"
	"fmt"
)

// Point is a 2D world-space coordinate pair.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is a sealed interface over the closed set of shape variants.
// Only Rect, Circle, Image, and Group implement it. Consumers must
// type-switch exhaustively; adding a variant is a compile-checked change.
type Shape interface {
	shape() // Sealed - only these types implement it
}

// Rect is an axis-aligned rectangle anchored at its top-left origin.
type Rect struct {
	Origin Point   `json:"origin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (Rect) shape() {}

// Circle is defined by its center and radius.
type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

func (Circle) shape() {}

// Image is a placed bitmap reference. Pixel decoding is a rendering
// concern; the engine only tracks placement geometry.
type Image struct {
	Src    string  `json:"src"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Origin Point   `json:"origin"`
}

func (Image) shape() {}

// Group carries an ordered list of member element ids. Groups do not
// define a coordinate frame - member geometry stays world-space.
type Group struct {
	Children []string `json:"children"`
}

func (Group) shape() {}

// shapeEnvelope is the externally-tagged wire form of a Shape,
// e.g. {"Rect": {"origin": ..., "width": ..., "height": ...}}.
// Exactly one field may be set.
type shapeEnvelope struct {
	Rect   *Rect   `json:"Rect,omitempty"`
	Circle *Circle `json:"Circle,omitempty"`
	Image  *Image  `json:"Image,omitempty"`
	Group  *Group  `json:"Group,omitempty"`
}

// envelopeOf wraps a Shape variant for serialization.
func envelopeOf(s Shape) shapeEnvelope {
	switch v := s.(type) {
	case Rect:
		return shapeEnvelope{Rect: &v}
	case Circle:
		return shapeEnvelope{Circle: &v}
	case Image:
		return shapeEnvelope{Image: &v}
	case Group:
		return shapeEnvelope{Group: &v}
	default:
		return shapeEnvelope{}
	}
}

// decode unwraps an envelope back into a Shape variant.
// Returns an error unless exactly one variant is present.
func (e shapeEnvelope) decode() (Shape, error) {
	set := 0
	var s Shape
	if e.Rect != nil {
		set++
		s = *e.Rect
	}
	if e.Circle != nil {
		set++
		s = *e.Circle
	}
	if e.Image != nil {
		set++
		s = *e.Image
	}
	if e.Group != nil {
		set++
		g := *e.Group
		g.Children = append([]string(nil), g.Children...)
		s = g
	}
	if set != 1 {
		return nil, fmt.Errorf("shape: expected exactly one variant, got %d", set)
	}
	return s, nil
}

// MarshalShape serializes a Shape into its externally-tagged form.
func MarshalShape(s Shape) ([]byte, error) {
	return json.Marshal(envelopeOf(s))
}

// UnmarshalShape parses an externally-tagged shape object.
func UnmarshalShape(data []byte) (Shape, error) {
	var env shapeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal shape: %w", err)
	}
	return env.decode()
}

// Shadow describes an element drop shadow.
type Shadow struct {
	Color string  `json:"color"`
	Blur  float64 `json:"blur"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// transparentShadow is the default for elements created without one.
var transparentShadow = Shadow{Color: "transparent"}

// Easing identifies a keyframe easing curve. Only linear blending is
// evaluated; the other kinds are carried for forward compatibility.
type Easing string

const (
	EasingLinear      Easing = "linear"
	EasingIn          Easing = "ease-in"
	EasingOut         Easing = "ease-out"
	EasingInOut       Easing = "ease-in-out"
	EasingBounce      Easing = "bounce"
	EasingElastic     Easing = "elastic"
	EasingCubicBezier Easing = "cubic-bezier"
)

// Keyframe is a (time, value, easing) sample on an animated property.
// Value is float64 for numeric properties; non-numeric values (colors,
// strings) are held rather than interpolated.
type Keyframe struct {
	Time   float64 `json:"time"`
	Value  any     `json:"value"`
	Easing Easing  `json:"easing"`
}

// Element is one entry in the scene document.
type Element struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Shape        Shape                 `json:"-"`
	Fill         string                `json:"fill"`
	Stroke       string                `json:"stroke"`
	StrokeWidth  float64               `json:"strokeWidth"`
	CornerRadius float64               `json:"cornerRadius"`
	Shadow       Shadow                `json:"shadow"`
	Opacity      float64               `json:"opacity"`
	Visible      bool                  `json:"visible"`
	Locked       bool                  `json:"locked"`
	ZIndex       int                   `json:"zIndex"`
	ParentID     string                `json:"parentId,omitempty"`
	Animations   map[string][]Keyframe `json:"animations"`
}

// elementWire mirrors Element with the shape in envelope form.
// Field order here defines the serialized field order.
type elementWire struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Shape        shapeEnvelope         `json:"shape"`
	Fill         string                `json:"fill"`
	Stroke       string                `json:"stroke"`
	StrokeWidth  float64               `json:"strokeWidth"`
	CornerRadius float64               `json:"cornerRadius"`
	Shadow       Shadow                `json:"shadow"`
	Opacity      float64               `json:"opacity"`
	Visible      bool                  `json:"visible"`
	Locked       bool                  `json:"locked"`
	ZIndex       int                   `json:"zIndex"`
	ParentID     string                `json:"parentId,omitempty"`
	Animations   map[string][]Keyframe `json:"animations"`
}

// MarshalJSON implements json.Marshaler with the tagged shape form.
func (e Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(elementWire{
		ID:           e.ID,
		Name:         e.Name,
		Shape:        envelopeOf(e.Shape),
		Fill:         e.Fill,
		Stroke:       e.Stroke,
		StrokeWidth:  e.StrokeWidth,
		CornerRadius: e.CornerRadius,
		Shadow:       e.Shadow,
		Opacity:      e.Opacity,
		Visible:      e.Visible,
		Locked:       e.Locked,
		ZIndex:       e.ZIndex,
		ParentID:     e.ParentID,
		Animations:   e.Animations,
	})
}

// UnmarshalJSON implements json.Unmarshaler with the tagged shape form.
func (e *Element) UnmarshalJSON(data []byte) error {
	var w elementWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal element: %w", err)
	}
	shape, err := w.Shape.decode()
	if err != nil {
		return fmt.Errorf("unmarshal element %s: %w", w.ID, err)
	}
	*e = Element{
		ID:           w.ID,
		Name:         w.Name,
		Shape:        shape,
		Fill:         w.Fill,
		Stroke:       w.Stroke,
		StrokeWidth:  w.StrokeWidth,
		CornerRadius: w.CornerRadius,
		Shadow:       w.Shadow,
		Opacity:      w.Opacity,
		Visible:      w.Visible,
		Locked:       w.Locked,
		ZIndex:       w.ZIndex,
		ParentID:     w.ParentID,
		Animations:   w.Animations,
	}
	return nil
}

// Transform is the viewport camera: screen = world*Scale + (X, Y).
type Transform struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
}

// Presence is a collaborator's live cursor state.
type Presence struct {
	UserID string `json:"userId"`
	Cursor Point  `json:"cursor"`
	Color  string `json:"color"`
}

// State is the root scene snapshot. It is recreated (never mutated in
// place) by every Transition; prior snapshots stay valid for history
// and network replay.
type State struct {
	Elements    map[string]Element  `json:"elements"`
	Selection   []string            `json:"selection"`
	Transform   Transform           `json:"transform"`
	Presence    map[string]Presence `json:"presence"`
	CurrentTime float64             `json:"currentTime"`
	Duration    float64             `json:"duration"`
	IsPlaying   bool                `json:"isPlaying"`
}

// DefaultDuration is the timeline length of a fresh document, in ms.
const DefaultDuration = 5000

// NewState returns the canonical initial document state. Replaying a
// project's action log always starts from this value.
func NewState() State {
	return State{
		Elements:  map[string]Element{},
		Selection: []string{},
		Transform: Transform{Scale: 1},
		Presence:  map[string]Presence{},
		Duration:  DefaultDuration,
	}
}
