// Package snap implements the alignment solver used during interactive
// moves. It is a pure function over the proposed position and the
// sibling elements; it holds no state and performs no I/O.
package snap

import (
	"math"

	"github.com/kinetichq/kinetic/internal/scene"
)

// DefaultThreshold is the snap distance in world-space pixels. It is
// scale-independent: zooming the viewport does not change snap feel in
// document coordinates.
const DefaultThreshold = 10

// Axis identifies which coordinate a guide constrains.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// Guide is one transient alignment line to draw while dragging.
type Guide struct {
	Axis  Axis    `json:"type"`
	Value float64 `json:"value"`
}

// Options controls which alignment candidates participate.
type Options struct {
	Enabled      bool
	SnapToEdges  bool
	SnapToCenter bool
	Threshold    float64
}

// DefaultOptions enables edge and center snapping at the default
// threshold.
func DefaultOptions() Options {
	return Options{
		Enabled:      true,
		SnapToEdges:  true,
		SnapToCenter: true,
		Threshold:    DefaultThreshold,
	}
}

// Result carries the possibly-adjusted position and the guides to draw.
type Result struct {
	X      float64
	Y      float64
	Guides []Guide
}

// box is an axis-aligned bounding box.
type box struct {
	x, y, w, h float64
}

// bounds computes an element's bounding box. Groups have no intrinsic
// geometry and report false.
func bounds(el scene.Element) (box, bool) {
	switch shape := el.Shape.(type) {
	case scene.Rect:
		return box{shape.Origin.X, shape.Origin.Y, shape.Width, shape.Height}, true
	case scene.Image:
		return box{shape.Origin.X, shape.Origin.Y, shape.Width, shape.Height}, true
	case scene.Circle:
		return box{shape.Center.X - shape.Radius, shape.Center.Y - shape.Radius, shape.Radius * 2, shape.Radius * 2}, true
	default:
		return box{}, false
	}
}

// candidate is one alignment point on an axis: the position and the
// offset from the box's leading edge.
type candidate struct {
	pos    float64
	offset float64
}

// candidates enumerates alignment points in the contract's fixed order:
// edges first (leading, trailing), then center. The enumeration order
// matters because a later match overwrites an earlier one on the same
// axis.
func candidates(lead, size float64, opts Options) []candidate {
	var out []candidate
	if opts.SnapToEdges {
		out = append(out,
			candidate{pos: lead, offset: 0},
			candidate{pos: lead + size, offset: size},
		)
	}
	if opts.SnapToCenter {
		out = append(out, candidate{pos: lead + size/2, offset: size / 2})
	}
	return out
}

// Calculate compares the moving element's bounding box at the proposed
// position against every visible sibling, snapping each axis
// independently when a pair of alignment points falls strictly within
// the threshold. Siblings are evaluated in the given order and a later
// match wins the snapped coordinate for its axis.
//
// With Enabled false the input position is returned unchanged and no
// guides are emitted.
func Calculate(movingID string, x, y float64, elements []scene.Element, opts Options) Result {
	result := Result{X: x, Y: y}
	if !opts.Enabled {
		return result
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var moving box
	found := false
	for _, el := range elements {
		if el.ID != movingID {
			continue
		}
		if b, ok := bounds(el); ok {
			moving = b
			found = true
		}
		break
	}
	if !found {
		return result
	}

	for _, el := range elements {
		if el.ID == movingID || !el.Visible {
			continue
		}
		target, ok := bounds(el)
		if !ok {
			continue
		}

		for _, t := range candidates(target.x, target.w, opts) {
			for _, s := range candidates(x, moving.w, opts) {
				if math.Abs(s.pos-t.pos) < threshold {
					result.X = t.pos - s.offset
					result.Guides = append(result.Guides, Guide{Axis: AxisX, Value: t.pos})
				}
			}
		}
		for _, t := range candidates(target.y, target.h, opts) {
			for _, s := range candidates(y, moving.h, opts) {
				if math.Abs(s.pos-t.pos) < threshold {
					result.Y = t.pos - s.offset
					result.Guides = append(result.Guides, Guide{Axis: AxisY, Value: t.pos})
				}
			}
		}
	}

	return result
}
