package scene

// cloneShape returns a Shape that shares no mutable storage with s.
// Rect, Circle and Image are plain values; only Group carries a slice.
func cloneShape(s Shape) Shape {
	if g, ok := s.(Group); ok {
		return Group{Children: append([]string(nil), g.Children...)}
	}
	return s
}

// cloneAnimations deep-copies a keyframe map so a rebuilt element never
// aliases the tracks of a prior snapshot.
func cloneAnimations(animations map[string][]Keyframe) map[string][]Keyframe {
	out := make(map[string][]Keyframe, len(animations))
	for prop, track := range animations {
		out[prop] = append([]Keyframe(nil), track...)
	}
	return out
}

// cloneElement returns a fully detached copy of el.
func cloneElement(el Element) Element {
	el.Shape = cloneShape(el.Shape)
	el.Animations = cloneAnimations(el.Animations)
	return el
}
