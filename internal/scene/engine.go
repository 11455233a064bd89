package scene

import (
	"fmt"
	"sort"
)

// DefaultFill is assigned to elements created without an explicit fill.
const DefaultFill = "#3b82f6"

// Transition is the engine's state-transition function.
//
// It is pure and total: for every action it either produces a new state
// deterministically or returns the input state unchanged (documented
// no-op). It must never read the wall clock, generate ids, or perform
// I/O - ids and timestamps always arrive inside the action payload.
func Transition(s State, a Action) State {
	if a.Payload == nil {
		// Unknown action type or rejected malformed payload.
		return s
	}

	switch p := a.Payload.(type) {
	case AddElementPayload:
		return applyAdd(s, p)
	case RemoveElementPayload:
		return applyRemove(s, p)
	case MoveElementPayload:
		return applyMove(s, p)
	case SetFillPayload:
		return applySetFill(s, p)
	case SetViewPayload:
		return applySetView(s, p)
	case UpdatePresencePayload:
		return applyPresence(s, p)
	case GroupElementsPayload:
		return applyGroup(s, p)
	case UngroupElementsPayload:
		return applyUngroup(s, p)
	case SetTimePayload:
		return applySetTime(s, p)
	case TogglePlaybackPayload:
		return applyTogglePlayback(s)
	case AddKeyframePayload:
		return applyAddKeyframe(s, p)
	case UpdateElementPayload:
		return applyUpdate(s, p)
	case SetSelectionPayload:
		return applySelection(s, p)
	case DuplicateElementPayload:
		return applyDuplicate(s, p)
	case ReorderElementsPayload:
		return applyReorder(s, p)
	case LockElementPayload:
		return applySetLocked(s, p.ID, true)
	case UnlockElementPayload:
		return applySetLocked(s, p.ID, false)
	case ToggleVisibilityPayload:
		return applyToggleVisibility(s, p)
	default:
		return s
	}
}

// Replay folds an ordered action list over an initial state. Two
// replicas replaying the same list from the same start converge to
// bit-identical state.
func Replay(initial State, actions []Action) State {
	s := initial
	for _, a := range actions {
		s = Transition(s, a)
	}
	return s
}

// fork copies the container headers of s so the returned state can be
// mutated without touching the previous snapshot. Element values are
// shared until individually rebuilt.
func fork(s State) State {
	elements := make(map[string]Element, len(s.Elements))
	for id, el := range s.Elements {
		elements[id] = el
	}
	next := s
	next.Elements = elements
	next.Selection = append([]string(nil), s.Selection...)
	presence := make(map[string]Presence, len(s.Presence))
	for id, p := range s.Presence {
		presence[id] = p
	}
	next.Presence = presence
	return next
}

func applyAdd(s State, p AddElementPayload) State {
	if p.ID == "" || p.Shape == nil {
		return s
	}
	if _, exists := s.Elements[p.ID]; exists {
		return s
	}

	next := fork(s)

	name := p.Name
	if name == "" {
		name = fmt.Sprintf("Element %d", len(s.Elements)+1)
	}
	fill := p.Fill
	if fill == "" {
		fill = DefaultFill
	}
	stroke := p.Stroke
	if stroke == "" {
		stroke = "transparent"
	}
	shadow := transparentShadow
	if p.Shadow != nil {
		shadow = *p.Shadow
	}
	opacity := 1.0
	if p.Opacity != nil {
		opacity = clampOpacity(*p.Opacity)
	}

	next.Elements[p.ID] = Element{
		ID:           p.ID,
		Name:         name,
		Shape:        cloneShape(p.Shape),
		Fill:         fill,
		Stroke:       stroke,
		StrokeWidth:  p.StrokeWidth,
		CornerRadius: p.CornerRadius,
		Shadow:       shadow,
		Opacity:      opacity,
		Visible:      true,
		ZIndex:       len(s.Elements),
		Animations:   map[string][]Keyframe{},
	}
	return next
}

func applyRemove(s State, p RemoveElementPayload) State {
	el, ok := s.Elements[p.ID]
	if !ok {
		return s
	}

	next := fork(s)
	delete(next.Elements, p.ID)
	next.Selection = removeID(next.Selection, p.ID)

	// Keep referential integrity: prune the id from its parent group and,
	// if the removed element was itself a group, orphan its children
	// in place (they keep their world-space geometry).
	if el.ParentID != "" {
		if parent, ok := next.Elements[el.ParentID]; ok {
			if g, isGroup := parent.Shape.(Group); isGroup {
				parent.Shape = Group{Children: removeID(append([]string(nil), g.Children...), p.ID)}
				next.Elements[el.ParentID] = parent
			}
		}
	}
	if g, isGroup := el.Shape.(Group); isGroup {
		for _, childID := range g.Children {
			if child, ok := next.Elements[childID]; ok && child.ParentID == p.ID {
				child.ParentID = ""
				next.Elements[childID] = child
			}
		}
	}
	return next
}

func applyMove(s State, p MoveElementPayload) State {
	el, ok := s.Elements[p.ID]
	if !ok || el.Locked {
		return s
	}
	next := fork(s)
	translate(next.Elements, p.ID, p.DX, p.DY, map[string]bool{})
	return next
}

// translate shifts one element, recursing depth-first through group
// members. The visited set guards against cyclic child references that
// slipped into a persisted document.
func translate(elements map[string]Element, id string, dx, dy float64, visited map[string]bool) {
	if visited[id] {
		return
	}
	visited[id] = true

	el, ok := elements[id]
	if !ok {
		return
	}
	switch shape := el.Shape.(type) {
	case Rect:
		shape.Origin.X += dx
		shape.Origin.Y += dy
		el.Shape = shape
	case Circle:
		shape.Center.X += dx
		shape.Center.Y += dy
		el.Shape = shape
	case Image:
		shape.Origin.X += dx
		shape.Origin.Y += dy
		el.Shape = shape
	case Group:
		for _, childID := range shape.Children {
			translate(elements, childID, dx, dy, visited)
		}
	}
	elements[id] = el
}

func applySetFill(s State, p SetFillPayload) State {
	el, ok := s.Elements[p.ID]
	if !ok || el.Locked {
		return s
	}
	next := fork(s)
	el.Fill = p.Fill
	next.Elements[p.ID] = el
	return next
}

func applySetView(s State, p SetViewPayload) State {
	if p.Transform.Scale <= 0 {
		return s
	}
	next := fork(s)
	next.Transform = p.Transform
	return next
}

func applyPresence(s State, p UpdatePresencePayload) State {
	if p.Presence.UserID == "" {
		return s
	}
	next := fork(s)
	next.Presence[p.Presence.UserID] = p.Presence
	return next
}

func applyGroup(s State, p GroupElementsPayload) State {
	if p.GroupID == "" {
		return s
	}
	if _, exists := s.Elements[p.GroupID]; exists {
		return s
	}

	// Accept only children that exist and are not the group itself.
	children := make([]string, 0, len(p.Children))
	for _, id := range p.Children {
		if id == p.GroupID {
			continue
		}
		if _, ok := s.Elements[id]; ok {
			children = append(children, id)
		}
	}
	if len(children) == 0 {
		return s
	}
	// Reject the whole action if any child transitively contains the
	// group id (documented cycle policy: reject, don't repair).
	for _, id := range children {
		if containsDescendant(s.Elements, id, p.GroupID, map[string]bool{}) {
			return s
		}
	}

	next := fork(s)
	next.Elements[p.GroupID] = Element{
		ID:         p.GroupID,
		Name:       fmt.Sprintf("Group %d", len(s.Elements)+1),
		Shape:      Group{Children: children},
		Fill:       "transparent",
		Stroke:     "transparent",
		Shadow:     transparentShadow,
		Opacity:    1,
		Visible:    true,
		ZIndex:     len(s.Elements),
		Animations: map[string][]Keyframe{},
	}
	for _, childID := range children {
		child := next.Elements[childID]
		// Re-parenting removes the child from its previous group.
		if child.ParentID != "" && child.ParentID != p.GroupID {
			if prev, ok := next.Elements[child.ParentID]; ok {
				if g, isGroup := prev.Shape.(Group); isGroup {
					prev.Shape = Group{Children: removeID(append([]string(nil), g.Children...), childID)}
					next.Elements[child.ParentID] = prev
				}
			}
		}
		child.ParentID = p.GroupID
		next.Elements[childID] = child
	}
	return next
}

// containsDescendant reports whether target appears in the subtree
// rooted at id.
func containsDescendant(elements map[string]Element, id, target string, visited map[string]bool) bool {
	if id == target {
		return true
	}
	if visited[id] {
		return false
	}
	visited[id] = true
	el, ok := elements[id]
	if !ok {
		return false
	}
	g, isGroup := el.Shape.(Group)
	if !isGroup {
		return false
	}
	for _, childID := range g.Children {
		if containsDescendant(elements, childID, target, visited) {
			return true
		}
	}
	return false
}

func applyUngroup(s State, p UngroupElementsPayload) State {
	group, ok := s.Elements[p.GroupID]
	if !ok {
		return s
	}
	g, isGroup := group.Shape.(Group)
	if !isGroup {
		return s
	}

	next := fork(s)
	for _, childID := range g.Children {
		if child, ok := next.Elements[childID]; ok && child.ParentID == p.GroupID {
			child.ParentID = ""
			next.Elements[childID] = child
		}
	}
	delete(next.Elements, p.GroupID)
	next.Selection = removeID(next.Selection, p.GroupID)
	return next
}

func applySetTime(s State, p SetTimePayload) State {
	next := fork(s)
	t := p.Time
	// Advancing past the end of the timeline loops back to the start;
	// negative times pin to zero.
	if t > s.Duration || t < 0 {
		t = 0
	}
	next.CurrentTime = t
	return next
}

func applyTogglePlayback(s State) State {
	next := fork(s)
	next.IsPlaying = !s.IsPlaying
	return next
}

func applyAddKeyframe(s State, p AddKeyframePayload) State {
	el, ok := s.Elements[p.ElementID]
	if !ok || p.Property == "" || p.Keyframe.Time < 0 {
		return s
	}

	next := fork(s)
	el.Animations = cloneAnimations(el.Animations)

	track := el.Animations[p.Property]
	// Equal-time keyframes replace rather than append.
	filtered := make([]Keyframe, 0, len(track)+1)
	for _, kf := range track {
		if kf.Time != p.Keyframe.Time {
			filtered = append(filtered, kf)
		}
	}
	filtered = append(filtered, p.Keyframe)
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Time < filtered[j].Time })
	el.Animations[p.Property] = filtered

	next.Elements[p.ElementID] = el
	return next
}

func applyUpdate(s State, p UpdateElementPayload) State {
	el, ok := s.Elements[p.ID]
	if !ok || el.Locked {
		return s
	}
	next := fork(s)
	el.Shape = cloneShape(el.Shape)
	next.Elements[p.ID] = mergeElement(el, p.Updates)
	return next
}

func applySelection(s State, p SetSelectionPayload) State {
	next := fork(s)
	seen := make(map[string]bool, len(p.IDs))
	selection := make([]string, 0, len(p.IDs))
	for _, id := range p.IDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		selection = append(selection, id)
	}
	next.Selection = selection
	return next
}

func applyDuplicate(s State, p DuplicateElementPayload) State {
	source, ok := s.Elements[p.SourceID]
	if !ok || p.NewID == "" {
		return s
	}
	if _, exists := s.Elements[p.NewID]; exists {
		return s
	}
	// Duplicating a group would put each member under two parents.
	// Callers duplicate group members individually instead.
	if _, isGroup := source.Shape.(Group); isGroup {
		return s
	}

	next := fork(s)
	clone := source
	clone.ID = p.NewID
	clone.Name = source.Name + " (copy)"
	clone.ZIndex = len(s.Elements)
	clone.ParentID = ""
	clone.Shape = offsetShape(cloneShape(source.Shape), 20, 20)
	clone.Animations = cloneAnimations(source.Animations)
	next.Elements[p.NewID] = clone
	return next
}

// offsetShape nudges a duplicated shape so it does not sit exactly on
// top of its source.
func offsetShape(s Shape, dx, dy float64) Shape {
	switch v := s.(type) {
	case Rect:
		v.Origin.X += dx
		v.Origin.Y += dy
		return v
	case Circle:
		v.Center.X += dx
		v.Center.Y += dy
		return v
	case Image:
		v.Origin.X += dx
		v.Origin.Y += dy
		return v
	default:
		return s
	}
}

func applyReorder(s State, p ReorderElementsPayload) State {
	if _, ok := s.Elements[p.ID]; !ok {
		return s
	}

	ordered := zOrder(s.Elements)
	idx := -1
	for i, id := range ordered {
		if id == p.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return s
	}

	next := fork(s)
	el := next.Elements[p.ID]

	switch p.Direction {
	case ReorderUp:
		if idx == len(ordered)-1 {
			return s
		}
		neighbor := next.Elements[ordered[idx+1]]
		el.ZIndex, neighbor.ZIndex = neighbor.ZIndex, el.ZIndex
		next.Elements[neighbor.ID] = neighbor
	case ReorderDown:
		if idx == 0 {
			return s
		}
		neighbor := next.Elements[ordered[idx-1]]
		el.ZIndex, neighbor.ZIndex = neighbor.ZIndex, el.ZIndex
		next.Elements[neighbor.ID] = neighbor
	case ReorderTop:
		maxZ := next.Elements[ordered[len(ordered)-1]].ZIndex
		el.ZIndex = maxZ + 1
	case ReorderBottom:
		minZ := next.Elements[ordered[0]].ZIndex
		el.ZIndex = minZ - 1
	default:
		return s
	}

	next.Elements[p.ID] = el
	return next
}

// zOrder returns element ids sorted back-to-front. zIndex ties break on
// element id so the order is identical on every replica.
func zOrder(elements map[string]Element) []string {
	ids := make([]string, 0, len(elements))
	for id := range elements {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := elements[ids[i]], elements[ids[j]]
		if a.ZIndex != b.ZIndex {
			return a.ZIndex < b.ZIndex
		}
		return a.ID < b.ID
	})
	return ids
}

func applySetLocked(s State, id string, locked bool) State {
	el, ok := s.Elements[id]
	if !ok {
		return s
	}
	next := fork(s)
	el.Locked = locked
	next.Elements[id] = el
	return next
}

func applyToggleVisibility(s State, p ToggleVisibilityPayload) State {
	el, ok := s.Elements[p.ID]
	if !ok {
		return s
	}
	next := fork(s)
	el.Visible = !el.Visible
	next.Elements[p.ID] = el
	return next
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
