package scene

// ElementUpdates is the recursive partial-update payload for
// UPDATE_ELEMENT. Nil fields are left untouched; present fields replace
// scalars and merge nested objects field-by-field.
type ElementUpdates struct {
	Name         *string        `json:"name,omitempty"`
	Fill         *string        `json:"fill,omitempty"`
	Stroke       *string        `json:"stroke,omitempty"`
	StrokeWidth  *float64       `json:"strokeWidth,omitempty"`
	CornerRadius *float64       `json:"cornerRadius,omitempty"`
	Shadow       *ShadowUpdates `json:"shadow,omitempty"`
	Opacity      *float64       `json:"opacity,omitempty"`
	Visible      *bool          `json:"visible,omitempty"`
	Shape        *ShapeUpdates  `json:"shape,omitempty"`
}

// ShadowUpdates merges into an element's shadow.
type ShadowUpdates struct {
	Color *string  `json:"color,omitempty"`
	Blur  *float64 `json:"blur,omitempty"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
}

// ShapeUpdates names at most one shape variant to merge. A variant that
// does not match the element's current shape is ignored in full; the
// remaining element-level updates still apply. A mismatch usually means
// the geometry edit raced a shape change and is stale, while the
// scalar edits riding along are not.
type ShapeUpdates struct {
	Rect   *RectUpdates   `json:"Rect,omitempty"`
	Circle *CircleUpdates `json:"Circle,omitempty"`
	Image  *ImageUpdates  `json:"Image,omitempty"`
	Group  *GroupUpdates  `json:"Group,omitempty"`
}

// RectUpdates merges into a Rect variant.
type RectUpdates struct {
	Origin *PointUpdates `json:"origin,omitempty"`
	Width  *float64      `json:"width,omitempty"`
	Height *float64      `json:"height,omitempty"`
}

// CircleUpdates merges into a Circle variant.
type CircleUpdates struct {
	Center *PointUpdates `json:"center,omitempty"`
	Radius *float64      `json:"radius,omitempty"`
}

// ImageUpdates merges into an Image variant.
type ImageUpdates struct {
	Src    *string       `json:"src,omitempty"`
	Width  *float64      `json:"width,omitempty"`
	Height *float64      `json:"height,omitempty"`
	Origin *PointUpdates `json:"origin,omitempty"`
}

// GroupUpdates is accepted on the wire but ignored: group membership
// changes only through GROUP_ELEMENTS/UNGROUP_ELEMENTS, which keep the
// parentId bookkeeping and cycle checks in one place.
type GroupUpdates struct {
	Children *[]string `json:"children,omitempty"`
}

// PointUpdates merges into a Point. Updating only x must not erase y.
type PointUpdates struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
}

// mergeElement returns el with updates applied. el is a value copy, so
// scalar writes are already isolated from the previous snapshot; only
// the shape is rebuilt through mergeShape.
func mergeElement(el Element, u ElementUpdates) Element {
	if u.Name != nil {
		el.Name = *u.Name
	}
	if u.Fill != nil {
		el.Fill = *u.Fill
	}
	if u.Stroke != nil {
		el.Stroke = *u.Stroke
	}
	if u.StrokeWidth != nil {
		el.StrokeWidth = *u.StrokeWidth
	}
	if u.CornerRadius != nil {
		el.CornerRadius = *u.CornerRadius
	}
	if u.Opacity != nil {
		el.Opacity = clampOpacity(*u.Opacity)
	}
	if u.Visible != nil {
		el.Visible = *u.Visible
	}
	if u.Shadow != nil {
		if u.Shadow.Color != nil {
			el.Shadow.Color = *u.Shadow.Color
		}
		if u.Shadow.Blur != nil {
			el.Shadow.Blur = *u.Shadow.Blur
		}
		if u.Shadow.X != nil {
			el.Shadow.X = *u.Shadow.X
		}
		if u.Shadow.Y != nil {
			el.Shadow.Y = *u.Shadow.Y
		}
	}
	if u.Shape != nil {
		el.Shape = mergeShape(el.Shape, *u.Shape)
	}
	return el
}

// mergeShape merges a shape update into the current variant. Updates
// naming a different variant leave the shape unchanged.
func mergeShape(s Shape, u ShapeUpdates) Shape {
	switch v := s.(type) {
	case Rect:
		if u.Rect == nil {
			return s
		}
		if u.Rect.Origin != nil {
			v.Origin = mergePoint(v.Origin, *u.Rect.Origin)
		}
		if u.Rect.Width != nil {
			v.Width = *u.Rect.Width
		}
		if u.Rect.Height != nil {
			v.Height = *u.Rect.Height
		}
		return v
	case Circle:
		if u.Circle == nil {
			return s
		}
		if u.Circle.Center != nil {
			v.Center = mergePoint(v.Center, *u.Circle.Center)
		}
		if u.Circle.Radius != nil {
			v.Radius = *u.Circle.Radius
		}
		return v
	case Image:
		if u.Image == nil {
			return s
		}
		if u.Image.Src != nil {
			v.Src = *u.Image.Src
		}
		if u.Image.Width != nil {
			v.Width = *u.Image.Width
		}
		if u.Image.Height != nil {
			v.Height = *u.Image.Height
		}
		if u.Image.Origin != nil {
			v.Origin = mergePoint(v.Origin, *u.Image.Origin)
		}
		return v
	case Group:
		// Membership edits go through GROUP_ELEMENTS/UNGROUP_ELEMENTS.
		return s
	default:
		return s
	}
}

func mergePoint(p Point, u PointUpdates) Point {
	if u.X != nil {
		p.X = *u.X
	}
	if u.Y != nil {
		p.Y = *u.Y
	}
	return p
}

func clampOpacity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
