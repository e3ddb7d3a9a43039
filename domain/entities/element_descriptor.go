package entities

// ElementDescriptor is the recorded snapshot of one interactive element.
// Every field is copied at scan time; nothing here is a live reference.
type ElementDescriptor struct {
	TargetID        string            `json:"targetId"`
	InteractionType InteractionType   `json:"interactionType"`
	ComponentName   *string           `json:"componentName"`
	TagName         string            `json:"tagName,omitempty"`
	ElementType     string            `json:"elementType,omitempty"`
	ID              string            `json:"id,omitempty"`
	ClassName       string            `json:"className,omitempty"`
	Name            string            `json:"name,omitempty"`
	Href            string            `json:"href,omitempty"`
	Value           string            `json:"value,omitempty"`
	Path            string            `json:"path"`
	Attributes      map[string]string `json:"attributes"`
	Position        Position          `json:"position"`
	Visible         bool              `json:"visible"`
	Interactable    bool              `json:"interactable"`
	Timestamp       int64             `json:"timestamp"`
}

// Clone returns a deep copy so callers can never mutate registry-owned data.
func (d ElementDescriptor) Clone() ElementDescriptor {
	out := d
	if d.ComponentName != nil {
		name := *d.ComponentName
		out.ComponentName = &name
	}
	if d.Attributes != nil {
		out.Attributes = make(map[string]string, len(d.Attributes))
		for k, v := range d.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

// Rect is an axis-aligned box in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Top() float64    { return r.Y }
func (r Rect) Left() float64   { return r.X }
func (r Rect) Bottom() float64 { return r.Y + r.Height }
func (r Rect) Right() float64  { return r.X + r.Width }

// Area returns zero for degenerate boxes.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Center returns the midpoint of the box.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside the box (edges inclusive on the top-left).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left() && p.X < r.Right() && p.Y >= r.Top() && p.Y < r.Bottom()
}

// Intersect returns the overlapping box, or a zero Rect when there is none.
func (r Rect) Intersect(o Rect) Rect {
	left := max(r.Left(), o.Left())
	top := max(r.Top(), o.Top())
	right := min(r.Right(), o.Right())
	bottom := min(r.Bottom(), o.Bottom())
	if right <= left || bottom <= top {
		return Rect{}
	}
	return Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Translate shifts the box by dx, dy.
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Point is a position in CSS pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position describes where an element sits relative to the viewport and the page.
type Position struct {
	Viewport          Rect    `json:"viewport"`
	Absolute          Rect    `json:"absolute"`
	Center            Point   `json:"center"`
	VisiblePercentage float64 `json:"visiblePercentage"`
}
