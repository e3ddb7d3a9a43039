package entities

// ComputedStyle carries the handful of computed CSS properties the classifiers read.
// Empty strings mean "initial value".
type ComputedStyle struct {
	Display       string `json:"display"`
	Visibility    string `json:"visibility"`
	Opacity       string `json:"opacity"`
	PointerEvents string `json:"pointerEvents"`
	Cursor        string `json:"cursor"`
}

// Viewport is the visible window of the page plus its scroll offset.
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	ScrollX float64 `json:"scrollX"`
	ScrollY float64 `json:"scrollY"`
}

// Bounds returns the viewport as a Rect in viewport coordinates.
func (v Viewport) Bounds() Rect {
	return Rect{Width: v.Width, Height: v.Height}
}
