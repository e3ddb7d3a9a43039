package scanner

import (
	"math"
	"strconv"
	"strings"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"
)

// Classifier decides visibility and interactability.
//
// The occlusion probe is the only expensive step (one hit-test per node), so every
// cheaper check runs first. OcclusionCheck=false skips the probe entirely, trading
// precision for cost on pages with heavy mutation traffic.
type Classifier struct {
	OcclusionCheck bool
}

// NewClassifier returns a classifier with the occlusion probe enabled.
func NewClassifier() Classifier {
	return Classifier{OcclusionCheck: true}
}

// Visibility is the geometric result of a visibility check.
type Visibility struct {
	Visible           bool
	Rect              entities.Rect
	VisiblePercentage float64
}

// IsVisible reports whether n is rendered, non-empty, inside the viewport and not
// covered by an unrelated element at its visual centre.
func (c Classifier) IsVisible(doc interfaces.Document, n interfaces.Node) bool {
	return c.inspect(doc, n, nil).Visible
}

// IsInteractable reports whether n is visible and currently accepts input.
func (c Classifier) IsInteractable(doc interfaces.Document, n interfaces.Node) bool {
	return c.IsVisible(doc, n) && AcceptsInput(n)
}

// AcceptsInput applies the interactability checks that do not depend on geometry.
func AcceptsInput(n interfaces.Node) bool {
	if n == nil || n.Disabled() {
		return false
	}
	if n.Style().PointerEvents == "none" {
		return false
	}
	if v, ok := n.Attr("aria-disabled"); ok && strings.EqualFold(strings.TrimSpace(v), "true") {
		return false
	}
	if _, ok := n.Attr("disabled"); ok {
		return false
	}
	return true
}

func (c Classifier) inspect(doc interfaces.Document, n interfaces.Node, cache hitCache) Visibility {
	if doc == nil || n == nil {
		return Visibility{}
	}

	style := n.Style()
	if style.Display == "none" || style.Visibility == "hidden" || zeroOpacity(style.Opacity) {
		return Visibility{}
	}

	rect, ok := n.Rect()
	if !ok || rect.Width <= 0 || rect.Height <= 0 {
		return Visibility{}
	}

	vp := doc.Viewport()
	if !(rect.Top() < vp.Height && rect.Left() < vp.Width && rect.Bottom() > 0 && rect.Right() > 0) {
		return Visibility{}
	}

	shown := rect.Intersect(vp.Bounds())
	result := Visibility{
		Rect:              rect,
		VisiblePercentage: percentage(shown.Area(), rect.Area()),
	}

	if c.OcclusionCheck {
		hit := cache.elementAt(doc, shown.Center())
		if hit == nil || !(hit == n || n.Contains(hit) || hit.Contains(n)) {
			return Visibility{}
		}
	}

	result.Visible = true
	return result
}

func zeroOpacity(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	scale := 1.0
	if strings.HasSuffix(v, "%") {
		v = strings.TrimSuffix(v, "%")
		scale = 100
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return false
	}
	return f/scale == 0
}

func percentage(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	p := part / whole * 100
	p = math.Round(p*100) / 100
	return math.Min(100, math.Max(0, p))
}

// hitCache memoizes hit-tests for one scan, keyed by the probe point at 0.1px.
// A nil cache disables memoization.
type hitCache map[[2]int64]interfaces.Node

func newHitCache() hitCache {
	return make(hitCache)
}

func (h hitCache) elementAt(doc interfaces.Document, p entities.Point) interfaces.Node {
	if h == nil {
		return doc.ElementFromPoint(p)
	}
	key := [2]int64{int64(math.Round(p.X * 10)), int64(math.Round(p.Y * 10))}
	if n, ok := h[key]; ok {
		return n
	}
	n := doc.ElementFromPoint(p)
	h[key] = n
	return n
}
