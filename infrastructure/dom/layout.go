package dom

import (
	"math"
	"strings"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"golang.org/x/net/html"
)

// Elements the user agent stylesheet never renders.
var hiddenByDefault = map[string]bool{
	"head": true, "script": true, "style": true, "template": true,
	"meta": true, "link": true, "title": true, "noscript": true,
}

var blockByDefault = map[string]bool{
	"html": true, "body": true, "div": true, "p": true, "section": true, "nav": true,
	"header": true, "footer": true, "main": true, "form": true, "ul": true, "ol": true,
	"li": true, "table": true, "details": true, "summary": true, "fieldset": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "article": true, "aside": true,
}

// computedStyle resolves inline declarations, UA defaults, inheritance and overrides.
// Caller holds d.mu.
func (d *Document) computedStyle(h *html.Node) entities.ComputedStyle {
	if h == nil || h.Type != html.ElementNode {
		return entities.ComputedStyle{Display: "block", Visibility: "visible", Opacity: "1", PointerEvents: "auto", Cursor: "auto"}
	}

	inline, _ := getAttr(h, "style")
	decls := parseInlineStyle(inline)
	cs := entities.ComputedStyle{
		Display:       decls["display"],
		Visibility:    decls["visibility"],
		Opacity:       decls["opacity"],
		PointerEvents: decls["pointer-events"],
		Cursor:        decls["cursor"],
	}

	tag := strings.ToLower(h.Data)
	if cs.Display == "" {
		_, hiddenAttr := getAttr(h, "hidden")
		typ, _ := getAttr(h, "type")
		switch {
		case hiddenAttr, hiddenByDefault[tag], tag == "input" && strings.EqualFold(typ, "hidden"):
			cs.Display = "none"
		case blockByDefault[tag]:
			cs.Display = "block"
		default:
			cs.Display = "inline"
		}
	}
	if cs.Opacity == "" {
		cs.Opacity = "1"
	}

	if n := d.lookup(h); n != nil && n.style != nil {
		o := n.style
		if o.Display != "" {
			cs.Display = o.Display
		}
		if o.Visibility != "" {
			cs.Visibility = o.Visibility
		}
		if o.Opacity != "" {
			cs.Opacity = o.Opacity
		}
		if o.PointerEvents != "" {
			cs.PointerEvents = o.PointerEvents
		}
		if o.Cursor != "" {
			cs.Cursor = o.Cursor
		}
	}

	inherits := func(v string) bool { return v == "" || v == "inherit" }
	if inherits(cs.Visibility) || inherits(cs.PointerEvents) || inherits(cs.Cursor) {
		parent := d.computedStyle(parentElement(h))
		if inherits(cs.Visibility) {
			cs.Visibility = parent.Visibility
		}
		if inherits(cs.PointerEvents) {
			cs.PointerEvents = parent.PointerEvents
		}
		if inherits(cs.Cursor) {
			cs.Cursor = parent.Cursor
		}
	}
	return cs
}

// displayNone reports whether h or any ancestor is display:none. Caller holds d.mu.
func (d *Document) displayNone(h *html.Node) bool {
	for cur := h; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if d.computedStyle(cur).Display == "none" {
			return true
		}
	}
	return false
}

// zIndex returns the nearest explicit stacking order on h or its ancestors. Caller holds d.mu.
func (d *Document) zIndex(h *html.Node) int {
	for cur := h; cur != nil; cur = cur.Parent {
		if n := d.lookup(cur); n != nil && n.zIndex != 0 {
			return n.zIndex
		}
	}
	return 0
}

// ElementFromPoint mirrors document.elementFromPoint: the topmost rendered element
// whose box contains p, skipping hidden and pointer-events:none elements.
func (d *Document) ElementFromPoint(p entities.Point) interfaces.Node {
	return asNode(d.NodeFromPoint(p))
}

// NodeFromPoint is ElementFromPoint returning the concrete wrapper.
func (d *Document) NodeFromPoint(p entities.Point) *Node {
	d.mu.RLock()
	hit := d.hitTest
	d.mu.RUnlock()
	if hit != nil {
		if n, ok := hit(p); ok {
			return n
		}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	v := d.viewport
	if p.X < 0 || p.Y < 0 || p.X >= v.Width || p.Y >= v.Height {
		return nil
	}

	var best *html.Node
	bestZ := math.MinInt
	walk(d.root, func(h *html.Node) bool {
		if h.Type != html.ElementNode {
			return true
		}
		cs := d.computedStyle(h)
		if cs.Display == "none" {
			return false
		}
		if cs.Visibility == "hidden" || cs.Visibility == "collapse" || cs.PointerEvents == "none" {
			return true
		}
		n := d.lookup(h)
		if n == nil || n.rect == nil || !n.rect.Contains(p) {
			return true
		}
		if z := d.zIndex(h); z >= bestZ {
			best, bestZ = h, z
		}
		return true
	})
	return d.wrap(best)
}

// AutoLayout gives every rendered element its own full-width row in document order
// and grows the viewport to fit, so no element occludes another. It is only meant
// for diagnostics over static HTML files, where no layout engine is available.
func AutoLayout(d *Document, rowHeight float64) {
	if rowHeight <= 0 {
		rowHeight = 24
	}
	var rows []*Node
	d.mu.RLock()
	width := d.viewport.Width
	walk(d.root, func(h *html.Node) bool {
		if h.Type != html.ElementNode {
			return true
		}
		if d.computedStyle(h).Display == "none" {
			return false
		}
		rows = append(rows, d.wrap(h))
		return true
	})
	d.mu.RUnlock()

	y := 0.0
	for _, n := range rows {
		n.SetRect(entities.Rect{X: 0, Y: y, Width: width, Height: rowHeight})
		y += rowHeight
	}
	d.SetViewport(entities.Viewport{Width: width, Height: math.Max(y, 1)})
}

func parentElement(h *html.Node) *html.Node {
	if h == nil || h.Parent == nil || h.Parent.Type != html.ElementNode {
		return nil
	}
	return h.Parent
}
