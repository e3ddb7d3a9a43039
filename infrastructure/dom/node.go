package dom

import (
	"strings"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Node wraps one element of a Document. Layout and live DOM properties that HTML
// markup cannot express (bounding box, disabled property, current value) are held
// as overrides on the wrapper.
type Node struct {
	doc *Document
	h   *html.Node

	rect         *entities.Rect
	style        *entities.ComputedStyle
	zIndex       int
	disabled     *bool
	value        *string
	checked      *bool
	clickHandler bool
}

var _ interfaces.Node = (*Node)(nil)

// HTML returns the underlying html node.
func (n *Node) HTML() *html.Node {
	return n.h
}

func (n *Node) TagName() string {
	return strings.ToLower(n.h.Data)
}

func (n *Node) Attr(name string) (string, bool) {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return getAttr(n.h, name)
}

func (n *Node) Attrs() map[string]string {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	out := make(map[string]string, len(n.h.Attr))
	for _, a := range n.h.Attr {
		out[a.Key] = a.Val
	}
	return out
}

// SetAttr writes an attribute and emits an attributes mutation when attached.
func (n *Node) SetAttr(name, value string) {
	name = strings.ToLower(name)
	d := n.doc

	d.mu.Lock()
	setAttr(n.h, name, value)
	if d.committer != nil {
		d.pending = append(d.pending, AttrWrite{Node: n, Name: name, Value: value})
	}
	attached := d.attached(n.h)
	d.mu.Unlock()

	if attached {
		d.emit(interfaces.MutationRecord{Kind: interfaces.MutationAttributes, Target: n, AttributeName: name})
	}
}

// RemoveAttr deletes an attribute and emits an attributes mutation when attached.
func (n *Node) RemoveAttr(name string) {
	name = strings.ToLower(name)
	d := n.doc

	d.mu.Lock()
	removed := false
	for i, a := range n.h.Attr {
		if a.Key == name {
			n.h.Attr = append(n.h.Attr[:i], n.h.Attr[i+1:]...)
			removed = true
			break
		}
	}
	attached := d.attached(n.h)
	d.mu.Unlock()

	if removed && attached {
		d.emit(interfaces.MutationRecord{Kind: interfaces.MutationAttributes, Target: n, AttributeName: name})
	}
}

func (n *Node) Parent() interfaces.Node {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	p := n.h.Parent
	if p == nil || p.Type != html.ElementNode {
		return nil
	}
	return n.doc.wrap(p)
}

func (n *Node) Children() []interfaces.Node {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	var out []interfaces.Node
	for c := n.h.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, n.doc.wrap(c))
		}
	}
	return out
}

func (n *Node) Text() string {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return goquery.NewDocumentFromNode(n.h).Text()
}

func (n *Node) Style() entities.ComputedStyle {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return n.doc.computedStyle(n.h)
}

// Rect returns the layout box. Nodes inside a display:none subtree have an empty box;
// detached nodes have none at all.
func (n *Node) Rect() (entities.Rect, bool) {
	d := n.doc
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.attached(n.h) {
		return entities.Rect{}, false
	}
	if d.displayNone(n.h) || n.rect == nil {
		return entities.Rect{}, true
	}
	return *n.rect, true
}

func (n *Node) Disabled() bool {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	if n.disabled != nil {
		return *n.disabled
	}
	if !disableable[n.TagName()] {
		return false
	}
	for cur := n.h; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if _, ok := getAttr(cur, "disabled"); ok && (cur == n.h || cur.Data == "fieldset") {
			return true
		}
	}
	return false
}

var disableable = map[string]bool{
	"button": true, "input": true, "select": true, "textarea": true,
	"optgroup": true, "option": true, "fieldset": true,
}

func (n *Node) FormValue() (string, bool) {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	if n.value != nil {
		return *n.value, true
	}
	switch n.TagName() {
	case "input", "option", "button":
		v, _ := getAttr(n.h, "value")
		return v, true
	case "textarea":
		return textContent(n.h), true
	case "select":
		var first, selected *html.Node
		walk(n.h, func(c *html.Node) bool {
			if c.Type == html.ElementNode && c.Data == "option" {
				if first == nil {
					first = c
				}
				if _, ok := getAttr(c, "selected"); ok && selected == nil {
					selected = c
				}
			}
			return true
		})
		if selected == nil {
			selected = first
		}
		if selected == nil {
			return "", true
		}
		if v, ok := getAttr(selected, "value"); ok {
			return v, true
		}
		return strings.TrimSpace(textContent(selected)), true
	}
	return "", false
}

func (n *Node) Checked() (bool, bool) {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	if n.TagName() != "input" {
		return false, false
	}
	t, _ := getAttr(n.h, "type")
	t = strings.ToLower(t)
	if t != "checkbox" && t != "radio" {
		return false, false
	}
	if n.checked != nil {
		return *n.checked, true
	}
	_, ok := getAttr(n.h, "checked")
	return ok, true
}

func (n *Node) HasClickHandler() bool {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	if n.clickHandler {
		return true
	}
	_, ok := getAttr(n.h, "onclick")
	return ok
}

func (n *Node) Contains(other interfaces.Node) bool {
	o, ok := other.(*Node)
	if !ok || o == nil || o.doc != n.doc {
		return false
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	for cur := o.h; cur != nil; cur = cur.Parent {
		if cur == n.h {
			return true
		}
	}
	return false
}

func (n *Node) Matches(selector string) bool {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return matches(n.h, selector)
}

func (n *Node) QueryAll(selector string) []interfaces.Node {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return asNodes(n.doc.wrapAll(queryAll(n.h, selector)))
}

// Find returns the first matching descendant, or nil.
func (n *Node) Find(selector string) *Node {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	all := queryAll(n.h, selector)
	if len(all) == 0 {
		return nil
	}
	return n.doc.wrap(all[0])
}

// SetRect sets the viewport-relative layout box.
func (n *Node) SetRect(r entities.Rect) *Node {
	n.doc.mu.Lock()
	n.rect = &r
	n.doc.mu.Unlock()
	return n
}

// SetStyle overrides computed style properties; empty fields keep the computed value.
func (n *Node) SetStyle(s entities.ComputedStyle) *Node {
	n.doc.mu.Lock()
	n.style = &s
	n.doc.mu.Unlock()
	return n
}

// SetZIndex orders the node for hit-testing. Higher values paint on top.
func (n *Node) SetZIndex(z int) *Node {
	n.doc.mu.Lock()
	n.zIndex = z
	n.doc.mu.Unlock()
	return n
}

// SetDisabledProperty overrides the DOM disabled property independently of the attribute.
func (n *Node) SetDisabledProperty(disabled bool) *Node {
	n.doc.mu.Lock()
	n.disabled = &disabled
	n.doc.mu.Unlock()
	return n
}

func (n *Node) SetFormValue(v string) *Node {
	n.doc.mu.Lock()
	n.value = &v
	n.doc.mu.Unlock()
	return n
}

func (n *Node) SetChecked(checked bool) *Node {
	n.doc.mu.Lock()
	n.checked = &checked
	n.doc.mu.Unlock()
	return n
}

// SetClickHandler marks the node as having a script-attached click listener.
func (n *Node) SetClickHandler(has bool) *Node {
	n.doc.mu.Lock()
	n.clickHandler = has
	n.doc.mu.Unlock()
	return n
}

func getAttr(h *html.Node, name string) (string, bool) {
	if h == nil {
		return "", false
	}
	for _, a := range h.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(h *html.Node, name, value string) {
	for i, a := range h.Attr {
		if a.Key == name {
			h.Attr[i].Val = value
			return
		}
	}
	h.Attr = append(h.Attr, html.Attribute{Key: name, Val: value})
}

func textContent(h *html.Node) string {
	var b strings.Builder
	walk(h, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		return true
	})
	return b.String()
}
