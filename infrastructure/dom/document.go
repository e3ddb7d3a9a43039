// Package dom is an in-memory DOM built on golang.org/x/net/html.
//
// It backs the engine in tests and in the static "show" command, and the browser
// adapters rebuild every captured page snapshot into it so the scanner only ever
// reads one Document implementation.
package dom

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultViewport matches the browser controller's default window size.
var DefaultViewport = entities.Viewport{Width: 1280, Height: 720}

// AttrWrite is an attribute write recorded for a committer.
type AttrWrite struct {
	Node  *Node
	Name  string
	Value string
}

// HitTestFunc resolves a point to a node. ok=false falls back to geometric hit-testing.
type HitTestFunc func(p entities.Point) (node *Node, ok bool)

// CommitFunc flushes attribute writes to wherever the document was captured from.
type CommitFunc func(ctx context.Context, writes []AttrWrite) error

type observer struct {
	id int
	fn func([]interfaces.MutationRecord)
}

// Document is a mutable, concurrency-safe HTML document with optional layout.
type Document struct {
	mu       sync.RWMutex
	root     *html.Node
	url      string
	title    string
	viewport entities.Viewport

	hitTest   HitTestFunc
	committer CommitFunc
	pending   []AttrWrite

	wrapMu  sync.Mutex
	wrapped map[*html.Node]*Node

	obsMu      sync.Mutex
	observers  []observer
	nextObs    int
	batchDepth int
	batched    []interfaces.MutationRecord

	historyOnce sync.Once
	history     *History
}

// Parse parses a full HTML document.
func Parse(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return NewDocument(root), nil
}

// NewDocument wraps an already parsed tree. root should be an html.DocumentNode.
func NewDocument(root *html.Node) *Document {
	d := &Document{
		root:     root,
		viewport: DefaultViewport,
		wrapped:  make(map[*html.Node]*Node),
	}
	if root != nil {
		d.title = strings.TrimSpace(goquery.NewDocumentFromNode(root).Find("title").First().Text())
	}
	return d
}

// Document implements interfaces.DOM by returning the live document itself.
func (d *Document) Document(ctx context.Context) (interfaces.Document, error) {
	if d == nil || d.root == nil {
		return nil, interfaces.ErrNoDocument
	}
	return d, nil
}

func (d *Document) URL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.url
}

func (d *Document) SetURL(url string) {
	d.mu.Lock()
	d.url = url
	d.mu.Unlock()
}

func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.title
}

func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	d.title = title
	d.mu.Unlock()
}

func (d *Document) Viewport() entities.Viewport {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.viewport
}

func (d *Document) SetViewport(v entities.Viewport) {
	d.mu.Lock()
	d.viewport = v
	d.mu.Unlock()
}

// SetHitTest installs a resolver consulted before geometric hit-testing.
func (d *Document) SetHitTest(fn HitTestFunc) {
	d.mu.Lock()
	d.hitTest = fn
	d.mu.Unlock()
}

// SetCommitter enables write tracking; Commit hands the recorded writes to fn.
func (d *Document) SetCommitter(fn CommitFunc) {
	d.mu.Lock()
	d.committer = fn
	d.mu.Unlock()
}

// Commit flushes attribute writes recorded since the last commit.
func (d *Document) Commit(ctx context.Context) error {
	d.mu.Lock()
	writes, fn := d.pending, d.committer
	d.pending = nil
	d.mu.Unlock()

	if fn == nil || len(writes) == 0 {
		return nil
	}
	return fn(ctx, writes)
}

// Root returns the underlying document node.
func (d *Document) Root() *html.Node {
	return d.root
}

func (d *Document) Body() interfaces.Node {
	return asNode(d.BodyNode())
}

// BodyNode returns the body element, or nil.
func (d *Document) BodyNode() *Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b := findFirst(d.root, func(n *html.Node) bool { return n.Type == html.ElementNode && n.Data == "body" })
	return d.wrap(b)
}

func (d *Document) QueryAll(selector string) []interfaces.Node {
	return asNodes(d.FindAll(selector))
}

// Find returns the first element matching selector, or nil.
func (d *Document) Find(selector string) *Node {
	all := d.FindAll(selector)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// FindAll returns every element matching selector in document order.
func (d *Document) FindAll(selector string) []*Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wrapAll(queryAll(d.root, selector))
}

// Wrap returns the stable Node wrapper for h.
func (d *Document) Wrap(h *html.Node) *Node {
	return d.wrap(h)
}

func (d *Document) wrap(h *html.Node) *Node {
	if h == nil {
		return nil
	}
	d.wrapMu.Lock()
	defer d.wrapMu.Unlock()
	if n, ok := d.wrapped[h]; ok {
		return n
	}
	n := &Node{doc: d, h: h}
	d.wrapped[h] = n
	return n
}

func (d *Document) lookup(h *html.Node) *Node {
	d.wrapMu.Lock()
	defer d.wrapMu.Unlock()
	return d.wrapped[h]
}

func (d *Document) wrapAll(hs []*html.Node) []*Node {
	out := make([]*Node, 0, len(hs))
	for _, h := range hs {
		out = append(out, d.wrap(h))
	}
	return out
}

// attached reports whether h is reachable from the document root. Caller holds mu.
func (d *Document) attached(h *html.Node) bool {
	for cur := h; cur != nil; cur = cur.Parent {
		if cur == d.root {
			return true
		}
	}
	return false
}

// ParseFragment parses markup in a body context. The returned nodes are detached.
func (d *Document) ParseFragment(src string) ([]*Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	parsed, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	return d.wrapAll(parsed), nil
}

// Append parses src and appends the resulting nodes to parent as one mutation.
func (d *Document) Append(parent *Node, src string) ([]*Node, error) {
	nodes, err := d.ParseFragment(src)
	if err != nil {
		return nil, err
	}
	d.AppendNodes(parent, nodes...)

	var elements []*Node
	for _, n := range nodes {
		if n.h.Type == html.ElementNode {
			elements = append(elements, n)
		}
	}
	return elements, nil
}

// AppendNodes moves children under parent and emits one childList record.
func (d *Document) AppendNodes(parent *Node, children ...*Node) {
	if parent == nil || len(children) == 0 {
		return
	}
	d.mu.Lock()
	var added []interfaces.Node
	for _, c := range children {
		if c.h.Parent != nil {
			c.h.Parent.RemoveChild(c.h)
		}
		parent.h.AppendChild(c.h)
		if c.h.Type == html.ElementNode {
			added = append(added, c)
		}
	}
	attached := d.attached(parent.h)
	d.mu.Unlock()

	if attached {
		d.emit(interfaces.MutationRecord{Kind: interfaces.MutationChildList, Target: parent, Added: added})
	}
}

// Remove detaches n from its parent.
func (d *Document) Remove(n *Node) {
	if n == nil {
		return
	}
	d.mu.Lock()
	parent := n.h.Parent
	attached := parent != nil && d.attached(parent)
	if parent != nil {
		parent.RemoveChild(n.h)
	}
	d.mu.Unlock()

	if attached {
		d.emit(interfaces.MutationRecord{Kind: interfaces.MutationChildList, Target: d.wrap(parent)})
	}
}

// Elements returns every element in document order.
func (d *Document) Elements() []*Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var hs []*html.Node
	walk(d.root, func(h *html.Node) bool {
		if h.Type == html.ElementNode {
			hs = append(hs, h)
		}
		return true
	})
	return d.wrapAll(hs)
}

func asNode(n *Node) interfaces.Node {
	if n == nil {
		return nil
	}
	return n
}

func asNodes(ns []*Node) []interfaces.Node {
	out := make([]interfaces.Node, 0, len(ns))
	for _, n := range ns {
		out = append(out, n)
	}
	return out
}

// walk visits h and its descendants in document order until fn returns false
// for a node, which skips that node's subtree.
func walk(h *html.Node, fn func(*html.Node) bool) {
	if h == nil {
		return
	}
	if !fn(h) {
		return
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(h *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(h, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}
