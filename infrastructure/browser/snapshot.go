package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"
	"ai_registry/infrastructure/dom"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// evalFunc runs a page function with one argument and returns its JSON result.
type evalFunc func(ctx context.Context, js string, arg any) ([]byte, error)

type snapshotNode struct {
	Text  *string         `json:"x,omitempty"`
	Tag   string          `json:"t,omitempty"`
	Attrs [][2]string     `json:"a,omitempty"`
	Rect  []float64       `json:"r,omitempty"`
	Style []string        `json:"s,omitempty"`
	Dis   *bool           `json:"d,omitempty"`
	Value *string         `json:"v,omitempty"`
	Check *bool           `json:"k,omitempty"`
	Click bool            `json:"h,omitempty"`
	Kids  []*snapshotNode `json:"c,omitempty"`
}

type pageSnapshot struct {
	URL      string        `json:"url"`
	Title    string        `json:"title"`
	Viewport []float64     `json:"viewport"`
	Root     *snapshotNode `json:"root"`
	Hits     [][3]float64  `json:"hits"`
}

// decodeSnapshot accepts either the JSON document or a JSON string holding it,
// since drivers differ in whether they unwrap string results.
func decodeSnapshot(raw []byte) (*pageSnapshot, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = []byte(s)
	}
	var snap pageSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode page snapshot: %w", err)
	}
	return &snap, nil
}

// buildDocument rebuilds a snapshot as an in-memory document. The returned slice
// maps snapshot indices to nodes, in the order the script numbered them.
func buildDocument(snap *pageSnapshot) (*dom.Document, []*dom.Node) {
	root := &html.Node{Type: html.DocumentNode}
	doc := dom.NewDocument(root)
	doc.SetURL(snap.URL)
	doc.SetTitle(snap.Title)

	vp := dom.DefaultViewport
	if len(snap.Viewport) == 4 {
		vp = entities.Viewport{Width: snap.Viewport[0], Height: snap.Viewport[1], ScrollX: snap.Viewport[2], ScrollY: snap.Viewport[3]}
	}
	doc.SetViewport(vp)

	var nodes []*dom.Node
	var build func(parent *html.Node, sn *snapshotNode)
	build = func(parent *html.Node, sn *snapshotNode) {
		if sn == nil {
			return
		}
		if sn.Text != nil {
			parent.AppendChild(&html.Node{Type: html.TextNode, Data: *sn.Text})
			return
		}
		tag := strings.ToLower(sn.Tag)
		h := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
		for _, a := range sn.Attrs {
			h.Attr = append(h.Attr, html.Attribute{Key: a[0], Val: a[1]})
		}
		parent.AppendChild(h)

		n := doc.Wrap(h)
		nodes = append(nodes, n)
		if len(sn.Rect) == 4 {
			n.SetRect(entities.Rect{X: sn.Rect[0], Y: sn.Rect[1], Width: sn.Rect[2], Height: sn.Rect[3]})
		}
		if len(sn.Style) == 5 {
			n.SetStyle(entities.ComputedStyle{
				Display:       sn.Style[0],
				Visibility:    sn.Style[1],
				Opacity:       sn.Style[2],
				PointerEvents: sn.Style[3],
				Cursor:        sn.Style[4],
			})
		}
		if sn.Dis != nil {
			n.SetDisabledProperty(*sn.Dis)
		}
		if sn.Value != nil {
			n.SetFormValue(*sn.Value)
		}
		if sn.Check != nil {
			n.SetChecked(*sn.Check)
		}
		if sn.Click {
			n.SetClickHandler(true)
		}
		for _, kid := range sn.Kids {
			build(h, kid)
		}
	}
	build(root, snap.Root)

	hits := make(map[[2]int64]*dom.Node, len(snap.Hits))
	for _, hit := range snap.Hits {
		idx := int(hit[2])
		var n *dom.Node
		if idx >= 0 && idx < len(nodes) {
			n = nodes[idx]
		}
		hits[pointKey(entities.Point{X: hit[0], Y: hit[1]})] = n
	}
	doc.SetHitTest(func(p entities.Point) (*dom.Node, bool) {
		n, ok := hits[pointKey(p)]
		return n, ok
	})

	return doc, nodes
}

func pointKey(p entities.Point) [2]int64 {
	return [2]int64{int64(math.Round(p.X * 10)), int64(math.Round(p.Y * 10))}
}

// committer writes attribute changes back to the snapshot's live elements.
func committer(eval evalFunc, nodes []*dom.Node) dom.CommitFunc {
	index := make(map[*dom.Node]int, len(nodes))
	for i, n := range nodes {
		index[n] = i
	}
	return func(ctx context.Context, writes []dom.AttrWrite) error {
		batch := make([][3]any, 0, len(writes))
		for _, w := range writes {
			if i, ok := index[w.Node]; ok {
				batch = append(batch, [3]any{i, w.Name, w.Value})
			}
		}
		if len(batch) == 0 {
			return nil
		}
		if _, err := eval(ctx, commitScript, batch); err != nil {
			return fmt.Errorf("failed to commit %d attribute writes: %w", len(batch), err)
		}
		return nil
	}
}

// capture takes a snapshot and returns it as a committable document.
func capture(ctx context.Context, eval evalFunc, selector string) (*dom.Document, error) {
	raw, err := eval(ctx, snapshotScript, map[string]string{"selector": selector})
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}
	snap, err := decodeSnapshot(raw)
	if err != nil {
		return nil, err
	}
	if snap.Root == nil {
		return nil, fmt.Errorf("page has no document element: %w", interfaces.ErrNoDocument)
	}
	doc, nodes := buildDocument(snap)
	doc.SetCommitter(committer(eval, nodes))
	return doc, nil
}

// decodeString unwraps a JSON string result.
func decodeString(raw []byte) ([]byte, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return []byte(s), nil
}
