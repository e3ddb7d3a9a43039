package dom

import (
	"context"
	"errors"
	"testing"

	"ai_registry/domain/entities"
	"ai_registry/domain/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	d, err := Parse(src)
	require.NoError(t, err)
	return d
}

func TestParse(t *testing.T) {
	d := mustParse(t, `<html><head><title> Checkout </title></head><body><button id="b">Pay</button></body></html>`)

	assert.Equal(t, "Checkout", d.Title())
	assert.Equal(t, DefaultViewport, d.Viewport())
	require.NotNil(t, d.Body())
	assert.Equal(t, "body", d.Body().TagName())
	assert.Len(t, d.QueryAll("button"), 1)

	got, err := d.Document(context.Background())
	require.NoError(t, err)
	assert.Same(t, d, got)
}

func TestEmptyDocument(t *testing.T) {
	var d *Document
	_, err := d.Document(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrNoDocument)
}

func TestParseInlineStyle(t *testing.T) {
	tests := map[string]map[string]string{
		"":                                {},
		"display:none":                    {"display": "none"},
		"DISPLAY: None; opacity: 0.5":     {"display": "none", "opacity": "0.5"},
		"display: block; display: none":   {"display": "none"},
		"pointer-events: none !important": {"pointer-events": "none"},
		"/* c */ cursor: pointer;":        {"cursor": "pointer"},
		"opacity:0%":                      {"opacity": "0%"},
		"visibility:hidden;;color:red":    {"visibility": "hidden", "color": "red"},
		"broken; display: inline":         {"display": "inline"},
	}
	for in, want := range tests {
		assert.Equal(t, want, parseInlineStyle(in), "%q", in)
	}
}

func TestComputedStyle(t *testing.T) {
	d := mustParse(t, `<html><body>
		<div id="hidden-parent" style="visibility:hidden; cursor:pointer"><span id="child">x</span></div>
		<div style="pointer-events:none"><a id="link" href="#" style="pointer-events:auto">x</a><b id="inert">x</b></div>
		<p id="attr" hidden>x</p>
		<input id="hidden-input" type="hidden">
		<script id="s"></script>
		<span id="inline">x</span>
	</body></html>`)

	child := d.Find("#child").Style()
	assert.Equal(t, "hidden", child.Visibility)
	assert.Equal(t, "pointer", child.Cursor)
	assert.Equal(t, "inline", child.Display)
	assert.Equal(t, "1", child.Opacity)

	assert.Equal(t, "auto", d.Find("#link").Style().PointerEvents)
	assert.Equal(t, "none", d.Find("#inert").Style().PointerEvents)
	assert.Equal(t, "none", d.Find("#attr").Style().Display)
	assert.Equal(t, "none", d.Find("#hidden-input").Style().Display)
	assert.Equal(t, "none", d.Find("#s").Style().Display)
	assert.Equal(t, "visible", d.Find("#inline").Style().Visibility)

	n := d.Find("#inline").SetStyle(entities.ComputedStyle{Display: "block", Opacity: "0"})
	assert.Equal(t, "block", n.Style().Display)
	assert.Equal(t, "0", n.Style().Opacity)
}

func TestRect(t *testing.T) {
	d := mustParse(t, `<html><body><div id="wrap"><button id="b">x</button></div></body></html>`)
	b := d.Find("#b")

	r, ok := b.Rect()
	assert.True(t, ok)
	assert.Equal(t, entities.Rect{}, r, "no layout yet")

	b.SetRect(entities.Rect{X: 1, Y: 2, Width: 3, Height: 4})
	r, ok = b.Rect()
	assert.True(t, ok)
	assert.Equal(t, entities.Rect{X: 1, Y: 2, Width: 3, Height: 4}, r)

	d.Find("#wrap").SetAttr("style", "display:none")
	r, _ = b.Rect()
	assert.Equal(t, entities.Rect{}, r)

	d.Remove(d.Find("#wrap"))
	_, ok = b.Rect()
	assert.False(t, ok)
}

func TestFormState(t *testing.T) {
	d := mustParse(t, `<html><body>
		<input id="text" value="hello">
		<input id="box" type="checkbox" checked>
		<textarea id="area">notes</textarea>
		<select id="sel"><option value="a">A</option><option value="b" selected>B</option></select>
		<select id="plain"><option>First</option></select>
		<fieldset disabled><button id="fs">x</button></fieldset>
		<div id="div" disabled>x</div>
	</body></html>`)

	v, ok := d.Find("#text").FormValue()
	assert.True(t, ok)
	assert.Equal(t, "hello", v)

	v, _ = d.Find("#area").FormValue()
	assert.Equal(t, "notes", v)
	v, _ = d.Find("#sel").FormValue()
	assert.Equal(t, "b", v)
	v, _ = d.Find("#plain").FormValue()
	assert.Equal(t, "First", v)
	_, ok = d.Find("#div").FormValue()
	assert.False(t, ok)

	checked, ok := d.Find("#box").Checked()
	assert.True(t, ok)
	assert.True(t, checked)
	d.Find("#box").SetChecked(false)
	checked, _ = d.Find("#box").Checked()
	assert.False(t, checked)
	_, ok = d.Find("#text").Checked()
	assert.False(t, ok)

	assert.True(t, d.Find("#fs").Disabled())
	assert.False(t, d.Find("#div").Disabled(), "div has no disabled property")
	assert.False(t, d.Find("#text").Disabled())
	assert.True(t, d.Find("#text").SetDisabledProperty(true).Disabled())

	d.Find("#text").SetFormValue("typed")
	v, _ = d.Find("#text").FormValue()
	assert.Equal(t, "typed", v)
}

func TestTreeNavigation(t *testing.T) {
	d := mustParse(t, `<html><body><ul id="list"><li>a</li><li class="x">b <em>c</em></li></ul></body></html>`)
	list := d.Find("#list")

	children := list.Children()
	require.Len(t, children, 2)
	assert.Same(t, list, children[0].Parent())
	assert.Equal(t, "b c", children[1].Text())
	assert.True(t, list.Contains(children[1]))
	assert.True(t, list.Contains(list))
	assert.False(t, children[1].Contains(list))
	assert.True(t, children[1].Matches("li.x"))
	assert.False(t, children[1].Matches("not a [valid selector"))
	assert.Len(t, list.QueryAll("li"), 2)
	assert.Empty(t, d.QueryAll("[["))
	assert.Nil(t, d.Body().Parent().Parent(), "html has no element parent")
	assert.Same(t, d.Find("em"), list.Find("em"))
}

func TestElementFromPoint(t *testing.T) {
	d := mustParse(t, `<html><body>
		<div id="base"></div>
		<div id="top"></div>
		<div id="ghost" style="visibility:hidden"></div>
		<div id="later"></div>
	</body></html>`)
	d.Find("#base").SetRect(entities.Rect{Width: 100, Height: 100})
	d.Find("#top").SetRect(entities.Rect{Width: 50, Height: 50}).SetZIndex(2)
	d.Find("#ghost").SetRect(entities.Rect{Width: 100, Height: 100}).SetZIndex(5)
	d.Find("#later").SetRect(entities.Rect{X: 60, Y: 60, Width: 40, Height: 40})

	assert.Same(t, d.Find("#top"), d.ElementFromPoint(entities.Point{X: 10, Y: 10}))
	assert.Same(t, d.Find("#later"), d.ElementFromPoint(entities.Point{X: 70, Y: 70}), "later sibling wins ties")
	assert.Same(t, d.Find("#base"), d.ElementFromPoint(entities.Point{X: 55, Y: 10}))
	assert.Nil(t, d.ElementFromPoint(entities.Point{X: 500, Y: 500}))
	assert.Nil(t, d.ElementFromPoint(entities.Point{X: -1, Y: 10}))
}

func TestHitTestOverride(t *testing.T) {
	d := mustParse(t, `<html><body><div id="a"></div><div id="b"></div></body></html>`)
	d.Find("#a").SetRect(entities.Rect{Width: 10, Height: 10})
	b := d.Find("#b")

	d.SetHitTest(func(p entities.Point) (*Node, bool) {
		if p.X < 5 {
			return b, true
		}
		return nil, false
	})
	assert.Same(t, b, d.ElementFromPoint(entities.Point{X: 1, Y: 1}))
	assert.Same(t, d.Find("#a"), d.ElementFromPoint(entities.Point{X: 6, Y: 1}))
}

func TestAutoLayout(t *testing.T) {
	d := mustParse(t, `<html><body><button id="a">a</button><div style="display:none"><button id="b">b</button></div><button id="c">c</button></body></html>`)
	AutoLayout(d, 10)

	a, _ := d.Find("#a").Rect()
	c, _ := d.Find("#c").Rect()
	b, _ := d.Find("#b").Rect()
	assert.Equal(t, 10.0, a.Height)
	assert.Greater(t, c.Y, a.Y)
	assert.Equal(t, entities.Rect{}, b)
	assert.GreaterOrEqual(t, d.Viewport().Height, c.Bottom())
	assert.Same(t, d.Find("#c"), d.ElementFromPoint(c.Center()))
}

func TestMutations(t *testing.T) {
	d := mustParse(t, `<html><body><main id="m"></main></body></html>`)
	var batches [][]interfaces.MutationRecord
	stop := d.Observe(func(r []interfaces.MutationRecord) { batches = append(batches, r) })

	added, err := d.Append(d.Find("#m"), `text <button>x</button><a href="#">y</a>`)
	require.NoError(t, err)
	require.Len(t, added, 2)
	require.Len(t, batches, 1)
	assert.Equal(t, interfaces.MutationChildList, batches[0][0].Kind)
	assert.Len(t, batches[0][0].Added, 2)

	added[0].SetAttr("Class", "primary")
	require.Len(t, batches, 2)
	assert.Equal(t, interfaces.MutationAttributes, batches[1][0].Kind)
	assert.Equal(t, "class", batches[1][0].AttributeName)
	assert.Same(t, added[0], batches[1][0].Target)

	d.Batch(func() {
		added[0].SetAttr("disabled", "")
		added[0].RemoveAttr("class")
		added[0].RemoveAttr("missing")
	})
	require.Len(t, batches, 3)
	assert.Len(t, batches[2], 2)

	detached, err := d.ParseFragment(`<button>detached</button>`)
	require.NoError(t, err)
	detached[0].SetAttr("class", "x")
	assert.Len(t, batches, 3, "detached nodes do not emit")

	d.Remove(added[1])
	assert.Len(t, batches, 4)

	stop()
	added[0].SetAttr("hidden", "")
	assert.Len(t, batches, 4)
}

func TestCommit(t *testing.T) {
	d := mustParse(t, `<html><body><button id="b">x</button></body></html>`)
	b := d.Find("#b")

	require.NoError(t, d.Commit(context.Background()), "no committer is a no-op")

	var got []AttrWrite
	d.SetCommitter(func(ctx context.Context, w []AttrWrite) error {
		got = append(got, w...)
		return nil
	})
	b.SetAttr("data-ai-target", "ai-target-b")
	require.NoError(t, d.Commit(context.Background()))
	require.Len(t, got, 1)
	assert.Equal(t, AttrWrite{Node: b, Name: "data-ai-target", Value: "ai-target-b"}, got[0])

	require.NoError(t, d.Commit(context.Background()))
	assert.Len(t, got, 1, "writes are flushed once")

	boom := errors.New("target closed")
	d.SetCommitter(func(context.Context, []AttrWrite) error { return boom })
	b.SetAttr("data-ai-action", "click")
	assert.ErrorIs(t, d.Commit(context.Background()), boom)
}

func TestHistory(t *testing.T) {
	d := mustParse(t, `<html><body></body></html>`)
	d.SetURL("https://app.test/")
	h := d.History()
	assert.Same(t, h, d.History())

	var events []entities.NavigationEvent
	unsubscribe := h.Subscribe(func(ev entities.NavigationEvent) { events = append(events, ev) })

	h.PushState("https://app.test/a")
	h.PushState("https://app.test/b")
	h.Back()
	h.ReplaceState("https://app.test/a2")
	h.Forward()
	h.Forward()
	h.Navigate("https://other.test/")

	assert.Equal(t, []entities.NavigationEvent{
		{URL: "https://app.test/a", Kind: entities.NavigationPush},
		{URL: "https://app.test/b", Kind: entities.NavigationPush},
		{URL: "https://app.test/a", Kind: entities.NavigationPop},
		{URL: "https://app.test/a2", Kind: entities.NavigationReplace},
		{URL: "https://app.test/b", Kind: entities.NavigationPop},
		{URL: "https://other.test/", Kind: entities.NavigationFull},
	}, events)
	assert.Equal(t, "https://other.test/", h.CurrentURL())
	assert.Equal(t, "https://other.test/", d.URL())

	unsubscribe()
	unsubscribe()
	h.Back()
	assert.Len(t, events, 6)
}

func TestValidSelector(t *testing.T) {
	assert.True(t, ValidSelector(`button, [role="tab"]`))
	assert.False(t, ValidSelector(`button[`))
}
